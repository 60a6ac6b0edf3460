package model

import (
	"errors"
	"fmt"
)

var (
	// ErrScheduleUnavailable means no schedule data exists at all, so no phase
	// can be inferred. Callers retry with backoff.
	ErrScheduleUnavailable = errors.New("schedule unavailable")

	// ErrMalformedSnapshot marks a feed document that could not be decoded.
	// The game is skipped for the tick and its previous snapshot retained.
	ErrMalformedSnapshot = errors.New("malformed snapshot")

	// ErrCorruptDrive marks a drive dropped during assembly.
	ErrCorruptDrive = errors.New("corrupt drive data")
)

// FetchError reports a per-game fetch that failed after retries.
type FetchError struct {
	GameID   string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: failed after %d attempts: %v", e.GameID, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// CorruptDriveError describes why a drive was dropped.
type CorruptDriveError struct {
	Team   string
	Plays  int
	Reason string
}

func (e *CorruptDriveError) Error() string {
	return fmt.Sprintf("drive (%s, %d plays): %s", e.Team, e.Plays, e.Reason)
}

func (e *CorruptDriveError) Is(target error) bool { return target == ErrCorruptDrive }
