// Package normalize computes content-derived identities for plays so that the
// same real event is recognised across snapshots even when the feed reassigns
// its play id.
package normalize

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/pable/nflfeed/internal/model"
)

// Key is the canonical identity of a play. Two plays are duplicates iff their
// keys are equal.
type Key [sha256.Size]byte

func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// Short returns the first 12 hex characters, for logs and tables.
func (k Key) Short() string {
	return k.String()[:12]
}

// leadingClock matches the "(14:56) " stamp GameCenter prefixes to most
// descriptions. It duplicates the play's clock and is sometimes omitted.
var leadingClock = regexp.MustCompile(`^\s*\(\s*\d{0,2}:\d{2}\s*\)\s*`)

// KeyOf returns the canonical key for a play: quarter, seconds remaining,
// normalized description and down/distance. The raw id and the stats do not
// participate.
func KeyOf(p model.Play) Key {
	return key(p, p.Quarter)
}

// ContentKey is KeyOf with the quarter left out. It pairs a play whose
// quarter was re-tagged upstream with its earlier report.
func ContentKey(p model.Play) Key {
	return key(p, 0)
}

func key(p model.Play, quarter int) Key {
	secs, ok := ClockSeconds(p.Clock)
	if !ok {
		secs = -1
	}
	desc := Description(p.Desc)

	h := sha256.New()
	var buf [8]byte
	for _, n := range []int64{int64(quarter), int64(secs), int64(p.Down), int64(p.YardsToGo)} {
		binary.BigEndian.PutUint64(buf[:], uint64(n))
		h.Write(buf[:])
	}
	binary.BigEndian.PutUint64(buf[:], uint64(len(desc)))
	h.Write(buf[:])
	h.Write([]byte(desc))

	var k Key
	copy(k[:], h.Sum(nil))
	return k
}

// Description normalizes play text: compatibility-decomposed and recomposed,
// case-folded, leading clock stamp removed, punctuation replaced by spaces and
// whitespace collapsed.
func Description(s string) string {
	s = norm.NFKC.String(s)
	s = leadingClock.ReplaceAllString(s, "")
	s = cases.Fold().String(s) // a Caser is stateful; never share one

	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

// ClockSeconds parses a "M:SS" or "MM:SS" game clock into seconds remaining.
// A bare ":SS" is accepted since the feed emits it in the final minute.
func ClockSeconds(clock string) (int, bool) {
	clock = strings.TrimSpace(clock)
	mm, ss, found := strings.Cut(clock, ":")
	if !found || len(ss) != 2 {
		return 0, false
	}
	m := 0
	if mm != "" {
		v, err := strconv.Atoi(mm)
		if err != nil || v < 0 {
			return 0, false
		}
		m = v
	}
	s, err := strconv.Atoi(ss)
	if err != nil || s < 0 || s > 59 {
		return 0, false
	}
	return m*60 + s, true
}
