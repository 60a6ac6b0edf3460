package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/spf13/cobra"

	"github.com/pable/nflfeed/internal/aggregator"
	"github.com/pable/nflfeed/internal/model"
	"github.com/pable/nflfeed/internal/storage"
)

const analyzeSystemPrompt = `You are an NFL statistics analyst. You are given structured data from a
play-by-play feed tool and a question from the user.

Rules:
- Answer ONLY from the data provided. Never invent or estimate statistics.
- Always cite specific numbers when making a claim.
- If the data is insufficient to answer confidently, say so explicitly.
- Be concise.

Stat naming: "<category>_<field>", e.g. passing_yds, rushing_att, receiving_rec,
defense_sk (sacks; half sacks are 0.5), kicking_fgm. "*_tds" fields are
touchdowns. home is 1 for the home team and 2 for the away team.`

var (
	analyzeModel  string
	analyzeAPIKey string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "AI-written analysis of stored stats (requires ANTHROPIC_API_KEY)",
}

var analyzeGameCmd = &cobra.Command{
	Use:   "game <game-id-prefix> <question>",
	Short: "Analyze a stored game",
	Args:  cobra.ExactArgs(2),
	RunE:  runAnalyzeGame,
}

var analyzePlayerCmd = &cobra.Command{
	Use:   "player <player-id> <question>",
	Short: "Analyze a player's stored games",
	Args:  cobra.ExactArgs(2),
	RunE:  runAnalyzePlayer,
}

func init() {
	analyzeCmd.PersistentFlags().StringVar(&analyzeModel, "model", "claude-haiku-4-5-20251001", "Anthropic model to use")
	analyzeCmd.PersistentFlags().StringVar(&analyzeAPIKey, "api-key", "", "Anthropic API key (falls back to $ANTHROPIC_API_KEY)")

	analyzeCmd.AddCommand(analyzeGameCmd)
	analyzeCmd.AddCommand(analyzePlayerCmd)
}

// gameData is the JSON handed to the model for one game.
type gameData struct {
	Game        model.StoredGame         `json:"game"`
	ByQuarter   map[string][]int         `json:"points_by_quarter,omitempty"`
	ScoringPlay []string                 `json:"scoring_plays,omitempty"`
	Players     []model.ParticipantStats `json:"players"`
}

func runAnalyzeGame(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	data, err := buildGameData(db, args[0])
	if err != nil {
		return err
	}
	blob, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal game data: %w", err)
	}
	return callAnthropic(cmd.Context(), analyzeAPIKey, analyzeModel, string(blob), args[1])
}

func buildGameData(db *storage.DB, prefix string) (*gameData, error) {
	g, err := db.GetGameByPrefix(prefix)
	if err != nil {
		return nil, fmt.Errorf("query game: %w", err)
	}
	if g == nil {
		return nil, fmt.Errorf("no stored game with id prefix %q", prefix)
	}
	stats, err := db.GamePlayerStats(g.GameID)
	if err != nil {
		return nil, fmt.Errorf("get player stats: %w", err)
	}
	data := &gameData{Game: *g, Players: stats}

	snap, ok, err := db.LoadSnapshot(g.GameID)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if ok {
		data.ByQuarter = map[string][]int{snap.Home.Abbr: snap.Home.ByQuarter, snap.Away.Abbr: snap.Away.ByQuarter}
		for _, p := range snap.Plays() {
			if strings.Contains(strings.ToUpper(p.Desc), "TOUCHDOWN") || strings.Contains(p.Desc, "field goal is GOOD") {
				data.ScoringPlay = append(data.ScoringPlay, fmt.Sprintf("Q%d %s %s: %s", p.Quarter, p.Clock, p.Team, p.Desc))
			}
		}
	}
	return data, nil
}

func runAnalyzePlayer(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	games, err := db.PlayerGames(args[0])
	if err != nil {
		return fmt.Errorf("query player: %w", err)
	}
	if len(games) == 0 {
		return fmt.Errorf("no stored games for player %s", args[0])
	}

	type playerGame struct {
		Game  model.StoredGame   `json:"game"`
		Stats map[string]float64 `json:"stats"`
	}
	perGame := make([][]model.ParticipantStats, len(games))
	out := struct {
		Totals model.ParticipantStats `json:"totals"`
		Games  []playerGame           `json:"games"`
	}{}
	for i, g := range games {
		perGame[i] = []model.ParticipantStats{g.Stats}
		out.Games = append(out.Games, playerGame{Game: g.Game, Stats: g.Stats.Stats})
	}
	if total := aggregator.Combine(aggregator.Sum, perGame...); len(total) == 1 {
		out.Totals = total[0]
	}

	blob, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshal player data: %w", err)
	}
	return callAnthropic(cmd.Context(), analyzeAPIKey, analyzeModel, string(blob), args[1])
}

// callAnthropic streams a response from the Anthropic API and prints it to stdout.
func callAnthropic(ctx context.Context, apiKey, modelID, dataJSON, question string) error {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return fmt.Errorf("no API key: set ANTHROPIC_API_KEY or use --api-key")
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	userMsg := fmt.Sprintf("DATA:\n%s\n\nQUESTION: %s", dataJSON, question)

	fmt.Fprintln(os.Stdout, "\n--- Analysis -----------------------------------------")

	stream := client.Messages.NewStreaming(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(modelID),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: analyzeSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userMsg)),
		},
	})

	for stream.Next() {
		evt := stream.Current()
		if evt.Type == "content_block_delta" {
			delta := evt.AsContentBlockDelta()
			if delta.Delta.Type == "text_delta" {
				fmt.Fprint(os.Stdout, delta.Delta.AsTextDelta().Text)
			}
		}
	}
	fmt.Fprintln(os.Stdout, "\n------------------------------------------------------")

	if err := stream.Err(); err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "401") || strings.Contains(errStr, "authentication") {
			return fmt.Errorf("API authentication failed: check your API key")
		}
		return fmt.Errorf("streaming error: %w", err)
	}
	return nil
}
