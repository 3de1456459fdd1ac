package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hubenschmidt/persian-voice-chat/internal/reply"
)

var classifyJSON bool

var classifyCmd = &cobra.Command{
	Use:   "classify [text...]",
	Short: "Show intent, emotion and a reply for each argument",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runClassify,
}

func init() {
	classifyCmd.Flags().BoolVar(&classifyJSON, "json", false, "emit one JSON object per line")
}

type classification struct {
	Text       string  `json:"text"`
	Normalized string  `json:"normalized"`
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Emotion    string  `json:"emotion"`
	Reply      string  `json:"reply"`
}

func classifyAll(engine *reply.Engine, texts []string) []classification {
	out := make([]classification, 0, len(texts))
	for _, text := range texts {
		r := engine.Reply(text)
		out = append(out, classification{
			Text:       text,
			Normalized: reply.Normalize(text),
			Intent:     r.Intent,
			Confidence: r.Confidence,
			Emotion:    string(r.Emotion),
			Reply:      r.Text,
		})
	}
	return out
}

func runClassify(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	results := classifyAll(reply.NewEngine(nil), args)
	if classifyJSON {
		enc := json.NewEncoder(w)
		for _, c := range results {
			if err := enc.Encode(c); err != nil {
				return fmt.Errorf("encode: %w", err)
			}
		}
		return nil
	}
	for _, c := range results {
		fmt.Fprintf(w, "%s\t%s (%.2f)\t%s\t%s\n", strings.TrimSpace(c.Text), c.Intent, c.Confidence, c.Emotion, c.Reply)
	}
	return nil
}
