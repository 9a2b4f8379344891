package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/mindseye/internal/domain/event"
	"github.com/kailas-cloud/mindseye/internal/domain/search/filter"
	"github.com/kailas-cloud/mindseye/internal/domain/search/request"
	"github.com/kailas-cloud/mindseye/internal/domain/stats"
	"github.com/kailas-cloud/mindseye/internal/repository/eventfile"
	"github.com/kailas-cloud/mindseye/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/mindseye/internal/usecase/search"
)

func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Search an event file offline",
		Long: "Load an event file (JSON, JSON Lines, optionally .gz or .zst) and print the events " +
			"matching the given filters. Passing --text \"\" keeps an empty text filter, which matches everything.",
		Example: "  mindseye query --file events.jsonl --text standup --source gmail,gcal --from 2024-01-01",
		RunE:    runQuery,
	}

	cmd.Flags().StringP("file", "f", "", "event file to search (required)")
	cmd.Flags().String("text", "", "case-insensitive substring to find in payloads")
	cmd.Flags().StringSlice("source", nil, "only these sources (comma separated)")
	cmd.Flags().StringSlice("kind", nil, "only these kinds (comma separated)")
	cmd.Flags().String("from", "", "inclusive lower bound on createdAt")
	cmd.Flags().String("to", "", "inclusive upper bound on createdAt")
	cmd.Flags().Bool("no-trigram", false, "scan every event instead of narrowing through the trigram index")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

type queryOutput struct {
	Count   int                `json:"count"`
	Results []event.Event[any] `json:"results"`
}

func runQuery(cmd *cobra.Command, _ []string) error {
	store, err := loadFileStore(cmd)
	if err != nil {
		return err
	}

	req, err := requestFromFlags(cmd)
	if err != nil {
		return err
	}

	results, err := store.Search(req.Filters(), searchuc.Options{UseTrigram: req.UseTrigram()})
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	return printJSON(cmd.OutOrStdout(), queryOutput{Count: len(results), Results: results})
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print per-day event counts for an event file",
		RunE:  runStats,
	}
	cmd.Flags().StringP("file", "f", "", "event file to count (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

type statsOutput struct {
	Daily []stats.DailyCount `json:"daily"`
}

func runStats(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("file")
	events, err := eventfile.ReadFile[any](path)
	if err != nil {
		return err
	}

	daily, err := stats.CountEventsPerDay(events)
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}
	return printJSON(cmd.OutOrStdout(), statsOutput{Daily: daily})
}

func loadFileStore(cmd *cobra.Command) (*searchuc.Store[any], error) {
	path, _ := cmd.Flags().GetString("file")
	store := searchuc.NewStore[any](nil)
	svc := ingest.New[any](eventfile.NewSource[any](path), store, nil)
	if _, err := svc.Refresh(cmd.Context()); err != nil {
		return nil, err
	}
	return store, nil
}

func requestFromFlags(cmd *cobra.Command) (request.Request, error) {
	flags := cmd.Flags()

	var f filter.Filters
	if flags.Changed("text") {
		text, _ := flags.GetString("text")
		f = f.WithText(text)
	}
	sources, _ := flags.GetStringSlice("source")
	for _, s := range sources {
		f.Sources = append(f.Sources, event.Source(s))
	}
	f.Kinds, _ = flags.GetStringSlice("kind")
	from, _ := flags.GetString("from")
	to, _ := flags.GetString("to")
	if from != "" || to != "" {
		f.TimeRange = &filter.TimeRange{From: from, To: to}
	}
	noTrigram, _ := flags.GetBool("no-trigram")

	req, err := request.New(f, !noTrigram)
	if err != nil {
		return request.Request{}, fmt.Errorf("query: %w", err)
	}
	return req, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
