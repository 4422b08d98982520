// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/discovery-engine/internal/search"
	"github.com/pdiddy/discovery-engine/internal/source"
	"github.com/pdiddy/discovery-engine/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search [query...]",
	Short: "Search dataset repositories and citation engines",
	Long: `Search sends the query to every enabled adapter in parallel, merges
duplicate records across sources, and ranks what remains by title match,
citation count, and recency. Sources that fail or time out are reported but
do not fail the search unless every source fails.

A saved search (--save) can be printed again later with --load without
querying any provider.`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().String("organism", "", "only datasets from this organism (e.g. \"Homo sapiens\")")
	searchCmd.Flags().Int("min-samples", 0, "only datasets with at least this many samples")
	searchCmd.Flags().String("from", "", "publication date range start (YYYY-MM-DD)")
	searchCmd.Flags().String("to", "", "publication date range end (YYYY-MM-DD)")
	searchCmd.Flags().Int("limit", 0, "maximum number of results (default from config)")
	searchCmd.Flags().StringSlice("adapters", nil, "restrict to these adapters: "+strings.Join(search.AdapterNames, ", "))
	searchCmd.Flags().Duration("timeout", 0, "overall query timeout (default from config)")
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	searchCmd.Flags().Bool("csl", false, "output publications as CSL-YAML")
	searchCmd.Flags().String("save", "", "write the query and results to this YAML file")
	searchCmd.Flags().String("load", "", "print a previously saved search instead of querying")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if path, _ := cmd.Flags().GetString("load"); path != "" {
		qf, err := search.ReadQueryFile(path)
		if err != nil {
			return err
		}
		return renderSearch(cmd, qf.Output())
	}

	q, err := buildQuery(cmd, args)
	if err != nil {
		return err
	}
	names, _ := cmd.Flags().GetStringSlice("adapters")
	if unknown := search.UnknownAdapters(names); len(unknown) > 0 {
		return fmt.Errorf("unknown adapters: %s", strings.Join(unknown, ", "))
	}

	cfg := appConfig
	if d, _ := cmd.Flags().GetDuration("timeout"); d > 0 {
		cfg.Search.QueryTimeout = d
	}

	ctx := cmd.Context()
	store := openCache(ctx, cfg.Cache)
	defer closeCache(store)

	adapters := search.FilterAdapters(search.NewAdapters(cfg, logger), names)
	if len(adapters) == 0 {
		return fmt.Errorf("no search adapters enabled")
	}
	orch := search.New(adapters, store, cfg, logger)
	defer orch.Close()

	out, err := orch.Search(ctx, q)
	if errors.Is(err, source.ErrAllSourcesFailed) {
		search.FormatTable(out, os.Stderr)
		return err
	}
	if err != nil {
		return err
	}

	if path, _ := cmd.Flags().GetString("save"); path != "" {
		if err := search.WriteQueryFile(path, q, out); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "saved: %s\n", path)
	}
	return renderSearch(cmd, out)
}

func buildQuery(cmd *cobra.Command, args []string) (search.Query, error) {
	q := search.Query{Text: strings.Join(args, " ")}
	if q.IsEmpty() {
		return q, fmt.Errorf("provide a search query")
	}

	q.Filters.Organism, _ = cmd.Flags().GetString("organism")
	q.Filters.MinSampleCount, _ = cmd.Flags().GetInt("min-samples")
	q.Limit, _ = cmd.Flags().GetInt("limit")

	var err error
	from, _ := cmd.Flags().GetString("from")
	if q.Filters.DateFrom, err = parseDateFlag("from", from); err != nil {
		return q, err
	}
	to, _ := cmd.Flags().GetString("to")
	if q.Filters.DateTo, err = parseDateFlag("to", to); err != nil {
		return q, err
	}
	if !q.Filters.DateFrom.IsZero() && !q.Filters.DateTo.IsZero() && q.Filters.DateTo.Before(q.Filters.DateFrom) {
		return q, fmt.Errorf("--to %s is before --from %s", to, from)
	}
	return q, nil
}

func parseDateFlag(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s date %q (want YYYY-MM-DD)", name, value)
	}
	return t, nil
}

func renderSearch(cmd *cobra.Command, out search.Output) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	asCSL, _ := cmd.Flags().GetBool("csl")
	switch {
	case asCSL:
		return search.FormatCSL(out, os.Stdout)
	case asJSON:
		return search.FormatJSON(out, os.Stdout)
	default:
		search.FormatTable(out, os.Stdout)
		return nil
	}
}

// publicationsOf returns the publications of a saved search, in rank order.
func publicationsOf(out search.Output) []types.Publication {
	var pubs []types.Publication
	for _, r := range out.Results {
		if r.Record.Publication != nil {
			pubs = append(pubs, *r.Record.Publication)
		}
	}
	return pubs
}
