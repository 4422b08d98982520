// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/discovery-engine/internal/fulltext"
	"github.com/pdiddy/discovery-engine/internal/search"
	"github.com/pdiddy/discovery-engine/pkg/types"
)

var acquireCmd = &cobra.Command{
	Use:   "acquire [identifiers...]",
	Short: "Download full text for PMIDs, PMCIDs, DOIs, or arXiv IDs",
	Long: `Acquire walks the configured full-text sources in priority order for
each publication and stops at the first one that returns a PDF or XML
document. Documents are written under the content directory with a YAML
metadata sidecar. Outcomes are cached, so publications already acquired or
known to have no open copy are not fetched again until their entry expires.

Publications can also be taken from a saved search (--from-search).`,
	RunE: runAcquire,
}

func init() {
	acquireCmd.Flags().String("from-search", "", "acquire the publications of a saved search file")
	acquireCmd.Flags().Int("max-concurrent", 0, "publications acquired in parallel (default from config)")
	acquireCmd.Flags().String("papers-dir", "", "base directory for documents (default from config)")
	acquireCmd.Flags().Bool("json", false, "output outcomes as JSON")

	rootCmd.AddCommand(acquireCmd)
}

func runAcquire(cmd *cobra.Command, args []string) error {
	pubs, err := acquireTargets(cmd, args)
	if err != nil {
		return err
	}

	cfg := appConfig
	if dir, _ := cmd.Flags().GetString("papers-dir"); dir != "" {
		cfg.FullText.ContentDir = dir
	}
	maxConcurrent, _ := cmd.Flags().GetInt("max-concurrent")

	ctx := cmd.Context()
	store := openCache(ctx, cfg.Cache)
	defer closeCache(store)

	adapters := fulltext.NewAdapters(cfg, logger)
	if len(adapters) == 0 {
		return fmt.Errorf("no full-text adapters enabled")
	}
	m := fulltext.New(adapters, store, fulltext.NewFileStore(cfg.FullText.ContentDir), cfg, logger)
	defer m.Close()

	outcomes := m.AcquireBatch(ctx, pubs, maxConcurrent)

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(outcomes); err != nil {
			return err
		}
	} else {
		printOutcomes(os.Stdout, outcomes)
	}

	s := fulltext.Summarize(outcomes)
	if s.HasFailures() {
		return fmt.Errorf("%d publication(s) without full text", s.Exhausted+s.Cancelled)
	}
	return nil
}

// acquireTargets collects the publications named on the command line and
// in a saved search. Invalid identifiers abort before any download.
func acquireTargets(cmd *cobra.Command, args []string) ([]types.Publication, error) {
	var pubs []types.Publication
	if path, _ := cmd.Flags().GetString("from-search"); path != "" {
		qf, err := search.ReadQueryFile(path)
		if err != nil {
			return nil, err
		}
		pubs = append(pubs, publicationsOf(qf.Output())...)
	}

	var invalid []string
	for _, arg := range args {
		p, err := fulltext.ParseIdentifier(arg)
		if err != nil {
			invalid = append(invalid, arg)
			continue
		}
		pubs = append(pubs, p)
	}
	if len(invalid) > 0 {
		return nil, fmt.Errorf("unrecognized identifiers: %s", strings.Join(invalid, ", "))
	}
	if len(pubs) == 0 {
		return nil, fmt.Errorf("provide one or more identifiers (PMID, PMCID, DOI, or arXiv ID) or --from-search")
	}
	return pubs, nil
}

func printOutcomes(w io.Writer, outcomes []types.FullTextOutcome) {
	for _, o := range outcomes {
		switch {
		case o.Succeeded() && o.Cached:
			fmt.Fprintf(w, "cached: %s -> %s\n", o.PublicationID, o.ContentRef)
		case o.Succeeded():
			fmt.Fprintf(w, "acquired: %s from %s -> %s\n", o.PublicationID, o.WinningSource, o.ContentRef)
		default:
			fmt.Fprintf(w, "failed: %s: %s\n", o.PublicationID, o.FailureReason)
		}
	}

	s := fulltext.Summarize(outcomes)
	fmt.Fprintf(w, "\nBatch summary: %d succeeded, %d exhausted, %d cancelled (%d from cache), %d total\n",
		s.Succeeded, s.Exhausted, s.Cancelled, s.Cached, s.Total())
}
