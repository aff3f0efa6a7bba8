package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/desertwitch/fts/internal/manifest"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

const (
	defaultRunsLimit    = 20
	defaultRecordsLimit = 1000
)

//nolint:gochecknoglobals
var (
	runsLimit    int
	runsManifest string

	runsCmd = &cobra.Command{
		Use:   "runs [run-id]",
		Short: "list recorded scan runs and their entries",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runRuns,
	}
)

//nolint:gochecknoinits
func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", defaultRunsLimit, "maximum number of rows to list")
	runsCmd.Flags().StringVar(&runsManifest, "manifest", "", "manifest database to read from")

	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	if profile.Manifest == "" {
		return fmt.Errorf("(cmd-runs) %w", ErrNoManifest)
	}

	store, err := manifest.NewStore(profile.Manifest)
	if err != nil {
		return err
	}
	defer store.Close()

	out := cmd.OutOrStdout()

	if len(args) == 1 {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("(cmd-runs) %w", err)
		}

		limit := runsLimit
		if !cmd.Flags().Changed("limit") {
			limit = defaultRecordsLimit
		}

		return listRecords(cmd.Context(), out, store, id, limit)
	}

	return listRuns(cmd.Context(), out, store)
}

// listRuns writes a table of the most recently started runs.
func listRuns(ctx context.Context, out io.Writer, store *manifest.Store) error {
	runs, err := store.RecentRuns(ctx, runsLimit)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No recorded runs.")

		return nil
	}

	w := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0) //nolint:mnd

	fmt.Fprintln(w, "ID\tSTARTED\tDURATION\tSTATUS\tFILES\tDIRS\tFAILED\tVOLUME\tROOTS")

	for _, r := range runs {
		duration := "-"
		if !r.FinishedAt.IsZero() {
			duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
		}

		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			r.ID,
			r.StartedAt.Format(time.DateTime),
			duration,
			r.Status,
			r.TotalFiles,
			r.TotalDirs,
			r.FailedFiles,
			humanize.Bytes(uint64(r.TotalBytes)), //nolint:gosec
			strings.Join(r.Roots, " "),
		)
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("(cmd-runs) %w", err)
	}

	return nil
}

// listRecords writes a table of the entries recorded for one run.
func listRecords(ctx context.Context, out io.Writer, store *manifest.Store, id int64, limit int) error {
	records, err := store.RunRecords(ctx, id, limit)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Fprintln(out, "No recorded entries for this run.")

		return nil
	}

	w := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0) //nolint:mnd

	fmt.Fprintln(w, "KIND\tSIZE\tHASH\tPATH")

	for _, rec := range records {
		path := rec.Path
		if rec.Error != "" {
			path += " (" + rec.Error + ")"
		}

		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", rec.Kind, rec.Size, shortHash(rec.Hash), path)
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("(cmd-runs) %w", err)
	}

	return nil
}

// shortHash truncates a digest for tabular display.
func shortHash(hash string) string {
	const shown = 12

	if hash == "" {
		return "-"
	}

	if len(hash) <= shown {
		return hash
	}

	return hash[:shown]
}
