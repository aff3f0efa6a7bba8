package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/desertwitch/fts/internal/manifest"
	"github.com/desertwitch/fts/internal/scan"
	"github.com/desertwitch/fts/internal/ui"
	"github.com/dustin/go-humanize"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

// scanProgressLogInterval is the cadence of progress logs without the
// interactive interface.
const scanProgressLogInterval = 2 * time.Second

//nolint:gochecknoglobals
var (
	scanNoUI     bool
	scanNoHash   bool
	scanManifest string

	scanCmd = &cobra.Command{
		Use:   "scan [path ...]",
		Short: "record a content-hashed manifest of filesystem hierarchies",
		RunE:  runScan,
	}
)

//nolint:gochecknoinits
func init() {
	scanCmd.Flags().BoolVar(&scanNoUI, "no-ui", false, "log to the terminal instead of the interactive interface")
	scanCmd.Flags().BoolVar(&scanNoHash, "no-hash", false, "skip content hashing, record the hierarchy only")
	scanCmd.Flags().StringVar(&scanManifest, "manifest", "", "manifest database to record the scan into")

	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	roots, err := resolveRoots(args)
	if err != nil {
		return err
	}

	opts, err := profile.WalkOptions()
	if err != nil {
		return err
	}

	cmpFn, err := profile.CompareFunc()
	if err != nil {
		return err
	}

	settings := scan.Settings{
		Options: opts,
		Compare: cmpFn,
		Workers: profile.Workers,
		NoHash:  profile.NoHash,
	}

	var scanner *scan.Scanner

	if profile.Manifest != "" {
		store, err := manifest.NewStore(profile.Manifest)
		if err != nil {
			return err
		}
		defer store.Close()

		scanner = scan.NewScanner(store, settings)
	} else {
		slog.Warn("No manifest database configured, results are not persisted.")
		scanner = scan.NewScanner(nil, settings)
	}

	var result *scan.Result

	if scanNoUI {
		result, err = runScanPlain(cmd.Context(), scanner, roots)
	} else {
		result, err = runScanUI(cmd.Context(), scanner, roots)
	}

	if err != nil {
		return err
	}

	if result != nil && result.Stats.FailedFiles > 0 {
		return fmt.Errorf("(cmd-scan) %w: %d entries", ErrScanFailures, result.Stats.FailedFiles)
	}

	return nil
}

// runScanPlain runs the scan headless, logging progress at a fixed cadence.
func runScanPlain(ctx context.Context, scanner *scan.Scanner, roots []string) (*scan.Result, error) {
	stopChan := make(chan struct{})

	go func() {
		ticker := time.NewTicker(scanProgressLogInterval)
		defer ticker.Stop()

		for {
			select {
			case <-stopChan:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				p := scanner.Progress()
				slog.Info("Scan progressing.",
					"stage", p.Stage,
					"files", p.Files,
					"dirs", p.Dirs,
					"failed", p.Failed,
					"hashed", p.Hashing.ProcessedItems,
					"volume", humanize.Bytes(uint64(p.Bytes)), //nolint:gosec
				)
			}
		}
	}()

	result, err := scanner.Run(ctx, roots)

	close(stopChan)

	if err != nil {
		return nil, fmt.Errorf("(cmd-scan) %w", err)
	}

	logScanResult(result)

	return result, nil
}

// runScanUI runs the scan alongside the interactive interface, the two
// meeting through the scanner's progress and the rerouted process logs. The
// interface stays up for inspection after the scan has finished, until the
// user quits it.
func runScanUI(ctx context.Context, scanner *scan.Scanner, roots []string) (*scan.Result, error) {
	runCtx, runCancel := context.WithCancel(ctx)
	defer runCancel()

	uiHandler := ui.NewHandler(runCtx, runCancel, scanner)

	// Logs render inside the interface while it is up.
	logManager.AddHandler("tui", tint.NewHandler(uiHandler.LogWriter, &tint.Options{
		Level:      parseLogLevel(profile.LogLevel),
		TimeFormat: time.Kitchen,
	}))
	logManager.RemoveHandler("terminal")

	var wg sync.WaitGroup

	var result *scan.Result
	var runErr error

	wg.Add(1)
	go func() {
		defer wg.Done()

		slog.Info("Waiting for UI...")
		for {
			select {
			case <-runCtx.Done():
				runErr = runCtx.Err()

				return
			default:
			}

			if uiHandler.Initialized.Load() || uiHandler.Failed.Load() {
				break
			}
		}

		result, runErr = scanner.Run(runCtx, roots)
		if runErr != nil {
			slog.Error("Scan did not complete.", "err", runErr)

			return
		}

		logScanResult(result)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()

		defer func() {
			logManager.AddHandler("terminal", newTerminalHandler(os.Stderr, profile.LogLevel))
			logManager.RemoveHandler("tui")
		}()

		if err := uiHandler.Launch(); err != nil {
			slog.Error("UI failure: falling back to terminal.", "err", err)
		}
	}()

	wg.Wait()

	if runErr != nil {
		return nil, fmt.Errorf("(cmd-scan) %w", runErr)
	}

	return result, nil
}

// logScanResult logs the summary of a finished scan.
func logScanResult(result *scan.Result) {
	slog.Info("Scan finished.",
		"run", result.RunID,
		"status", result.Status,
		"files", result.Stats.TotalFiles,
		"dirs", result.Stats.TotalDirs,
		"volume", humanize.Bytes(uint64(result.Stats.TotalBytes)), //nolint:gosec
		"hashed", result.Stats.HashedFiles,
		"failed", result.Stats.FailedFiles,
		"duration", result.Duration.Round(time.Millisecond),
	)
}
