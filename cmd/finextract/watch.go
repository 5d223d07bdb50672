package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/finextract/constants"
	"github.com/joseph-ayodele/finextract/internal/async"
	"github.com/joseph-ayodele/finextract/internal/common"
	"github.com/joseph-ayodele/finextract/internal/core"
	"github.com/joseph-ayodele/finextract/internal/ingest"
	"github.com/joseph-ayodele/finextract/internal/repository"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir...]",
	Short: "Extract and detect every new PDF dropped under the watched folders",
	Long: `Watch follows the given directories (or watch.roots from config)
recursively. Each new or modified PDF is hashed, deduplicated by content and
queued to a bounded worker pool that extracts it, runs the detectors and, with
watch.persist, saves an all-engines score run. Stop with Ctrl-C; queued
documents drain before exit. With --once the roots are walked a single time
and the command exits when the queue is empty.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		roots := args
		if len(roots) == 0 {
			roots = rt.cfg.Watch.Roots
		}
		if len(roots) == 0 {
			return common.InvalidArgumentError("no directories to watch")
		}
		initialScan, _ := cmd.Flags().GetBool("initial-scan")
		once, _ := cmd.Flags().GetBool("once")
		candidates, err := candidatesFlag(cmd)
		if err != nil {
			return common.StatusFromError(err)
		}
		strategy, err := constants.ParseStrategy(rt.cfg.Extraction.Strategy)
		if err != nil {
			return common.InvalidArgumentError(err.Error())
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		opts := []core.Option{
			core.WithCandidates(candidates),
			core.WithStrategy(strategy, rt.cfg.Extraction.Lang),
		}
		if rt.cfg.Watch.Persist {
			db, err := rt.store(ctx)
			if err != nil {
				return common.StatusFromError(err)
			}
			opts = append(opts, core.WithScoreHistory(repository.NewScoreRunRepository(db, rt.logger)))
		}
		proc := core.NewProcessor(rt.logger, rt.loader, rt.extractor, opts...)

		queue := async.NewProcessorQueue(proc, rt.logger,
			async.WithWorkers(rt.cfg.Watch.Workers),
			async.WithQueueSize(rt.cfg.Watch.QueueSize),
			async.WithProcessTimeout(rt.cfg.Watch.Timeout),
		)
		ingestor := ingest.NewFSIngestor(queue, rt.logger)
		drain := func() {
			drainCtx, cancel := context.WithTimeout(context.Background(), rt.cfg.Watch.Timeout+10*time.Second)
			defer cancel()
			queue.Shutdown(drainCtx)
		}

		if once {
			for _, root := range roots {
				if _, _, err := ingestor.IngestDirectory(ctx, root, true); err != nil {
					rt.logger.Error("directory ingest failed", "root", root, "error", err)
				}
			}
			drain()
			return nil
		}

		events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
			Roots:       roots,
			InitialScan: initialScan,
			SkipHidden:  true,
			Debounce:    rt.cfg.Watch.Debounce,
			Logger:      rt.logger,
		})
		if err != nil {
			queue.Shutdown(context.Background())
			return err
		}
		ingestor.Consume(ctx, events, errs)

		rt.logger.Info("shutting down watcher, draining queue")
		drain()
		return nil
	},
}

func init() {
	watchCmd.Flags().Bool("initial-scan", true, "queue PDFs already present under the roots")
	watchCmd.Flags().Bool("once", false, "process the PDFs already under the roots, then exit")
	watchCmd.Flags().String("properties", "", "YAML file of candidate properties")

	rootCmd.AddCommand(watchCmd)
}
