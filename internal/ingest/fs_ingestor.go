package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/finextract/constants"
	"github.com/joseph-ayodele/finextract/internal/async"
)

// FSIngestor hashes local files and hands new content to a queue. Content
// already seen in this process is reported as deduplicated and not queued.
type FSIngestor struct {
	queue  async.Queue
	logger *slog.Logger

	mu   sync.Mutex
	seen map[string]string // sha256 hex -> first path
}

var _ Ingestor = (*FSIngestor)(nil)

func NewFSIngestor(queue async.Queue, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{queue: queue, logger: logger, seen: map[string]string{}}
}

func (i *FSIngestor) IngestPath(ctx context.Context, path string) (IngestionResult, error) {
	var out IngestionResult

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, fmt.Errorf("abs path: %w", err)
	}
	ext := constants.NormalizeExt(filepath.Ext(abs))
	if ext == "" || !AllowedExt(ext) {
		return out, fmt.Errorf("unsupported or missing extension: %q", ext)
	}

	sum, err := hashFile(abs)
	if err != nil {
		return out, err
	}
	hexHash := hex.EncodeToString(sum)
	out = IngestionResult{SourcePath: abs, HashHex: hexHash, FileExt: ext}

	i.mu.Lock()
	first, dup := i.seen[hexHash]
	if !dup {
		i.seen[hexHash] = abs
	}
	i.mu.Unlock()
	if dup {
		i.logger.Debug("ingest.dedup", "path", abs, "first_path", first, "sha256", hexHash)
		out.Deduplicated = true
		return out, nil
	}

	job := async.Job{
		Path:        abs,
		SHA256:      hexHash,
		SubmittedAt: time.Now().UTC(),
		TraceID:     uuid.NewString(),
	}
	if err := i.queue.Enqueue(ctx, job); err != nil {
		i.forget(hexHash)
		return out, fmt.Errorf("enqueue: %w", err)
	}
	out.QueuedAt = job.SubmittedAt
	return out, nil
}

func (i *FSIngestor) forget(hexHash string) {
	i.mu.Lock()
	delete(i.seen, hexHash)
	i.mu.Unlock()
}

func hashFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, fmt.Errorf("hash: %w", err)
	}
	return h.Sum(nil), nil
}

// IngestDirectory walks root, skips hidden if requested,
// and calls IngestPath for each file. Returns per-file results + aggregate stats.
func (i *FSIngestor) IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root_path is required")
	}

	var results []IngestionResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}
		if !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		r, err := i.IngestPath(ctx, path)
		if err != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: err.Error()})
			stats.Failed++
			return nil
		}

		results = append(results, r)
		stats.Succeeded++
		if r.Deduplicated {
			stats.Deduplicated++
		}
		return nil
	})

	i.logger.Info("ingest.directory.done",
		"root", root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed,
	)
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}

// Consume ingests every path from the watcher until paths closes or ctx ends.
func (i *FSIngestor) Consume(ctx context.Context, paths <-chan string, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			i.logger.Warn("watcher error", "error", err)
		case p, ok := <-paths:
			if !ok {
				return
			}
			r, err := i.IngestPath(ctx, p)
			if err != nil {
				i.logger.Warn("ingest failed", "path", p, "error", err)
				continue
			}
			i.logger.Info("ingested", "path", r.SourcePath, "sha256", r.HashHex, "deduplicated", r.Deduplicated)
		}
	}
}
