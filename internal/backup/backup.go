package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"

	"blockpad/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Backup — scheduled JSON snapshots of the document
// ─────────────────────────────────────────────────────────────

// Service periodically dumps the full block list to a timestamped
// JSON file. Snapshots are an operator convenience: the store stays
// the source of truth, and a failed snapshot is logged, not retried.
type Service struct {
	store domain.BlockStore
	dir   string
	sched *cron.Cron
}

func New(store domain.BlockStore, dir string) *Service {
	return &Service{store: store, dir: dir}
}

// Start schedules snapshots with the given cron expression
// (e.g. "@hourly", "*/30 * * * *").
func (s *Service) Start(schedule string) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if path, err := s.RunOnce(context.Background()); err != nil {
			log.Printf("backup: snapshot failed: %v", err)
		} else {
			log.Printf("backup: wrote %s", path)
		}
	}); err != nil {
		return fmt.Errorf("bad schedule %q: %w", schedule, err)
	}
	c.Start()
	s.sched = c
	log.Printf("backup: scheduled %q into %s", schedule, s.dir)
	return nil
}

// Restart swaps in a new schedule. Used on config reload.
func (s *Service) Restart(schedule string) error {
	s.Stop()
	return s.Start(schedule)
}

// Stop halts the schedule. A snapshot already running finishes.
func (s *Service) Stop() {
	if s.sched != nil {
		s.sched.Stop()
		s.sched = nil
	}
}

// RunOnce writes a single snapshot and returns its path.
func (s *Service) RunOnce(ctx context.Context) (string, error) {
	blocks, err := s.store.ListBlocks(ctx)
	if err != nil {
		return "", fmt.Errorf("list blocks: %w", err)
	}
	if blocks == nil {
		blocks = []domain.Block{}
	}

	data, err := json.MarshalIndent(blocks, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	path := filepath.Join(s.dir, "blocks-"+time.Now().Format("20060102-150405")+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}
