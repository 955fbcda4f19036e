// Package testutil holds helpers shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"clicker-battle/database"
	"clicker-battle/events"
	"clicker-battle/logger"

	"gorm.io/gorm"
)

var memSeq atomic.Int64

// OpenDB returns a migrated in-memory SQLite database private to the test.
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()
	return OpenDBWithLogger(t, logger.Nop())
}

// OpenDBWithLogger is OpenDB with gorm's output sent to log.
func OpenDBWithLogger(t testing.TB, log *logger.Logger) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:clicker_test_%d?mode=memory&cache=shared&_pragma=foreign_keys(1)", memSeq.Add(1))
	db, err := database.Open(dsn, log)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// RecordingPublisher keeps published results in memory.
type RecordingPublisher struct {
	mu      sync.Mutex
	results []events.MatchResult
	Err     error
}

func (p *RecordingPublisher) PublishResult(_ context.Context, r events.MatchResult) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.results = append(p.results, r)
	return nil
}

func (p *RecordingPublisher) Results() []events.MatchResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.MatchResult(nil), p.results...)
}

func (p *RecordingPublisher) Close() error { return nil }
