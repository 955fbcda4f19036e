package workers

import (
	"context"
	"fmt"
	"time"

	"clicker-battle/logger"
	"clicker-battle/metrics"
	"clicker-battle/models"
	"clicker-battle/services"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

const archiveBatchSize = 100

// Uploader stores an object and returns where it can be fetched.
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, body []byte) (string, error)
}

// ArchiveWorker exports completed matches to object storage and marks them archived.
type ArchiveWorker struct {
	Store    *services.MatchStore
	Uploader Uploader
	Log      *logger.Logger
	now      func() time.Time
}

func NewArchiveWorker(store *services.MatchStore, uploader Uploader, log *logger.Logger) *ArchiveWorker {
	return &ArchiveWorker{Store: store, Uploader: uploader, Log: log, now: time.Now}
}

type archivedBatch struct {
	ExportedAt time.Time      `json:"exported_at"`
	Count      int            `json:"count"`
	Matches    []models.Match `json:"matches"`
}

// ArchiveOnce uploads one batch of unarchived results as a single JSON object.
func (w *ArchiveWorker) ArchiveOnce(ctx context.Context) (int, error) {
	matches, err := w.Store.CompletedUnarchived(ctx, archiveBatchSize)
	if err != nil {
		return 0, err
	}
	if len(matches) == 0 {
		return 0, nil
	}

	now := w.now().UTC()
	body, err := json.Marshal(archivedBatch{ExportedAt: now, Count: len(matches), Matches: matches})
	if err != nil {
		return 0, fmt.Errorf("encode archive batch: %w", err)
	}

	key := fmt.Sprintf("matches/%s/%s-%s.json", now.Format("2006/01/02"), now.Format("150405"), matches[0].ID)
	url, err := w.Uploader.Upload(ctx, key, "application/json", body)
	if err != nil {
		return 0, err
	}

	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	if err := w.Store.MarkArchived(ctx, ids, now); err != nil {
		return 0, err
	}

	metrics.ArchivedMatchesTotal.Add(float64(len(matches)))
	w.Log.Info("archived completed matches", zap.Int("count", len(matches)), zap.String("url", url))
	return len(matches), nil
}

// PollArchive runs ArchiveOnce every interval until ctx is done.
func PollArchive(ctx context.Context, w *ArchiveWorker, interval time.Duration) {
	w.Log.Info("Starting match archive polling", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.Log.Info("Match archive polling stopped.")
			return
		case <-ticker.C:
			n, err := w.ArchiveOnce(ctx)
			if err != nil {
				w.Log.Error("Error archiving matches", err)
				continue
			}
			if n == 0 {
				w.Log.Debug("No completed matches to archive.")
			}
		}
	}
}
