// workers/ledger_export_worker.go
package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"daily-reward-system/repository"
)

// Uploader stores an exported object and returns where it went.
type Uploader interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// DefaultSettleLag is how far behind the clock an export window ends.
// A claim is stamped before its transaction commits, so it must stay
// outside the window until the commit is visible.
const DefaultSettleLag = time.Minute

// LedgerExporter copies new claim records to object storage as JSON lines.
// Each run covers [cursor, now-lag) and only advances the cursor after a
// successful upload, so a failed window is retried on the next run.
type LedgerExporter struct {
	claims   repository.ClaimRepository
	uploader Uploader
	prefix   string
	logger   *slog.Logger
	now      func() time.Time
	lag      time.Duration

	mu     sync.Mutex
	cursor time.Time
}

func NewLedgerExporter(claims repository.ClaimRepository, uploader Uploader, since time.Time, logger *slog.Logger) *LedgerExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LedgerExporter{
		claims:   claims,
		uploader: uploader,
		prefix:   "ledger",
		logger:   logger,
		now:      time.Now,
		lag:      DefaultSettleLag,
		cursor:   since.UTC(),
	}
}

// SetSettleLag changes how far behind the clock each run stops.
func (e *LedgerExporter) SetSettleLag(lag time.Duration) {
	if lag < 0 {
		lag = 0
	}
	e.mu.Lock()
	e.lag = lag
	e.mu.Unlock()
}

func (e *LedgerExporter) Name() string { return "ledger-export" }

// Cursor is the start of the next export window.
func (e *LedgerExporter) Cursor() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursor
}

// Run exports every claim recorded since the previous successful run.
func (e *LedgerExporter) Run(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	from, to := e.cursor, e.now().UTC().Add(-e.lag)
	if !to.After(from) {
		return nil
	}
	key, count, err := e.exportWindow(ctx, from, to)
	if err != nil {
		return err
	}
	e.cursor = to
	if count == 0 {
		e.logger.Debug("no claims to export", "from", from, "to", to)
		return nil
	}
	e.logger.Info("claim ledger exported", "key", key, "records", count)
	return nil
}

// ExportWindow exports claims with from <= claimed_at < to without touching
// the cursor. It returns the object key, or "" when there was nothing to write.
func (e *LedgerExporter) ExportWindow(ctx context.Context, from, to time.Time) (string, int, error) {
	return e.exportWindow(ctx, from.UTC(), to.UTC())
}

func (e *LedgerExporter) exportWindow(ctx context.Context, from, to time.Time) (string, int, error) {
	claims, err := e.claims.ListBetween(ctx, from, to)
	if err != nil {
		return "", 0, fmt.Errorf("list claims: %w", err)
	}
	if len(claims) == 0 {
		return "", 0, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range claims {
		if err := enc.Encode(&claims[i]); err != nil {
			return "", 0, fmt.Errorf("encode claim %s: %w", claims[i].ID, err)
		}
	}

	key := fmt.Sprintf("%s/%s/claims-%s-%s.jsonl",
		e.prefix,
		to.Format("2006/01/02"),
		from.Format("20060102T150405Z"),
		to.Format("20060102T150405Z"),
	)
	if _, err := e.uploader.Upload(ctx, key, buf.Bytes(), "application/x-ndjson"); err != nil {
		return "", 0, err
	}
	return key, len(claims), nil
}
