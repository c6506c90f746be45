package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"famfin/internal/amqp"
	"famfin/internal/core"
	applog "famfin/internal/log"
	"famfin/internal/sheets"
)

// ExportStore is the snapshot storage the export worker needs.
type ExportStore interface {
	GetAgencySnapshotByID(ctx context.Context, id int64) (core.AgencySnapshot, error)
	ListUnexportedSnapshots(ctx context.Context, limit int, now time.Time) ([]core.AgencySnapshot, error)
	ClaimSnapshotExport(ctx context.Context, id int64, calculatedAt, now, until time.Time) (bool, error)
	MarkSnapshotExported(ctx context.Context, id int64, calculatedAt, at time.Time) (bool, error)
}

// ExportConfig tunes the periodic sweep of unexported snapshots.
type ExportConfig struct {
	// PollInterval is how often the sweep runs (default: 1m).
	PollInterval time.Duration
	// BatchSize caps the snapshots exported per sweep (default: 20).
	BatchSize int
	// LeaseTTL is how long an export attempt owns a snapshot. A failed
	// snapshot is retried once its lease runs out (default: 10m).
	LeaseTTL time.Duration
}

func DefaultExportConfig() ExportConfig {
	return ExportConfig{PollInterval: time.Minute, BatchSize: 20, LeaseTTL: 10 * time.Minute}
}

// ExportWorker copies agency snapshots to the tracking sheet. It reacts to
// snapshot events and also sweeps for snapshots whose event was lost.
type ExportWorker struct {
	store    ExportStore
	exporter sheets.SnapshotExporter
	cfg      ExportConfig
	now      func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewExportWorker(store ExportStore, exporter sheets.SnapshotExporter, cfg ExportConfig) *ExportWorker {
	def := DefaultExportConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = def.LeaseTTL
	}
	return &ExportWorker{store: store, exporter: exporter, cfg: cfg, now: time.Now}
}

// HandleSnapshotMessage exports the snapshot named by an event. Snapshots
// already exported are skipped so redelivered events do not duplicate rows.
func (w *ExportWorker) HandleSnapshotMessage(ctx context.Context, msg *amqp.SnapshotCalculatedMessage) error {
	slog.InfoContext(ctx, "Processing snapshot event",
		"message_id", msg.MessageID,
		applog.FieldSnapshotID, msg.SnapshotID)

	snap, err := w.store.GetAgencySnapshotByID(ctx, msg.SnapshotID)
	if err != nil {
		return fmt.Errorf("get snapshot: %w", err)
	}
	if snap.ExportedAt != nil {
		slog.DebugContext(ctx, "Snapshot already exported", applog.FieldSnapshotID, snap.ID)
		return nil
	}
	_, err = w.export(ctx, snap)
	return err
}

// export appends the snapshot to the sheet once it holds the export lease. The
// lease is kept on failure so the snapshot waits out LeaseTTL before the next
// attempt.
func (w *ExportWorker) export(ctx context.Context, snap core.AgencySnapshot) (bool, error) {
	now := w.now().UTC()
	claimed, err := w.store.ClaimSnapshotExport(ctx, snap.ID, snap.CalculatedAt, now, now.Add(w.cfg.LeaseTTL))
	if err != nil {
		return false, fmt.Errorf("claim snapshot %d: %w", snap.ID, err)
	}
	if !claimed {
		slog.DebugContext(ctx, "Snapshot export claimed elsewhere", applog.FieldSnapshotID, snap.ID)
		return false, nil
	}

	ref, err := w.exporter.ExportSnapshot(ctx, snap)
	if err != nil {
		return false, fmt.Errorf("export snapshot %d: %w", snap.ID, err)
	}

	marked, err := w.store.MarkSnapshotExported(ctx, snap.ID, snap.CalculatedAt, w.now().UTC())
	if err != nil {
		return false, fmt.Errorf("mark snapshot %d exported: %w", snap.ID, err)
	}
	if !marked {
		// Recalculated while exporting; the newer version has its own event.
		slog.InfoContext(ctx, "Snapshot changed during export", applog.FieldSnapshotID, snap.ID)
	}

	slog.InfoContext(ctx, "Exported snapshot", applog.FieldSnapshotID, snap.ID, applog.FieldUserID, snap.UserID, "row", ref)
	return true, nil
}

// ProcessPendingExports exports one batch of unexported snapshots and returns
// how many succeeded. Snapshots leased by an in-flight or failed attempt are
// left for a later sweep.
func (w *ExportWorker) ProcessPendingExports(ctx context.Context) (int, error) {
	pending, err := w.store.ListUnexportedSnapshots(ctx, w.cfg.BatchSize, w.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("list unexported snapshots: %w", err)
	}

	exported := 0
	var errs []error
	for _, snap := range pending {
		if ctx.Err() != nil {
			break
		}
		ok, err := w.export(ctx, snap)
		if err != nil {
			slog.WarnContext(ctx, "Snapshot export failed",
				applog.FieldOperation, applog.OpExport, applog.FieldSnapshotID, snap.ID, applog.FieldError, err)
			errs = append(errs, err)
			continue
		}
		if ok {
			exported++
		}
	}
	return exported, errors.Join(errs...)
}

// Start runs the sweep immediately and then every PollInterval.
func (w *ExportWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("export worker is already running")
	}
	w.running = true
	stop, done := make(chan struct{}), make(chan struct{})
	w.stopCh, w.doneCh = stop, done
	w.mu.Unlock()

	go w.runLoop(ctx, stop, done)

	slog.InfoContext(ctx, "Export worker started",
		"poll_interval", w.cfg.PollInterval,
		"batch_size", w.cfg.BatchSize)
	return nil
}

// Stop signals the loop and waits for it or for ctx.
func (w *ExportWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	close(w.stopCh)
	done := w.doneCh
	w.mu.Unlock()

	select {
	case <-done:
		slog.InfoContext(ctx, "Export worker stopped")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Export worker stop timed out")
		return ctx.Err()
	}
}

func (w *ExportWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *ExportWorker) runLoop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	w.sweep(ctx)
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *ExportWorker) sweep(ctx context.Context) {
	n, err := w.ProcessPendingExports(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Export sweep finished with errors", "exported", n, applog.FieldError, err)
		return
	}
	if n > 0 {
		slog.InfoContext(ctx, "Export sweep finished", "exported", n)
	}
}
