package recorder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lanerush/engine/internal/config"
	"github.com/lanerush/engine/internal/model"
)

// batchSender is the slice of the pool the recorder writes through.
type batchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Recorder archives resolved player actions to PostgreSQL in batches.
type Recorder struct {
	cfg    config.RecorderConfig
	logger *slog.Logger

	input chan model.PlayerAction
	db    batchSender

	batch       []model.PlayerAction
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics Metrics
}

// Metrics tracks recorder throughput.
type Metrics struct {
	Inserts   int64
	Conflicts int64
	Flushes   int64
	Errors    int64
	Dropped   int64
}

// New creates a Recorder over an open pool.
func New(cfg config.RecorderConfig, db *pgxpool.Pool, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Recorder{
		cfg:    cfg,
		logger: logger,
		input:  make(chan model.PlayerAction, cfg.BufferSize),
		batch:  make([]model.PlayerAction, 0, cfg.BatchSize),
	}
	if db != nil {
		r.db = db
	}
	return r
}

// RecordAction enqueues an action for archiving. Non-blocking: a full buffer
// drops the action rather than stalling gameplay.
func (r *Recorder) RecordAction(a model.PlayerAction) {
	select {
	case r.input <- a:
	default:
		r.batchMu.Lock()
		r.metrics.Dropped++
		r.batchMu.Unlock()
		r.logger.Warn("recorder buffer full, action dropped", "action_id", a.ID)
	}
}

// Start begins consuming actions and writing to the database.
func (r *Recorder) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.flushTicker = time.NewTicker(r.cfg.FlushInterval)

	r.wg.Add(1)
	go r.consumeLoop()

	r.wg.Add(1)
	go r.flushLoop()

	r.logger.Info("recorder started",
		"batch_size", r.cfg.BatchSize,
		"flush_interval", r.cfg.FlushInterval,
	)
	return nil
}

// Stop gracefully shuts down the recorder, flushing what remains.
func (r *Recorder) Stop(ctx context.Context) error {
	r.logger.Info("stopping recorder")

	if r.cancel != nil {
		r.cancel()
	}
	if r.flushTicker != nil {
		r.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("recorder stopped")
	case <-ctx.Done():
		r.logger.Warn("recorder stop timed out")
	}

	// Final flush uses the caller's context; r.ctx is already canceled.
	r.flush(ctx)

	return nil
}

// Stats returns current metrics.
func (r *Recorder) Stats() Metrics {
	r.batchMu.Lock()
	defer r.batchMu.Unlock()
	return r.metrics
}

// consumeLoop drains the input channel into the batch.
func (r *Recorder) consumeLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case a := <-r.input:
			r.handleAction(a)
		}
	}
}

// flushLoop periodically flushes the batch.
func (r *Recorder) flushLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-r.flushTicker.C:
			r.flush(r.ctx)
		}
	}
}

func (r *Recorder) handleAction(a model.PlayerAction) {
	r.batchMu.Lock()
	r.batch = append(r.batch, a)
	shouldFlush := len(r.batch) >= r.cfg.BatchSize
	r.batchMu.Unlock()

	if shouldFlush {
		r.flush(r.ctx)
	}
}

// flush writes the current batch to the database.
func (r *Recorder) flush(ctx context.Context) {
	r.batchMu.Lock()
	if len(r.batch) == 0 {
		r.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := r.batch
	r.batch = make([]model.PlayerAction, 0, r.cfg.BatchSize)
	r.batchMu.Unlock()

	start := time.Now()

	conflicts, err := r.batchInsert(ctx, batch)
	if err != nil {
		r.logger.Error("batch insert failed", "error", err, "count", len(batch))
		r.batchMu.Lock()
		r.metrics.Errors++
		r.batchMu.Unlock()
		return
	}

	r.batchMu.Lock()
	r.metrics.Inserts += int64(len(batch) - conflicts)
	r.metrics.Conflicts += int64(conflicts)
	r.metrics.Flushes++
	r.batchMu.Unlock()

	r.logger.Debug("flushed actions",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (r *Recorder) batchInsert(ctx context.Context, actions []model.PlayerAction) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, a := range actions {
		batch.Queue(`
			INSERT INTO player_actions (id, session_id, kind, event_id, event_type, symbol, value, correct, occurred_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO NOTHING
		`, a.ID, a.SessionID, string(a.Kind), a.EventID, string(a.EventType), a.Symbol, a.Value, a.Correct, a.OccurredAt)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for range actions {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
