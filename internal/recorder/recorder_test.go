package recorder

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/lanerush/engine/internal/config"
	"github.com/lanerush/engine/internal/model"
)

func testConfig() config.RecorderConfig {
	return config.RecorderConfig{
		BatchSize:     100,
		FlushInterval: time.Hour,
		BufferSize:    2,
	}
}

// fakeSender captures what each batch write saw, standing in for the pool.
type fakeSender struct {
	batches int
	ctxErr  error
}

func (f *fakeSender) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	f.batches++
	f.ctxErr = ctx.Err()
	return &fakeResults{}
}

type fakeResults struct{}

func (f *fakeResults) Exec() (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *fakeResults) Query() (pgx.Rows, error) { return nil, nil }

func (f *fakeResults) QueryRow() pgx.Row { return nil }

func (f *fakeResults) Close() error { return nil }

func TestRecordActionDropsWhenFull(t *testing.T) {
	r := New(testConfig(), nil, nil)

	// The consume loop is not running, so the buffer fills at capacity.
	for i := 0; i < 5; i++ {
		r.RecordAction(model.PlayerAction{ID: "a"})
	}

	stats := r.Stats()
	if stats.Dropped != 3 {
		t.Errorf("Dropped = %d, want 3", stats.Dropped)
	}
	if len(r.input) != 2 {
		t.Errorf("buffered = %d, want 2", len(r.input))
	}
}

func TestHandleActionBatchesBelowThreshold(t *testing.T) {
	r := New(testConfig(), nil, nil)

	for i := 0; i < 10; i++ {
		r.handleAction(model.PlayerAction{ID: "a"})
	}

	r.batchMu.Lock()
	n := len(r.batch)
	r.batchMu.Unlock()
	if n != 10 {
		t.Errorf("batch length = %d, want 10", n)
	}
	if r.Stats().Flushes != 0 {
		t.Error("flushed before reaching batch size")
	}
}

func TestFlushEmptyBatchIsNoOp(t *testing.T) {
	r := New(testConfig(), nil, nil)

	// Must not touch the (nil) pool when there is nothing to write.
	r.flush(context.Background())

	if stats := r.Stats(); stats.Flushes != 0 || stats.Errors != 0 {
		t.Errorf("stats after empty flush: %+v", stats)
	}
}

func TestStopFlushesWithLiveContext(t *testing.T) {
	sender := &fakeSender{}
	r := New(testConfig(), nil, nil)
	r.db = sender

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	r.handleAction(model.PlayerAction{ID: "a"})

	// Stop cancels the loops' context; the final flush must still reach
	// the database.
	if err := r.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}

	if sender.batches != 1 {
		t.Fatalf("batches sent = %d, want 1", sender.batches)
	}
	if sender.ctxErr != nil {
		t.Errorf("shutdown flush ran on a dead context: %v", sender.ctxErr)
	}
	if stats := r.Stats(); stats.Inserts != 1 || stats.Flushes != 1 {
		t.Errorf("stats after stop: %+v", stats)
	}
}
