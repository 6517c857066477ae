package history

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-climate/internal/entity"
)

// Logger is the logging interface used by Recorder.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// Recorder stores derived sensor values as they change. It implements
// host.StatePublisher.
//
// Refreshes that leave a value unchanged are not stored, so the table grows
// with real changes rather than with the scan interval.
type Recorder struct {
	repo   Repository
	logger Logger

	mu   sync.Mutex
	last map[string]string
}

// NewRecorder creates a Recorder writing to repo.
func NewRecorder(repo Repository, logger Logger) *Recorder {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Recorder{
		repo:   repo,
		logger: logger,
		last:   make(map[string]string),
	}
}

// PublishState records st if its value differs from the last one recorded
// for the same entity.
func (r *Recorder) PublishState(ctx context.Context, st *entity.State) error {
	if st == nil || st.EntityID == "" {
		return nil
	}

	r.mu.Lock()
	prev, seen := r.last[st.EntityID]
	if seen && prev == st.Value {
		r.mu.Unlock()
		return nil
	}
	r.last[st.EntityID] = st.Value
	r.mu.Unlock()

	err := r.repo.Record(ctx, &Entry{
		EntityID:   st.EntityID,
		Value:      st.Value,
		Attributes: st.Attributes,
		RecordedAt: st.LastUpdated,
	})
	if err != nil {
		// Forget the value so the next refresh retries.
		r.mu.Lock()
		if seen {
			r.last[st.EntityID] = prev
		} else {
			delete(r.last, st.EntityID)
		}
		r.mu.Unlock()
		return err
	}
	return nil
}

// RunPruner deletes entries older than retention every interval until ctx
// is cancelled. The first prune runs immediately.
func (r *Recorder) RunPruner(ctx context.Context, interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		r.prune(ctx, retention)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (r *Recorder) prune(ctx context.Context, retention time.Duration) {
	n, err := r.repo.Prune(ctx, retention)
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Warn("state history prune failed", "error", err)
		}
		return
	}
	if n > 0 {
		r.logger.Info("state history pruned", "deleted", n, "retention", retention.String())
	} else {
		r.logger.Debug("state history prune found nothing to delete")
	}
}
