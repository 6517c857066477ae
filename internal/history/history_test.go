package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-climate/internal/entity"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-climate/migrations"
)

// ─── Test Helpers ───────────────────────────────────────────────────

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{Path: database.MemoryPath, BusyTimeout: 1})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup
	if _, err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("migrating: %v", err)
	}

	repo := NewSQLiteRepository(db.DB)
	repo.now = func() time.Time { return base }
	return repo
}

type fakeRepo struct {
	recorded []Entry
	err      error
	pruned   int
}

func (f *fakeRepo) Record(_ context.Context, e *Entry) error {
	if f.err != nil {
		return f.err
	}
	f.recorded = append(f.recorded, *e)
	return nil
}

func (f *fakeRepo) List(context.Context, string, int) ([]Entry, error) { return f.recorded, f.err }

func (f *fakeRepo) Prune(context.Context, time.Duration) (int64, error) {
	f.pruned++
	return 0, f.err
}

func state(id, value string, at time.Time) *entity.State {
	return &entity.State{EntityID: id, Value: value, LastChanged: at, LastUpdated: at}
}

// ─── SQLiteRepository ───────────────────────────────────────────────

func TestRepository_RecordAndList(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	id := "sensor.absolute_humidity_kitchen_humidity"

	for i, v := range []string{"8.1", "8.3", "8.6"} {
		e := &Entry{
			EntityID:   id,
			Value:      v,
			Attributes: map[string]any{"unit_of_measurement": "g/m³"},
			RecordedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Record(ctx, e); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
		if e.ID == 0 {
			t.Error("Record() did not set ID")
		}
	}
	if err := repo.Record(ctx, &Entry{EntityID: "sensor.other", Value: "1"}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	entries, err := repo.List(ctx, id, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("List() returned %d entries, want 3", len(entries))
	}
	if entries[0].Value != "8.6" || entries[2].Value != "8.1" {
		t.Errorf("List() order = %s..%s, want newest first", entries[0].Value, entries[2].Value)
	}
	if !entries[0].RecordedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("RecordedAt = %v", entries[0].RecordedAt)
	}
	if entries[0].Attributes["unit_of_measurement"] != "g/m³" {
		t.Errorf("Attributes = %v", entries[0].Attributes)
	}

	limited, err := repo.List(ctx, id, 2)
	if err != nil || len(limited) != 2 {
		t.Errorf("List(limit 2) = %d entries, %v", len(limited), err)
	}
}

func TestRepository_RecordDefaultsTimestamp(t *testing.T) {
	repo := newTestRepo(t)
	e := &Entry{EntityID: "sensor.window_recommendation_kitchen_humidity", Value: "open"}
	if err := repo.Record(context.Background(), e); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if !e.RecordedAt.Equal(base) {
		t.Errorf("RecordedAt = %v, want %v", e.RecordedAt, base)
	}
}

func TestRepository_RequiresEntityID(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.Record(ctx, &Entry{Value: "1"}); !errors.Is(err, ErrMissingEntityID) {
		t.Errorf("Record() error = %v, want ErrMissingEntityID", err)
	}
	if _, err := repo.List(ctx, "", 10); !errors.Is(err, ErrMissingEntityID) {
		t.Errorf("List() error = %v, want ErrMissingEntityID", err)
	}
}

func TestRepository_Prune(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	id := "sensor.absolute_humidity_bath_humidity"

	for _, age := range []time.Duration{72 * time.Hour, 49 * time.Hour, time.Hour} {
		if err := repo.Record(ctx, &Entry{EntityID: id, Value: "9", RecordedAt: base.Add(-age)}); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	n, err := repo.Prune(ctx, 48*time.Hour)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Prune() deleted %d, want 2", n)
	}
	left, _ := repo.List(ctx, id, 0)
	if len(left) != 1 {
		t.Errorf("%d entries left, want 1", len(left))
	}

	if _, err := repo.Prune(ctx, 0); !errors.Is(err, ErrInvalidRetention) {
		t.Errorf("Prune(0) error = %v, want ErrInvalidRetention", err)
	}
}

// ─── Recorder ───────────────────────────────────────────────────────

func TestRecorder_RecordsOnlyChanges(t *testing.T) {
	repo := &fakeRepo{}
	rec := NewRecorder(repo, nil)
	ctx := context.Background()
	id := "sensor.window_recommendation_kitchen_humidity"

	values := []string{"close", "close", "open", "open", "close"}
	for i, v := range values {
		if err := rec.PublishState(ctx, state(id, v, base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("PublishState() error = %v", err)
		}
	}

	want := []string{"close", "open", "close"}
	if len(repo.recorded) != len(want) {
		t.Fatalf("recorded %d entries, want %d", len(repo.recorded), len(want))
	}
	for i, w := range want {
		if repo.recorded[i].Value != w {
			t.Errorf("entry %d = %q, want %q", i, repo.recorded[i].Value, w)
		}
	}
	if !repo.recorded[1].RecordedAt.Equal(base.Add(2 * time.Second)) {
		t.Errorf("RecordedAt = %v, want the state's LastUpdated", repo.recorded[1].RecordedAt)
	}
}

func TestRecorder_TracksEntitiesSeparately(t *testing.T) {
	repo := &fakeRepo{}
	rec := NewRecorder(repo, nil)
	ctx := context.Background()

	_ = rec.PublishState(ctx, state("sensor.a", "1", base))
	_ = rec.PublishState(ctx, state("sensor.b", "1", base))
	_ = rec.PublishState(ctx, state("sensor.a", "1", base))

	if len(repo.recorded) != 2 {
		t.Errorf("recorded %d entries, want 2", len(repo.recorded))
	}
}

func TestRecorder_RetriesAfterFailure(t *testing.T) {
	failure := errors.New("disk full")
	repo := &fakeRepo{err: failure}
	rec := NewRecorder(repo, nil)
	ctx := context.Background()

	if err := rec.PublishState(ctx, state("sensor.a", "1", base)); !errors.Is(err, failure) {
		t.Fatalf("PublishState() error = %v, want %v", err, failure)
	}

	repo.err = nil
	if err := rec.PublishState(ctx, state("sensor.a", "1", base)); err != nil {
		t.Fatalf("PublishState() error = %v", err)
	}
	if len(repo.recorded) != 1 {
		t.Errorf("recorded %d entries after retry, want 1", len(repo.recorded))
	}
}

func TestRecorder_IgnoresEmptyState(t *testing.T) {
	repo := &fakeRepo{}
	rec := NewRecorder(repo, nil)

	if err := rec.PublishState(context.Background(), nil); err != nil {
		t.Errorf("PublishState(nil) error = %v", err)
	}
	if err := rec.PublishState(context.Background(), &entity.State{Value: "1"}); err != nil {
		t.Errorf("PublishState(no id) error = %v", err)
	}
	if len(repo.recorded) != 0 {
		t.Errorf("recorded %d entries, want 0", len(repo.recorded))
	}
}

func TestRecorder_RunPrunerStopsOnCancel(t *testing.T) {
	repo := &fakeRepo{}
	rec := NewRecorder(repo, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rec.RunPruner(ctx, time.Hour, 24*time.Hour)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunPruner did not return after cancel")
	}
	if repo.pruned < 1 {
		t.Errorf("pruned %d times, want an immediate prune", repo.pruned)
	}
}
