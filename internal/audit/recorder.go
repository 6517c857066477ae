package audit

import (
	"context"
	"strings"
	"time"
)

// Sources of audit entries.
const (
	SourceSystem    = "system"
	SourceDiscovery = "discovery"
	SourceAPI       = "api"
)

// Entity types.
const (
	EntityTypeSensor  = "sensor"
	EntityTypeService = "service"
)

// Logger is the logging interface used by Recorder.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

type ctxKey int

const (
	userKey ctxKey = iota
	sourceKey
)

// WithUser tags ctx with the user an operator command runs for.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey, userID)
}

// WithSource tags ctx with the origin of the activity (SourceAPI, ...).
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceKey, source)
}

// Recorder writes discovery activity to a Repository. It satisfies
// discovery.Auditor; write failures are logged, never returned, so auditing
// cannot block sensor creation.
type Recorder struct {
	repo    Repository
	logger  Logger
	timeout time.Duration
}

// NewRecorder creates a Recorder over repo.
func NewRecorder(repo Repository, logger Logger) *Recorder {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Recorder{repo: repo, logger: logger, timeout: 5 * time.Second}
}

// Record stores one entry. entityID may be empty for service-level actions.
func (r *Recorder) Record(ctx context.Context, action, entityID string, details map[string]any) {
	e := &Entry{
		Action:     action,
		EntityType: EntityTypeService,
		EntityID:   entityID,
		Source:     SourceDiscovery,
		Details:    details,
	}
	if strings.HasPrefix(entityID, "sensor.") {
		e.EntityType = EntityTypeSensor
	}
	if v, ok := ctx.Value(userKey).(string); ok {
		e.UserID = v
	}
	if v, ok := ctx.Value(sourceKey).(string); ok {
		e.Source = v
	}

	// Detach from the caller's cancellation so a finished HTTP request does
	// not drop the row.
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()
	if err := r.repo.Create(wctx, e); err != nil {
		r.logger.Warn("audit write failed", "action", action, "entity_id", entityID, "error", err)
	}
}
