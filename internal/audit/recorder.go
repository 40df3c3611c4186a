package audit

import (
	"context"
	"time"

	"github.com/nerrad567/inventory-core/internal/inventory"
)

// SourceAPI marks entries produced by requests to the HTTP API.
const SourceAPI = "api"

// writeTimeout bounds a single insert so a slow disk cannot stall callers.
const writeTimeout = 2 * time.Second

// Logger is the logging interface used by Recorder.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Recorder writes one audit entry per registry event.
type Recorder struct {
	repo   Repository
	source string
	logger Logger
}

// NewRecorder creates a Recorder. An empty source defaults to SourceAPI.
func NewRecorder(repo Repository, source string) *Recorder {
	if source == "" {
		source = SourceAPI
	}
	return &Recorder{repo: repo, source: source, logger: noopLogger{}}
}

// SetLogger sets the logger used to report failed writes.
func (r *Recorder) SetLogger(logger Logger) {
	r.logger = logger
}

// Notify implements inventory.Notifier. Write failures are logged and dropped.
func (r *Recorder) Notify(ctx context.Context, ev inventory.Event) {
	entry := EntryFromEvent(ev)
	entry.Source = r.source

	// Detach from request cancellation: the mutation already happened.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	if err := r.repo.Create(ctx, entry); err != nil {
		r.logger.Warn("audit write failed", "action", entry.Action, "entity_id", entry.EntityID, "error", err)
	}
}

// EntryFromEvent converts a registry event into an audit entry.
func EntryFromEvent(ev inventory.Event) *Entry {
	entry := &Entry{
		Action:     string(ev.Type),
		EntityType: ev.Type.EntityType(),
		EntityID:   ev.EntityID(),
		UserID:     ev.UserID,
		CreatedAt:  ev.Timestamp,
		Details:    map[string]any{},
	}

	switch {
	case ev.Device != nil:
		entry.Details["name"] = ev.Device.Name
		entry.Details["assignedTo"] = string(ev.Device.AssignedTo)
		if ev.Device.SerialNumber != "" {
			entry.Details["serialNumber"] = ev.Device.SerialNumber
		}
		if ev.Type == inventory.EventDeviceImageAttached {
			entry.Details["imagePath"] = ev.Device.ImagePath
		}
	case ev.User != nil:
		entry.Details["name"] = ev.User.Name
		entry.Details["deviceCount"] = len(ev.User.Devices)
	}
	return entry
}
