package observability

import (
	"log/slog"

	"github.com/aretw0/vigil/pkg/schema"
)

// LogObserver logs every validation pass. Invalid passes are logged at Info
// with their messages, valid ones at Debug.
type LogObserver struct {
	Logger *slog.Logger
}

// OnValidated implements schema.Observer.
func (o LogObserver) OnValidated(e schema.ValidationEvent) {
	if o.Logger == nil {
		return
	}
	if e.Valid {
		o.Logger.Debug("validation passed", "schema", e.Schema, "duration", e.Duration)
		return
	}
	o.Logger.Info("validation failed",
		"schema", e.Schema,
		"messages", e.Messages,
		"duration", e.Duration,
	)
}

// Multi fans a validation event out to several observers, in order.
type Multi []schema.Observer

// OnValidated implements schema.Observer.
func (m Multi) OnValidated(e schema.ValidationEvent) {
	for _, o := range m {
		if o != nil {
			o.OnValidated(e)
		}
	}
}
