// Package audit records admin mutations as JSON lines, one event per
// line, separate from the operational log.
package audit

import (
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/ethvouch/fee-manager/auth"
)

// Logger emits one structured event per admin mutation.
type Logger struct {
	log *logrus.Logger
}

// NewLogger writes JSON events to out.
func NewLogger(out io.Writer) *Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetLevel(logrus.InfoLevel)
	return &Logger{log: l}
}

// NewNopLogger discards events; used in tests.
func NewNopLogger() *Logger {
	return NewLogger(io.Discard)
}

// Record logs one mutation. Action is a verb (create, update, delete),
// entity the kind acted on, name its identifier. The acting token, when
// present on the request context, is included.
func (l *Logger) Record(r *http.Request, action, entity, name string) {
	fields := logrus.Fields{
		"action": action,
		"entity": entity,
		"name":   name,
		"method": r.Method,
		"path":   r.URL.Path,
	}
	if actor, ok := auth.ActorFromContext(r.Context()); ok {
		fields["actor"] = actor.Name
		fields["actorID"] = actor.ID
	}
	l.log.WithFields(fields).Info("admin mutation")
}
