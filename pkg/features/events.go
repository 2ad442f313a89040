package features

import (
	"context"
	"log/slog"

	"github.com/Sumatoshi-tech/modernity/pkg/langver"
	"github.com/Sumatoshi-tech/modernity/pkg/syntax"
)

// EventKind classifies diagnostic events.
type EventKind string

const (
	// EventMatch reports a rule match.
	EventMatch EventKind = "match"
	// EventRuleFailure reports a predicate that panicked.
	EventRuleFailure EventKind = "rule_failure"
	// EventPartial reports a subtree skipped because it could not be parsed or walked.
	EventPartial EventKind = "partial"
)

// Event is one structured diagnostic emitted during classification.
type Event struct {
	Kind   EventKind
	RuleID string
	Tag    langver.Tag
	Label  string
	Node   syntax.NodeID
	Path   string
	Detail string
}

// EventSink receives diagnostic events. A nil sink discards them.
type EventSink func(Event)

func (s EventSink) emit(ev Event) {
	if s != nil {
		s(ev)
	}
}

// LogSink returns a sink that writes events to logger at debug level, and
// failures at warn level.
func LogSink(logger *slog.Logger) EventSink {
	if logger == nil {
		logger = slog.Default()
	}

	return func(ev Event) {
		level := slog.LevelDebug
		if ev.Kind != EventMatch {
			level = slog.LevelWarn
		}

		logger.Log(context.Background(), level, "feature event",
			"kind", string(ev.Kind),
			"rule", ev.RuleID,
			"version", ev.Tag.String(),
			"label", ev.Label,
			"path", ev.Path,
			"node", ev.Node.Kind,
			"offset", ev.Node.Start,
			"detail", ev.Detail,
		)
	}
}

// Recorder collects events in memory; used by tests and reports.
type Recorder struct {
	Events []Event
}

// Sink returns the sink appending to r. Not safe for concurrent use.
func (r *Recorder) Sink() EventSink {
	return func(ev Event) {
		r.Events = append(r.Events, ev)
	}
}

// OfKind returns the recorded events of one kind.
func (r *Recorder) OfKind(kind EventKind) []Event {
	var out []Event

	for _, ev := range r.Events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}

	return out
}
