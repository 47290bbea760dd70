package observability

import (
	"time"

	"github.com/rs/zerolog"
)

// Invocation is the log record of one command handled by a plugin host.
type Invocation struct {
	ID       string
	Sender   string
	Command  string
	Result   string
	Outcome  string
	Duration time.Duration
	Err      error
}

// LogInvocation writes one line per handled command. Panics log at Error,
// rejected or refused invocations at Warn, everything else at Debug.
func LogInvocation(logger zerolog.Logger, inv Invocation) {
	event := logger.Debug()
	switch inv.Outcome {
	case OutcomePanicked:
		event = logger.Error()
	case OutcomeRejected, OutcomeNoConsole:
		event = logger.Warn()
	}

	event = event.
		Str("invocation", inv.ID).
		Str("sender", inv.Sender).
		Str("result", inv.Result).
		Dur("duration", inv.Duration)
	if inv.Command != "" {
		event = event.Str("command", inv.Command)
	}
	if inv.Outcome != "" {
		event = event.Str("outcome", inv.Outcome)
	}
	if inv.Err != nil {
		event = event.Err(inv.Err)
	}
	event.Msg("command handled")
}
