package command

import (
	"fmt"

	"github.com/rs/zerolog"
)

// ResultKind is the terminal state of one resolution.
type ResultKind int

const (
	ResultNotFound ResultKind = iota
	ResultArityError
	ResultSuccess
)

func (k ResultKind) String() string {
	switch k {
	case ResultNotFound:
		return "not_found"
	case ResultArityError:
		return "arity_error"
	case ResultSuccess:
		return "success"
	default:
		return fmt.Sprintf("result(%d)", int(k))
	}
}

// Resolution is the outcome of Dispatcher.Resolve. Command is nil for
// ResultNotFound.
type Resolution struct {
	Kind    ResultKind
	Command *Definition
}

func (r Resolution) Success() bool { return r.Kind == ResultSuccess }

func (r Resolution) String() string {
	if r.Command == nil {
		return r.Kind.String()
	}
	return r.Kind.String() + ":" + r.Command.name
}

// Dispatcher resolves token sequences against a registry. It holds no
// per-call state and is safe for concurrent use.
type Dispatcher struct {
	registry *Registry
	log      zerolog.Logger
}

func NewDispatcher(registry *Registry, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		log:      logger.With().Str("component", "command.dispatcher").Logger(),
	}
}

func (d *Dispatcher) Registry() *Registry { return d.registry }

// Resolve scans the registry in registration order. The first Matched
// definition wins. An ArityMismatch is remembered (first one only) while the
// scan continues, and is returned only if nothing later matches.
func (d *Dispatcher) Resolve(tokens []string) Resolution {
	if len(tokens) == 0 || d.registry == nil {
		return Resolution{Kind: ResultNotFound}
	}

	var arity *Definition
	for _, def := range d.registry.All() {
		outcome := MatcherFor(def.kind).Evaluate(def, tokens)
		if outcome != NoMatch {
			d.log.Trace().
				Str("command", def.name).
				Stringer("outcome", outcome).
				Int("args", len(tokens)-1).
				Msg("candidate evaluated")
		}
		switch outcome {
		case Matched:
			return d.finish(tokens, Resolution{Kind: ResultSuccess, Command: def})
		case ArityMismatch:
			if arity == nil {
				arity = def
			}
		}
	}
	if arity != nil {
		return d.finish(tokens, Resolution{Kind: ResultArityError, Command: arity})
	}
	return d.finish(tokens, Resolution{Kind: ResultNotFound})
}

func (d *Dispatcher) finish(tokens []string, res Resolution) Resolution {
	d.log.Debug().
		Str("input", tokens[0]).
		Int("args", len(tokens)-1).
		Stringer("result", res).
		Msg("command resolved")
	return res
}
