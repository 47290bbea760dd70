package command

import (
	"fmt"

	"golang.org/x/text/cases"
)

// Outcome classifies one definition against one token sequence.
type Outcome int

const (
	NoMatch Outcome = iota
	ArityMismatch
	Matched
)

func (o Outcome) String() string {
	switch o {
	case NoMatch:
		return "no_match"
	case ArityMismatch:
		return "arity_mismatch"
	case Matched:
		return "matched"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Matcher decides whether tokens invoke def. Every implementation returns
// NoMatch when tokens[0] is neither def's name nor one of its aliases, so only a recognized name can
// produce ArityMismatch or Matched.
type Matcher interface {
	Evaluate(def *Definition, tokens []string) Outcome
}

// StaticMatcher requires exactly MinArgs (== MaxArgs) arguments.
type StaticMatcher struct{}

func (StaticMatcher) Evaluate(def *Definition, tokens []string) Outcome {
	if !nameMatches(def, tokens) {
		return NoMatch
	}
	if len(tokens)-1 != def.minArgs {
		return ArityMismatch
	}
	return Matched
}

// VariableMatcher accepts any argument count in [MinArgs, MaxArgs].
type VariableMatcher struct{}

func (VariableMatcher) Evaluate(def *Definition, tokens []string) Outcome {
	if !nameMatches(def, tokens) {
		return NoMatch
	}
	if !def.acceptsCount(len(tokens) - 1) {
		return ArityMismatch
	}
	return Matched
}

// DynamicMatcher checks argument content against the definition's patterns,
// first pattern to fit wins. Without patterns it falls back to the numeric
// bounds.
type DynamicMatcher struct{}

func (DynamicMatcher) Evaluate(def *Definition, tokens []string) Outcome {
	if !nameMatches(def, tokens) {
		return NoMatch
	}
	args := tokens[1:]
	if len(def.patterns) == 0 {
		if def.acceptsCount(len(args)) {
			return Matched
		}
		return ArityMismatch
	}
	for _, p := range def.patterns {
		if p.Matches(args) {
			return Matched
		}
	}
	return ArityMismatch
}

// MatcherFor returns the strategy for kind. Unknown kinds get the static
// strategy.
func MatcherFor(kind MatchKind) Matcher {
	switch kind {
	case MatchVariable:
		return VariableMatcher{}
	case MatchDynamic:
		return DynamicMatcher{}
	default:
		return StaticMatcher{}
	}
}

// MatchingPattern returns the first dynamic pattern args satisfy.
func (d *Definition) MatchingPattern(args []string) (Pattern, bool) {
	for _, p := range d.patterns {
		if p.Matches(args) {
			return p, true
		}
	}
	return Pattern{}, false
}

func nameMatches(def *Definition, tokens []string) bool {
	if def == nil || len(tokens) == 0 {
		return false
	}
	return def.answersTo(foldName(tokens[0]))
}

// foldName is the case-insensitive key for names and keywords. A Caser is
// stateful, so one is built per call.
func foldName(s string) string {
	return cases.Fold().String(s)
}
