package command

import (
	"testing"

	"github.com/danmuck/commons/internal/testutil/testlog"
)

func TestMatcherOutcomes(t *testing.T) {
	testlog.Start(t)
	static := MustDefinition(Spec{Name: "reload", Kind: MatchStatic})
	variable := MustDefinition(Spec{Name: "set", Kind: MatchVariable, MinArgs: 1, MaxArgs: 2})
	open := MustDefinition(Spec{Name: "say", Kind: MatchVariable, MinArgs: 1, MaxArgs: Unbounded})
	bounded := MustDefinition(Spec{Name: "roll", Kind: MatchDynamic, MinArgs: 0, MaxArgs: 1})
	patterned := MustDefinition(Spec{Name: "warp", Kind: MatchDynamic, Patterns: []string{"add <name>", "list"}})

	cases := []struct {
		def    *Definition
		tokens []string
		want   Outcome
	}{
		{static, []string{"reload"}, Matched},
		{static, []string{"Reload"}, Matched},
		{static, []string{"reload", "now"}, ArityMismatch},
		{static, []string{"restart"}, NoMatch},
		{variable, []string{"set"}, ArityMismatch},
		{variable, []string{"set", "a"}, Matched},
		{variable, []string{"set", "a", "b"}, Matched},
		{variable, []string{"set", "a", "b", "c"}, ArityMismatch},
		{open, []string{"say", "a", "b", "c", "d"}, Matched},
		{open, []string{"say"}, ArityMismatch},
		{bounded, []string{"roll"}, Matched},
		{bounded, []string{"roll", "1", "2"}, ArityMismatch},
		{patterned, []string{"warp", "ADD", "home"}, Matched},
		{patterned, []string{"warp", "list"}, Matched},
		{patterned, []string{"warp", "remove", "home"}, ArityMismatch},
		{patterned, []string{"warp"}, ArityMismatch},
		{patterned, []string{"warps", "list"}, NoMatch},
		{patterned, nil, NoMatch},
	}
	for _, tc := range cases {
		if got := MatcherFor(tc.def.Kind()).Evaluate(tc.def, tc.tokens); got != tc.want {
			t.Fatalf("%s %v: got %s, want %s", tc.def.Name(), tc.tokens, got, tc.want)
		}
	}
}

func TestMatcherForUnknownKindIsStatic(t *testing.T) {
	testlog.Start(t)
	if _, ok := MatcherFor(MatchKind(42)).(StaticMatcher); !ok {
		t.Fatalf("unknown kind should use the static matcher")
	}
}

func TestMatchingPattern(t *testing.T) {
	testlog.Start(t)
	def := MustDefinition(Spec{Name: "config", Kind: MatchDynamic, Patterns: []string{"get <key>", "set <key> <value...>"}})
	p, ok := def.MatchingPattern([]string{"set", "motd", "hello", "world"})
	if !ok || p.Keyword() != "set" {
		t.Fatalf("expected set pattern, got %q %v", p, ok)
	}
	if _, ok := def.MatchingPattern([]string{"delete", "motd"}); ok {
		t.Fatalf("unexpected pattern match")
	}
}
