package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Unbounded marks a MaxArgs with no upper limit (variable and dynamic only).
const Unbounded = -1

var (
	ErrInvalidDefinition = errors.New("command: invalid definition")
	ErrNilDefinition     = errors.New("command: definition is nil")
)

// MatchKind selects the matching strategy applied to a definition.
type MatchKind int

const (
	MatchStatic MatchKind = iota
	MatchVariable
	MatchDynamic
)

func (k MatchKind) String() string {
	switch k {
	case MatchStatic:
		return "static"
	case MatchVariable:
		return "variable"
	case MatchDynamic:
		return "dynamic"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Sender is the caller a command is invoked for.
type Sender interface {
	Name() string
	IsConsole() bool
	IsOperator() bool
	HasPermission(node string) bool
	Send(msg string)
}

// Action performs a command's effect. It reports false when the command did
// not succeed for this sender (typically a missing permission).
type Action func(ctx context.Context, sender Sender, args []string) bool

// Spec is the constructor input for a Definition.
type Spec struct {
	Name            string
	Aliases         []string
	Kind            MatchKind
	MinArgs         int
	MaxArgs         int
	Patterns        []string
	Description     string
	Usage           string
	Permission      string
	ConsoleEligible bool
	Action          Action
}

// Definition is an immutable descriptor of one invocable command.
type Definition struct {
	name            string
	key             string
	aliases         []string
	aliasKeys       []string
	kind            MatchKind
	minArgs         int
	maxArgs         int
	patterns        []Pattern
	description     string
	usage           string
	permission      string
	consoleEligible bool
	action          Action
}

// NewDefinition validates spec and builds a Definition from it.
func NewDefinition(spec Spec) (*Definition, error) {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return nil, wrapInvalid("name is required")
	}
	if strings.ContainsAny(name, " \t\r\n") {
		return nil, wrapInvalid(fmt.Sprintf("name %q contains whitespace", name))
	}
	if spec.MinArgs < 0 {
		return nil, wrapInvalid(fmt.Sprintf("%s: min args must be non-negative", name))
	}
	if spec.MaxArgs != Unbounded && spec.MaxArgs < spec.MinArgs {
		return nil, wrapInvalid(fmt.Sprintf("%s: max args %d below min args %d", name, spec.MaxArgs, spec.MinArgs))
	}

	aliases, err := normalizeAliases(name, spec.Aliases)
	if err != nil {
		return nil, err
	}

	def := &Definition{
		name:            name,
		key:             foldName(name),
		aliases:         aliases,
		kind:            spec.Kind,
		minArgs:         spec.MinArgs,
		maxArgs:         spec.MaxArgs,
		description:     strings.TrimSpace(spec.Description),
		usage:           strings.TrimSpace(spec.Usage),
		permission:      strings.TrimSpace(spec.Permission),
		consoleEligible: spec.ConsoleEligible,
		action:          spec.Action,
	}

	for _, alias := range aliases {
		def.aliasKeys = append(def.aliasKeys, foldName(alias))
	}

	switch spec.Kind {
	case MatchStatic:
		if spec.MaxArgs == Unbounded || spec.MinArgs != spec.MaxArgs {
			return nil, wrapInvalid(fmt.Sprintf("%s: static commands need min args == max args", name))
		}
	case MatchVariable:
	case MatchDynamic:
		if len(spec.Patterns) > 0 && (spec.MinArgs != 0 || spec.MaxArgs != 0) {
			return nil, wrapInvalid(fmt.Sprintf("%s: arity of a patterned command comes from its patterns", name))
		}
		for _, raw := range spec.Patterns {
			p, err := ParsePattern(raw)
			if err != nil {
				return nil, wrapInvalid(fmt.Sprintf("%s: %v", name, err))
			}
			def.patterns = append(def.patterns, p)
		}
		if len(def.patterns) > 0 {
			def.minArgs, def.maxArgs = patternBounds(def.patterns)
		}
	default:
		return nil, wrapInvalid(fmt.Sprintf("%s: unknown match kind %s", name, spec.Kind))
	}
	if len(spec.Patterns) > 0 && spec.Kind != MatchDynamic {
		return nil, wrapInvalid(fmt.Sprintf("%s: patterns require a dynamic command", name))
	}
	return def, nil
}

// patternBounds is the widest argument range any pattern accepts.
func patternBounds(patterns []Pattern) (int, int) {
	lo, hi := patterns[0].min, patterns[0].max
	for _, p := range patterns[1:] {
		lo = min(lo, p.min)
		switch {
		case hi == Unbounded:
		case p.max == Unbounded:
			hi = Unbounded
		default:
			hi = max(hi, p.max)
		}
	}
	return lo, hi
}

// MustDefinition is NewDefinition for package-level command tables.
func MustDefinition(spec Spec) *Definition {
	def, err := NewDefinition(spec)
	if err != nil {
		panic(err)
	}
	return def
}

func (d *Definition) Name() string          { return d.name }
func (d *Definition) Kind() MatchKind       { return d.kind }
func (d *Definition) MinArgs() int          { return d.minArgs }
func (d *Definition) MaxArgs() int          { return d.maxArgs }
func (d *Definition) Description() string   { return d.description }
func (d *Definition) Permission() string    { return d.permission }
func (d *Definition) ConsoleEligible() bool { return d.consoleEligible }

// Aliases returns the alternate names the command answers to. Aliases are
// not unique across a registry; overlapping aliases resolve by precedence.
func (d *Definition) Aliases() []string {
	out := make([]string, len(d.aliases))
	copy(out, d.aliases)
	return out
}

// Patterns returns a copy of the dynamic sub-patterns.
func (d *Definition) Patterns() []Pattern {
	out := make([]Pattern, len(d.patterns))
	copy(out, d.patterns)
	return out
}

// Usage returns the configured usage line, or one derived from the shape.
func (d *Definition) Usage() string {
	if d.usage != "" {
		return d.usage
	}
	if len(d.patterns) > 0 {
		lines := make([]string, 0, len(d.patterns))
		for _, p := range d.patterns {
			lines = append(lines, strings.TrimSpace(d.name+" "+p.Describe()))
		}
		return strings.Join(lines, " | ")
	}

	var b strings.Builder
	b.WriteString(d.name)
	for i := 1; i <= d.minArgs; i++ {
		fmt.Fprintf(&b, " <arg%d>", i)
	}
	switch {
	case d.maxArgs == Unbounded:
		b.WriteString(" [args...]")
	default:
		for i := d.minArgs + 1; i <= d.maxArgs; i++ {
			fmt.Fprintf(&b, " [arg%d]", i)
		}
	}
	return b.String()
}

// Invoke runs the command action. Callers only invoke after a Matched
// resolution; Invoke itself checks neither arity nor permission.
func (d *Definition) Invoke(ctx context.Context, sender Sender, args []string) bool {
	if d.action == nil {
		return false
	}
	return d.action(ctx, sender, args)
}

func (d *Definition) acceptsCount(n int) bool {
	if n < d.minArgs {
		return false
	}
	return d.maxArgs == Unbounded || n <= d.maxArgs
}

// answersTo reports whether the folded key names this command.
func (d *Definition) answersTo(key string) bool {
	if key == d.key {
		return true
	}
	for _, alias := range d.aliasKeys {
		if key == alias {
			return true
		}
	}
	return false
}

func normalizeAliases(name string, in []string) ([]string, error) {
	if len(in) == 0 {
		return nil, nil
	}
	seen := map[string]bool{foldName(name): true}
	out := make([]string, 0, len(in))
	for _, raw := range in {
		alias := strings.TrimSpace(raw)
		if alias == "" || strings.ContainsAny(alias, " \t\r\n") {
			return nil, wrapInvalid(fmt.Sprintf("%s: invalid alias %q", name, raw))
		}
		key := foldName(alias)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, alias)
	}
	return out, nil
}

func wrapInvalid(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidDefinition, reason)
}
