package command

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidPattern = errors.New("command: invalid pattern")

type segmentKind int

const (
	segmentLiteral segmentKind = iota
	segmentRequired
	segmentOptional
	segmentVariadic
)

type segment struct {
	kind segmentKind
	text string
	// variadic tails written as <name...> need at least one token
	atLeastOne bool
}

// Pattern is one sub-shape of a dynamic command, e.g. "set <key> <value>".
// Literals are keywords compared case-insensitively; placeholders take one
// argument each. Optional and variadic placeholders may only trail.
type Pattern struct {
	raw      string
	segments []segment
	min      int
	max      int
}

// ParsePattern compiles a pattern from its usage text.
func ParsePattern(raw string) (Pattern, error) {
	fields := strings.Fields(raw)
	p := Pattern{raw: strings.Join(fields, " ")}
	seenOptional := false

	for i, field := range fields {
		seg, err := parseSegment(field)
		if err != nil {
			return Pattern{}, err
		}
		switch seg.kind {
		case segmentLiteral, segmentRequired:
			if seenOptional {
				return Pattern{}, fmt.Errorf("%w: %q follows an optional argument in %q", ErrInvalidPattern, field, raw)
			}
			p.min++
		case segmentOptional:
			seenOptional = true
		case segmentVariadic:
			if i != len(fields)-1 {
				return Pattern{}, fmt.Errorf("%w: variadic %q must be last in %q", ErrInvalidPattern, field, raw)
			}
			if seg.atLeastOne {
				if seenOptional {
					return Pattern{}, fmt.Errorf("%w: %q follows an optional argument in %q", ErrInvalidPattern, field, raw)
				}
				p.min++
			}
		}
		p.segments = append(p.segments, seg)
	}

	p.max = len(p.segments)
	if n := len(p.segments); n > 0 && p.segments[n-1].kind == segmentVariadic {
		p.max = Unbounded
	}
	return p, nil
}

func parseSegment(field string) (segment, error) {
	first, last := field[0], field[len(field)-1]
	switch {
	case first == '<' || first == '[':
		want := byte('>')
		if first == '[' {
			want = ']'
		}
		if last != want || len(field) < 3 {
			return segment{}, fmt.Errorf("%w: malformed placeholder %q", ErrInvalidPattern, field)
		}
		name := field[1 : len(field)-1]
		if strings.HasSuffix(name, "...") {
			name = strings.TrimSuffix(name, "...")
			if name == "" {
				return segment{}, fmt.Errorf("%w: unnamed variadic %q", ErrInvalidPattern, field)
			}
			return segment{kind: segmentVariadic, text: name, atLeastOne: first == '<'}, nil
		}
		if first == '<' {
			return segment{kind: segmentRequired, text: name}, nil
		}
		return segment{kind: segmentOptional, text: name}, nil
	case strings.ContainsAny(field, "<>[]"):
		return segment{}, fmt.Errorf("%w: stray bracket in %q", ErrInvalidPattern, field)
	default:
		return segment{kind: segmentLiteral, text: field}, nil
	}
}

// Matches reports whether args (tokens after the command name) fit p.
func (p Pattern) Matches(args []string) bool {
	if len(args) < p.min {
		return false
	}
	if p.max != Unbounded && len(args) > p.max {
		return false
	}
	for i, seg := range p.segments {
		if seg.kind != segmentLiteral {
			continue
		}
		if foldName(args[i]) != foldName(seg.text) {
			return false
		}
	}
	return true
}

// Keyword returns the leading literal, if any.
func (p Pattern) Keyword() string {
	if len(p.segments) == 0 || p.segments[0].kind != segmentLiteral {
		return ""
	}
	return p.segments[0].text
}

// Describe renders the pattern as usage text.
func (p Pattern) Describe() string {
	parts := make([]string, 0, len(p.segments))
	for _, seg := range p.segments {
		switch seg.kind {
		case segmentLiteral:
			parts = append(parts, seg.text)
		case segmentRequired:
			parts = append(parts, "<"+seg.text+">")
		case segmentOptional:
			parts = append(parts, "["+seg.text+"]")
		case segmentVariadic:
			if seg.atLeastOne {
				parts = append(parts, "<"+seg.text+"...>")
			} else {
				parts = append(parts, "["+seg.text+"...]")
			}
		}
	}
	return strings.Join(parts, " ")
}

func (p Pattern) String() string { return p.raw }
