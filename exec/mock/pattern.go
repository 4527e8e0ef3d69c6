package mock

import (
	"slices"
	"strings"
)

// Wildcard is the token that matches exactly one argument in an Args pattern.
const Wildcard = "{}"

// Pattern selects the invocations a rule applies to.
type Pattern struct {
	name string
	args []string
}

// Name matches any invocation of prog. The callable receives argv[1:].
func Name(prog string) Pattern {
	return Pattern{name: prog}
}

// Args matches invocations with exactly len(tokens) arguments where every
// token is equal to the argument or is Wildcard. The callable receives the
// arguments matched by wildcards, in order.
func Args(tokens ...string) Pattern {
	return Pattern{args: slices.Clone(tokens)}
}

// IsName reports whether p is a bare program name pattern.
func (p Pattern) IsName() bool {
	return p.args == nil
}

func (p Pattern) valid() bool {
	if p.IsName() {
		return p.name != ""
	}
	return len(p.args) > 0
}

// key identifies a pattern in the rule table.
func (p Pattern) key() string {
	if p.IsName() {
		return "name\x00" + p.name
	}
	return "args\x00" + strings.Join(p.args, "\x00")
}

// match returns the wildcard captures if argv matches p.
func (p Pattern) match(argv []string) ([]string, bool) {
	if len(p.args) != len(argv) {
		return nil, false
	}

	captured := []string{}
	for i, token := range p.args {
		switch token {
		case argv[i]:
		case Wildcard:
			captured = append(captured, argv[i])
		default:
			return nil, false
		}
	}
	return captured, true
}

func (p Pattern) String() string {
	if p.IsName() {
		return p.name
	}
	return strings.Join(p.args, " ")
}
