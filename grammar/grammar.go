package grammar

import (
	"strings"

	"tlog.app/go/errors"
)

type (
	Grammar struct {
		Rules []*Rule
		UDTs  []*UDT

		// NeedsUniversal and NeedsRecursive tell the parser
		// whether to allocate the corresponding back reference stack.
		NeedsUniversal bool
		NeedsRecursive bool

		// Analyzed is set once the grammar passed the attribute analysis.
		// The interpreter refuses grammars without it.
		Analyzed bool

		names map[string]Ref
	}

	Rule struct {
		Name  string
		Lower string
		Index int
		Line  int

		// Ops is the rule body. Ops[0] is the root.
		Ops []Op

		BackUniversal bool // some Bkr captures this rule in universal mode
		BackRecursive bool // some Bkr captures this rule in recursive mode

		// HasRecursiveBackref is set for recursive rules which refer
		// to a recursively captured rule or UDT.
		HasRecursiveBackref bool
	}

	UDT struct {
		Name  string
		Lower string
		Index int

		Empty bool // may return an empty phrase

		BackUniversal bool
		BackRecursive bool
	}

	// Ref is a resolved rule or UDT name.
	Ref struct {
		UDT   bool
		Index int
	}
)

func NewRule(name string, ops ...Op) *Rule {
	return &Rule{Name: name, Ops: ops}
}

func NewUDT(name string, empty bool) *UDT {
	return &UDT{Name: name, Empty: empty}
}

// New assembles the grammar, checks the IR invariants
// and derives back reference flags.
// Rule 0 is the default start rule.
func New(rules []*Rule, udts []*UDT) (*Grammar, error) {
	g := &Grammar{
		Rules: rules,
		UDTs:  udts,
		names: make(map[string]Ref, len(rules)+len(udts)),
	}

	if len(rules) == 0 {
		return nil, errors.New("no rules")
	}

	for i, r := range rules {
		if r.Name == "" {
			return nil, errors.New("rule %d: empty name", i)
		}

		r.Index = i
		r.Lower = strings.ToLower(r.Name)
		r.BackUniversal, r.BackRecursive = false, false

		if _, ok := g.names[r.Lower]; ok {
			return nil, errors.New("duplicate name: %v", r.Name)
		}

		g.names[r.Lower] = Ref{Index: i}
	}

	for i, u := range udts {
		if u.Name == "" {
			return nil, errors.New("udt %d: empty name", i)
		}

		u.Index = i
		u.Lower = strings.ToLower(u.Name)
		u.BackUniversal, u.BackRecursive = false, false

		if _, ok := g.names[u.Lower]; ok {
			return nil, errors.New("duplicate name: %v", u.Name)
		}

		g.names[u.Lower] = Ref{UDT: true, Index: i}
	}

	for _, r := range rules {
		err := g.checkRule(r)
		if err != nil {
			return nil, errors.Wrap(err, "rule %v", r.Name)
		}
	}

	for _, r := range rules {
		for _, op := range r.Ops {
			bkr, ok := op.(Bkr)
			if !ok {
				continue
			}

			ref, _ := g.Resolve(bkr.Name)

			g.markCaptured(ref, bkr.Mode)
		}
	}

	return g, nil
}

func (g *Grammar) checkRule(r *Rule) error {
	if len(r.Ops) == 0 {
		return errors.New("no opcodes")
	}

	for i, op := range r.Ops {
		err := g.checkOp(r, i, op)
		if err != nil {
			return errors.Wrap(err, "op %d (%v)", i, KindOf(op))
		}
	}

	return nil
}

func (g *Grammar) checkOp(r *Rule, i int, op Op) error {
	children := func(ch []int) error {
		if len(ch) == 0 {
			return errors.New("no children")
		}

		for _, c := range ch {
			if c <= i || c >= len(r.Ops) {
				return errors.New("child index out of range: %d", c)
			}
		}

		return nil
	}

	operand := func() error {
		if i+1 >= len(r.Ops) {
			return errors.New("missing operand")
		}

		return nil
	}

	switch op := op.(type) {
	case Alt:
		return children(op.Children)
	case Cat:
		return children(op.Children)
	case Rep:
		if op.Min > op.Max {
			return errors.New("min > max: %d > %d", op.Min, op.Max)
		}

		return operand()
	case And, Not, Bka, Bkn:
		return operand()
	case Rnm:
		if op.Rule < 0 || op.Rule >= len(g.Rules) {
			return errors.New("rule index out of range: %d", op.Rule)
		}
	case Udt:
		if op.UDT < 0 || op.UDT >= len(g.UDTs) {
			return errors.New("udt index out of range: %d", op.UDT)
		}

		if op.Empty != g.UDTs[op.UDT].Empty {
			return errors.New("udt %v: empty flag mismatch", g.UDTs[op.UDT].Name)
		}
	case Trg:
		if op.Min > op.Max {
			return errors.New("min > max: %d > %d", op.Min, op.Max)
		}
	case Tbs:
		if len(op.Str) == 0 {
			return errors.New("empty case-sensitive literal")
		}
	case Tls, Abg, Aen:
	case Bkr:
		if _, ok := g.Resolve(op.Name); !ok {
			return errors.New("back reference to unknown name: %v", op.Name)
		}
	case nil:
		return errors.New("nil opcode")
	default:
		return errors.New("unsupported opcode: %T", op)
	}

	return nil
}

func (g *Grammar) markCaptured(ref Ref, mode Mode) {
	if ref.UDT {
		u := g.UDTs[ref.Index]

		if mode == Recursive {
			u.BackRecursive = true
		} else {
			u.BackUniversal = true
		}
	} else {
		r := g.Rules[ref.Index]

		if mode == Recursive {
			r.BackRecursive = true
		} else {
			r.BackUniversal = true
		}
	}

	if mode == Recursive {
		g.NeedsRecursive = true
	} else {
		g.NeedsUniversal = true
	}
}

// Resolve finds a rule or UDT by case-insensitive name.
func (g *Grammar) Resolve(name string) (Ref, bool) {
	ref, ok := g.names[strings.ToLower(name)]

	return ref, ok
}

func (g *Grammar) RuleIndex(name string) (int, bool) {
	ref, ok := g.Resolve(name)
	if !ok || ref.UDT {
		return -1, false
	}

	return ref.Index, true
}

func (g *Grammar) UDTIndex(name string) (int, bool) {
	ref, ok := g.Resolve(name)
	if !ok || !ref.UDT {
		return -1, false
	}

	return ref.Index, true
}

// Names lists all rule names followed by all UDT names.
func (g *Grammar) Names() []string {
	r := make([]string, 0, len(g.Rules)+len(g.UDTs))

	for _, x := range g.Rules {
		r = append(r, x.Name)
	}

	for _, x := range g.UDTs {
		r = append(r, x.Name)
	}

	return r
}

// Name returns the display name of the resolved reference.
func (g *Grammar) Name(ref Ref) string {
	if ref.UDT {
		return g.UDTs[ref.Index].Name
	}

	return g.Rules[ref.Index].Name
}

func KindOf(op Op) Kind {
	if op == nil {
		return 0
	}

	return op.Kind()
}
