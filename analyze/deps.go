package analyze

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/abnf/grammar"
	"github.com/slowlang/abnf/set"
)

type (
	Kind uint8

	// Dep is the dependency record of one rule.
	Dep struct {
		RefersTo     set.Bits[int] // rules this rule may invoke, transitively
		RefersToUDT  set.Bits[int]
		ReferencedBy set.Bits[int]

		Kind  Kind
		Group int // mutually recursive group, -1 if none
	}

	depScanner struct {
		g    *grammar.Grammar
		deps []Dep

		scanned *set.Bitmap
	}
)

const (
	NonRecursive Kind = iota
	Recursive
	MutuallyRecursive
)

// Dependencies computes for each rule the set of rules and UDTs it refers to,
// the transposed set of rules referring to it and its recursion kind.
// A back reference is a dependency too, though it never descends into its target.
func Dependencies(ctx context.Context, g *grammar.Grammar) (deps []Dep, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "analyze: dependencies", "rules", len(g.Rules), "udts", len(g.UDTs))
	defer tr.Finish("err", &err)

	n := len(g.Rules)

	s := &depScanner{
		g:       g,
		deps:    make([]Dep, n),
		scanned: set.NewBitmap(n),
	}

	for i := range s.deps {
		s.deps[i] = Dep{
			RefersTo:     set.MakeBits[int](n),
			RefersToUDT:  set.MakeBits[int](len(g.UDTs)),
			ReferencedBy: set.MakeBits[int](n),
			Group:        -1,
		}
	}

	for i := range g.Rules {
		s.scanned.Reset()

		err = s.scan(i)
		if err != nil {
			return nil, errors.Wrap(err, "rule %v", g.Rules[i].Name)
		}
	}

	deps = s.deps

	for i := range deps {
		deps[i].RefersTo.Range(func(j int) bool {
			deps[j].ReferencedBy.Set(i)
			return true
		})
	}

	for i := range deps {
		if deps[i].RefersTo.IsSet(i) {
			deps[i].Kind = Recursive
		}
	}

	groupMutual(deps)

	if tr.If("dump_deps") {
		for i, d := range deps {
			tr.Printw("rule deps", "rule", g.Rules[i].Name, "kind", d.Kind, "group", d.Group,
				"refers_to", d.RefersTo, "refers_to_udt", d.RefersToUDT, "referenced_by", d.ReferencedBy)
		}
	}

	return deps, nil
}

func (s *depScanner) scan(i int) error {
	d := &s.deps[i]

	s.scanned.Set(i)

	for _, op := range s.g.Rules[i].Ops {
		switch op := op.(type) {
		case grammar.Rnm:
			d.RefersTo.Set(op.Rule)

			if !s.scanned.IsSet(op.Rule) {
				err := s.scan(op.Rule)
				if err != nil {
					return err
				}
			}

			t := &s.deps[op.Rule]

			d.RefersTo.Merge(t.RefersTo)
			d.RefersToUDT.Merge(t.RefersToUDT)
		case grammar.Udt:
			d.RefersToUDT.Set(op.UDT)
		case grammar.Bkr:
			ref, ok := s.g.Resolve(op.Name)
			if !ok {
				return errors.New("back referenced name is not a rule or UDT: %v", op.Name)
			}

			if ref.UDT {
				d.RefersToUDT.Set(ref.Index)
			} else {
				d.RefersTo.Set(ref.Index)
			}
		}
	}

	return nil
}

// groupMutual folds recursive rules into mutually recursive groups.
// Two rules are grouped when each one refers to the other.
// A rule already placed in a group is not considered again as a partner,
// so the result depends on the pairwise check only.
func groupMutual(deps []Dep) {
	group := -1

	for i := range deps {
		di := &deps[i]

		if di.Kind != Recursive {
			continue
		}

		newGroup := true

		for j := range deps {
			dj := &deps[j]

			if j == i || dj.Kind != Recursive {
				continue
			}

			if !di.RefersTo.IsSet(j) || !dj.RefersTo.IsSet(i) {
				continue
			}

			if newGroup {
				group++
				newGroup = false

				di.Kind = MutuallyRecursive
				di.Group = group
			}

			dj.Kind = MutuallyRecursive
			dj.Group = group
		}
	}
}

// RecursiveBackrefs reports which rules must bracket their calls
// with a save and restore of the recursive back reference stack.
// These are the recursive rules referring to a rule or UDT
// captured in recursive mode.
func RecursiveBackrefs(g *grammar.Grammar, deps []Dep) []bool {
	r := make([]bool, len(g.Rules))

	for i, d := range deps {
		if d.Kind == NonRecursive {
			continue
		}

		d.RefersTo.Range(func(j int) bool {
			r[i] = r[i] || g.Rules[j].BackRecursive
			return !r[i]
		})

		d.RefersToUDT.Range(func(j int) bool {
			r[i] = r[i] || g.UDTs[j].BackRecursive
			return !r[i]
		})
	}

	return r
}

func (k Kind) String() string {
	switch k {
	case NonRecursive:
		return "N"
	case Recursive:
		return "R"
	case MutuallyRecursive:
		return "MR"
	}

	return "??"
}
