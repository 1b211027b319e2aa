package analyze

import (
	"context"
	"fmt"
	"strings"

	"tlog.app/go/tlog"

	"github.com/slowlang/abnf/grammar"
)

type (
	// Attr is the recursive shape of a rule or an opcode subtree.
	Attr struct {
		Left   bool // recurses before consuming input
		Nested bool // recursion is surrounded by non-empty phrases
		Right  bool
		Cyclic bool // always recurses
		Empty  bool // may match the empty string
		Finite bool // may match a finite string

		leaf bool // stands for a reference back to the rule under analysis
	}

	RuleAttr struct {
		Attr

		Name  string
		Kind  Kind
		Group int
	}

	Diagnostic struct {
		Rule int
		Name string
		Line int
		Kind DiagKind
		Msg  string
	}

	DiagKind uint8

	DiagnosticsError struct {
		List []Diagnostic
	}

	color uint8

	attrEval struct {
		g    *grammar.Grammar
		root int

		work  []Attr
		color []color
	}
)

const (
	Cyclic DiagKind = iota
	LeftRecursive
	Infinite
)

const (
	unvisited color = iota
	open
	complete
)

// Attributes computes the rule attributes and reports the rules
// unsafe for a top-down parser: cyclic, left recursive
// or matching only infinite strings.
func Attributes(ctx context.Context, g *grammar.Grammar, deps []Dep) (attrs []RuleAttr, diags []Diagnostic) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "analyze: attributes", "rules", len(g.Rules))
	defer func() { tr.Finish("diagnostics", len(diags)) }()

	e := &attrEval{
		g:     g,
		work:  make([]Attr, len(g.Rules)),
		color: make([]color, len(g.Rules)),
	}

	attrs = make([]RuleAttr, len(g.Rules))

	for i, r := range g.Rules {
		clear(e.work)
		clear(e.color)

		e.root = i
		e.evalRule(i)

		a := RuleAttr{
			Attr:  e.work[i],
			Name:  r.Name,
			Group: -1,
		}

		if i < len(deps) {
			a.Kind = deps[i].Kind
			a.Group = deps[i].Group
		}

		attrs[i] = a

		if tr.If("dump_attrs") {
			tr.Printw("rule attrs", "rule", r.Name, "attr", a.Attr)
		}
	}

	for i, a := range attrs {
		r := g.Rules[i]

		add := func(k DiagKind, f string) {
			diags = append(diags, Diagnostic{
				Rule: i,
				Name: r.Name,
				Line: r.Line,
				Kind: k,
				Msg:  fmt.Sprintf(f, r.Name),
			})
		}

		if a.Cyclic {
			add(Cyclic, "rule %v is cyclic")
		}

		if a.Left {
			add(LeftRecursive, "rule %v is left recursive")
		}

		if !a.Finite {
			add(Infinite, "rule %v only matches infinite strings")
		}
	}

	return attrs, diags
}

func (e *attrEval) evalRule(k int) {
	switch e.color[k] {
	case complete:
		return
	case unvisited:
		e.color[k] = open

		a := e.evalOp(e.g.Rules[k].Ops, 0)
		a.leaf = false

		e.work[k] = a
		e.color[k] = complete

		return
	}

	w := &e.work[k]

	if k == e.root {
		w.Left = true
		w.Right = true
		w.Cyclic = true
		w.leaf = true

		return
	}

	// another open rule: a terminal as far as this root is concerned
	w.Finite = true
}

func (e *attrEval) evalOp(ops []grammar.Op, i int) (a Attr) {
	switch op := ops[i].(type) {
	case grammar.Alt:
		for _, c := range op.Children {
			x := e.evalOp(ops, c)

			a.Left = a.Left || x.Left
			a.Nested = a.Nested || x.Nested
			a.Right = a.Right || x.Right
			a.Cyclic = a.Cyclic || x.Cyclic
			a.Empty = a.Empty || x.Empty
			a.Finite = a.Finite || x.Finite
		}
	case grammar.Cat:
		ch := make([]Attr, len(op.Children))

		for j, c := range op.Children {
			ch[j] = e.evalOp(ops, c)
		}

		a.Left = catLeft(ch)
		a.Nested = catNested(ch)
		a.Right = catRight(ch)
		a.Cyclic = true
		a.Empty = true
		a.Finite = true

		for _, x := range ch {
			a.Cyclic = a.Cyclic && x.Cyclic
			a.Empty = a.Empty && x.Empty
			a.Finite = a.Finite && x.Finite
		}
	case grammar.Rep:
		a = e.evalOp(ops, i+1)

		if op.Min == 0 {
			a.Empty = true
			a.Finite = true
		}
	case grammar.Rnm:
		e.evalRule(op.Rule)

		a = e.work[op.Rule]
	case grammar.Bkr:
		a.Finite = true

		ref, _ := e.g.Resolve(op.Name)

		if ref.UDT {
			a.Empty = e.g.UDTs[ref.Index].Empty
		} else {
			e.evalRule(ref.Index)

			a.Empty = e.work[ref.Index].Empty
		}
	case grammar.And, grammar.Not, grammar.Bka, grammar.Bkn:
		a = e.evalOp(ops, i+1)
		a.Empty = true
	case grammar.Tls:
		a.Empty = len(op.Str) == 0
		a.Finite = true
	case grammar.Tbs, grammar.Trg:
		a.Finite = true
	case grammar.Udt:
		a.Empty = e.g.UDTs[op.UDT].Empty
		a.Finite = true
	case grammar.Abg, grammar.Aen:
		a.Empty = true
		a.Finite = true
	}

	return a
}

func (a Attr) recursive() bool {
	return a.Left || a.Nested || a.Right || a.Cyclic
}

// catLeft: the leftmost non-empty child decides.
func catLeft(ch []Attr) bool {
	for _, x := range ch {
		if x.Left {
			return true
		}

		if !x.Empty {
			return false
		}
	}

	return false
}

func catRight(ch []Attr) bool {
	for i := len(ch) - 1; i >= 0; i-- {
		if ch[i].Right {
			return true
		}

		if !ch[i].Empty {
			return false
		}
	}

	return false
}

func catNested(ch []Attr) bool {
	for _, x := range ch {
		if x.Nested {
			return true
		}
	}

	// right recursion followed by a non-empty non-right-recursive phrase
	for i, x := range ch {
		if !x.Right || x.leaf {
			continue
		}

		for _, y := range ch[i+1:] {
			if !y.Empty && !y.Right && !y.Cyclic {
				return true
			}
		}
	}

	// left recursion preceded by a non-empty non-left-recursive phrase
	for i := len(ch) - 1; i >= 0; i-- {
		if !ch[i].Left || ch[i].leaf {
			continue
		}

		for _, y := range ch[:i] {
			if !y.Empty && !y.Left && !y.Cyclic {
				return true
			}
		}
	}

	// recursion between non-empty non-recursive phrases
	for i, x := range ch {
		if x.Empty || x.recursive() {
			continue
		}

		for j := i + 1; j < len(ch); j++ {
			if !ch[j].recursive() {
				continue
			}

			for _, z := range ch[j+1:] {
				if !z.Empty && !z.recursive() {
					return true
				}
			}
		}
	}

	return false
}

func (a Attr) String() string {
	var b strings.Builder

	flag := func(v bool, name string) {
		if !v {
			return
		}

		if b.Len() != 0 {
			b.WriteByte(',')
		}

		b.WriteString(name)
	}

	flag(a.Left, "left")
	flag(a.Nested, "nested")
	flag(a.Right, "right")
	flag(a.Cyclic, "cyclic")
	flag(a.Empty, "empty")
	flag(a.Finite, "finite")

	return b.String()
}

// Invalid reports whether the rule must not be executed.
func (a Attr) Invalid() bool {
	return a.Cyclic || a.Left || !a.Finite
}

func (k DiagKind) String() string {
	switch k {
	case Cyclic:
		return "cyclic"
	case LeftRecursive:
		return "left recursive"
	case Infinite:
		return "infinite"
	}

	return "??"
}

func (d Diagnostic) Error() string { return d.Msg }

func (e *DiagnosticsError) Error() string {
	if len(e.List) == 0 {
		return "no diagnostics"
	}

	if len(e.List) == 1 {
		return e.List[0].Msg
	}

	return fmt.Sprintf("%v (and %d more)", e.List[0].Msg, len(e.List)-1)
}
