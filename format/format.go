package format

import (
	"sort"
	"strconv"
	"strings"

	"github.com/nikandfor/hacked/hfmt"

	"github.com/slowlang/abnf/analyze"
	"github.com/slowlang/abnf/grammar"
	"github.com/slowlang/abnf/parse"
)

const namesPerLine = 8

// Attributes renders the rule attributes table.
// mode is "index" (grammar order), "type" (by group and kind, then name)
// or "alpha" (by name).
func Attributes(b []byte, attrs []analyze.RuleAttr, mode string) []byte {
	l := append([]analyze.RuleAttr(nil), attrs...)

	switch mode {
	case "type":
		sort.SliceStable(l, func(i, j int) bool {
			if l[i].Group != l[j].Group {
				return l[i].Group < l[j].Group
			}

			if l[i].Kind != l[j].Kind {
				return l[i].Kind < l[j].Kind
			}

			return strings.ToLower(l[i].Name) < strings.ToLower(l[j].Name)
		})
	case "alpha":
		sort.SliceStable(l, func(i, j int) bool {
			return strings.ToLower(l[i].Name) < strings.ToLower(l[j].Name)
		})
	}

	const f = "%6s: %6s: %6s: %6s: %6s: %6s: %6s: %6s: %s\n"

	b = app(b, 0, f, "left", "nested", "right", "cyclic", "finite", "empty", "type", "group", "rule name")

	for _, a := range l {
		group := "--"
		if a.Kind == analyze.MutuallyRecursive {
			group = strconv.Itoa(a.Group)
		}

		b = app(b, 0, f, yes(a.Left), yes(a.Nested), yes(a.Right), yes(a.Cyclic), yes(a.Finite), yes(a.Empty),
			a.Kind, group, a.Name)
	}

	return b
}

// Deps renders what each rule refers to and is referenced by.
func Deps(b []byte, g *grammar.Grammar, deps []analyze.Dep, alpha bool) []byte {
	rules := order(len(g.Rules), alpha, func(i int) string { return g.Rules[i].Lower })
	udts := order(len(g.UDTs), alpha, func(i int) string { return g.UDTs[i].Lower })

	w := 0
	for _, r := range g.Rules {
		w = max(w, len(r.Name))
	}

	col := "%" + strconv.Itoa(w) + "s: "

	b = app(b, 0, col+"legend\n", "")
	b = app(b, 0, col+"=> (rule refers to)\n", "rule")
	b = app(b, 0, col+"<= (rule is referenced by)\n\n", "rule")

	for _, i := range rules {
		d := deps[i]

		var names []string

		for _, j := range rules {
			if d.RefersTo.IsSet(j) {
				names = append(names, g.Rules[j].Name)
			}
		}

		for _, j := range udts {
			if d.RefersToUDT.IsSet(j) {
				names = append(names, g.UDTs[j].Name)
			}
		}

		b = nameList(b, col, g.Rules[i].Name, "=>", names)

		names = names[:0]

		for _, j := range rules {
			if d.ReferencedBy.IsSet(j) {
				names = append(names, g.Rules[j].Name)
			}
		}

		b = nameList(b, col, "", "<=", names)
		b = append(b, '\n')
	}

	return b
}

// Stats renders the node hit counts by opcode and by rule or UDT name.
// Zero rows are omitted.
func Stats(b []byte, s *parse.Stats) []byte {
	const f = "%5v %7d %7d %7d %7d\n"

	b = app(b, 0, "        OPERATOR NODE HIT STATISTICS\n")
	b = app(b, 0, "%5s %7s %7s %7s %7s\n", "", "MATCH", "EMPTY", "NOMATCH", "TOTAL")

	for k, c := range s.Ops {
		if c.Total() == 0 {
			continue
		}

		b = app(b, 0, f, grammar.Kind(k), c.Match, c.Empty, c.NoMatch, c.Total())
	}

	t := s.Total()
	b = app(b, 0, f, "TOTAL", t.Match, t.Empty, t.NoMatch, t.Total())

	b = app(b, 0, "\n  RULE NAME (RNM/UDT) NODE HIT STATISTICS\n")
	b = app(b, 0, "%7s %7s %7s %7s %s\n", "MATCH", "EMPTY", "NOMATCH", "TOTAL", "RULE/UDT NAME")

	for _, n := range s.Top(0) {
		if n.Total() == 0 {
			continue
		}

		b = app(b, 0, "%7d %7d %7d %7d %s\n", n.Match, n.Empty, n.NoMatch, n.Total(), n.Name)
	}

	return b
}

// Grammar renders the opcodes of all rules, one per line.
func Grammar(b []byte, g *grammar.Grammar) []byte {
	for _, r := range g.Rules {
		b = app(b, 0, "%v:", r.Name)

		if r.BackUniversal {
			b = append(b, " bkru"...)
		}

		if r.BackRecursive {
			b = append(b, " bkrr"...)
		}

		if r.HasRecursiveBackref {
			b = append(b, " has_bkrr"...)
		}

		b = append(b, '\n')

		for i, op := range r.Ops {
			b = app(b, 1, "%3d %v", i, grammar.KindOf(op))
			b = opArgs(b, g, op)
			b = append(b, '\n')
		}
	}

	for _, u := range g.UDTs {
		b = app(b, 0, "udt %v: empty %v\n", u.Name, u.Empty)
	}

	return b
}

func Diagnostics(b []byte, diags []analyze.Diagnostic) []byte {
	for _, d := range diags {
		if d.Line != 0 {
			b = app(b, 0, "line %d: ", d.Line)
		}

		b = app(b, 0, "%v\n", d.Msg)
	}

	return b
}

func Result(b []byte, r *parse.Result) []byte {
	const f = "%19s: %v\n"

	b = app(b, 0, f, "success", r.Success)
	b = app(b, 0, f, "state", r.State)
	b = app(b, 0, f, "input_length", r.InputLen)
	b = app(b, 0, f, "sub_begin", r.SubBegin)
	b = app(b, 0, f, "sub_end", r.SubEnd)
	b = app(b, 0, f, "sub_length", r.SubEnd-r.SubBegin)
	b = app(b, 0, f, "phrase_length", r.PhraseLen)
	b = app(b, 0, f, "max_phrase_length", r.MaxPhraseLen)
	b = app(b, 0, f, "node_hits", r.NodeHits)
	b = app(b, 0, f, "max_tree_depth", r.MaxTreeDepth)

	return b
}

func opArgs(b []byte, g *grammar.Grammar, op grammar.Op) []byte {
	switch op := op.(type) {
	case grammar.Alt:
		b = app(b, 0, " %v", op.Children)
	case grammar.Cat:
		b = app(b, 0, " %v", op.Children)
	case grammar.Rep:
		if op.Max == grammar.Inf {
			b = app(b, 0, " %d*", op.Min)
		} else {
			b = app(b, 0, " %d*%d", op.Min, op.Max)
		}
	case grammar.Rnm:
		b = app(b, 0, " %v", g.Rules[op.Rule].Name)
	case grammar.Udt:
		b = app(b, 0, " %v", g.UDTs[op.UDT].Name)
	case grammar.Trg:
		b = app(b, 0, " %%d%d-%d", op.Min, op.Max)
	case grammar.Tbs:
		b = app(b, 0, " %q", string(op.Str))
	case grammar.Tls:
		b = app(b, 0, " %q", string(op.Str))
	case grammar.Bkr:
		name := op.Name
		if ref, ok := g.Resolve(op.Name); ok {
			name = g.Name(ref)
		}

		b = app(b, 0, " \\%v %v %v", name, op.Case, op.Mode)
	}

	return b
}

func nameList(b []byte, col, name, arrow string, names []string) []byte {
	b = app(b, 0, col+"%s ", name, arrow)

	for i, n := range names {
		if i != 0 && i%namesPerLine == 0 {
			b = app(b, 0, "\n"+col+"%s ", "", arrow)
		} else if i != 0 {
			b = append(b, ", "...)
		}

		b = append(b, n...)
	}

	return append(b, '\n')
}

func order(n int, alpha bool, key func(i int) string) []int {
	l := make([]int, n)

	for i := range l {
		l[i] = i
	}

	if alpha {
		sort.SliceStable(l, func(i, j int) bool { return key(l[i]) < key(l[j]) })
	}

	return l
}

func yes(v bool) string {
	if v {
		return "yes"
	}

	return "no"
}

func app(b []byte, d int, f string, args ...any) []byte {
	const tabs = "\t\t\t\t\t\t\t\t\t\t\t\t\t\t\t"
	b = append(b, tabs[:d]...)
	b = hfmt.Appendf(b, f, args...)
	return b
}
