package gen

import (
	"math"
	"strings"

	"github.com/dave/jennifer/jen"
	"tlog.app/go/errors"

	"github.com/slowlang/abnf/grammar"
)

const (
	abnfPkg    = "github.com/slowlang/abnf"
	grammarPkg = "github.com/slowlang/abnf/grammar"
)

// Generate emits a Go file with a function fn
// which rebuilds the grammar and compiles it.
//
//	func fn(ctx context.Context) (*grammar.Grammar, error)
func Generate(pkg, fn string, g *grammar.Grammar) (*jen.File, error) {
	f := jen.NewFile(pkg)
	f.HeaderComment("Code generated by abnf gen. DO NOT EDIT.")

	rules := make([]jen.Code, len(g.Rules))

	for i, r := range g.Rules {
		ops := make([]jen.Code, len(r.Ops))

		for j, op := range r.Ops {
			c, err := opCode(op)
			if err != nil {
				return nil, errors.Wrap(err, "rule %v: op %d", r.Name, j)
			}

			ops[j] = c
		}

		d := jen.Dict{
			jen.Id("Name"): jen.Lit(r.Name),
			jen.Id("Ops"):  jen.Index().Qual(grammarPkg, "Op").Values(ops...),
		}

		if r.Line != 0 {
			d[jen.Id("Line")] = jen.Lit(r.Line)
		}

		rules[i] = jen.Line().Op("&").Qual(grammarPkg, "Rule").Values(d)
	}

	udts := make([]jen.Code, len(g.UDTs))

	for i, u := range g.UDTs {
		udts[i] = jen.Line().Qual(grammarPkg, "NewUDT").Call(jen.Lit(u.Name), jen.Lit(u.Empty))
	}

	udtList := jen.Nil()
	if len(udts) != 0 {
		udtList = jen.Index().Op("*").Qual(grammarPkg, "UDT").Values(append(udts, jen.Line())...)
	}

	f.Commentf("%v returns the compiled %v grammar.", fn, g.Rules[0].Name)
	f.Func().Id(fn).Params(jen.Id("ctx").Qual("context", "Context")).Params(jen.Op("*").Qual(grammarPkg, "Grammar"), jen.Error()).Block(
		jen.List(jen.Id("g"), jen.Id("_"), jen.Err()).Op(":=").Qual(abnfPkg, "Compile").Call(
			jen.Id("ctx"),
			jen.Index().Op("*").Qual(grammarPkg, "Rule").Values(append(rules, jen.Line())...),
			udtList,
		),
		jen.Return(jen.Id("g"), jen.Err()),
	)

	return f, nil
}

func opCode(op grammar.Op) (jen.Code, error) {
	q := func(name string) *jen.Statement { return jen.Qual(grammarPkg, name) }

	switch op := op.(type) {
	case grammar.Alt:
		return q("Alt").Values(jen.Dict{jen.Id("Children"): ints(op.Children)}), nil
	case grammar.Cat:
		return q("Cat").Values(jen.Dict{jen.Id("Children"): ints(op.Children)}), nil
	case grammar.Rep:
		d := jen.Dict{jen.Id("Min"): u64(op.Min)}

		if op.Max == grammar.Inf {
			d[jen.Id("Max")] = q("Inf")
		} else {
			d[jen.Id("Max")] = u64(op.Max)
		}

		return q("Rep").Values(d), nil
	case grammar.Rnm:
		return q("Rnm").Values(jen.Dict{jen.Id("Rule"): jen.Lit(op.Rule)}), nil
	case grammar.Udt:
		d := jen.Dict{jen.Id("UDT"): jen.Lit(op.UDT)}

		if op.Empty {
			d[jen.Id("Empty")] = jen.True()
		}

		return q("Udt").Values(d), nil
	case grammar.Trg:
		return q("Trg").Values(jen.Dict{
			jen.Id("Min"): jen.LitRune(op.Min),
			jen.Id("Max"): jen.LitRune(op.Max),
		}), nil
	case grammar.Tbs:
		return q("Tbs").Values(jen.Dict{jen.Id("Str"): q("Lit").Call(jen.Lit(string(op.Str)))}), nil
	case grammar.Tls:
		return q("Tls").Values(jen.Dict{jen.Id("Str"): q("Lit").Call(jen.Lit(string(op.Str)))}), nil
	case grammar.Bkr:
		cs, mode := "Insensitive", "Universal"

		if op.Case == grammar.Sensitive {
			cs = "Sensitive"
		}

		if op.Mode == grammar.Recursive {
			mode = "Recursive"
		}

		return q("Bkr").Values(jen.Dict{
			jen.Id("Name"): jen.Lit(op.Name),
			jen.Id("Case"): q(cs),
			jen.Id("Mode"): q(mode),
		}), nil
	case grammar.And, grammar.Not, grammar.Bka, grammar.Bkn, grammar.Abg, grammar.Aen:
		name := op.Kind().String()

		return q(name[:1] + strings.ToLower(name[1:])).Values(), nil
	}

	return nil, errors.New("unsupported opcode: %T", op)
}

func ints(l []int) jen.Code {
	c := make([]jen.Code, len(l))

	for i, x := range l {
		c[i] = jen.Lit(x)
	}

	return jen.Index().Int().Values(c...)
}

func u64(x uint64) jen.Code {
	if x <= math.MaxInt32 {
		return jen.Lit(int(x))
	}

	return jen.Lit(x)
}
