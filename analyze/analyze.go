package analyze

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/abnf/grammar"
)

type (
	// Result is what the analysis learned about a grammar.
	// It is kept for display only, the interpreter never reads it.
	Result struct {
		Deps        []Dep
		Attrs       []RuleAttr
		Diagnostics []Diagnostic
	}
)

// Analyze runs the dependency builder and the attribute analyzer.
// It sets the derived recursive back reference flags and,
// if there are no diagnostics, marks the grammar as Analyzed.
// Diagnostics are returned as *DiagnosticsError along with the Result.
func Analyze(ctx context.Context, g *grammar.Grammar) (res *Result, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "analyze", "rules", len(g.Rules))
	defer tr.Finish("err", &err)

	res = &Result{}

	res.Deps, err = Dependencies(ctx, g)
	if err != nil {
		return nil, errors.Wrap(err, "dependencies")
	}

	for i, has := range RecursiveBackrefs(g, res.Deps) {
		g.Rules[i].HasRecursiveBackref = has
	}

	res.Attrs, res.Diagnostics = Attributes(ctx, g, res.Deps)

	if len(res.Diagnostics) != 0 {
		return res, &DiagnosticsError{List: res.Diagnostics}
	}

	g.Analyzed = true

	return res, nil
}
