package abnf

import (
	"context"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/htmlindex"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/abnf/analyze"
	"github.com/slowlang/abnf/grammar"
)

type (
	// Report is what the analysis found, for display.
	Report = analyze.Result
)

// CompileFile loads a YAML grammar object and compiles it.
func CompileFile(ctx context.Context, name string) (*grammar.Grammar, *Report, error) {
	g, err := grammar.LoadFile(name)
	if err != nil {
		return nil, nil, errors.Wrap(err, "load %v", name)
	}

	tlog.SpanFromContext(ctx).Printw("grammar loaded", "name", name, "rules", len(g.Rules), "udts", len(g.UDTs))

	return Compile(ctx, g.Rules, g.UDTs)
}

// Compile builds the grammar and runs the analysis.
// A grammar with diagnostics is not returned,
// the error is *analyze.DiagnosticsError then and the report lists them.
func Compile(ctx context.Context, rules []*grammar.Rule, udts []*grammar.UDT) (g *grammar.Grammar, rep *Report, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile", "rules", len(rules), "udts", len(udts))
	defer tr.Finish("err", &err)

	g, err = grammar.New(rules, udts)
	if err != nil {
		return nil, nil, errors.Wrap(err, "grammar")
	}

	rep, err = analyze.Analyze(ctx, g)
	if err != nil {
		return nil, rep, errors.Wrap(err, "analyze")
	}

	return g, rep, nil
}

// DecodeInput converts the input text in the charset into code points.
// Empty charset means UTF-8.
func DecodeInput(b []byte, charset string) ([]rune, error) {
	switch strings.ToLower(charset) {
	case "", "utf-8", "utf8":
		if !utf8.Valid(b) {
			return nil, errors.New("invalid utf-8 input")
		}

		return []rune(string(b)), nil
	}

	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, errors.Wrap(err, "charset %v", charset)
	}

	d, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return nil, errors.Wrap(err, "decode %v", charset)
	}

	return []rune(string(d)), nil
}
