package format

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/abnf/analyze"
	"github.com/slowlang/abnf/grammar"
	"github.com/slowlang/abnf/internal/samples"
	"github.com/slowlang/abnf/parse"
)

func compile(t *testing.T, s samples.Sample) (*grammar.Grammar, *analyze.Result) {
	t.Helper()

	g, err := grammar.New(s.Rules, s.UDTs)
	require.NoError(t, err)

	res, err := analyze.Analyze(context.Background(), g)
	require.NoError(t, err)

	return g, res
}

func TestAttributes(t *testing.T) {
	_, res := compile(t, samples.HTML(grammar.Recursive, 1))

	out := string(Attributes(nil, res.Attrs, "alpha"))

	assert.Contains(t, out, "rule name")
	assert.Contains(t, out, "    no:    yes:     no:     no:    yes:     no:      R:     --: html\n")
	assert.Regexp(t, `(?s)alphanum.*html.*TAG-name`, out)

	out = string(Attributes(nil, res.Attrs, "type"))
	assert.Regexp(t, `(?s)alphanum.*TAG-name.*html`, out)

	out = string(Attributes(nil, res.Attrs, "index"))
	assert.Regexp(t, `(?s)html.*TAG-name.*alphanum`, out)
}

func TestDeps(t *testing.T) {
	g, res := compile(t, samples.HTML(grammar.Recursive, 1))

	out := string(Deps(nil, g, res.Deps, false))

	assert.Contains(t, out, "    html: => html, TAG-name, alphanum\n")
	assert.Contains(t, out, "alphanum: => \n")
	assert.Contains(t, out, "        : <= html, TAG-name\n")

	out = string(Deps(nil, g, res.Deps, true))
	assert.Contains(t, out, "    html: => alphanum, html, TAG-name\n")
}

func TestGrammar(t *testing.T) {
	g, _ := compile(t, samples.HTML(grammar.Recursive, grammar.Inf))

	out := string(Grammar(nil, g))

	assert.Contains(t, out, "html: has_bkrr\n")
	assert.Contains(t, out, "TAG-name: bkrr\n")
	assert.Contains(t, out, "\t  4 REP 0*\n")
	assert.Contains(t, out, "\t  7 BKR \\TAG-name ci recursive\n")
	assert.Contains(t, out, "\t  2 TRG %d97-122\n")
}

func TestStatsAndResult(t *testing.T) {
	g, _ := compile(t, samples.RightRecursive())

	p, err := parse.New(g)
	require.NoError(t, err)

	s := parse.NewStats()
	p.AttachStats(s)

	res, err := p.Parse(context.Background(), []rune("aay"), parse.Options{})
	require.NoError(t, err)

	out := string(Stats(nil, s))

	assert.Contains(t, out, "  RNM       3       0       0       3\n")
	assert.Contains(t, out, "      3       0       0       3 S\n")
	assert.NotContains(t, out, "BKR")

	out = string(Result(nil, res))

	assert.Contains(t, out, "            success: true\n")
	assert.Contains(t, out, "      phrase_length: 3\n")
}

func TestDiagnostics(t *testing.T) {
	out := string(Diagnostics(nil, []analyze.Diagnostic{
		{Line: 7, Msg: "rule S is cyclic"},
		{Msg: "rule S only matches infinite strings"},
	}))

	assert.Equal(t, "line 7: rule S is cyclic\nrule S only matches infinite strings\n", out)
}
