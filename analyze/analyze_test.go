package analyze

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/abnf/grammar"
	"github.com/slowlang/abnf/internal/samples"
)

func analyze(t *testing.T, rules []*grammar.Rule, udts []*grammar.UDT) (*grammar.Grammar, *Result, error) {
	t.Helper()

	g, err := grammar.New(rules, udts)
	require.NoError(t, err)

	res, err := Analyze(context.Background(), g)

	return g, res, err
}

func analyzeSample(t *testing.T, s samples.Sample) (*grammar.Grammar, *Result, error) {
	t.Helper()

	return analyze(t, s.Rules, s.UDTs)
}

func lit(s string) grammar.Tls { return grammar.Tls{Str: grammar.Lit(s)} }

// mutual is A = "a" B / "y", B = "b" A
func mutual() []*grammar.Rule {
	return []*grammar.Rule{
		grammar.NewRule("A",
			grammar.Alt{Children: []int{1, 4}},
			grammar.Cat{Children: []int{2, 3}},
			lit("a"),
			grammar.Rnm{Rule: 1},
			lit("y"),
		),
		grammar.NewRule("B",
			grammar.Cat{Children: []int{1, 2}},
			lit("b"),
			grammar.Rnm{Rule: 0},
		),
	}
}

func TestDependencies(t *testing.T) {
	g, res, err := analyzeSample(t, samples.HTML(grammar.Recursive, 1))
	require.NoError(t, err)

	d := res.Deps
	require.Len(t, d, 3)

	assert.Equal(t, Recursive, d[0].Kind)
	assert.Equal(t, -1, d[0].Group)
	assert.Equal(t, []int{0, 1, 2}, d[0].RefersTo.Slice())
	assert.Equal(t, []int{0}, d[0].ReferencedBy.Slice())

	assert.Equal(t, NonRecursive, d[1].Kind)
	assert.Equal(t, []int{2}, d[1].RefersTo.Slice())
	assert.Equal(t, []int{0}, d[1].ReferencedBy.Slice())

	assert.Equal(t, NonRecursive, d[2].Kind)
	assert.Empty(t, d[2].RefersTo.Slice())
	assert.Equal(t, []int{0, 1}, d[2].ReferencedBy.Slice())

	assert.True(t, g.Rules[0].HasRecursiveBackref)
	assert.False(t, g.Rules[1].HasRecursiveBackref)

	g, _, err = analyzeSample(t, samples.HTML(grammar.Universal, 1))
	require.NoError(t, err)

	assert.False(t, g.Rules[0].HasRecursiveBackref)
}

func TestDependenciesUDT(t *testing.T) {
	_, res, err := analyzeSample(t, samples.Signed())
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1}, res.Deps[0].RefersToUDT.Slice())
	assert.Equal(t, NonRecursive, res.Deps[0].Kind)
}

func TestMutualGroups(t *testing.T) {
	_, res, err := analyze(t, mutual(), nil)
	require.NoError(t, err)

	for i, d := range res.Deps {
		assert.Equal(t, MutuallyRecursive, d.Kind, "rule %d", i)
		assert.Equal(t, 0, d.Group, "rule %d", i)
	}

	// A = "a" B / "y", B = "b" C, C = "c" A, D = "d" D / "z"
	_, res, err = analyze(t, []*grammar.Rule{
		grammar.NewRule("A",
			grammar.Alt{Children: []int{1, 4}},
			grammar.Cat{Children: []int{2, 3}},
			lit("a"),
			grammar.Rnm{Rule: 1},
			lit("y"),
		),
		grammar.NewRule("B",
			grammar.Cat{Children: []int{1, 2}},
			lit("b"),
			grammar.Rnm{Rule: 2},
		),
		grammar.NewRule("C",
			grammar.Cat{Children: []int{1, 2}},
			lit("c"),
			grammar.Rnm{Rule: 0},
		),
		grammar.NewRule("D",
			grammar.Alt{Children: []int{1, 4}},
			grammar.Cat{Children: []int{2, 3}},
			lit("d"),
			grammar.Rnm{Rule: 3},
			lit("z"),
		),
	}, nil)
	require.NoError(t, err)

	// references are transitive, so the whole cycle is one group
	for i := range 3 {
		assert.Equal(t, MutuallyRecursive, res.Deps[i].Kind, "rule %d", i)
		assert.Equal(t, 0, res.Deps[i].Group, "rule %d", i)
	}

	assert.Equal(t, Recursive, res.Deps[3].Kind)
	assert.Equal(t, -1, res.Deps[3].Group)
}

func TestAttributes(t *testing.T) {
	type attrs struct {
		Left, Nested, Right, Cyclic, Empty, Finite bool
	}

	get := func(a RuleAttr) attrs {
		return attrs{a.Left, a.Nested, a.Right, a.Cyclic, a.Empty, a.Finite}
	}

	for _, tc := range []struct {
		name  string
		rules []*grammar.Rule
		exp   []attrs
		diags []DiagKind
	}{
		{
			name:  "right",
			rules: samples.RightRecursive().Rules,
			exp:   []attrs{{Right: true, Finite: true}},
		},
		{
			name: "left",
			rules: []*grammar.Rule{grammar.NewRule("S",
				grammar.Alt{Children: []int{1, 4}},
				grammar.Cat{Children: []int{2, 3}},
				grammar.Rnm{Rule: 0},
				lit("a"),
				lit("y"),
			)},
			exp:   []attrs{{Left: true, Finite: true}},
			diags: []DiagKind{LeftRecursive},
		},
		{
			name:  "cyclic",
			rules: []*grammar.Rule{grammar.NewRule("S", grammar.Rnm{Rule: 0})},
			exp:   []attrs{{Left: true, Right: true, Cyclic: true}},
			diags: []DiagKind{Cyclic, LeftRecursive, Infinite},
		},
		{
			name: "infinite",
			rules: []*grammar.Rule{grammar.NewRule("S",
				grammar.Cat{Children: []int{1, 2}},
				lit("a"),
				grammar.Rnm{Rule: 0},
			)},
			exp:   []attrs{{Right: true}},
			diags: []DiagKind{Infinite},
		},
		{
			name: "nested",
			rules: []*grammar.Rule{grammar.NewRule("S",
				grammar.Alt{Children: []int{1, 5}},
				grammar.Cat{Children: []int{2, 3, 4}},
				lit("a"),
				grammar.Rnm{Rule: 0},
				lit("b"),
				lit("y"),
			)},
			exp: []attrs{{Nested: true, Finite: true}},
		},
		{
			name:  "mutual",
			rules: mutual(),
			exp:   []attrs{{Right: true, Finite: true}, {Right: true, Finite: true}},
		},
		{
			name: "optional",
			rules: []*grammar.Rule{
				grammar.NewRule("S",
					grammar.Cat{Children: []int{1, 3}},
					grammar.Rep{Min: 0, Max: 1},
					lit("a"),
					grammar.Bkr{Name: "E"},
				),
				grammar.NewRule("E", lit("")),
			},
			exp: []attrs{{Empty: true, Finite: true}, {Empty: true, Finite: true}},
		},
		{
			name: "lookahead",
			rules: []*grammar.Rule{grammar.NewRule("S",
				grammar.Cat{Children: []int{1, 3, 4}},
				grammar.Not{},
				lit("x"),
				grammar.Abg{},
				grammar.Aen{},
			)},
			exp: []attrs{{Empty: true, Finite: true}},
		},
		{
			// empty prefix lets the recursion be leftmost
			name: "left_after_empty",
			rules: []*grammar.Rule{grammar.NewRule("S",
				grammar.Alt{Children: []int{1, 5}},
				grammar.Cat{Children: []int{2, 4}},
				grammar.Rep{Min: 0, Max: grammar.Inf},
				lit("a"),
				grammar.Rnm{Rule: 0},
				lit("y"),
			)},
			exp:   []attrs{{Left: true, Right: true, Finite: true}},
			diags: []DiagKind{LeftRecursive},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			g, res, err := analyze(t, tc.rules, nil)

			if tc.diags == nil {
				require.NoError(t, err)
				assert.True(t, g.Analyzed)
			} else {
				var de *DiagnosticsError
				require.ErrorAs(t, err, &de)
				assert.False(t, g.Analyzed)

				var kinds []DiagKind
				for _, d := range de.List {
					kinds = append(kinds, d.Kind)
				}

				assert.Equal(t, tc.diags, kinds)
			}

			require.NotNil(t, res)
			require.Len(t, res.Attrs, len(tc.exp))

			for i, exp := range tc.exp {
				assert.Equal(t, exp, get(res.Attrs[i]), "rule %v", res.Attrs[i].Name)
				assert.Equal(t, exp.Left || exp.Cyclic || !exp.Finite, res.Attrs[i].Invalid(), "rule %v", res.Attrs[i].Name)
			}
		})
	}
}

func TestHTMLAttributes(t *testing.T) {
	_, res, err := analyzeSample(t, samples.HTML(grammar.Recursive, grammar.Inf))
	require.NoError(t, err)

	a := res.Attrs[0]
	assert.True(t, a.Nested)
	assert.False(t, a.Left)
	assert.False(t, a.Right)
	assert.True(t, a.Finite)
	assert.Equal(t, "nested,finite", a.Attr.String())
	assert.Equal(t, Recursive, a.Kind)
}

func TestDiagnosticsError(t *testing.T) {
	rules := []*grammar.Rule{grammar.NewRule("S", grammar.Rnm{Rule: 0})}
	rules[0].Line = 7

	_, res, err := analyze(t, rules, nil)
	require.Error(t, err)

	assert.Equal(t, "rule S is cyclic (and 2 more)", err.Error())
	assert.Len(t, res.Diagnostics, 3)
	assert.Equal(t, 7, res.Diagnostics[0].Line)
	assert.Equal(t, "left recursive", res.Diagnostics[1].Kind.String())

	err = &DiagnosticsError{List: res.Diagnostics[2:]}
	assert.Equal(t, "rule S only matches infinite strings", err.Error())
}
