package grammar

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFlags(t *testing.T) {
	g, err := New([]*Rule{
		NewRule("S",
			Cat{Children: []int{1, 2, 3}},
			Rnm{Rule: 1},
			Bkr{Name: "a", Mode: Recursive},
			Bkr{Name: "U", Case: Sensitive},
		),
		NewRule("A", Tls{Str: Lit("a")}),
	}, []*UDT{
		NewUDT("u", true),
	})
	require.NoError(t, err)

	assert.True(t, g.NeedsRecursive)
	assert.True(t, g.NeedsUniversal)

	assert.True(t, g.Rules[1].BackRecursive)
	assert.False(t, g.Rules[1].BackUniversal)
	assert.True(t, g.UDTs[0].BackUniversal)
	assert.False(t, g.UDTs[0].BackRecursive)
	assert.False(t, g.Analyzed)

	assert.Equal(t, "a", g.Rules[1].Lower)
	assert.Equal(t, 1, g.Rules[1].Index)

	ref, ok := g.Resolve("s")
	assert.True(t, ok)
	assert.Equal(t, Ref{Index: 0}, ref)

	i, ok := g.UDTIndex("U")
	assert.True(t, ok)
	assert.Equal(t, 0, i)

	_, ok = g.RuleIndex("u")
	assert.False(t, ok)

	assert.Equal(t, []string{"S", "A", "u"}, g.Names())
	assert.Equal(t, "A", g.Name(Ref{Index: 1}))
	assert.Equal(t, "u", g.Name(Ref{UDT: true}))

	ref, ok = g.Resolve("a")
	assert.True(t, ok)
	assert.Equal(t, "A", g.Name(ref))
}

func TestNewErrors(t *testing.T) {
	tls := Tls{Str: Lit("a")}

	for _, tc := range []struct {
		name  string
		rules []*Rule
		udts  []*UDT
		err   string
	}{
		{"no_rules", nil, nil, "no rules"},
		{"empty_name", []*Rule{NewRule("", tls)}, nil, "empty name"},
		{"duplicate", []*Rule{NewRule("a", tls), NewRule("A", tls)}, nil, "duplicate name"},
		{"duplicate_udt", []*Rule{NewRule("a", tls)}, []*UDT{NewUDT("A", false)}, "duplicate name"},
		{"no_ops", []*Rule{NewRule("a")}, nil, "no opcodes"},
		{"no_children", []*Rule{NewRule("a", Alt{})}, nil, "no children"},
		{"backward_child", []*Rule{NewRule("a", Cat{Children: []int{0}})}, nil, "out of range"},
		{"missing_operand", []*Rule{NewRule("a", Rep{Max: 1})}, nil, "missing operand"},
		{"rep_range", []*Rule{NewRule("a", Rep{Min: 2, Max: 1}, tls)}, nil, "min > max"},
		{"trg_range", []*Rule{NewRule("a", Trg{Min: 'z', Max: 'a'})}, nil, "min > max"},
		{"empty_tbs", []*Rule{NewRule("a", Tbs{})}, nil, "empty case-sensitive literal"},
		{"rnm_range", []*Rule{NewRule("a", Rnm{Rule: 3})}, nil, "rule index out of range"},
		{"udt_range", []*Rule{NewRule("a", Udt{UDT: 0})}, nil, "udt index out of range"},
		{"udt_empty", []*Rule{NewRule("a", Udt{UDT: 0})}, []*UDT{NewUDT("u", true)}, "empty flag mismatch"},
		{"bkr_unknown", []*Rule{NewRule("a", Bkr{Name: "b"})}, nil, "unknown name"},
		{"nil_op", []*Rule{NewRule("a", nil)}, nil, "nil opcode"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.rules, tc.udts)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.err)
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "ALT", Alt{}.Kind().String())
	assert.Equal(t, "AEN", KindOf(Aen{}).String())
	assert.Equal(t, UDTOp, KindOf(Udt{}))
	assert.Equal(t, "UDT", UDTOp.String())
	assert.Equal(t, "Kind(0)", KindOf(nil).String())
	assert.Equal(t, "cs", Sensitive.String())
	assert.Equal(t, "recursive", Recursive.String())
}

const sample = `
rules:
  - name: S
    line: 1
    ops:
      - {type: alt, children: [1, 4]}
      - {type: cat, children: [2, 3]}
      - {type: tls, str: a}
      - {type: rnm, name: s}
      - {type: rep, min: 1}
      - {type: udt, name: U_Digit}
  - name: ref
    ops:
      - {type: cat, children: [1, 2, 4, 5]}
      - {type: bkr, name: S, case: cs, mode: recursive}
      - {type: bka}
      - {type: trg, min: 48, max: 57}
      - {type: tbs, str: X}
      - {type: aen}
udts:
  - name: u_digit
`

func TestLoad(t *testing.T) {
	g, err := Load(strings.NewReader(sample))
	require.NoError(t, err)

	require.Len(t, g.Rules, 2)
	require.Len(t, g.UDTs, 1)

	s := g.Rules[0]
	assert.Equal(t, 1, s.Line)
	assert.Equal(t, []Op{
		Alt{Children: []int{1, 4}},
		Cat{Children: []int{2, 3}},
		Tls{Str: Lit("a")},
		Rnm{Rule: 0},
		Rep{Min: 1, Max: Inf},
		Udt{UDT: 0},
	}, s.Ops)

	assert.Equal(t, Bkr{Name: "S", Case: Sensitive, Mode: Recursive}, g.Rules[1].Ops[1])
	assert.Equal(t, Trg{Min: '0', Max: '9'}, g.Rules[1].Ops[3])
	assert.True(t, s.BackRecursive)
	assert.True(t, g.NeedsRecursive)
}

func TestLoadErrors(t *testing.T) {
	for _, tc := range []struct {
		name, text, err string
	}{
		{"unknown_field", "rules: [{name: a, opz: []}]", "decode yaml"},
		{"unknown_type", "rules: [{name: a, ops: [{type: xyz}]}]", "unknown op type"},
		{"unknown_rule", "rules: [{name: a, ops: [{type: rnm, name: b}]}]", "unknown rule"},
		{"unknown_udt", "rules: [{name: a, ops: [{type: udt, name: b}]}]", "unknown udt"},
		{"trg_bounds", "rules: [{name: a, ops: [{type: trg, min: 1}]}]", "max expected"},
		{"bad_mode", "rules: [{name: a, ops: [{type: bkr, name: a, mode: x}]}]", "unknown mode"},
		{"invalid", "rules: [{name: a, ops: [{type: alt}]}]", "no children"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tc.text))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.err)
		})
	}
}

func TestMarshal(t *testing.T) {
	g, err := Load(strings.NewReader(sample))
	require.NoError(t, err)

	b, err := g.Marshal()
	require.NoError(t, err)

	g2, err := Load(strings.NewReader(string(b)))
	require.NoError(t, err, "%s", b)

	require.Len(t, g2.Rules, len(g.Rules))

	for i, r := range g.Rules {
		assert.Equal(t, r.Name, g2.Rules[i].Name)
		assert.Equal(t, r.Line, g2.Rules[i].Line)
		assert.Equal(t, r.Ops, g2.Rules[i].Ops, "rule %v", r.Name)
	}

	assert.Equal(t, g.UDTs[0].Name, g2.UDTs[0].Name)
}
