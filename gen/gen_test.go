package gen

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/abnf"
	"github.com/slowlang/abnf/grammar"
	"github.com/slowlang/abnf/internal/samples"
)

func TestGenerate(t *testing.T) {
	s := samples.HTML(grammar.Recursive, grammar.Inf)

	g, _, err := abnf.Compile(context.Background(), s.Rules, s.UDTs)
	require.NoError(t, err)

	f, err := Generate("grammars", "HTML", g)
	require.NoError(t, err)

	var buf bytes.Buffer

	err = f.Render(&buf)
	require.NoError(t, err)

	out := buf.String()

	assert.Contains(t, out, "// Code generated by abnf gen. DO NOT EDIT.")
	assert.Contains(t, out, "package grammars")
	assert.Contains(t, out, "func HTML(ctx context.Context) (*grammar.Grammar, error) {")
	assert.Contains(t, out, "abnf.Compile(")
	assert.Contains(t, out, "grammar.Inf")
	assert.Contains(t, out, `grammar.Lit("</")`)
	assert.Contains(t, out, "grammar.Recursive")
	assert.Contains(t, out, "'a'")
}

func TestGenerateUDT(t *testing.T) {
	s := samples.Signed()

	g, _, err := abnf.Compile(context.Background(), s.Rules, s.UDTs)
	require.NoError(t, err)

	f, err := Generate("grammars", "Signed", g)
	require.NoError(t, err)

	var buf bytes.Buffer

	err = f.Render(&buf)
	require.NoError(t, err)

	out := buf.String()

	assert.Contains(t, out, `grammar.NewUDT("e_sign", true)`)
	assert.Contains(t, out, `grammar.NewUDT("u_digits", false)`)
}
