// Package samples holds small hand-built grammars shared by tests.
package samples

import (
	"github.com/slowlang/abnf/grammar"
)

// Sample is a grammar source not yet assembled by grammar.New.
type Sample struct {
	Rules []*grammar.Rule
	UDTs  []*grammar.UDT
}

// RightRecursive is
//
//	S = "a" S / "y"
func RightRecursive() Sample {
	return Sample{Rules: []*grammar.Rule{
		grammar.NewRule("S",
			grammar.Alt{Children: []int{1, 4}},
			grammar.Cat{Children: []int{2, 3}},
			grammar.Tls{Str: grammar.Lit("a")},
			grammar.Rnm{Rule: 0},
			grammar.Tls{Str: grammar.Lit("y")},
		),
	}}
}

// HTML is
//
//	html     = "<" tag-name ">" rep(html) "</" \tag-name ">"
//	tag-name = alphanum
//	alphanum = (%d97-122/%d65-90) *(%d97-122/%d65-90/%d48-57)
//
// where rep is [html] for nest == 1 and *html for nest == Inf.
// The back reference is case-insensitive in the given mode.
func HTML(mode grammar.Mode, nest uint64) Sample {
	return Sample{Rules: []*grammar.Rule{
		grammar.NewRule("html",
			grammar.Cat{Children: []int{1, 2, 3, 4, 6, 7, 8}},
			grammar.Tls{Str: grammar.Lit("<")},
			grammar.Rnm{Rule: 1},
			grammar.Tls{Str: grammar.Lit(">")},
			grammar.Rep{Min: 0, Max: nest},
			grammar.Rnm{Rule: 0},
			grammar.Tls{Str: grammar.Lit("</")},
			grammar.Bkr{Name: "tag-name", Case: grammar.Insensitive, Mode: mode},
			grammar.Tls{Str: grammar.Lit(">")},
		),
		grammar.NewRule("TAG-name",
			grammar.Rnm{Rule: 2},
		),
		grammar.NewRule("alphanum",
			grammar.Cat{Children: []int{1, 4}},
			grammar.Alt{Children: []int{2, 3}},
			grammar.Trg{Min: 'a', Max: 'z'},
			grammar.Trg{Min: 'A', Max: 'Z'},
			grammar.Rep{Min: 0, Max: grammar.Inf},
			grammar.Alt{Children: []int{6, 7, 8}},
			grammar.Trg{Min: 'a', Max: 'z'},
			grammar.Trg{Min: 'A', Max: 'Z'},
			grammar.Trg{Min: '0', Max: '9'},
		),
	}}
}

// Signed is
//
//	number = [e_sign] u_digits
//
// e_sign may be empty.
func Signed() Sample {
	return Sample{
		Rules: []*grammar.Rule{
			grammar.NewRule("number",
				grammar.Cat{Children: []int{1, 3}},
				grammar.Rep{Min: 0, Max: 1},
				grammar.Udt{UDT: 0, Empty: true},
				grammar.Udt{UDT: 1},
			),
		},
		UDTs: []*grammar.UDT{
			grammar.NewUDT("e_sign", true),
			grammar.NewUDT("u_digits", false),
		},
	}
}
