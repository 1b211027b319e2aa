package grammar

import (
	"fmt"
	"math"
)

type (
	// Op is one opcode of a rule body.
	// The set of implementations is closed: Alt, Cat, Rep, Rnm, Trg, Tbs, Tls,
	// Udt, And, Not, Bka, Bkn, Bkr, Abg, Aen.
	Op interface {
		Kind() Kind
	}

	Kind uint8

	Case uint8
	Mode uint8

	Alt struct {
		Children []int
	}

	Cat struct {
		Children []int
	}

	// Rep repeats the op that immediately follows it.
	Rep struct {
		Min, Max uint64
	}

	Rnm struct {
		Rule int
	}

	Trg struct {
		Min, Max rune
	}

	// Tbs is a case-sensitive literal. It is never empty.
	Tbs struct {
		Str []rune
	}

	// Tls is a case-insensitive literal.
	// It is the only op which may explicitly match the empty string.
	Tls struct {
		Str []rune
	}

	Udt struct {
		UDT   int
		Empty bool
	}

	And struct{}
	Not struct{}
	Bka struct{}
	Bkn struct{}

	Bkr struct {
		Name string
		Case Case
		Mode Mode
	}

	Abg struct{}
	Aen struct{}
)

const (
	_ Kind = iota
	ALT
	CAT
	REP
	RNM
	TRG
	TBS
	TLS
	UDTOp
	AND
	NOT
	BKR
	BKA
	BKN
	ABG
	AEN

	numKinds
)

const (
	Insensitive Case = iota
	Sensitive
)

const (
	Universal Mode = iota
	Recursive
)

// Inf is the Rep.Max of an unbounded repetition.
const Inf = math.MaxUint64

const NumKinds = int(numKinds)

var kindNames = [...]string{
	ALT: "ALT",
	CAT: "CAT",
	REP: "REP",
	RNM: "RNM",
	TRG: "TRG",
	TBS: "TBS",
	TLS: "TLS",
	UDTOp: "UDT",
	AND: "AND",
	NOT: "NOT",
	BKR: "BKR",
	BKA: "BKA",
	BKN: "BKN",
	ABG: "ABG",
	AEN: "AEN",
}

func (Alt) Kind() Kind { return ALT }
func (Cat) Kind() Kind { return CAT }
func (Rep) Kind() Kind { return REP }
func (Rnm) Kind() Kind { return RNM }
func (Trg) Kind() Kind { return TRG }
func (Tbs) Kind() Kind { return TBS }
func (Tls) Kind() Kind { return TLS }
func (Udt) Kind() Kind { return UDTOp }
func (And) Kind() Kind { return AND }
func (Not) Kind() Kind { return NOT }
func (Bkr) Kind() Kind { return BKR }
func (Bka) Kind() Kind { return BKA }
func (Bkn) Kind() Kind { return BKN }
func (Abg) Kind() Kind { return ABG }
func (Aen) Kind() Kind { return AEN }

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}

	return fmt.Sprintf("Kind(%d)", int(k))
}

func (c Case) String() string {
	if c == Sensitive {
		return "cs"
	}

	return "ci"
}

func (m Mode) String() string {
	if m == Recursive {
		return "recursive"
	}

	return "universal"
}

// Lit is a shortcut for building Tls and Tbs strings.
func Lit(s string) []rune { return []rune(s) }
