package grammar

import (
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
	"tlog.app/go/errors"
)

type (
	fileYAML struct {
		Rules []ruleYAML `yaml:"rules"`
		UDTs  []udtYAML  `yaml:"udts,omitempty"`
	}

	ruleYAML struct {
		Name string   `yaml:"name"`
		Line int      `yaml:"line,omitempty"`
		Ops  []opYAML `yaml:"ops"`
	}

	udtYAML struct {
		Name  string `yaml:"name"`
		Empty bool   `yaml:"empty,omitempty"`
	}

	// opYAML is a tagged envelope for Op.
	// Rules and UDTs are referenced by name.
	opYAML struct {
		Type     string  `yaml:"type"`
		Children []int   `yaml:"children,flow,omitempty"`
		Min      *uint64 `yaml:"min,omitempty"`
		Max      *uint64 `yaml:"max,omitempty"`
		Name     string  `yaml:"name,omitempty"`
		Str      *string `yaml:"str,omitempty"`
		Case     string  `yaml:"case,omitempty"`
		Mode     string  `yaml:"mode,omitempty"`
	}
)

func LoadFile(name string) (*Grammar, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}

	defer f.Close()

	return Load(f)
}

// Load reads a YAML grammar object.
func Load(r io.Reader) (*Grammar, error) {
	var f fileYAML

	d := yaml.NewDecoder(r)
	d.KnownFields(true)

	err := d.Decode(&f)
	if err != nil {
		return nil, errors.Wrap(err, "decode yaml")
	}

	rules := make([]*Rule, len(f.Rules))
	udts := make([]*UDT, len(f.UDTs))

	ruleIdx := map[string]int{}
	udtIdx := map[string]int{}

	for i, r := range f.Rules {
		rules[i] = &Rule{Name: r.Name, Line: r.Line}
		ruleIdx[strings.ToLower(r.Name)] = i
	}

	for i, u := range f.UDTs {
		udts[i] = &UDT{Name: u.Name, Empty: u.Empty}
		udtIdx[strings.ToLower(u.Name)] = i
	}

	for i, r := range f.Rules {
		for j, y := range r.Ops {
			op, err := y.op(ruleIdx, udtIdx, udts)
			if err != nil {
				return nil, errors.Wrap(err, "rule %v: op %d", r.Name, j)
			}

			rules[i].Ops = append(rules[i].Ops, op)
		}
	}

	return New(rules, udts)
}

func (y opYAML) op(ruleIdx, udtIdx map[string]int, udts []*UDT) (Op, error) {
	u64 := func(p *uint64, name string) (uint64, error) {
		if p == nil {
			return 0, errors.New("%v expected", name)
		}

		return *p, nil
	}

	str := func() []rune {
		if y.Str == nil {
			return nil
		}

		return []rune(*y.Str)
	}

	switch strings.ToLower(y.Type) {
	case "alt":
		return Alt{Children: y.Children}, nil
	case "cat":
		return Cat{Children: y.Children}, nil
	case "rep":
		op := Rep{Max: Inf}

		if y.Min != nil {
			op.Min = *y.Min
		}
		if y.Max != nil {
			op.Max = *y.Max
		}

		return op, nil
	case "rnm":
		i, ok := ruleIdx[strings.ToLower(y.Name)]
		if !ok {
			return nil, errors.New("unknown rule: %v", y.Name)
		}

		return Rnm{Rule: i}, nil
	case "udt":
		i, ok := udtIdx[strings.ToLower(y.Name)]
		if !ok {
			return nil, errors.New("unknown udt: %v", y.Name)
		}

		return Udt{UDT: i, Empty: udts[i].Empty}, nil
	case "trg":
		lo, err := u64(y.Min, "min")
		if err != nil {
			return nil, err
		}

		hi, err := u64(y.Max, "max")
		if err != nil {
			return nil, err
		}

		return Trg{Min: rune(lo), Max: rune(hi)}, nil
	case "tbs":
		return Tbs{Str: str()}, nil
	case "tls":
		return Tls{Str: str()}, nil
	case "and":
		return And{}, nil
	case "not":
		return Not{}, nil
	case "bka":
		return Bka{}, nil
	case "bkn":
		return Bkn{}, nil
	case "abg":
		return Abg{}, nil
	case "aen":
		return Aen{}, nil
	case "bkr":
		op := Bkr{Name: y.Name}

		switch y.Case {
		case "", "ci":
			op.Case = Insensitive
		case "cs":
			op.Case = Sensitive
		default:
			return nil, errors.New("unknown case: %q", y.Case)
		}

		switch y.Mode {
		case "", "universal":
			op.Mode = Universal
		case "recursive":
			op.Mode = Recursive
		default:
			return nil, errors.New("unknown mode: %q", y.Mode)
		}

		return op, nil
	default:
		return nil, errors.New("unknown op type: %q", y.Type)
	}
}

// Marshal encodes the grammar as a YAML grammar object readable by Load.
func (g *Grammar) Marshal() ([]byte, error) {
	f := fileYAML{
		Rules: make([]ruleYAML, len(g.Rules)),
	}

	for i, r := range g.Rules {
		y := ruleYAML{Name: r.Name, Line: r.Line}

		for _, op := range r.Ops {
			y.Ops = append(y.Ops, g.opYAML(op))
		}

		f.Rules[i] = y
	}

	for _, u := range g.UDTs {
		f.UDTs = append(f.UDTs, udtYAML{Name: u.Name, Empty: u.Empty})
	}

	b, err := yaml.Marshal(&f)
	if err != nil {
		return nil, errors.Wrap(err, "encode yaml")
	}

	return b, nil
}

func (g *Grammar) opYAML(op Op) opYAML {
	y := opYAML{Type: strings.ToLower(KindOf(op).String())}

	u64 := func(x uint64) *uint64 { return &x }
	str := func(r []rune) *string { s := string(r); return &s }

	switch op := op.(type) {
	case Alt:
		y.Children = op.Children
	case Cat:
		y.Children = op.Children
	case Rep:
		y.Min = u64(op.Min)

		if op.Max != Inf {
			y.Max = u64(op.Max)
		}
	case Rnm:
		y.Name = g.Rules[op.Rule].Name
	case Udt:
		y.Name = g.UDTs[op.UDT].Name
	case Trg:
		y.Min = u64(uint64(op.Min))
		y.Max = u64(uint64(op.Max))
	case Tbs:
		y.Str = str(op.Str)
	case Tls:
		y.Str = str(op.Str)
	case Bkr:
		y.Name = op.Name
		y.Case = op.Case.String()
		y.Mode = op.Mode.String()
	}

	return y
}
