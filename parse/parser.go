package parse

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/abnf/ast"
	"github.com/slowlang/abnf/grammar"
)

type (
	// Parser executes an analyzed grammar.
	// Parse is not safe for concurrent use, create a Parser per goroutine.
	Parser struct {
		g *grammar.Grammar

		rules []RuleFunc
		udts  []UDTFunc

		maxDepth int
		maxHits  int

		ast   *ast.Log
		trace Tracer
		stats *Stats

		uniNames []string
		recNames []string
	}

	Options struct {
		Start string // start rule name, rule 0 if empty

		SubBegin int
		SubEnd   *int // nil means the input end, see End

		UserData any
	}

	Result struct {
		Success bool
		State   State

		PhraseLen int
		InputLen  int

		SubBegin int
		SubEnd   int

		NodeHits     int
		MaxTreeDepth int
		MaxPhraseLen int // furthest point reached outside of look-around
	}

	// CallbackData is the view of the parser given to callbacks.
	// It's reused between calls and must not be retained.
	CallbackData struct {
		State State

		Input    []rune
		SubBegin int
		SubEnd   int

		Pos int
		N   int

		MaxPhraseLen int

		UserData any
	}

	// RuleFunc is called with Active before the rule is tried
	// and with the final state and phrase after.
	RuleFunc func(d *CallbackData)

	// UDTFunc matches a phrase at d.Pos.
	// It returns Match with n > 0, Empty with n == 0 if the UDT may be empty,
	// or NoMatch. Anything else aborts the parse.
	UDTFunc func(d *CallbackData) (st State, n int)

	State uint8
)

const (
	Active State = iota
	Match
	Empty
	NoMatch
)

func New(g *grammar.Grammar) (*Parser, error) {
	if g == nil {
		return nil, errors.New("nil grammar")
	}

	if !g.Analyzed {
		return nil, errors.New("grammar has not passed the analysis")
	}

	p := &Parser{
		g:     g,
		rules: make([]RuleFunc, len(g.Rules)),
		udts:  make([]UDTFunc, len(g.UDTs)),
	}

	for _, r := range g.Rules {
		if r.BackUniversal {
			p.uniNames = append(p.uniNames, r.Lower)
		}

		if r.BackRecursive {
			p.recNames = append(p.recNames, r.Lower)
		}
	}

	for _, u := range g.UDTs {
		if u.BackUniversal {
			p.uniNames = append(p.uniNames, u.Lower)
		}

		if u.BackRecursive {
			p.recNames = append(p.recNames, u.Lower)
		}
	}

	return p, nil
}

func (p *Parser) Grammar() *grammar.Grammar { return p.g }

func (p *Parser) RuleCallback(name string, f RuleFunc) error {
	i, ok := p.g.RuleIndex(name)
	if !ok {
		return errors.New("unknown rule: %v%v", name, didYouMean(name, p.g.Names()))
	}

	p.rules[i] = f

	return nil
}

func (p *Parser) UDTCallback(name string, f UDTFunc) error {
	i, ok := p.g.UDTIndex(name)
	if !ok {
		return errors.New("unknown udt: %v%v", name, didYouMean(name, p.g.Names()))
	}

	p.udts[i] = f

	return nil
}

// Callbacks registers rule and UDT callbacks by name.
// Values are RuleFunc or UDTFunc, or plain funcs of the same signatures.
func (p *Parser) Callbacks(cbs map[string]any) (err error) {
	for name, f := range cbs {
		switch f := f.(type) {
		case RuleFunc:
			err = p.RuleCallback(name, f)
		case func(*CallbackData):
			err = p.RuleCallback(name, f)
		case UDTFunc:
			err = p.UDTCallback(name, f)
		case func(*CallbackData) (State, int):
			err = p.UDTCallback(name, f)
		default:
			err = errors.New("%v: unsupported callback type: %T", name, f)
		}

		if err != nil {
			return err
		}
	}

	return nil
}

// SetTreeDepthLimit sets the maximal parse tree depth. n <= 0 means unlimited.
func (p *Parser) SetTreeDepthLimit(n int) { p.maxDepth = max(0, n) }

// SetNodeHitLimit sets the maximal number of opcode evaluations. n <= 0 means unlimited.
func (p *Parser) SetNodeHitLimit(n int) { p.maxHits = max(0, n) }

// AttachAST makes the parser record rule and UDT phrases into l.
// The log is cleared at the start of each parse.
func (p *Parser) AttachAST(l *ast.Log) { p.ast = l }

func (p *Parser) AttachTrace(t Tracer) { p.trace = t }

// AttachStats makes the parser count node hits into s.
// Counts accumulate over parses until s.Reset.
func (p *Parser) AttachStats(s *Stats) { p.stats = s }

func (p *Parser) Parse(ctx context.Context, input []rune, opts Options) (res *Result, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "parse", "input_len", len(input), "start", opts.Start)
	defer tr.Finish("err", &err)

	start := 0

	if opts.Start != "" {
		var ok bool

		start, ok = p.g.RuleIndex(opts.Start)
		if !ok {
			return nil, errors.New("unknown start rule: %v%v", opts.Start, didYouMean(opts.Start, p.g.Names()))
		}
	}

	subEnd := len(input)

	if opts.SubEnd != nil {
		subEnd = *opts.SubEnd

		if subEnd < 0 || subEnd > len(input) {
			return nil, newFatal(BadWindow, "sub end %d out of [0, %d]", subEnd, len(input))
		}
	}

	if opts.SubBegin < 0 || opts.SubBegin > subEnd {
		return nil, newFatal(BadWindow, "sub begin %d out of [0, %d]", opts.SubBegin, subEnd)
	}

	for i, u := range p.g.UDTs {
		if p.udts[i] == nil {
			return nil, newFatal(MissingCallback, "udt %v has no callback", u.Name)
		}
	}

	r := &run{
		Parser:   p,
		input:    input,
		subBegin: opts.SubBegin,
		subEnd:   subEnd,
		cursor:   opts.SubBegin,
		ops:      []grammar.Op{grammar.Rnm{Rule: start}},
		cb: CallbackData{
			Input:    input,
			SubBegin: opts.SubBegin,
			SubEnd:   subEnd,
			UserData: opts.UserData,
		},
	}

	if p.g.NeedsUniversal {
		r.uni = newBackrefs(p.uniNames)
	}

	if p.g.NeedsRecursive {
		r.rec = newBackrefs(p.recNames)
	}

	if p.ast != nil {
		p.ast.Clear()
	}

	if tr.If("parse_start") {
		tr.Printw("parse start", "start", p.g.Rules[start].Name, "sub_begin", r.subBegin, "sub_end", r.subEnd,
			"max_depth", p.maxDepth, "max_hits", p.maxHits)
	}

	st, err := r.exec(0)
	if err != nil {
		return nil, err
	}

	res = &Result{
		Success:      st != NoMatch && r.cursor == subEnd,
		State:        st,
		PhraseLen:    r.cursor - r.subBegin,
		InputLen:     len(input),
		SubBegin:     r.subBegin,
		SubEnd:       subEnd,
		NodeHits:     r.hits,
		MaxTreeDepth: r.deepest,
		MaxPhraseLen: r.maxPhrase,
	}

	tr.V("parse_result").Printw("parse result", "success", res.Success, "state", st, "phrase_len", res.PhraseLen,
		"node_hits", res.NodeHits, "max_tree_depth", res.MaxTreeDepth)

	return res, nil
}

// End makes an Options.SubEnd value.
func End(n int) *int { return &n }

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Match:
		return "match"
	case Empty:
		return "empty"
	case NoMatch:
		return "nomatch"
	}

	return "??"
}
