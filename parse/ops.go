package parse

import (
	"strings"

	"github.com/slowlang/abnf/ast"
	"github.com/slowlang/abnf/grammar"
)

type (
	// run is the state of one Parse call.
	run struct {
		*Parser

		input    []rune
		subBegin int
		subEnd   int

		cursor     int
		behind     bool // look-behind, the cursor moves toward 0
		lookaround int

		depth     int
		deepest   int
		hits      int
		maxPhrase int

		ops []grammar.Op // current rule

		uni *backrefs
		rec *backrefs

		cb CallbackData
	}

	checkpoint struct {
		cursor int

		uni []int
		rec []int

		ast     ast.Checkpoint
		withAST bool
	}
)

func (r *run) exec(i int) (st State, err error) {
	op := r.ops[i]
	pos := r.cursor

	err = r.down(op)
	if err != nil {
		return NoMatch, err
	}

	switch op := op.(type) {
	case grammar.Alt:
		st, err = r.alt(op)
	case grammar.Cat:
		st, err = r.cat(op)
	case grammar.Rep:
		st, err = r.rep(op, i)
	case grammar.Rnm:
		st, err = r.rnm(op)
	case grammar.Tls:
		st = r.tls(op)
	case grammar.Tbs:
		st = r.tbs(op)
	case grammar.Trg:
		st = r.trg(op)
	case grammar.Udt:
		st, err = r.udt(op)
	case grammar.And:
		st, err = r.look(i, false, false)
	case grammar.Not:
		st, err = r.look(i, false, true)
	case grammar.Bka:
		st, err = r.look(i, true, false)
	case grammar.Bkn:
		st, err = r.look(i, true, true)
	case grammar.Bkr:
		st, err = r.bkr(op)
	case grammar.Abg:
		st = r.anchor(r.cursor == 0)
	case grammar.Aen:
		st = r.anchor(r.cursor == len(r.input))
	default:
		err = newFatal(BadOpcode, "unsupported opcode: %T", op)
	}

	if err != nil {
		return NoMatch, err
	}

	r.up(op, st, pos)

	return st, nil
}

func (r *run) down(op grammar.Op) error {
	r.depth++
	r.hits++

	if r.trace != nil {
		r.trace.Down(r.event(op, Active, r.cursor))
	}

	if r.maxHits != 0 && r.hits > r.maxHits {
		return newFatal(NodeHitLimit, "node hits limit exceeded: %d", r.maxHits)
	}

	if r.maxDepth != 0 && r.depth > r.maxDepth {
		return newFatal(TreeDepthLimit, "parse tree depth limit exceeded: %d", r.maxDepth)
	}

	r.deepest = max(r.deepest, r.depth)

	return nil
}

func (r *run) up(op grammar.Op, st State, pos int) {
	r.depth--

	if r.lookaround == 0 {
		r.maxPhrase = max(r.maxPhrase, r.cursor-r.subBegin)
	}

	if r.trace != nil {
		r.trace.Up(r.event(op, st, pos))
	}

	if r.stats != nil {
		r.stats.collect(grammar.KindOf(op), r.opName(op), st)
	}
}

func (r *run) alt(op grammar.Alt) (State, error) {
	n := len(op.Children)

	for j := range n {
		k := j
		if r.behind {
			k = n - 1 - j
		}

		c := r.save(false)

		st, err := r.exec(op.Children[k])
		if err != nil {
			return NoMatch, err
		}

		if st != NoMatch {
			return r.moved(c.cursor), nil
		}

		r.restore(c)
	}

	return NoMatch, nil
}

// cat is atomic: a failed child rewinds the whole group.
func (r *run) cat(op grammar.Cat) (State, error) {
	c := r.save(true)
	n := len(op.Children)

	for j := range n {
		k := j
		if r.behind {
			k = n - 1 - j
		}

		st, err := r.exec(op.Children[k])
		if err != nil {
			return NoMatch, err
		}

		if st == NoMatch {
			r.restore(c)

			return NoMatch, nil
		}
	}

	return r.moved(c.cursor), nil
}

func (r *run) rep(op grammar.Rep, i int) (State, error) {
	start := r.save(true)
	st := Active

	var reps uint64

	for reps < op.Max {
		c := r.save(true)

		var err error

		st, err = r.exec(i + 1)
		if err != nil {
			return NoMatch, err
		}

		if st == Empty {
			break
		}

		if st == NoMatch {
			r.restore(c)
			break
		}

		reps++
	}

	if st != Empty && reps < op.Min {
		r.restore(start)

		return NoMatch, nil
	}

	return r.moved(start.cursor), nil
}

func (r *run) rnm(op grammar.Rnm) (State, error) {
	rule := r.g.Rules[op.Rule]
	cb := r.rules[op.Rule]
	visible := r.lookaround == 0

	// the rule's own unfinished capture must not be seen by its nested calls
	var saved []int
	if rule.HasRecursiveBackref && r.rec != nil {
		saved = r.rec.save()
	}

	pos := r.cursor

	if cb != nil && visible {
		r.callRule(cb, Active, pos, 0)
	}

	record := r.ast != nil && visible && r.ast.Has(rule.Lower)

	var cp ast.Checkpoint
	if record {
		cp = r.ast.Save()
		r.ast.Down(rule.Lower)
	}

	parent := r.ops
	r.ops = rule.Ops

	st, err := r.exec(0)

	r.ops = parent

	if err != nil {
		return NoMatch, err
	}

	ppos, n := r.phrase(pos)

	if cb != nil && visible {
		r.callRule(cb, st, ppos, n)
	}

	if st == NoMatch {
		if record {
			r.ast.Restore(cp)
		}
	} else {
		if record {
			r.ast.Up(rule.Lower, ppos, n)
		}

		if rule.BackUniversal {
			r.uni.push(rule.Lower, ppos, n)
		}

		if rule.BackRecursive {
			r.rec.push(rule.Lower, ppos, n)
		}
	}

	if saved != nil {
		r.rec.restore(saved)
	}

	return st, nil
}

func (r *run) callRule(f RuleFunc, st State, pos, n int) {
	r.cb.State = st
	r.cb.Pos = pos
	r.cb.N = n
	r.cb.MaxPhraseLen = r.maxPhrase

	f(&r.cb)
}

func (r *run) tls(op grammar.Tls) State {
	if len(op.Str) == 0 {
		return Empty
	}

	pos, ok := r.window(len(op.Str))
	if !ok {
		return NoMatch
	}

	for j, c := range op.Str {
		if fold(c) != fold(r.input[pos+j]) {
			return NoMatch
		}
	}

	r.advance(len(op.Str))

	return Match
}

func (r *run) tbs(op grammar.Tbs) State {
	pos, ok := r.window(len(op.Str))
	if !ok || len(op.Str) == 0 {
		return NoMatch
	}

	for j, c := range op.Str {
		if c != r.input[pos+j] {
			return NoMatch
		}
	}

	r.advance(len(op.Str))

	return Match
}

func (r *run) trg(op grammar.Trg) State {
	pos, ok := r.window(1)
	if !ok {
		return NoMatch
	}

	if c := r.input[pos]; c < op.Min || c > op.Max {
		return NoMatch
	}

	r.advance(1)

	return Match
}

func (r *run) udt(op grammar.Udt) (State, error) {
	u := r.g.UDTs[op.UDT]

	if r.behind {
		return NoMatch, newFatal(LookBehind, "udt %v called in look-behind", u.Name)
	}

	pos := r.cursor

	r.cb.State = Active
	r.cb.Pos = pos
	r.cb.N = 0
	r.cb.MaxPhraseLen = r.maxPhrase

	st, n := r.udts[op.UDT](&r.cb)

	err := r.checkUDT(u, st, n)
	if err != nil {
		return NoMatch, err
	}

	if st == NoMatch {
		return NoMatch, nil
	}

	if r.ast != nil && r.lookaround == 0 {
		r.ast.Down(u.Lower)
		r.ast.Up(u.Lower, pos, n)
	}

	if u.BackUniversal {
		r.uni.push(u.Lower, pos, n)
	}

	if u.BackRecursive {
		r.rec.push(u.Lower, pos, n)
	}

	r.cursor += n

	return st, nil
}

func (r *run) checkUDT(u *grammar.UDT, st State, n int) error {
	switch st {
	case Match:
		if n <= 0 {
			return newFatal(UDTContract, "udt %v: matched phrase length must be > 0: %d", u.Name, n)
		}

		if r.cursor+n > r.subEnd {
			return newFatal(UDTContract, "udt %v: phrase extends past the end of the sub-string", u.Name)
		}
	case Empty:
		if !u.Empty {
			return newFatal(UDTContract, "udt %v: not allowed to return empty", u.Name)
		}

		if n != 0 {
			return newFatal(UDTContract, "udt %v: empty phrase length must be 0: %d", u.Name, n)
		}
	case NoMatch:
	case Active:
		return newFatal(UDTContract, "udt %v: must return match, empty or nomatch", u.Name)
	default:
		return newFatal(UDTContract, "udt %v: unrecognized state: %d", u.Name, st)
	}

	return nil
}

// look runs the operand without consuming input.
func (r *run) look(i int, behind, negate bool) (State, error) {
	c := r.save(false)
	dir := r.behind

	r.lookaround++
	r.behind = behind

	st, err := r.exec(i + 1)

	r.lookaround--
	r.behind = dir
	r.restore(c)

	if err != nil {
		return NoMatch, err
	}

	if (st != NoMatch) != negate {
		return Empty, nil
	}

	return NoMatch, nil
}

func (r *run) bkr(op grammar.Bkr) (State, error) {
	if r.behind {
		return NoMatch, newFatal(LookBehind, "back reference to %v in look-behind", op.Name)
	}

	refs := r.uni
	if op.Mode == grammar.Recursive {
		refs = r.rec
	}

	if refs == nil {
		return NoMatch, nil
	}

	ph, ok := refs.top(strings.ToLower(op.Name))
	if !ok {
		return NoMatch, nil
	}

	if ph.n == 0 {
		return Empty, nil
	}

	if r.cursor+ph.n > r.subEnd {
		return NoMatch, nil
	}

	for j := range ph.n {
		a, b := r.input[ph.pos+j], r.input[r.cursor+j]

		if op.Case == grammar.Insensitive {
			a, b = fold(a), fold(b)
		}

		if a != b {
			return NoMatch, nil
		}
	}

	r.cursor += ph.n

	return Match, nil
}

func (r *run) anchor(ok bool) State {
	if ok {
		return Empty
	}

	return NoMatch
}

// window returns the start of n units to be compared in the current direction.
// Look-behind may see the input before the sub-string.
func (r *run) window(n int) (pos int, ok bool) {
	if r.behind {
		pos = r.cursor - n

		return pos, pos >= 0
	}

	return r.cursor, r.cursor+n <= r.subEnd
}

func (r *run) advance(n int) {
	if r.behind {
		r.cursor -= n
	} else {
		r.cursor += n
	}
}

// phrase returns the span matched since pos.
func (r *run) phrase(pos int) (int, int) {
	if r.behind {
		return r.cursor, pos - r.cursor
	}

	return pos, r.cursor - pos
}

func (r *run) moved(pos int) State {
	if r.cursor == pos {
		return Empty
	}

	return Match
}

func (r *run) save(withAST bool) (c checkpoint) {
	c.cursor = r.cursor

	if r.uni != nil {
		c.uni = r.uni.save()
	}

	if r.rec != nil {
		c.rec = r.rec.save()
	}

	if withAST && r.ast != nil && r.lookaround == 0 {
		c.ast = r.ast.Save()
		c.withAST = true
	}

	return c
}

func (r *run) restore(c checkpoint) {
	r.cursor = c.cursor

	if c.uni != nil {
		r.uni.restore(c.uni)
	}

	if c.rec != nil {
		r.rec.restore(c.rec)
	}

	if c.withAST {
		r.ast.Restore(c.ast)
	}
}

func (r *run) opName(op grammar.Op) string {
	switch op := op.(type) {
	case grammar.Rnm:
		return r.g.Rules[op.Rule].Name
	case grammar.Udt:
		return r.g.UDTs[op.UDT].Name
	case grammar.Bkr:
		return op.Name
	}

	return ""
}

func fold(c rune) rune {
	if c >= 'A' && c <= 'Z' {
		return c + 'a' - 'A'
	}

	return c
}
