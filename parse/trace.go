package parse

import (
	"context"

	"tlog.app/go/tlog"

	"github.com/slowlang/abnf/grammar"
)

type (
	// Tracer observes every opcode evaluation.
	Tracer interface {
		Down(ev Event)
		Up(ev Event)
	}

	Event struct {
		Kind grammar.Kind
		Name string // rule, UDT or back referenced name

		Depth int
		State State

		Pos int
		N   int // phrase length, Up only

		Behind     bool
		Lookaround int
	}

	// TlogTracer prints the events into a tlog span.
	TlogTracer struct {
		tlog.Span

		Input []rune // if set, phrases are printed too
	}
)

func NewTlogTracer(ctx context.Context, input []rune) *TlogTracer {
	return &TlogTracer{
		Span:  tlog.SpanFromContext(ctx),
		Input: input,
	}
}

func (r *run) event(op grammar.Op, st State, pos int) Event {
	ev := Event{
		Kind:       grammar.KindOf(op),
		Name:       r.opName(op),
		Depth:      r.depth,
		State:      st,
		Pos:        pos,
		Behind:     r.behind,
		Lookaround: r.lookaround,
	}

	if st != Active && st != NoMatch {
		ev.Pos, ev.N = r.phrase(pos)
	}

	return ev
}

func (t *TlogTracer) Down(ev Event) {
	t.Printw("down", "depth", ev.Depth, "op", ev.Kind.String(), "name", ev.Name, "pos", ev.Pos,
		"behind", ev.Behind, "lookaround", ev.Lookaround)
}

func (t *TlogTracer) Up(ev Event) {
	if t.Input == nil || ev.N == 0 {
		t.Printw("up", "depth", ev.Depth, "op", ev.Kind.String(), "name", ev.Name, "state", ev.State.String(),
			"pos", ev.Pos, "n", ev.N)

		return
	}

	t.Printw("up", "depth", ev.Depth, "op", ev.Kind.String(), "name", ev.Name, "state", ev.State.String(),
		"pos", ev.Pos, "n", ev.N, "phrase", string(t.Input[ev.Pos:ev.Pos+ev.N]))
}
