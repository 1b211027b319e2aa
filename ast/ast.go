package ast

import (
	"context"
	"strings"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/abnf/grammar"
)

type (
	// Log is a linear record of rule and UDT entries and exits.
	// Records are kept only for names with a callback.
	Log struct {
		cb map[string]Callback

		records []Record
		open    []int // indexes of down records waiting for their up
	}

	Record struct {
		Name  string // lowercase rule or UDT name
		Phase Phase

		This int // index of this record
		That int // index of the paired record, -1 while open

		Pos int
		N   int
	}

	// Checkpoint is the log position to truncate to.
	Checkpoint struct {
		records int
		open    int
	}

	Phase uint8

	Result uint8

	Callback func(ph Phase, input []rune, pos, n int, data any) Result
)

const (
	Pre Phase = iota
	Post
)

const (
	OK Result = iota
	Skip
)

func New(g *grammar.Grammar) *Log {
	l := &Log{
		cb: make(map[string]Callback, len(g.Rules)+len(g.UDTs)),
	}

	for _, r := range g.Rules {
		l.cb[r.Lower] = nil
	}

	for _, u := range g.UDTs {
		l.cb[u.Lower] = nil
	}

	return l
}

// SetCallback attaches a translation callback to the rule or UDT.
// A nil callback stops recording the name.
func (l *Log) SetCallback(name string, cb Callback) error {
	lower := strings.ToLower(name)

	if _, ok := l.cb[lower]; !ok {
		return errors.New("unknown rule or udt: %v", name)
	}

	l.cb[lower] = cb

	return nil
}

// Has reports whether records are kept for the name.
func (l *Log) Has(lower string) bool {
	return l.cb[lower] != nil
}

func (l *Log) Down(lower string) {
	if l.cb[lower] == nil {
		return
	}

	this := len(l.records)

	l.open = append(l.open, this)
	l.records = append(l.records, Record{
		Name:  lower,
		Phase: Pre,
		This:  this,
		That:  -1,
	})
}

// Up closes the last open record and back-patches it with the phrase.
func (l *Log) Up(lower string, pos, n int) {
	if l.cb[lower] == nil {
		return
	}

	this := len(l.records)

	last := len(l.open) - 1
	that := l.open[last]
	l.open = l.open[:last]

	l.records = append(l.records, Record{
		Name:  lower,
		Phase: Post,
		This:  this,
		That:  that,
		Pos:   pos,
		N:     n,
	})

	down := &l.records[that]
	down.That = this
	down.Pos = pos
	down.N = n
}

func (l *Log) Save() Checkpoint {
	return Checkpoint{
		records: len(l.records),
		open:    len(l.open),
	}
}

func (l *Log) Restore(c Checkpoint) {
	l.records = l.records[:c.records]
	l.open = l.open[:c.open]
}

func (l *Log) Clear() {
	l.records = l.records[:0]
	l.open = l.open[:0]
}

func (l *Log) Len() int { return len(l.records) }

// Records returns the log. It must not be modified.
func (l *Log) Records() []Record { return l.records }

// Copy makes a log with the same records and callbacks
// which can be given its own callbacks and translated independently.
func (l *Log) Copy() *Log {
	c := &Log{
		cb:      make(map[string]Callback, len(l.cb)),
		records: append([]Record(nil), l.records...),
		open:    append([]int(nil), l.open...),
	}

	for k, v := range l.cb {
		c.cb[k] = v
	}

	return c
}

// Translate walks the records in order calling the callbacks.
// A callback returning Skip on Pre gets its Post call at once
// and the records nested inside are not visited.
// Callbacks may be changed after parsing: records without a callback are passed by.
func (l *Log) Translate(ctx context.Context, input []rune, data any) (err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "ast: translate", "records", len(l.records))
	defer tr.Finish("err", &err)

	if len(l.open) != 0 {
		return errors.New("unbalanced log: %d records open", len(l.open))
	}

	for i := 0; i < len(l.records); i++ {
		r := l.records[i]

		cb := l.cb[r.Name]
		if cb == nil {
			continue
		}

		if r.Phase == Post {
			cb(Post, input, r.Pos, r.N, data)

			continue
		}

		if cb(Pre, input, r.Pos, r.N, data) == Skip {
			cb(Post, input, r.Pos, r.N, data)

			i = r.That
		}
	}

	return nil
}

func (p Phase) String() string {
	switch p {
	case Pre:
		return "pre"
	case Post:
		return "post"
	}

	return "??"
}
