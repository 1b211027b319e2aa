package parse

import (
	"nikand.dev/go/heap"

	"github.com/slowlang/abnf/grammar"
)

type (
	// Stats counts opcode evaluations by kind and by rule or UDT name.
	Stats struct {
		Ops [grammar.NumKinds]Counts

		Names map[string]*Counts
	}

	Counts struct {
		Match   int
		Empty   int
		NoMatch int
	}

	NameCounts struct {
		Name string
		Counts
	}
)

func NewStats() *Stats {
	return &Stats{
		Names: map[string]*Counts{},
	}
}

func (s *Stats) Reset() {
	clear(s.Ops[:])
	clear(s.Names)
}

func (s *Stats) collect(k grammar.Kind, name string, st State) {
	if int(k) < len(s.Ops) {
		s.Ops[k].add(st)
	}

	if k != grammar.RNM && k != grammar.UDTOp {
		return
	}

	c := s.Names[name]
	if c == nil {
		c = &Counts{}
		s.Names[name] = c
	}

	c.add(st)
}

// Top returns up to n most hit rules and UDTs, all of them if n <= 0.
// Ties are ordered by name.
func (s *Stats) Top(n int) []NameCounts {
	h := heap.Heap[NameCounts]{Less: namesLess}

	for name, c := range s.Names {
		h.Push(NameCounts{Name: name, Counts: *c})
	}

	if n <= 0 || n > h.Len() {
		n = h.Len()
	}

	r := make([]NameCounts, 0, n)

	for len(r) < n {
		r = append(r, h.Pop())
	}

	return r
}

func (s *Stats) Total() (t Counts) {
	for _, c := range s.Ops {
		t.Match += c.Match
		t.Empty += c.Empty
		t.NoMatch += c.NoMatch
	}

	return t
}

func namesLess(d []NameCounts, i, j int) bool {
	if a, b := d[i].Total(), d[j].Total(); a != b {
		return a > b
	}

	return d[i].Name < d[j].Name
}

func (c *Counts) add(st State) {
	switch st {
	case Match:
		c.Match++
	case Empty:
		c.Empty++
	case NoMatch:
		c.NoMatch++
	}
}

func (c Counts) Total() int {
	return c.Match + c.Empty + c.NoMatch
}
