package parse

type (
	// backrefs holds the captured phrases of one mode,
	// a stack per rule or UDT name.
	backrefs struct {
		names []string
		index map[string]int

		stacks [][]phrase
	}

	phrase struct {
		pos int
		n   int
	}
)

func newBackrefs(names []string) *backrefs {
	b := &backrefs{
		names:  names,
		index:  make(map[string]int, len(names)),
		stacks: make([][]phrase, len(names)),
	}

	for i, n := range names {
		b.index[n] = i
	}

	return b
}

func (b *backrefs) push(lower string, pos, n int) {
	i, ok := b.index[lower]
	if !ok {
		return
	}

	b.stacks[i] = append(b.stacks[i], phrase{pos: pos, n: n})
}

// top returns the last captured phrase without removing it.
func (b *backrefs) top(lower string) (phrase, bool) {
	i, ok := b.index[lower]
	if !ok {
		return phrase{}, false
	}

	s := b.stacks[i]
	if len(s) == 0 {
		return phrase{}, false
	}

	return s[len(s)-1], true
}

func (b *backrefs) save() []int {
	st := make([]int, len(b.stacks))

	for i, s := range b.stacks {
		st[i] = len(s)
	}

	return st
}

func (b *backrefs) restore(st []int) {
	for i, l := range st {
		b.stacks[i] = b.stacks[i][:l]
	}
}

func (b *backrefs) depth() (n int) {
	for _, s := range b.stacks {
		n += len(s)
	}

	return n
}
