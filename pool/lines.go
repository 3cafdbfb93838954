package pool

import "sync"

// maxPooledLines bounds the lists kept for reuse. Larger messages allocate.
const maxPooledLines = 256

// Lines is a reusable list of encoded segment lines.
type Lines []string

var linesPool = sync.Pool{
	New: func() any {
		l := make(Lines, 0, 32)
		return &l
	},
}

// AcquireLines gets an empty list from the pool.
func AcquireLines() *Lines {
	l := linesPool.Get().(*Lines)
	*l = (*l)[:0]
	return l
}

// Add appends one line.
func (l *Lines) Add(line string) {
	*l = append(*l, line)
}

// Release drops the line references and returns the list to the pool.
func (l *Lines) Release() {
	if l == nil || cap(*l) > maxPooledLines {
		return
	}
	clear(*l)
	*l = (*l)[:0]
	linesPool.Put(l)
}
