package apu

// ring is a fixed-size queue of stereo frames. A full ring drops new
// frames.
type ring struct {
	l, r       []float32
	head, tail int
	size       int
}

func newRing(n int) ring {
	return ring{l: make([]float32, n), r: make([]float32, n)}
}

func (q *ring) len() int { return q.size }

func (q *ring) push(l, r float32) bool {
	if q.size == len(q.l) {
		return false
	}
	q.l[q.tail], q.r[q.tail] = l, r
	q.tail = (q.tail + 1) % len(q.l)
	q.size++
	return true
}

func (q *ring) pop() (l, r float32, ok bool) {
	if q.size == 0 {
		return 0, 0, false
	}
	l, r = q.l[q.head], q.r[q.head]
	q.head = (q.head + 1) % len(q.l)
	q.size--
	return l, r, true
}
