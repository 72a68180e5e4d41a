package dsc

// frameQueue is a single-producer single-consumer ring of captured frames.
//
// Only the sampler pushes and only Loop pops. The slot copy happens outside
// of the exclusion; only the indices and the length are guarded.
type frameQueue struct {
	ex       *exclusion
	slots    []Frame
	head     int // next slot to write, producer owned
	tail     int // next slot to read, consumer owned
	length   int
	overflow bool
}

func newFrameQueue(ex *exclusion, size int) *frameQueue {
	if size < 1 {
		size = 1
	}
	return &frameQueue{
		ex:    ex,
		slots: make([]Frame, size),
	}
}

// push copies f into the queue. When the queue is full the frame is dropped
// and the sticky overflow flag is set.
func (q *frameQueue) push(f *Frame) bool {
	var full bool
	q.ex.do(func() {
		full = q.length == len(q.slots)
		if full {
			q.overflow = true
		}
	})
	if full {
		return false
	}

	// the slot at head is not visible to the consumer until length grows.
	q.slots[q.head] = *f
	q.head = (q.head + 1) % len(q.slots)

	q.ex.do(func() {
		q.length++
	})
	return true
}

// pop copies the oldest frame into f.
func (q *frameQueue) pop(f *Frame) bool {
	var n int
	q.ex.do(func() {
		n = q.length
	})
	if n == 0 {
		return false
	}

	*f = q.slots[q.tail]
	q.tail = (q.tail + 1) % len(q.slots)

	q.ex.do(func() {
		q.length--
	})
	return true
}

// Len returns how many frames are waiting.
func (q *frameQueue) Len() int {
	var n int
	q.ex.do(func() {
		n = q.length
	})
	return n
}

// Cap returns the number of slots.
func (q *frameQueue) Cap() int {
	return len(q.slots)
}

// Overflow reports whether a frame was ever dropped because the queue was
// full. The flag is sticky until cleared.
func (q *frameQueue) Overflow() bool {
	var v bool
	q.ex.do(func() {
		v = q.overflow
	})
	return v
}

func (q *frameQueue) clearOverflow() {
	q.ex.do(func() {
		q.overflow = false
	})
}
