package idmap

// freeQueue is a ring buffer holding the indices of free slots, oldest-freed
// first. Its length always equals the storage capacity.
type freeQueue[I Index] struct {
	buf   []I
	head  int
	tail  int
	count int
}

func (q *freeQueue[I]) len() int {
	return q.count
}

// pop removes and returns the oldest free index.
func (q *freeQueue[I]) pop() I {
	if q.count == 0 {
		panic("idmap: pop from empty free queue")
	}

	index := q.buf[q.head]
	q.head = q.wrap(q.head + 1)
	q.count--
	return index
}

// push appends an index that just became free.
func (q *freeQueue[I]) push(index I) {
	if q.count == len(q.buf) {
		panic("idmap: push to full free queue")
	}

	q.buf[q.tail] = index
	q.tail = q.wrap(q.tail + 1)
	q.count++
}

// reclaim removes an arbitrary index from the queue, scanning from the head.
// Entries between the head and the removed one shift back by one so the
// remaining order is unchanged. Returns false if index is not queued.
func (q *freeQueue[I]) reclaim(index I) bool {
	pos := -1
	for i := 0; i < q.count; i++ {
		if q.buf[q.wrap(q.head+i)] == index {
			pos = i
			break
		}
	}
	if pos < 0 {
		return false
	}

	for i := pos; i > 0; i-- {
		q.buf[q.wrap(q.head+i)] = q.buf[q.wrap(q.head+i-1)]
	}
	q.head = q.wrap(q.head + 1)
	q.count--
	return true
}

// grow enlarges the ring by amount slots and queues the new indices
// firstNew, firstNew+1, ... behind the existing entries.
func (q *freeQueue[I]) grow(amount int, firstNew int) {
	buf := make([]I, len(q.buf)+amount)
	for i := 0; i < q.count; i++ {
		buf[i] = q.buf[q.wrap(q.head+i)]
	}
	for i := 0; i < amount; i++ {
		buf[q.count+i] = I(firstNew + i)
	}

	q.buf = buf
	q.head = 0
	q.count += amount
	q.tail = q.wrap(q.count)
}

// reset queues every index in [0, len(buf)) in ascending order.
func (q *freeQueue[I]) reset() {
	for i := range q.buf {
		q.buf[i] = I(i)
	}
	q.head = 0
	q.tail = 0
	q.count = len(q.buf)
}

func (q *freeQueue[I]) wrap(pos int) int {
	if n := len(q.buf); n > 0 && pos >= n {
		return pos % n
	}
	return pos
}

// each visits the queued indices in FIFO order.
func (q *freeQueue[I]) each(fn func(I) bool) {
	for i := 0; i < q.count; i++ {
		if !fn(q.buf[q.wrap(q.head+i)]) {
			return
		}
	}
}
