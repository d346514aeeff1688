package bars

// Ring is a bounded ring buffer of sub-bars for one symbol. It tracks
// TotalCount (the absolute, monotonic count of every sub-bar ever
// pushed) separately from the slice it stores, so callers never treat
// len(buffer)-1 as "current index".
type Ring struct {
	capacity   int
	buf        []Bar
	start      int // absolute index of buf[0], i.e. the oldest bar still held
	TotalCount int64
}

// NewRing creates a ring buffer holding at most capacity sub-bars.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 240
	}
	return &Ring{capacity: capacity, buf: make([]Bar, 0, capacity)}
}

// Push appends a new sub-bar, evicting the oldest if at capacity, and
// returns its absolute index.
func (r *Ring) Push(b Bar) int64 {
	idx := r.TotalCount
	if len(r.buf) >= r.capacity {
		r.buf = r.buf[1:]
		r.start++
	}
	r.buf = append(r.buf, b)
	r.TotalCount++
	return idx
}

// Evicted reports whether the requested absolute index has fallen out
// of the ring.
func (r *Ring) Evicted(absolute int64) bool {
	return absolute < int64(r.start) || absolute >= r.TotalCount
}

// At maps an absolute bar index to the bar it names, or (Bar{}, false)
// if the index has been evicted or never existed. Every multi-bar
// query in C3/C6 must go through this (or ValidateRange below).
func (r *Ring) At(absolute int64) (Bar, bool) {
	if r.Evicted(absolute) {
		return Bar{}, false
	}
	offset := int(absolute) - r.start
	return r.buf[offset], true
}

// ValidateRange checks that [from, to] (inclusive, absolute indices)
// is entirely resident in the ring, returning the array offsets to
// use if so.
func (r *Ring) ValidateRange(from, to int64) (fromOffset, toOffset int, ok bool) {
	if from > to || r.Evicted(from) || r.Evicted(to) {
		return 0, 0, false
	}
	return int(from) - r.start, int(to) - r.start, true
}

// Slice returns a copy of the bars in [from, to] (inclusive, absolute
// indices), or nil if the range is not fully resident.
func (r *Ring) Slice(from, to int64) []Bar {
	fo, to2, ok := r.ValidateRange(from, to)
	if !ok {
		return nil
	}
	out := make([]Bar, to2-fo+1)
	copy(out, r.buf[fo:to2+1])
	return out
}

// Last returns the most recently pushed sub-bar, if any.
func (r *Ring) Last() (Bar, bool) {
	if len(r.buf) == 0 {
		return Bar{}, false
	}
	return r.buf[len(r.buf)-1], true
}

// LastIndex returns the absolute index of the most recently pushed
// sub-bar, or -1 if the ring is empty.
func (r *Ring) LastIndex() int64 {
	if r.TotalCount == 0 {
		return -1
	}
	return r.TotalCount - 1
}
