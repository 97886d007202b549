package util

// FixedRing 固定容量的环形缓冲，写满后覆盖最旧的元素
type FixedRing[T any] struct {
	buf  []T
	pos  int // 最近写入的位置
	fill int // 有效元素个数，最大为容量
}

func NewFixedRing[T any](size int) *FixedRing[T] {
	r := new(FixedRing[T])
	r.Init(size)
	return r
}

func (r *FixedRing[T]) Init(size int) {
	if size < 1 {
		size = 1
	}
	r.buf = make([]T, size)
	r.pos = size - 1
	r.fill = 0
}

func (r *FixedRing[T]) Push(v T) {
	r.pos++
	if r.pos == len(r.buf) {
		r.pos = 0
	}
	r.buf[r.pos] = v
	if r.fill < len(r.buf) {
		r.fill++
	}
}

// At returns the i-th most recent element, At(0) being the last pushed one.
func (r *FixedRing[T]) At(i int) T {
	p := r.pos - i
	if p < 0 {
		p += len(r.buf)
	}
	return r.buf[p]
}

func (r *FixedRing[T]) Len() int {
	return r.fill
}

func (r *FixedRing[T]) Full() bool {
	return r.fill == len(r.buf)
}

func (r *FixedRing[T]) Reset() {
	var zero T
	for i := range r.buf {
		r.buf[i] = zero
	}
	r.pos = len(r.buf) - 1
	r.fill = 0
}
