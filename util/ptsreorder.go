package util

import "sort"

// PTSReorder 把解码顺序的时间戳还原成显示顺序，缓存 Depth 个时间戳，超出后输出最小的一个
type PTSReorder struct {
	Depth int
	queue []int64 // 升序
}

// Push buffers ts and, once more than Depth values are held, releases the smallest.
func (r *PTSReorder) Push(ts int64) (out int64, ok bool) {
	i := sort.Search(len(r.queue), func(i int) bool { return r.queue[i] > ts })
	r.queue = append(r.queue, 0)
	copy(r.queue[i+1:], r.queue[i:])
	r.queue[i] = ts
	if len(r.queue) <= r.Depth {
		return
	}
	out, ok = r.queue[0], true
	copy(r.queue, r.queue[1:])
	r.queue = r.queue[:len(r.queue)-1]
	return
}

// Drain returns the buffered timestamps in ascending order and empties the window.
func (r *PTSReorder) Drain() (out []int64) {
	out = append(out, r.queue...)
	r.queue = r.queue[:0]
	return
}

func (r *PTSReorder) Len() int {
	return len(r.queue)
}

func (r *PTSReorder) Reset() {
	r.queue = r.queue[:0]
}
