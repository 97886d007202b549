package util

import (
	"container/ring"
	"context"
	"sync"
)

type RingItem struct {
	Value any
	seq   uint64
	done  chan struct{} // 写入后关闭
}

// RingBuffer 单写多读的广播环，读者落后超过一圈时直接跳到最新位置
type RingBuffer struct {
	sync.RWMutex
	*ring.Ring
	seq uint64 // 下一次写入的序号
}

func NewRingBuffer(n int) (r *RingBuffer) {
	r = new(RingBuffer)
	r.Init(n)
	return
}

func (r *RingBuffer) Init(n int) {
	r.Ring = ring.New(n)
	for x := r.Ring; x.Value == nil; x = x.Next() {
		x.Value = &RingItem{done: make(chan struct{})}
	}
}

func (r *RingBuffer) Write(value any) {
	r.Lock()
	current := r.Ring.Value.(*RingItem)
	current.Value = value
	current.seq = r.seq
	r.seq++
	r.Ring = r.Next()
	next := r.Ring.Value.(*RingItem)
	done := current.done
	next.done = make(chan struct{})
	r.Unlock()
	close(done)
}

// Reader starts at the next value to be written.
func (r *RingBuffer) Reader() *RingReader {
	r.RLock()
	defer r.RUnlock()
	return &RingReader{rb: r, pos: r.Ring, seq: r.seq}
}

type RingReader struct {
	rb  *RingBuffer
	pos *ring.Ring
	seq uint64
}

// Read blocks until the next value is written or ctx ends.
func (rr *RingReader) Read(ctx context.Context) (any, error) {
	for {
		rr.rb.RLock()
		item := rr.pos.Value.(*RingItem)
		done, value, seq, writeSeq := item.done, item.Value, item.seq, rr.rb.seq
		if writeSeq > rr.seq && seq != rr.seq {
			// 被写者套圈，跳到写者位置
			rr.pos, rr.seq = rr.rb.Ring, writeSeq
			rr.rb.RUnlock()
			continue
		}
		rr.rb.RUnlock()
		if writeSeq > rr.seq {
			rr.pos = rr.pos.Next()
			rr.seq++
			return value, nil
		}
		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
