package util

// RTPReorder RTP包乱序重排
type RTPReorder[T any] struct {
	Size    int    // 缓存队列长度，默认 20
	lastSeq uint16 // 最新输出的rtp包序号
	queue   []*T   // 缓存队列,0号元素位置代表lastSeq+1
}

// Push accepts a packet with sequence number seq and returns it when it is next in order.
// Packets that arrive early are held; call Pop until nil to collect the ones it released.
func (p *RTPReorder[T]) Push(seq uint16, v *T) *T {
	// 初始化
	if len(p.queue) == 0 {
		if p.Size <= 0 {
			p.Size = 20
		}
		p.lastSeq = seq
		p.queue = make([]*T, p.Size)
		return v
	}
	delta := int16(seq - p.lastSeq)
	if delta <= 0 {
		// 旧的包直接丢弃
		return nil
	}
	if delta == 1 {
		// 正常顺序,无需缓存
		p.lastSeq = seq
		p.pop()
		return v
	}
	if int(delta) > len(p.queue) {
		// 超过缓存最大范围,无法挽回,只能丢弃已缓存的包（序号断裂）
		for i := range p.queue {
			p.queue[i] = nil
		}
		p.lastSeq = seq
		return v
	}
	// 出现后面的包先到达，缓存起来
	p.queue[delta-1] = v
	return nil
}

func (p *RTPReorder[T]) pop() {
	copy(p.queue, p.queue[1:]) //整体数据向前移动一位，保持0号元素代表lastSeq+1
	p.queue[len(p.queue)-1] = nil
}

// Pop 从缓存中取出一个包，需要连续调用直到返回nil
func (p *RTPReorder[T]) Pop() (next *T) {
	if len(p.queue) == 0 {
		return
	}
	if next = p.queue[0]; next != nil {
		p.lastSeq++
		p.pop()
	}
	return
}

func (p *RTPReorder[T]) Reset() {
	p.queue = nil
}
