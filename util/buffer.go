package util

// Buffer 流式解析时保存未消费完的数据
type Buffer []byte

func (b *Buffer) Write(a []byte) (n int, err error) {
	*b = append(*b, a...)
	return len(a), nil
}

func (b Buffer) Len() int {
	return len(b)
}

func (b Buffer) CanReadN(n int) bool {
	return len(b) >= n
}

// Consume 丢弃前 n 个字节，剩余数据移到开头以复用空间
func (b *Buffer) Consume(n int) {
	if n >= len(*b) {
		b.Reset()
		return
	}
	*b = append((*b)[:0], (*b)[n:]...)
}

func (b *Buffer) Reset() {
	*b = (*b)[:0]
}
