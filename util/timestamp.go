package util

// 时间戳回绕处理：RTP 时间戳为 32 位，PES 的 PTS/DTS 为 33 位，长时间运行后会回绕，
// 这里把它们展开成单调的 int64，差值小于半个周期视为向前，否则视为向后跳变
type Unwrapper struct {
	bits    uint
	mask    uint64
	prev    uint64
	overall int64
	started bool
}

func NewUnwrapper(bits uint) *Unwrapper {
	return &Unwrapper{bits: bits, mask: 1<<bits - 1}
}

func (u *Unwrapper) Unwrap(ts uint64) int64 {
	ts &= u.mask
	if !u.started {
		u.started = true
		u.prev = ts
		u.overall = int64(ts)
		return u.overall
	}
	half := uint64(1) << (u.bits - 1)
	if diff := (ts - u.prev) & u.mask; diff < half {
		u.overall += int64(diff)
	} else {
		u.overall -= int64((u.prev - ts) & u.mask)
	}
	u.prev = ts
	return u.overall
}

func (u *Unwrapper) Reset() {
	u.started = false
	u.prev = 0
	u.overall = 0
}
