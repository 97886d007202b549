package util

import (
	"math/rand"
	"time"
)

func init() {
	rand.Seed(time.Now().UnixNano())
}

// Retry 最多执行 attempts 次，每次失败后等待时间翻倍并加上随机抖动
func Retry(attempts int, sleep time.Duration, f func() error) error {
	err := f()
	if err == nil {
		return nil
	}
	if s, ok := err.(retryStop); ok {
		return s.error
	}
	if attempts--; attempts > 0 {
		if sleep > 0 {
			sleep += time.Duration(rand.Int63n(int64(sleep))) / 2
		}
		time.Sleep(sleep)
		return Retry(attempts, 2*sleep, f)
	}
	return err
}

type retryStop struct {
	error
}

// RetryStopErr 包装后的错误不再重试
func RetryStopErr(err error) error {
	return retryStop{err}
}
