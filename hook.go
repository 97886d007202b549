package cadence

import (
	"context"

	"m7s.live/cadence/util"
)

const (
	HOOK_PUBLISH     = "Publish"
	HOOK_STREAMCLOSE = "StreamClose"
	HOOK_CADENCE     = "Cadence" // 负载为 StreamEvent
)

const hookRingSize = 64

var hooks util.Map[string, *util.RingBuffer]

func hookRing(name string) *util.RingBuffer {
	rb, _ := hooks.LoadOrStore(name, func() *util.RingBuffer {
		return util.NewRingBuffer(hookRingSize)
	})
	return rb
}

// HookReader 返回从下一次触发开始读取的读者
func HookReader(name string) *util.RingReader {
	return hookRing(name).Reader()
}

func TriggerHook(name string, payload any) {
	hookRing(name).Write(payload)
}

// AddHookWithContext 阻塞地把 name 上触发的负载交给 callback，直到 ctx 结束或 callback 返回错误
func AddHookWithContext(ctx context.Context, name string, callback func(any) error) error {
	return consumeHook(ctx, HookReader(name), callback)
}

func consumeHook(ctx context.Context, reader *util.RingReader, callback func(any) error) error {
	for {
		payload, err := reader.Read(ctx)
		if err != nil {
			return err
		}
		if err = callback(payload); err != nil {
			return err
		}
	}
}
