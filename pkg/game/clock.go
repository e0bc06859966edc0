package game

import "time"

// Clock 提供单调时钟读数
// 模拟核心通过注入的 Clock 读取时间，测试中可替换为 ManualClock
type Clock interface {
	Now() time.Time
}

// SystemClock 返回带单调读数的系统时间
type SystemClock struct{}

// NewSystemClock 创建系统时钟
func NewSystemClock() *SystemClock {
	return &SystemClock{}
}

// Now 返回当前时间（含单调时钟读数）
func (SystemClock) Now() time.Time {
	return time.Now()
}

// ManualClock 可手动推进的时钟，用于测试和无头运行
// 只在模拟线程内使用，不做加锁
type ManualClock struct {
	current time.Time
}

// NewManualClock 创建从 start 开始的手动时钟
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{current: start}
}

// Now 返回当前时间
func (c *ManualClock) Now() time.Time {
	return c.current
}

// Advance 推进时间
func (c *ManualClock) Advance(d time.Duration) {
	c.current = c.current.Add(d)
}

// Set 设置当前时间
func (c *ManualClock) Set(t time.Time) {
	c.current = t
}
