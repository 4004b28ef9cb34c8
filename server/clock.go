package server

import "time"

// Clock 会话本地时钟：自创建起经过的秒数。
// 基于单调时钟计算，不依赖后台协程累加。
type Clock struct {
	now   func() time.Time
	start time.Time
}

// NewClock now 为 nil 时使用 time.Now
func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now, start: now()}
}

// Elapsed 返回本地时间（秒）
func (c *Clock) Elapsed() float64 {
	return c.now().Sub(c.start).Seconds()
}
