package server

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator 生成全局唯一的 token（会话 id、内部 id、公开 id）
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator 基于随机 UUID
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string { return uuid.NewString() }

// SequenceGenerator 带前缀的自增 id，输出可预测，便于调试与测试
type SequenceGenerator struct {
	prefix string
	n      atomic.Uint64
}

func NewSequenceGenerator(prefix string) *SequenceGenerator {
	return &SequenceGenerator{prefix: prefix}
}

func (g *SequenceGenerator) NewID() string {
	return fmt.Sprintf("%s%d", g.prefix, g.n.Add(1))
}
