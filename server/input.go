package server

import "duelsync/game"

// Input 已通过路由的客户端输入，由会话 Tick 按接收顺序应用
type Input struct {
	PlayerID   string // 内部 id，仅服务端使用
	Commands   []game.Command
	ClientTime float64
	Seq        uint32 // 客户端序列号，单会话内严格递增
}
