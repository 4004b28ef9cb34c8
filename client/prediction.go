package client

import (
	"duelsync/game"
)

// maxExtrapolation 远端玩家超出最新快照时的最大外推时长（秒）
const maxExtrapolation = 0.2

// PredictionEngine 本地玩家的输入立即生效，不等待服务端确认；
// 远端玩家按快照历史做插值或有限外推。
type PredictionEngine struct {
	world game.World
	pos   game.Vec
}

func NewPredictionEngine(world game.World) *PredictionEngine {
	return &PredictionEngine{world: world}
}

// Apply 立即应用本地输入
func (e *PredictionEngine) Apply(cmds []game.Command) game.Vec {
	e.pos = e.world.Move(e.pos, cmds)
	return e.pos
}

// Replay 以 base 为基线重放尚未确认的输入
func (e *PredictionEngine) Replay(base game.Vec, pending []PendingInput) game.Vec {
	e.pos = base
	for _, in := range pending {
		e.pos = e.world.Move(e.pos, in.Commands)
	}
	return e.pos
}

func (e *PredictionEngine) Position() game.Vec     { return e.pos }
func (e *PredictionEngine) SetPosition(p game.Vec) { e.pos = p }

// RemotePosition 计算远端玩家在 displayTime 的位置：
// 落在两帧之间时线性插值；晚于最新帧时按最后两帧速度外推（有上限）；早于最旧帧取最旧帧。
func (e *PredictionEngine) RemotePosition(history *SnapshotBuffer, publicID string, displayTime float64) (game.Vec, bool) {
	var (
		prev, next         game.Vec
		prevT, nextT       float64
		havePrev, haveNext bool
	)
	for i := 0; i < history.Len(); i++ {
		snap := history.At(i)
		ps, ok := snap.Players[publicID]
		if !ok {
			continue
		}
		if snap.T <= displayTime {
			prev, prevT, havePrev = ps.Pos, snap.T, true
			continue
		}
		next, nextT, haveNext = ps.Pos, snap.T, true
		break
	}

	switch {
	case havePrev && haveNext:
		span := nextT - prevT
		if span <= 0 {
			return next, true
		}
		return game.Lerp(prev, next, (displayTime-prevT)/span), true
	case haveNext:
		return next, true
	case havePrev:
		return e.extrapolate(history, publicID, prev, prevT, displayTime), true
	default:
		return game.Vec{}, false
	}
}

func (e *PredictionEngine) extrapolate(history *SnapshotBuffer, publicID string, last game.Vec, lastT, displayTime float64) game.Vec {
	// 找到最新帧之前的一帧估计速度
	for i := history.Len() - 1; i >= 0; i-- {
		snap := history.At(i)
		ps, ok := snap.Players[publicID]
		if !ok || snap.T >= lastT {
			continue
		}
		dt := displayTime - lastT
		if dt > maxExtrapolation {
			dt = maxExtrapolation
		}
		span := lastT - snap.T
		v := game.Vec{X: (last.X - ps.Pos.X) / span, Y: (last.Y - ps.Pos.Y) / span}
		return game.Vec{X: last.X + v.X*dt, Y: last.Y + v.Y*dt}
	}
	return last
}
