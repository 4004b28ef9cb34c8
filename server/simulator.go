package server

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"duelsync/game"
	"duelsync/protocol"
)

// body 玩家在模拟器中的权威状态
type body struct {
	player  *Player
	pos     game.Vec
	lastSeq uint32 // 最后一次应用的输入序列号（不是缓冲区下标）

	// 重新匹配进来的玩家：上一局在途的输入可能晚于 s.e 到达，
	// 在客户端序列号回到 1（或回落到已见过的旧值以下）之前一律丢弃
	awaitRestart bool
	staleSeq     uint32
}

type simState int32

const (
	simUninitialized simState = iota
	simTicking
	simStopped
)

// SimulatorConfig 模拟器参数
type SimulatorConfig struct {
	World      game.World
	Interval   time.Duration
	InputQueue int
	Clock      *Clock // 为 nil 时使用系统时钟
}

// Simulator 单局权威模拟：持有规范世界状态，按固定 Tick 应用输入并广播快照。
// 状态只被本局 Tick 与本局成员的输入触达，不存在跨会话竞争。
type Simulator struct {
	log      *zap.SugaredLogger
	metrics  *Metrics
	world    game.World
	clock    *Clock
	interval time.Duration

	mu     sync.Mutex
	bodies map[string]*body // 内部 id → 状态
	order  []*body          // 加入顺序即开局布局的 slot

	inputs chan Input
	state  atomic.Int32
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSimulator 创建处于未初始化状态的模拟器，调用 Start 后开始 Tick
func NewSimulator(cfg SimulatorConfig, log *zap.SugaredLogger, metrics *Metrics) *Simulator {
	if cfg.Clock == nil {
		cfg.Clock = NewClock(nil)
	}
	if metrics == nil {
		metrics = &Metrics{}
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Simulator{
		log:      log,
		metrics:  metrics,
		world:    cfg.World,
		clock:    cfg.Clock,
		interval: cfg.Interval,
		bodies:   make(map[string]*body),
		inputs:   make(chan Input, cfg.InputQueue), // 足够缓冲，避免网络读阻塞影响 Tick
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// LocalTime 会话本地时间（秒）
func (s *Simulator) LocalTime() float64 {
	return s.clock.Elapsed()
}

// AddPlayer 将玩家加入模拟，初始位置按加入顺序布局
func (s *Simulator) AddPlayer(p *Player) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bodies[p.ID]; ok {
		return
	}
	b := &body{player: p, pos: s.world.StartPosition(len(s.order)), awaitRestart: p.requeued}
	s.bodies[p.ID] = b
	s.order = append(s.order, b)
}

// ResetPositions 所有玩家回到开局布局
func (s *Simulator) ResetPositions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, b := range s.order {
		b.pos = s.world.StartPosition(i)
	}
}

// HasPlayer 判断内部 id 是否属于本局
func (s *Simulator) HasPlayer(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.bodies[id]
	return ok
}

// Position 返回玩家的规范位置与最后处理的序列号
func (s *Simulator) Position(id string) (game.Vec, uint32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bodies[id]
	if !ok {
		return game.Vec{}, 0, false
	}
	return b.pos, b.lastSeq, true
}

// HandleInput 入站输入（不立即改变位置），下一次 Tick 按接收顺序应用。
// 只接受本局成员的输入；非成员或已停止的模拟直接忽略。
func (s *Simulator) HandleInput(in Input) bool {
	if simState(s.state.Load()) == simStopped || !s.HasPlayer(in.PlayerID) {
		s.metrics.IncRejected()
		return false
	}
	// 不阻塞：输入拥塞时丢弃，保证 Tick 准时
	select {
	case s.inputs <- in:
		return true
	default:
		s.metrics.IncChanFullDiscarded()
		return false
	}
}

// processInputsLocked 处理当前帧的所有输入（非阻塞 drain）
func (s *Simulator) processInputsLocked() {
	for {
		select {
		case in := <-s.inputs:
			s.applyInputLocked(in)
		default:
			return
		}
	}
}

func (s *Simulator) applyInputLocked(in Input) {
	b, ok := s.bodies[in.PlayerID]
	if !ok {
		s.metrics.IncRejected()
		return
	}
	if b.awaitRestart {
		if in.Seq != 1 && in.Seq > b.staleSeq {
			b.staleSeq = in.Seq
			s.metrics.IncOldSeqIgnored()
			return
		}
		b.awaitRestart = false
	}
	if in.Seq <= b.lastSeq {
		s.metrics.IncOldSeqIgnored()
		return
	}
	b.pos = s.world.Move(b.pos, in.Commands)
	b.lastSeq = in.Seq
	s.metrics.IncAccepted()
}

// Snapshot 当前权威状态，按 publicid 索引
func (s *Simulator) Snapshot() protocol.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, _ := s.snapshotLocked()
	return snap
}

func (s *Simulator) snapshotLocked() (protocol.Snapshot, []*Player) {
	snap := protocol.Snapshot{
		T:       s.clock.Elapsed(),
		Players: make(map[string]protocol.PlayerSnapshot, len(s.order)),
	}
	players := make([]*Player, 0, len(s.order))
	for _, b := range s.order {
		snap.Players[b.player.PublicID] = protocol.PlayerSnapshot{Pos: b.pos, LastInputSeq: b.lastSeq}
		players = append(players, b.player)
	}
	return snap, players
}

// step 一次 Tick：应用输入 → 生成快照 → 推送给在线成员
func (s *Simulator) step() {
	s.mu.Lock()
	s.processInputsLocked()
	snap, players := s.snapshotLocked()
	s.mu.Unlock()

	env := protocol.SnapshotEnvelope(snap)
	sent := 0
	for _, p := range players {
		if p.connected() {
			p.Conn.Emit(env)
			sent++
		}
	}
	s.metrics.AddSnapshots(sent)
}
