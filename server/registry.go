package server

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// SimulatorFactory 为新会话创建模拟器
type SimulatorFactory func() *Simulator

// Registry 持有所有存活会话，负责匹配与创建。
// 所有变更（加入/创建/结束）在同一把锁内串行，避免并发加入超过容量。
type Registry struct {
	log      *zap.SugaredLogger
	ids      IDGenerator
	metrics  *Metrics
	newSim   SimulatorFactory
	capacity int
	ended    *cache.Cache // 已结束会话 id 的墓碑
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
	order    []*Session // 稳定的扫描顺序（创建顺序）
}

// RegistryOptions Registry 的依赖
type RegistryOptions struct {
	Log          *zap.SugaredLogger
	IDs          IDGenerator
	Metrics      *Metrics
	NewSimulator SimulatorFactory
	TombstoneTTL time.Duration
}

// NewRegistry 创建空的会话注册表
func NewRegistry(opts RegistryOptions) *Registry {
	if opts.Metrics == nil {
		opts.Metrics = &Metrics{}
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop().Sugar()
	}
	if opts.TombstoneTTL <= 0 {
		opts.TombstoneTTL = time.Minute
	}
	return &Registry{
		log:      opts.Log,
		ids:      opts.IDs,
		metrics:  opts.Metrics,
		newSim:   opts.NewSimulator,
		capacity: SessionCapacity,
		ended:    cache.New(opts.TombstoneTTL, 2*opts.TombstoneTTL),
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// FindOrCreate 把玩家放入第一个未满的等待中会话；没有则以该玩家为房主新建一局
func (r *Registry) FindOrCreate(p *Player) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findOrCreateLocked(p)
}

func (r *Registry) findOrCreateLocked(p *Player) *Session {
	r.log.Debugf("looking for a game. We have : %d", len(r.sessions))
	for _, s := range r.order {
		if s.state != SessionWaiting || s.PlayerCount() >= r.capacity {
			continue
		}
		s.guests = append(s.guests, p)
		p.role = RoleGuest
		p.hosting = false
		p.bind(s)
		s.sim.AddPlayer(p)
		r.log.Infof("player %s joining game %s (%d/%d)", p.PublicID, s.ID, s.PlayerCount(), r.capacity)
		if s.PlayerCount() == r.capacity {
			r.activateLocked(s)
		}
		return s
	}
	return r.createLocked(p)
}

func (r *Registry) createLocked(p *Player) *Session {
	s := &Session{
		ID:        r.ids.NewID(),
		CreatedAt: r.now(),
		host:      p,
		state:     SessionWaiting,
		sim:       r.newSim(),
	}
	r.sessions[s.ID] = s
	r.order = append(r.order, s)
	r.metrics.IncSessionsCreated()

	s.sim.AddPlayer(p)
	s.sim.Start()

	p.role = RoleHost
	p.hosting = true
	p.bind(s)
	hostTime := s.sim.LocalTime()
	p.send(hostingMessage(hostTime))
	r.log.Infof("player %s created a game with id %s at %.3f", p.PublicID, s.ID, hostTime)
	return s
}

// End 结束会话；leavingID 为离开玩家的内部 id。未知或已结束的 id 为空操作。
func (r *Registry) End(sessionID, leavingID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		if _, gone := r.ended.Get(sessionID); gone {
			r.log.Debugf("game %s already ended", sessionID)
		} else {
			r.log.Warnf("that game was not found: %s", sessionID)
		}
		return false
	}
	r.endLocked(s, leavingID)
	return true
}

// Leave 玩家断开：若其在某局中则结束该局
func (r *Registry) Leave(p *Player) {
	p.setState(StateNotConnected)
	r.mu.Lock()
	defer r.mu.Unlock()
	s := p.Session()
	if s == nil || s.state == SessionEnded {
		return
	}
	r.endLocked(s, p.ID)
}

func (r *Registry) removeLocked(s *Session) {
	delete(r.sessions, s.ID)
	for i, o := range r.order {
		if o == s {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.ended.SetDefault(s.ID, struct{}{})
	r.metrics.IncSessionsEnded()
}

// Ended 会话 id 是否已结束（墓碑仍在有效期内）
func (r *Registry) Ended(sessionID string) bool {
	_, ok := r.ended.Get(sessionID)
	return ok
}

// Lookup 按 id 查找存活会话
func (r *Registry) Lookup(sessionID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	return s, ok
}

// Count 存活会话数
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sessions 按扫描顺序返回所有会话的只读视图
func (r *Registry) Sessions() []SessionInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]SessionInfo, 0, len(r.order))
	for _, s := range r.order {
		out = append(out, s.info())
	}
	return out
}

// Peers 同局的其他参与者
func (r *Registry) Peers(p *Player) []*Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := p.Session()
	if s == nil || s.state == SessionEnded {
		return nil
	}
	var out []*Player
	for _, m := range s.members() {
		if m != p {
			out = append(out, m)
		}
	}
	return out
}

// Shutdown 停止所有会话的 Tick 并清空注册表（进程退出时调用）
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.order {
		s.sim.Stop()
		s.state = SessionEnded
		for _, m := range s.members() {
			m.bind(nil)
		}
	}
	r.sessions = make(map[string]*Session)
	r.order = nil
}
