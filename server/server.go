package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"duelsync/protocol"
)

// Server 连接接入与消息分发：每条入站消息在边界解码为带类型的 Message，
// 再投递给所属会话；不认识或无法路由的消息一律静默丢弃。
type Server struct {
	cfg      Config
	log      *zap.SugaredLogger
	ids      IDGenerator
	metrics  *Metrics
	registry *Registry
	codec    protocol.Codec
	upgrader websocket.Upgrader

	connLimits *cache.Cache // 远端 IP → *rate.Limiter，空闲后自动过期
}

// NewServer 校验配置并组装注册表与模拟器工厂
func NewServer(cfg Config, log *zap.SugaredLogger, ids IDGenerator) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	codec, err := protocol.CodecByName(cfg.Codec)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = UUIDGenerator{}
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	metrics := &Metrics{}
	simCfg := SimulatorConfig{
		World:      cfg.World,
		Interval:   cfg.TickInterval(),
		InputQueue: cfg.InputQueue,
	}
	s := &Server{
		cfg:        cfg,
		log:        log,
		ids:        ids,
		metrics:    metrics,
		codec:      codec,
		connLimits: cache.New(5*time.Minute, 10*time.Minute),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// 演示环境：允许所有来源（生产环境需严格限制）
				return true
			},
		},
	}
	s.registry = NewRegistry(RegistryOptions{
		Log:     log,
		IDs:     ids,
		Metrics: metrics,
		NewSimulator: func() *Simulator {
			return NewSimulator(simCfg, log, metrics)
		},
		TombstoneTTL: cfg.TombstoneTTL,
	})
	return s, nil
}

// Registry 会话注册表
func (s *Server) Registry() *Registry { return s.registry }

// Metrics 运行指标
func (s *Server) Metrics() *Metrics { return s.metrics }

// Connect 为新连接分配内部 id 与公开 id，告知客户端后送入匹配
func (s *Server) Connect(conn Conn) *Player {
	limiter := rate.NewLimiter(rate.Limit(s.cfg.MessagesPerSecond), s.cfg.MessageBurst)
	p := newPlayer(s.ids.NewID(), s.ids.NewID(), conn, limiter)
	conn.Emit(protocol.ConnectedEnvelope(p.ID, p.PublicID))
	p.setState(StateConnected)
	s.log.Infof("client %s connected", p.PublicID)

	s.registry.FindOrCreate(p)
	return p
}

// Disconnect 连接断开：作为生命周期事件结束其会话
func (s *Server) Disconnect(p *Player) {
	s.log.Infof("client %s disconnected", p.PublicID)
	s.registry.Leave(p)
}

// OnMessage 处理一条字符串消息
func (s *Server) OnMessage(p *Player, raw string) {
	if !p.allow() {
		s.metrics.IncRateLimited()
		return
	}
	msg, err := protocol.Parse(raw)
	if err != nil {
		s.metrics.IncMalformed()
		if !errors.Is(err, protocol.ErrUnknownMessage) {
			s.log.Debugf("drop message from %s: %v", p.PublicID, err)
		}
		return
	}

	switch m := msg.(type) {
	case protocol.Input:
		s.onInput(p, m)
	case protocol.Ping:
		// 原样回显发送时间，由客户端计算往返时延
		p.send(protocol.Pong{SentAt: m.SentAt})
	case protocol.Color:
		for _, peer := range s.registry.Peers(p) {
			peer.send(protocol.ColorRelay{Value: m.Value})
		}
	default:
		// 服务端方向的消息不应由客户端发来
		s.metrics.IncMalformed()
	}
}

func (s *Server) onInput(p *Player, m protocol.Input) {
	sess := p.Session()
	if sess == nil || s.registry.Ended(sess.ID) {
		s.metrics.IncRejected()
		return
	}
	sess.sim.HandleInput(Input{
		PlayerID:   p.ID,
		Commands:   m.Commands,
		ClientTime: m.ClientTime,
		Seq:        m.Seq,
	})
}

// Shutdown 停止所有会话
func (s *Server) Shutdown() {
	s.registry.Shutdown()
}

// allowConnect 单 IP 建连速率限制
func (s *Server) allowConnect(ip string) bool {
	if v, ok := s.connLimits.Get(ip); ok {
		return v.(*rate.Limiter).Allow()
	}
	per := time.Minute / time.Duration(s.cfg.ConnectsPerMinute)
	l := rate.NewLimiter(rate.Every(per), s.cfg.ConnectsPerMinute)
	if err := s.connLimits.Add(ip, l, cache.DefaultExpiration); err != nil {
		// 并发的首次建连：以先写入的限速器为准
		if v, ok := s.connLimits.Get(ip); ok {
			return v.(*rate.Limiter).Allow()
		}
	}
	return l.Allow()
}
