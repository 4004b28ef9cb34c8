package server

import "duelsync/protocol"

func hostingMessage(t float64) protocol.Message {
	return protocol.Hosting{StartTime: t}
}

// activateLocked 人数达到容量时开局。顺序固定：
// 房主已通过 s.h 得知自己在主持；先告知客人房主身份，再向每个客人发送完整名单，
// 最后告知房主客人名单，保证物理开始前各端对玩家集合达成一致。
func (r *Registry) activateLocked(s *Session) {
	s.host.hosting = true
	for _, g := range s.guests {
		g.send(protocol.Joined{HostID: s.host.PublicID})
	}

	t := s.sim.LocalTime()
	all := s.members()
	for _, g := range s.guests {
		others := make([]string, 0, len(all)-1)
		for _, m := range all {
			if m != g {
				others = append(others, m.PublicID)
			}
		}
		g.Conn.Emit(protocol.GameReadyEnvelope(others, t))
	}
	guestIDs := make([]string, 0, len(s.guests))
	for _, g := range s.guests {
		guestIDs = append(guestIDs, g.PublicID)
	}
	s.host.Conn.Emit(protocol.GameReadyEnvelope(guestIDs, t))

	s.state = SessionActive
	s.sim.ResetPositions()
	r.log.Infof("game %s started with %d players at %.3f", s.ID, s.PlayerCount(), t)
}

// endLocked 结束会话：先停止 Tick，再从注册表移除，最后把幸存者重新送回匹配。
// 未满员的会话直接移除；满员时房主离开则通知并重排所有客人，客人离开则通知并重排房主。
func (r *Registry) endLocked(s *Session, leavingID string) {
	s.sim.Stop()
	full := s.PlayerCount() >= r.capacity
	members := s.members()
	host := s.host

	s.state = SessionEnded
	r.removeLocked(s)
	for _, m := range members {
		m.bind(nil)
		m.role = RoleNone
		m.hosting = false
	}
	r.log.Infof("game %s removed. there are now %d games", s.ID, len(r.sessions))

	if !full {
		return
	}
	var survivors []*Player
	if host != nil && host.ID == leavingID {
		survivors = append(survivors, s.guests...)
	} else if host != nil {
		survivors = append(survivors, host)
	}
	for _, p := range survivors {
		if p.ID == leavingID {
			continue
		}
		p.send(protocol.Ended{})
		if !p.connected() {
			continue
		}
		p.requeued = true
		r.findOrCreateLocked(p)
	}
}
