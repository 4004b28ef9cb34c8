package server

import "time"

// Start 启动本局的 Tick 循环（单协程推进世界）；重复调用或停止后调用无效
func (s *Simulator) Start() {
	if !s.state.CompareAndSwap(int32(simUninitialized), int32(simTicking)) {
		return
	}
	go s.run()
}

func (s *Simulator) run() {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			s.step()
			s.metrics.AddTick(time.Since(start).Nanoseconds())
		}
	}
}

// Stop 取消 Tick 并等待循环退出，保证会话丢弃后不再有 Tick 改动状态。
// 不能在 Tick 协程内部调用。
func (s *Simulator) Stop() {
	prev := simState(s.state.Swap(int32(simStopped)))
	s.cancel()
	if prev == simTicking {
		<-s.done
		s.log.Debugf("simulation stopped at %.3f", s.LocalTime())
	}
}

// Stopped 是否已停止
func (s *Simulator) Stopped() bool {
	return simState(s.state.Load()) == simStopped
}
