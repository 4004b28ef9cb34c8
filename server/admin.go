package server

import (
	"encoding/json"
	"net/http"
)

// Handler 组装 HTTP 路由：/ws 接入，其余为监控与管理接口
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.HandleWS)
	mux.HandleFunc("/admin/sessions", s.HandleSessions)
	mux.HandleFunc("/metrics", s.HandleMetrics)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// HandleSessions 列出存活会话
// GET /admin/sessions
func (s *Server) HandleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]any{
		"count":    s.registry.Count(),
		"sessions": s.registry.Sessions(),
		"world":    s.cfg.World,
		"tickRate": s.cfg.TickRate,
	})
}

// HandleMetrics 输出运行指标
// GET /metrics
func (s *Server) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{
		"active_sessions": s.registry.Count(),
		"metrics":         s.metrics.Snapshot(),
	}
	writeJSON(w, payload)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
