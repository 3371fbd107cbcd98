package server

import (
	"encoding/json"
	"net/http"
	"time"

	"bouncybill/physics"
)

// Admin 管理与监控接口
type Admin struct {
	Registry *Registry
	Metrics  *Metrics
	// Check 校验提交的物理参数，可为 nil
	Check func(physics.Constants) error
}

type adminConfig struct {
	Constants       *physics.Constants `json:"constants,omitempty"`
	MatchDurationMs *int64             `json:"matchDurationMs,omitempty"`
	StartDelayMs    *int64             `json:"startDelayMs,omitempty"`
}

// HandleConfig 新房间参数的读取与更新（热更新只影响之后创建的房间）
// GET /admin/config   返回当前配置
// POST /admin/config  以 JSON 载荷更新部分字段
func (a *Admin) HandleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		d := a.Registry.Defaults()
		md, sd := d.MatchDuration.Milliseconds(), d.StartDelay.Milliseconds()
		writeJSON(w, http.StatusOK, adminConfig{Constants: &d.Constants, MatchDurationMs: &md, StartDelayMs: &sd})
	case http.MethodPost:
		d := a.Registry.Defaults()
		// 物理参数在当前值的副本上解码，未提交的字段保持不变
		cur := d.Constants
		body := adminConfig{Constants: &cur}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if body.Constants != nil {
			if a.Check != nil {
				if err := a.Check(*body.Constants); err != nil {
					http.Error(w, err.Error(), http.StatusBadRequest)
					return
				}
			}
			d.Constants = *body.Constants
		}
		if body.MatchDurationMs != nil {
			if *body.MatchDurationMs < DefaultMatchMs {
				http.Error(w, "matchDurationMs must be >= 60000", http.StatusBadRequest)
				return
			}
			d.MatchDuration = time.Duration(*body.MatchDurationMs) * time.Millisecond
		}
		if body.StartDelayMs != nil {
			if *body.StartDelayMs < 0 {
				http.Error(w, "startDelayMs must be >= 0", http.StatusBadRequest)
				return
			}
			d.StartDelay = time.Duration(*body.StartDelayMs) * time.Millisecond
		}
		a.Registry.SetDefaults(d)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		Log.Infof("config updated: match=%s startDelay=%s gravity=%.2f", d.MatchDuration, d.StartDelay, d.Constants.Gravity)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleRooms 列出所有房间
// GET /admin/rooms
func (a *Admin) HandleRooms(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, a.Registry.ListRooms())
}

// HandleMetrics 输出运行指标
// GET /metrics
func (a *Admin) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"rooms":   a.Registry.Len(),
		"metrics": a.Metrics.Snapshot(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
