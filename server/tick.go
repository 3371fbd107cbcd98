package server

import (
	"context"
	"time"
)

// DefaultTickHz 调度频率（约 60 TPS）
const DefaultTickHz = 60

// Scheduler 全局唯一的定时任务：每 Tick 遍历所有房间，推进倒计时、踩头检测与比赛计时。
// 物理积分本身由 stateUpdate 事件驱动，不在这里进行。
type Scheduler struct {
	Registry *Registry
	Metrics  *Metrics
	Interval time.Duration
	Now      func() time.Time
}

func NewScheduler(reg *Registry, m *Metrics, hz int) *Scheduler {
	if hz <= 0 {
		hz = DefaultTickHz
	}
	return &Scheduler{
		Registry: reg,
		Metrics:  m,
		Interval: time.Second / time.Duration(hz),
		Now:      time.Now,
	}
}

// Run 阻塞直到 ctx 取消
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.TickOnce()
		}
	}
}

// TickOnce 执行一次遍历
func (s *Scheduler) TickOnce() {
	start := time.Now()
	now := s.Now()
	for _, r := range s.Registry.Rooms() {
		r.Tick(now)
	}
	if s.Metrics != nil {
		s.Metrics.AddTick(time.Since(start).Nanoseconds())
	}
}
