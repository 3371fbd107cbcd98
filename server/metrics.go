package server

import (
	"sync/atomic"
)

// Metrics 记录服务运行期的关键指标（用于监控与调试）
type Metrics struct {
	RoomsCreated   int64
	RoomsClosed    int64
	Joins          int64
	JoinErrors     int64
	ProtocolDrops  int64 // 无法解析或未知类型的消息
	SendQueueDrops int64 // 因发送队列满被丢弃的帧
	HeadBounces    int64
	MatchesEnded   int64
	TickCount      int64
	TotalTickNs    int64
}

func (m *Metrics) IncRoomsCreated()   { atomic.AddInt64(&m.RoomsCreated, 1) }
func (m *Metrics) IncRoomsClosed()    { atomic.AddInt64(&m.RoomsClosed, 1) }
func (m *Metrics) IncJoins()          { atomic.AddInt64(&m.Joins, 1) }
func (m *Metrics) IncJoinErrors()     { atomic.AddInt64(&m.JoinErrors, 1) }
func (m *Metrics) IncProtocolDrops()  { atomic.AddInt64(&m.ProtocolDrops, 1) }
func (m *Metrics) IncSendQueueDrops() { atomic.AddInt64(&m.SendQueueDrops, 1) }
func (m *Metrics) IncHeadBounces()    { atomic.AddInt64(&m.HeadBounces, 1) }
func (m *Metrics) IncMatchesEnded()   { atomic.AddInt64(&m.MatchesEnded, 1) }
func (m *Metrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *Metrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"rooms_created":    atomic.LoadInt64(&m.RoomsCreated),
		"rooms_closed":     atomic.LoadInt64(&m.RoomsClosed),
		"joins":            atomic.LoadInt64(&m.Joins),
		"join_errors":      atomic.LoadInt64(&m.JoinErrors),
		"protocol_drops":   atomic.LoadInt64(&m.ProtocolDrops),
		"send_queue_drops": atomic.LoadInt64(&m.SendQueueDrops),
		"head_bounces":     atomic.LoadInt64(&m.HeadBounces),
		"matches_ended":    atomic.LoadInt64(&m.MatchesEnded),
		"tick_count":       tick,
		"avg_tick_ms":      avgMs,
	}
}
