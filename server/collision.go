package server

import (
	"time"

	"bouncybill/physics"
)

// Contender 参与踩头判定的一方
type Contender struct {
	ID  string
	Box physics.Rect
}

// HeadBounceEvent 一次得分接触
type HeadBounceEvent struct {
	AttackerID string
	TargetID   string
}

// HeadContactDetector 每 Tick 检测两名玩家的踩头接触。
// 接触是边沿触发的：同一对 攻击方→目标 只在由无接触变为接触时触发一次；
// 攻击方另有独立冷却，冷却中的新接触仍会被标记但不得分。
type HeadContactDetector struct {
	Cooldown  time.Duration
	Threshold float64

	readyAt  map[string]time.Time
	contacts map[string]map[string]bool
}

func NewHeadContactDetector(cooldown time.Duration, threshold float64) *HeadContactDetector {
	return &HeadContactDetector{
		Cooldown:  cooldown,
		Threshold: threshold,
		readyAt:   make(map[string]time.Time),
		contacts:  make(map[string]map[string]bool),
	}
}

func (d *HeadContactDetector) contactSet(id string) map[string]bool {
	s, ok := d.contacts[id]
	if !ok {
		s = make(map[string]bool)
		d.contacts[id] = s
	}
	return s
}

// InContact 攻击方当前是否被记为与目标接触
func (d *HeadContactDetector) InContact(attacker, target string) bool {
	return d.contacts[attacker][target]
}

// Check 返回本 Tick 是否产生得分事件
func (d *HeadContactDetector) Check(a, b Contender, now time.Time) (HeadBounceEvent, bool) {
	if !physics.OverlapX(a.Box, b.Box) {
		delete(d.contacts[a.ID], b.ID)
		delete(d.contacts[b.ID], a.ID)
		return HeadBounceEvent{}, false
	}

	// y 越小越靠上
	upper, lower := b, a
	if a.Box.Top < b.Box.Top {
		upper, lower = a, b
	}
	upperSet := d.contactSet(upper.ID)
	lowerSet := d.contactSet(lower.ID)

	gap := physics.HeadGap(upper.Box, lower.Box)
	if gap < 0 || gap >= d.Threshold {
		if upperSet[lower.ID] {
			delete(upperSet, lower.ID)
			delete(lowerSet, upper.ID)
		}
		return HeadBounceEvent{}, false
	}
	if upperSet[lower.ID] {
		return HeadBounceEvent{}, false
	}
	upperSet[lower.ID] = true
	lowerSet[upper.ID] = true

	if now.Before(d.readyAt[upper.ID]) {
		return HeadBounceEvent{}, false
	}
	d.readyAt[upper.ID] = now.Add(d.Cooldown)
	return HeadBounceEvent{AttackerID: upper.ID, TargetID: lower.ID}, true
}

// Forget 移除离开的玩家
func (d *HeadContactDetector) Forget(id string) {
	delete(d.readyAt, id)
	delete(d.contacts, id)
	for _, s := range d.contacts {
		delete(s, id)
	}
}

// Reset 清空所有接触与冷却（再来一局）
func (d *HeadContactDetector) Reset() {
	d.readyAt = make(map[string]time.Time)
	d.contacts = make(map[string]map[string]bool)
}
