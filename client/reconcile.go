// Package client 客户端的预测镜像：本地玩家以自己的预测为准，
// 远端玩家向服务端转发的最新快照平滑靠拢。
package client

import (
	"time"

	"bouncybill/physics"
	"bouncybill/protocol"
)

// DefaultBlend 每收到一次快照，远端玩家位置向快照靠拢的比例
const DefaultBlend = 0.3

// PlayerState 客户端侧的玩家：物理状态之外还记录蓄力
type PlayerState struct {
	ID   string
	Side string
	Body physics.Body

	ChargeStart time.Time
	Charging    bool
}

// Reconcile 合并一次服务端快照。
// local 为 true 时本地预测即为真值，原样返回；否则位置按 blend 平滑，
// 速度、箭头角度与接触状态直接采用快照（由空中变为落地时执行落地动作）。
func Reconcile(current physics.Body, snap protocol.WireState, local bool, blend float64, c *physics.Constants) physics.Body {
	if local {
		return current
	}
	if !(blend > 0 && blend <= 1) {
		blend = DefaultBlend
	}
	out := current
	out.Pos.X += (snap.Position.X - current.Pos.X) * blend
	out.Pos.Y += (snap.Position.Y - current.Pos.Y) * blend
	out.Vel = snap.Velocity
	physics.Land(&out, snap.Contact(), c)
	out.ArrowAngle = snap.ArrowAngle
	physics.Sanitize(&out, current)
	return out
}
