package physics

import (
	"math"
	"time"
)

// Input 单帧输入意图
type Input struct {
	Move     int  // -1 左，0 无，1 右
	Charging bool // 正在按住蓄力
}

// Surfaces 静态平台的顶面查询（自定义关卡方块）
type Surfaces interface {
	// SupportTop 水平范围 [left,right] 内，脚底从 prevBottom 移动到 bottom 时
	// 越过的最高平台顶面
	SupportTop(left, right, prevBottom, bottom float64) (float64, bool)
}

// Step 推进一个玩家一帧。dt 以参考帧为单位（1.0 ≈ 16.67ms），s 可为 nil（只有地面）
func Step(b *Body, in Input, dt float64, now time.Time, c *Constants, s Surfaces) {
	if dt < 0 || math.IsNaN(dt) {
		dt = 0
	}
	if dt > c.MaxDelta {
		dt = c.MaxDelta
	}
	safe := *b

	Oscillate(b, in.Charging, dt, now, c)

	if in.Move > 0 {
		b.Vel.X = c.MoveSpeed
	} else if in.Move < 0 {
		b.Vel.X = -c.MoveSpeed
	}

	if b.Contact.Supported() {
		b.Vel.Y = 0
	} else {
		b.Vel.Y += c.Gravity * dt
	}
	if now.Before(b.UpCapUntil) && b.Vel.Y < -c.HeadBounceMaxUp {
		b.Vel.Y = -c.HeadBounceMaxUp
	}

	vxBefore := b.Vel.X
	prevBottom := b.Pos.Y + BodyHeight/2
	b.Pos.X += b.Vel.X * dt
	b.Pos.Y += b.Vel.Y * dt

	resolveSupport(b, prevBottom, vxBefore, s, c)

	if b.Contact.Supported() && in.Move == 0 {
		b.Vel.X *= c.Friction
		if math.Abs(b.Vel.X) < c.StopEpsilon {
			b.Vel.X = 0
		}
	}

	ClampWalls(b, c)
	Sanitize(b, safe)
}

// resolveSupport 地面/平台判定，驱动 Airborne / Grounded / OnPlatform 状态机
func resolveSupport(b *Body, prevBottom, vxBefore float64, s Surfaces, c *Constants) {
	bottom := b.Pos.Y + BodyHeight/2
	next := Airborne
	top := 0.0
	if bottom >= GroundY {
		next, top = Grounded, GroundY
	}
	if s != nil && b.Vel.Y >= 0 {
		box := Hitbox(b)
		if t, ok := s.SupportTop(box.Left, box.Right, prevBottom, bottom); ok && (next == Airborne || t < top) {
			next, top = OnPlatform, t
		}
	}
	if next == Airborne {
		b.Contact = Airborne
		return
	}
	b.Pos.Y = top - BodyHeight/2
	b.Vel.Y = 0
	if b.Contact == Airborne {
		land(b, vxBefore, c)
	}
	b.Contact = next
}

// land 进入支撑状态的入口动作
func land(b *Body, vxBefore float64, c *Constants) {
	b.BoostsLeft = c.MaxMiniBoosts
	resetAim(b, vxBefore)
}

// Land 直接把玩家置为落地（对端快照报告落地时使用）
func Land(b *Body, contact Contact, c *Constants) {
	if !contact.Supported() {
		b.Contact = Airborne
		return
	}
	if b.Contact == Airborne {
		land(b, b.Vel.X, c)
	}
	b.Contact = contact
}

// ClampWalls 左右墙：钳制位置并以衰减系数反弹水平速度
func ClampWalls(b *Body, c *Constants) {
	if b.Pos.X-BodyWidth/2 < 0 {
		b.Pos.X = BodyWidth / 2
		b.Vel.X *= -c.WallRestitution
	} else if b.Pos.X+BodyWidth/2 > ArenaWidth {
		b.Pos.X = ArenaWidth - BodyWidth/2
		b.Vel.X *= -c.WallRestitution
	}
}

// Separate 两个玩家中心距离小于最小间距时，按重叠量各推开一半；
// 若沿分离轴相互靠近，再施加一次弹性冲量
func Separate(a, b *Body, c *Constants) {
	dx := b.Pos.X - a.Pos.X
	dy := b.Pos.Y - a.Pos.Y
	dist := math.Hypot(dx, dy)
	if dist >= c.SeparationDistance || dist == 0 {
		return
	}
	nx, ny := dx/dist, dy/dist
	overlap := c.SeparationDistance - dist
	sx, sy := nx*overlap*0.5, ny*overlap*0.5
	a.Pos.X -= sx
	a.Pos.Y -= sy
	b.Pos.X += sx
	b.Pos.Y += sy

	closing := (b.Vel.X-a.Vel.X)*nx + (b.Vel.Y-a.Vel.Y)*ny
	if closing < 0 {
		impulse := closing * c.SeparationResponse
		a.Vel.X += nx * impulse
		a.Vel.Y += ny * impulse
		b.Vel.X -= nx * impulse
		b.Vel.Y -= ny * impulse
	}
}
