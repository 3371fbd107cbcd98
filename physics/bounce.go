package physics

import (
	"math"
	"time"
)

// ChargeRatio 蓄力比例：按住时长钳制到 [0, MaxChargeMs] 后归一化
func ChargeRatio(held time.Duration, c *Constants) float64 {
	if c.MaxChargeMs <= 0 {
		return 1
	}
	h := float64(held) / float64(time.Millisecond)
	if h <= 0 || math.IsNaN(h) {
		return 0
	}
	if h >= c.MaxChargeMs {
		return 1
	}
	return h / c.MaxChargeMs
}

// BounceStrength 在最小/最大弹跳力之间线性插值
func BounceStrength(held time.Duration, c *Constants) float64 {
	return c.MinBouncePower + ChargeRatio(held, c)*(c.MaxBouncePower-c.MinBouncePower)
}

// BounceVelocity 沿箭头方向的出射速度；偏离竖直方向超过阈值时放大竖直分量
func BounceVelocity(angle float64, held time.Duration, c *Constants) Vec {
	strength := BounceStrength(held, c)
	v := Vec{X: math.Cos(angle) * strength, Y: math.Sin(angle) * strength}
	if math.Abs(angle-StraightUp) >= c.StraightUpThreshold {
		v.Y *= c.UpwardBoost
	}
	return v
}

// Bounce 站立时释放蓄力。成功返回 true
func Bounce(b *Body, held time.Duration, c *Constants) bool {
	if !b.Contact.Supported() {
		return false
	}
	b.Vel = BounceVelocity(b.ArrowAngle, held, c)
	b.Contact = Airborne
	b.BoostsLeft = c.MaxMiniBoosts
	return true
}

// MiniBoost 空中小跳：次数有限，落地才恢复
func MiniBoost(b *Body, held time.Duration, c *Constants) bool {
	if b.Contact.Supported() || b.BoostsLeft <= 0 {
		return false
	}
	scale := 1.0
	if c.MaxBouncePower > 0 {
		scale = BounceStrength(held, c) / c.MaxBouncePower
	}
	b.Vel.Y -= c.MiniBoostPower * scale
	b.BoostsLeft--
	return true
}

// ApplyHeadBounce 踩头成功后攻击方的反弹。冷却期内重复通知不生效。
func ApplyHeadBounce(b *Body, now time.Time, c *Constants) bool {
	if now.Before(b.HeadBounceNext) {
		return false
	}
	b.HeadBounceNext = now.Add(ms(c.HeadBounceCooldownMs))
	b.UpCapUntil = now.Add(ms(c.HeadBounceCapMs))
	b.Vel.Y -= c.HeadBounceBoost
	if b.Vel.Y < -c.HeadBounceMaxUp {
		b.Vel.Y = -c.HeadBounceMaxUp
	}
	b.Contact = Airborne
	return true
}
