package physics

import "time"

func (c *Constants) rangeFor(m OscillationMode) Range {
	if m == Active {
		return c.Active
	}
	return c.Dormant
}

// Oscillate 推进箭头摆动：相位在 [0,1] 内往返，触边反射
// 被冻结期间角度保持不变
func Oscillate(b *Body, charging bool, dt float64, now time.Time, c *Constants) {
	if !b.Contact.Supported() || now.Before(b.FrozenUntil) {
		return
	}
	b.Mode = Dormant
	if charging {
		b.Mode = Active
	}
	if b.PhaseDir == 0 {
		b.PhaseDir = 1
	}
	r := c.rangeFor(b.Mode)
	b.Phase += b.PhaseDir * r.Speed * dt
	// 相位可能越过多个边界
	for b.Phase > 1 || b.Phase < 0 {
		if b.Phase > 1 {
			b.Phase = 2 - b.Phase
			b.PhaseDir = -1
		} else {
			b.Phase = -b.Phase
			b.PhaseDir = 1
		}
	}
	b.ArrowAngle = AngleAt(b.Phase, r)
}

// AngleAt 相位对应的箭头角度（画布坐标，竖直向上为 -π/2）
func AngleAt(phase float64, r Range) float64 {
	return -(r.Min + phase*(r.Max-r.Min))
}

// resetAim 落地时：箭头回正，摆动方向取落地前的水平速度方向
func resetAim(b *Body, vxBefore float64) {
	b.Phase = 0.5
	b.ArrowAngle = StraightUp
	b.Mode = Dormant
	// 相位增大时箭头偏向左侧，所以向右运动时先向右摆
	if vxBefore > 0 {
		b.PhaseDir = -1
	} else {
		b.PhaseDir = 1
	}
}

// Freeze 暂停摆动一段时间（被踩头的一方）
func Freeze(b *Body, now time.Time, c *Constants) {
	b.FrozenUntil = now.Add(ms(c.FreezeMs))
}
