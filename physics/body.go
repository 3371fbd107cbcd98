package physics

import (
	"math"
	"time"
)

// Vec 二维向量，JSON 形如 {"x":1,"y":2}
type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Contact 玩家与支撑面的接触状态
type Contact uint8

const (
	Airborne Contact = iota
	Grounded
	OnPlatform
)

func (c Contact) String() string {
	switch c {
	case Grounded:
		return "grounded"
	case OnPlatform:
		return "onPlatform"
	default:
		return "airborne"
	}
}

// Supported 是否站在地面或平台上
func (c Contact) Supported() bool { return c != Airborne }

// OscillationMode 箭头摆动模式：静置时窄幅，蓄力时宽幅
type OscillationMode uint8

const (
	Dormant OscillationMode = iota
	Active
)

// Body 单个玩家的物理状态，Pos 为胶囊体中心
type Body struct {
	Pos        Vec
	Vel        Vec
	Contact    Contact
	ArrowAngle float64

	Phase    float64 // [0,1] 在摆动区间内的位置
	PhaseDir float64 // +1 / -1
	Mode     OscillationMode

	BoostsLeft int

	FrozenUntil    time.Time // 被踩头后暂停摆动
	HeadBounceNext time.Time // 反弹加速的冷却截止
	UpCapUntil     time.Time // 上升速度封顶的宽限期
}

// Spawn 返回某一侧的初始状态：站在地面上、箭头竖直向上
func Spawn(x float64, c *Constants) Body {
	return Body{
		Pos:        Vec{X: x, Y: GroundY - BodyHeight/2},
		Contact:    Grounded,
		ArrowAngle: StraightUp,
		Phase:      0.5,
		PhaseDir:   1,
		BoostsLeft: c.MaxMiniBoosts,
	}
}

// Rect 轴对齐包围盒
type Rect struct {
	Left, Top, Right, Bottom float64
}

// Hitbox 玩家的包围盒
func Hitbox(b *Body) Rect {
	return Rect{
		Left:   b.Pos.X - BodyWidth/2,
		Right:  b.Pos.X + BodyWidth/2,
		Top:    b.Pos.Y - BodyHeight/2,
		Bottom: b.Pos.Y + BodyHeight/2,
	}
}

// OverlapX 两个包围盒在水平方向是否重叠（贴边算重叠）
func OverlapX(a, b Rect) bool {
	return !(a.Right < b.Left || a.Left > b.Right)
}

// HeadGap 上方玩家底边与下方玩家顶边的竖直距离
func HeadGap(upper, lower Rect) float64 {
	return upper.Bottom - lower.Top
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Valid 所有数值字段均为有限值
func (b *Body) Valid() bool {
	return finite(b.Pos.X) && finite(b.Pos.Y) &&
		finite(b.Vel.X) && finite(b.Vel.Y) && finite(b.ArrowAngle)
}

// Sanitize 若状态中出现 NaN/Inf，则回退到 safe 的位置并清零速度。返回是否发生了回退。
func Sanitize(b *Body, safe Body) bool {
	if b.Valid() {
		return false
	}
	b.Pos = safe.Pos
	b.Vel = Vec{}
	if !finite(b.ArrowAngle) {
		b.ArrowAngle = safe.ArrowAngle
	}
	if !b.Valid() {
		// safe 本身也坏了：回到竞技场中央地面
		b.Pos = Vec{X: ArenaWidth / 2, Y: GroundY - BodyHeight/2}
		b.ArrowAngle = StraightUp
		b.Contact = Grounded
	}
	return true
}
