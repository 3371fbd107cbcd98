package physics

import (
	"math"
	"time"
)

// 竞技场几何（画布坐标系：x 向右，y 向下）
const (
	ArenaWidth  = 800.0
	ArenaHeight = 600.0
	GroundY     = 550.0

	BodyWidth  = 40.0
	BodyHeight = 50.0

	LeftSpawnX  = 150.0
	RightSpawnX = 650.0

	// StraightUp 箭头竖直向上时的角度（y 轴向下，所以为负）
	StraightUp = -math.Pi / 2
)

// Constants 物理参数集合：客户端预测与服务端权威使用同一份
// 可由 TOML 文件或 /admin/config 覆盖
type Constants struct {
	Gravity         float64 `toml:"gravity" json:"gravity"`
	MoveSpeed       float64 `toml:"move_speed" json:"moveSpeed"`
	Friction        float64 `toml:"friction" json:"friction"`
	StopEpsilon     float64 `toml:"stop_epsilon" json:"stopEpsilon"`
	WallRestitution float64 `toml:"wall_restitution" json:"wallRestitution"`
	MaxDelta        float64 `toml:"max_delta" json:"maxDelta"`
	FrameMs         float64 `toml:"frame_ms" json:"frameMs"`

	MinBouncePower      float64 `toml:"min_bounce_power" json:"minBouncePower"`
	MaxBouncePower      float64 `toml:"max_bounce_power" json:"maxBouncePower"`
	MaxChargeMs         float64 `toml:"max_charge_ms" json:"maxChargeMs"`
	UpwardBoost         float64 `toml:"upward_boost" json:"upwardBoost"`
	StraightUpThreshold float64 `toml:"straight_up_threshold" json:"straightUpThreshold"` // 弧度

	MiniBoostPower float64 `toml:"mini_boost_power" json:"miniBoostPower"`
	MaxMiniBoosts  int     `toml:"max_mini_boosts" json:"maxMiniBoosts"`

	HeadBounceBoost      float64 `toml:"head_bounce_boost" json:"headBounceBoost"`
	HeadBounceCooldownMs float64 `toml:"head_bounce_cooldown_ms" json:"headBounceCooldownMs"`
	HeadBounceMaxUp      float64 `toml:"head_bounce_max_up" json:"headBounceMaxUp"`
	HeadBounceCapMs      float64 `toml:"head_bounce_cap_ms" json:"headBounceCapMs"`
	FreezeMs             float64 `toml:"freeze_ms" json:"freezeMs"`
	HeadContactGap       float64 `toml:"head_contact_gap" json:"headContactGap"`

	Dormant Range `toml:"dormant" json:"dormant"`
	Active  Range `toml:"active" json:"active"`

	SeparationDistance float64 `toml:"separation_distance" json:"separationDistance"`
	SeparationResponse float64 `toml:"separation_response" json:"separationResponse"`
}

// Range 箭头摆动区间（相对水平向右的角度，弧度），Speed 为每帧相位增量
type Range struct {
	Min   float64 `toml:"min" json:"min"`
	Max   float64 `toml:"max" json:"max"`
	Speed float64 `toml:"speed" json:"speed"`
}

// Default 返回默认参数
func Default() Constants {
	return Constants{
		Gravity:         0.5,
		MoveSpeed:       3,
		Friction:        0.95,
		StopEpsilon:     0.1,
		WallRestitution: 0.5,
		MaxDelta:        2,
		FrameMs:         16.67,

		MinBouncePower:      7.2,
		MaxBouncePower:      14.4,
		MaxChargeMs:         1000,
		UpwardBoost:         1.5,
		StraightUpThreshold: 20 * math.Pi / 180,

		MiniBoostPower: 7.2,
		MaxMiniBoosts:  3,

		HeadBounceBoost:      10,
		HeadBounceCooldownMs: 670,
		HeadBounceMaxUp:      14,
		HeadBounceCapMs:      200,
		FreezeMs:             500,
		HeadContactGap:       10,

		Dormant: Range{Min: math.Pi / 4, Max: 3 * math.Pi / 4, Speed: 0.012},
		Active:  Range{Min: math.Pi / 9, Max: 8 * math.Pi / 9, Speed: 0.024},

		SeparationDistance: BodyWidth,
		SeparationResponse: 0.5,
	}
}

// Delta 把两帧之间的墙钟时间换算成参考帧数，并钳制到 [0, MaxDelta]
func Delta(elapsed time.Duration, c *Constants) float64 {
	dt := float64(elapsed) / float64(time.Millisecond) / c.FrameMs
	if math.IsNaN(dt) || dt < 0 {
		return 0
	}
	if dt > c.MaxDelta {
		return c.MaxDelta
	}
	return dt
}

func ms(v float64) time.Duration {
	return time.Duration(v * float64(time.Millisecond))
}
