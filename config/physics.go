package config

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"bouncybill/physics"
)

// LoadPhysics 以 defaults 为底，用 TOML 文件中出现的键覆盖物理参数。
// path 为空时直接返回 defaults。
//
//	gravity = 0.6
//	[dormant]
//	speed = 0.02
func LoadPhysics(path string, defaults physics.Constants) (physics.Constants, error) {
	c := defaults
	if path == "" {
		return c, nil
	}
	md, err := toml.DecodeFile(path, &c)
	if err != nil {
		return defaults, fmt.Errorf("physics config %s: %w", path, err)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return defaults, fmt.Errorf("physics config %s: unknown keys %v", path, undec)
	}
	if err := Check(c); err != nil {
		return defaults, fmt.Errorf("physics config %s: %w", path, err)
	}
	return c, nil
}

// Check 拒绝会让模拟失控的参数组合
func Check(c physics.Constants) error {
	switch {
	case c.MaxBouncePower < c.MinBouncePower:
		return fmt.Errorf("max_bounce_power %.2f < min_bounce_power %.2f", c.MaxBouncePower, c.MinBouncePower)
	case c.MaxChargeMs < 0:
		return fmt.Errorf("max_charge_ms must be >= 0")
	case c.Friction < 0 || c.Friction > 1:
		return fmt.Errorf("friction must be within [0,1]")
	case c.WallRestitution < 0 || c.WallRestitution > 1:
		return fmt.Errorf("wall_restitution must be within [0,1]")
	case c.MaxMiniBoosts < 0:
		return fmt.Errorf("max_mini_boosts must be >= 0")
	case c.HeadBounceBoost <= c.MiniBoostPower:
		return fmt.Errorf("head_bounce_boost must exceed mini_boost_power")
	case c.FrameMs <= 0 || c.MaxDelta <= 0:
		return fmt.Errorf("frame_ms and max_delta must be > 0")
	case c.Dormant.Min > c.Dormant.Max || c.Active.Min > c.Active.Max:
		return fmt.Errorf("oscillation range min must not exceed max")
	}
	return nil
}
