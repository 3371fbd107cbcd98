package physics

import (
	"math"
	"testing"
	"time"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestDeltaClampsStalls(t *testing.T) {
	c := Default()
	if got := Delta(16670*time.Microsecond, &c); math.Abs(got-1) > 1e-9 {
		t.Fatalf("one frame delta = %f, want 1", got)
	}
	if got := Delta(2*time.Second, &c); got != c.MaxDelta {
		t.Fatalf("stall delta = %f, want %f", got, c.MaxDelta)
	}
	if got := Delta(-time.Second, &c); got != 0 {
		t.Fatalf("negative delta = %f, want 0", got)
	}
}

func TestStepAppliesGravityWhenAirborne(t *testing.T) {
	c := Default()
	b := Body{Pos: Vec{X: 400, Y: 200}, Contact: Airborne}
	Step(&b, Input{}, 1, t0, &c, nil)
	if b.Vel.Y != c.Gravity {
		t.Fatalf("vy after one tick = %f, want %f", b.Vel.Y, c.Gravity)
	}
	if b.Pos.Y != 200+c.Gravity {
		t.Fatalf("y after one tick = %f, want %f", b.Pos.Y, 200+c.Gravity)
	}
}

func TestGroundedHoldsVerticalVelocityAtZero(t *testing.T) {
	c := Default()
	b := Spawn(LeftSpawnX, &c)
	b.Vel.Y = 5
	for i := 0; i < 10; i++ {
		Step(&b, Input{}, 1, t0, &c, nil)
	}
	if b.Vel.Y != 0 || b.Pos.Y != GroundY-BodyHeight/2 {
		t.Fatalf("grounded drifted: y=%f vy=%f", b.Pos.Y, b.Vel.Y)
	}
	if b.Contact != Grounded {
		t.Fatalf("contact = %v, want grounded", b.Contact)
	}
}

func TestLandingResetsBoostsAndAim(t *testing.T) {
	c := Default()
	b := Body{Pos: Vec{X: 300, Y: GroundY - BodyHeight/2 - 3}, Vel: Vec{X: 2, Y: 5}, Contact: Airborne, BoostsLeft: 0, ArrowAngle: 0.3}
	Step(&b, Input{}, 1, t0, &c, nil)
	if b.Contact != Grounded {
		t.Fatalf("expected grounded after crossing ground")
	}
	if b.Pos.Y != GroundY-BodyHeight/2 {
		t.Fatalf("landing not clamped onto ground: y=%f", b.Pos.Y)
	}
	if b.BoostsLeft != c.MaxMiniBoosts {
		t.Fatalf("boosts = %d, want %d", b.BoostsLeft, c.MaxMiniBoosts)
	}
	if b.PhaseDir != -1 {
		t.Fatalf("moving right on landing should sweep right first, dir=%f", b.PhaseDir)
	}
}

func TestFrictionStopsSlide(t *testing.T) {
	c := Default()
	b := Spawn(400, &c)
	b.Vel.X = 3
	for i := 0; i < 200; i++ {
		Step(&b, Input{}, 1, t0, &c, nil)
	}
	if b.Vel.X != 0 {
		t.Fatalf("expected residual drift zeroed, vx=%f", b.Vel.X)
	}
}

func TestDrivenInputSkipsFriction(t *testing.T) {
	c := Default()
	b := Spawn(400, &c)
	Step(&b, Input{Move: 1}, 1, t0, &c, nil)
	if b.Vel.X != c.MoveSpeed {
		t.Fatalf("vx = %f, want %f", b.Vel.X, c.MoveSpeed)
	}
}

func TestWallReflectsDamped(t *testing.T) {
	c := Default()
	b := Body{Pos: Vec{X: BodyWidth/2 + 1, Y: 200}, Vel: Vec{X: -10}, Contact: Airborne}
	Step(&b, Input{}, 1, t0, &c, nil)
	if b.Pos.X != BodyWidth/2 {
		t.Fatalf("x = %f, want clamped to %f", b.Pos.X, BodyWidth/2)
	}
	if b.Vel.X != 5 {
		t.Fatalf("vx = %f, want 5", b.Vel.X)
	}
}

func TestStepRecoversFromNaN(t *testing.T) {
	c := Default()
	b := Spawn(200, &c)
	b.Vel.X = math.NaN()
	Step(&b, Input{}, 1, t0, &c, nil)
	if !b.Valid() {
		t.Fatalf("expected NaN to be recovered, got %+v", b)
	}
	if b.Pos.X != 200 {
		t.Fatalf("expected last safe x=200, got %f", b.Pos.X)
	}
}

func TestOscillationReflectsWithinRange(t *testing.T) {
	c := Default()
	b := Spawn(400, &c)
	minA, maxA := -c.Dormant.Max, -c.Dormant.Min
	sawDirs := map[float64]bool{}
	for i := 0; i < 500; i++ {
		Oscillate(&b, false, 1, t0, &c)
		if b.ArrowAngle < minA-1e-9 || b.ArrowAngle > maxA+1e-9 {
			t.Fatalf("angle %f out of dormant range [%f,%f]", b.ArrowAngle, minA, maxA)
		}
		sawDirs[b.PhaseDir] = true
	}
	if !sawDirs[1] || !sawDirs[-1] {
		t.Fatalf("phase never reflected: %v", sawDirs)
	}
}

func TestOscillationUsesActiveRangeWhileCharging(t *testing.T) {
	c := Default()
	b := Spawn(400, &c)
	b.Phase, b.PhaseDir = 1, 1
	Oscillate(&b, true, 0, t0, &c)
	if b.Mode != Active {
		t.Fatalf("mode = %v, want active", b.Mode)
	}
	if math.Abs(b.ArrowAngle-(-c.Active.Max)) > 1e-9 {
		t.Fatalf("angle = %f, want %f", b.ArrowAngle, -c.Active.Max)
	}
}

func TestFreezeSuspendsOscillation(t *testing.T) {
	c := Default()
	b := Spawn(400, &c)
	Freeze(&b, t0, &c)
	before := b.ArrowAngle
	Oscillate(&b, false, 1, t0.Add(100*time.Millisecond), &c)
	if b.ArrowAngle != before {
		t.Fatalf("angle changed while frozen")
	}
	Oscillate(&b, false, 1, t0.Add(time.Second), &c)
	if b.ArrowAngle == before {
		t.Fatalf("angle did not resume after freeze")
	}
}

func TestSeparatePushesApart(t *testing.T) {
	c := Default()
	a := Body{Pos: Vec{X: 100, Y: 100}, Vel: Vec{X: 2}}
	b := Body{Pos: Vec{X: 110, Y: 100}, Vel: Vec{X: -2}}
	Separate(&a, &b, &c)
	if d := b.Pos.X - a.Pos.X; math.Abs(d-c.SeparationDistance) > 1e-9 {
		t.Fatalf("distance after separation = %f, want %f", d, c.SeparationDistance)
	}
	if a.Vel.X >= 2 || b.Vel.X <= -2 {
		t.Fatalf("expected closing impulse, got va=%f vb=%f", a.Vel.X, b.Vel.X)
	}
}

type flatPlatform struct{ left, right, top float64 }

func (p flatPlatform) SupportTop(left, right, prevBottom, bottom float64) (float64, bool) {
	if right < p.left || left > p.right {
		return 0, false
	}
	if prevBottom <= p.top && bottom >= p.top {
		return p.top, true
	}
	return 0, false
}

func TestLandsOnPlatformAndWalksOff(t *testing.T) {
	c := Default()
	plat := flatPlatform{left: 300, right: 360, top: 400}
	b := Body{Pos: Vec{X: 330, Y: 400 - BodyHeight/2 - 2}, Vel: Vec{Y: 4}, Contact: Airborne}
	Step(&b, Input{}, 1, t0, &c, plat)
	if b.Contact != OnPlatform || b.Pos.Y != 400-BodyHeight/2 {
		t.Fatalf("expected to land on platform, got contact=%v y=%f", b.Contact, b.Pos.Y)
	}
	for i := 0; i < 60 && b.Contact == OnPlatform; i++ {
		Step(&b, Input{Move: 1}, 1, t0, &c, plat)
	}
	if b.Contact != Airborne {
		t.Fatalf("expected to fall after walking off the platform")
	}
}
