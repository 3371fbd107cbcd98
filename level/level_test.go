package level

import (
	"errors"
	"math"
	"testing"
	"time"

	"bouncybill/physics"
)

func TestValidateRejectsOversizedLevel(t *testing.T) {
	lv := &Level{ID: "big", Blocks: make([]Block, MaxBlocks+1)}
	if err := lv.Validate(); !errors.Is(err, ErrInvalidLevel) {
		t.Fatalf("expected ErrInvalidLevel, got %v", err)
	}
}

func TestValidateRejectsNaN(t *testing.T) {
	lv := &Level{Blocks: []Block{{X: math.NaN(), Y: 1}}}
	if err := lv.Validate(); !errors.Is(err, ErrInvalidLevel) {
		t.Fatalf("expected ErrInvalidLevel, got %v", err)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	lv := &Level{ID: "a", Blocks: []Block{{X: 1, Y: 2}}}
	cp := lv.Clone()
	cp.Blocks[0].X = 9
	if lv.Blocks[0].X != 1 {
		t.Fatalf("clone shares block storage")
	}
}

func TestArenaSupportTop(t *testing.T) {
	lv := &Level{Blocks: []Block{{X: 5, Y: 12}}}
	a := NewArena(lv)
	x, y := BlockRect(lv.Blocks[0])

	top, ok := a.SupportTop(x+5, x+25, y-3, y+4)
	if !ok || top != y {
		t.Fatalf("SupportTop = (%f,%v), want (%f,true)", top, ok, y)
	}
	if _, ok := a.SupportTop(x+100, x+140, y-3, y+4); ok {
		t.Fatalf("expected no support away from the block")
	}
	if _, ok := a.SupportTop(x+5, x+25, y+10, y+14); ok {
		t.Fatalf("expected no support when already below the top")
	}
}

func TestArenaSupportTopAtBlockEdges(t *testing.T) {
	lv := &Level{Blocks: []Block{{X: 5, Y: 12}}}
	a := NewArena(lv)
	x, y := BlockRect(lv.Blocks[0])

	// 脚底只压住方块右缘 2px
	if top, ok := a.SupportTop(x+CellSize-2, x+CellSize+38, y-3, y+4); !ok || top != y {
		t.Fatalf("right edge: (%f,%v), want (%f,true)", top, ok, y)
	}
	if top, ok := a.SupportTop(x-38, x+2, y-3, y+4); !ok || top != y {
		t.Fatalf("left edge: (%f,%v), want (%f,true)", top, ok, y)
	}
	if _, ok := a.SupportTop(x+CellSize+1, x+CellSize+41, y-3, y+4); ok {
		t.Fatalf("body just past the right edge got support")
	}
	// 重复查询不受上一次脚底位置影响
	if top, ok := a.SupportTop(x+5, x+25, y-3, y+4); !ok || top != y {
		t.Fatalf("requery: (%f,%v), want (%f,true)", top, ok, y)
	}
}

func TestBodyRestsOnBlock(t *testing.T) {
	lv := &Level{Blocks: []Block{{X: 10, Y: 10}, {X: 11, Y: 10}}}
	a := NewArena(lv)
	c := physics.Default()
	x, y := BlockRect(lv.Blocks[0])
	b := physics.Body{Pos: physics.Vec{X: x + CellSize, Y: y - 100}, Contact: physics.Airborne}
	now := time.Unix(0, 0)
	for i := 0; i < 120; i++ {
		physics.Step(&b, physics.Input{}, 1, now, &c, a)
	}
	if b.Contact != physics.OnPlatform {
		t.Fatalf("contact = %v, want onPlatform", b.Contact)
	}
	if b.Pos.Y != y-physics.BodyHeight/2 {
		t.Fatalf("y = %f, want %f", b.Pos.Y, y-physics.BodyHeight/2)
	}
}
