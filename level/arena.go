package level

import (
	"github.com/solarlune/resolv"

	"bouncybill/physics"
)

const (
	tagSolid = "solid"
	tagFeet  = "feet"
)

// offsetX 网格在竞技场中的水平偏移（居中）
var offsetX = (physics.ArenaWidth - GridSize*CellSize) / 2

// Arena 关卡方块构成的平台集合，实现 physics.Surfaces
// resolv 空间只做粗筛，精确判定在 SupportTop 中完成；非并发安全
type Arena struct {
	space *resolv.Space
	feet *resolv.Object
	n     int
}

// NewArena 由关卡构建碰撞场；lv 为 nil 时为空场
func NewArena(lv *Level) *Arena {
	a := &Arena{
		space: resolv.NewSpace(int(physics.ArenaWidth), int(physics.ArenaHeight), int(CellSize), int(CellSize)),
		feet: resolv.NewObject(0, 0, physics.BodyWidth, 1, tagFeet),
	}
	a.space.Add(a.feet)
	if lv == nil {
		return a
	}
	for _, b := range lv.Blocks {
		x, y := BlockRect(b)
		a.space.Add(resolv.NewObject(x, y, CellSize, CellSize, tagSolid))
		a.n++
	}
	return a
}

// BlockRect 方块左上角的竞技场坐标
func BlockRect(b Block) (x, y float64) {
	return offsetX + b.X*CellSize, b.Y * CellSize
}

// Len 方块数量
func (a *Arena) Len() int { return a.n }

// SupportTop 实现 physics.Surfaces：返回被脚底扫过的最高方块顶面
func (a *Arena) SupportTop(left, right, prevBottom, bottom float64) (float64, bool) {
	if a == nil || a.n == 0 || bottom < prevBottom {
		return 0, false
	}
	a.feet.Position.X = left
	a.feet.Position.Y = prevBottom - 1
	a.feet.Size.X = right - left
	a.feet.Size.Y = 1
	a.feet.Update()

	check := a.feet.Check(0, bottom-prevBottom+1, tagSolid)
	if check == nil {
		return 0, false
	}
	best, found := 0.0, false
	for _, o := range check.ObjectsByTags(tagSolid) {
		if right < o.Position.X || left > o.Position.X+o.Size.X {
			continue
		}
		top := o.Position.Y
		if prevBottom > top+0.5 || bottom < top {
			continue
		}
		if !found || top < best {
			best, found = top, true
		}
	}
	return best, found
}
