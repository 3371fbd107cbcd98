// Package level 自定义关卡：编辑器产出的方块网格，以及据此构建的平台碰撞场
package level

import (
	"errors"
	"fmt"
	"math"
)

// 编辑器网格：20x20，每格 30 像素，水平居中放入 800 宽的竞技场
const (
	GridSize  = 20
	CellSize  = 30.0
	MaxBlocks = GridSize * GridSize
)

var ErrInvalidLevel = errors.New("invalid level")

// Block 网格坐标，原样透传给客户端
type Block struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Level 房间创建时附带的关卡
type Level struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Blocks []Block `json:"blocks"`
}

// Validate 拒绝过大或含非法数值的关卡
func (l *Level) Validate() error {
	if l == nil {
		return fmt.Errorf("%w: missing level", ErrInvalidLevel)
	}
	if len(l.Blocks) > MaxBlocks {
		return fmt.Errorf("%w: %d blocks exceeds %d", ErrInvalidLevel, len(l.Blocks), MaxBlocks)
	}
	for i, b := range l.Blocks {
		if math.IsNaN(b.X) || math.IsNaN(b.Y) || math.IsInf(b.X, 0) || math.IsInf(b.Y, 0) {
			return fmt.Errorf("%w: block %d has non-finite coordinates", ErrInvalidLevel, i)
		}
	}
	return nil
}

// Clone 深拷贝，房间持有自己的副本
func (l *Level) Clone() *Level {
	if l == nil {
		return nil
	}
	out := *l
	out.Blocks = append([]Block(nil), l.Blocks...)
	return &out
}
