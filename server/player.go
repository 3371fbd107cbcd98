package server

import (
	"time"

	"bouncybill/physics"
)

// Side 按加入顺序分配的出生侧
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// SpawnX 该侧的出生点横坐标
func (s Side) SpawnX() float64 {
	if s == SideRight {
		return physics.RightSpawnX
	}
	return physics.LeftSpawnX
}

// Conn 玩家连接的发送端（非拥有引用，生命周期归传输层）
type Conn interface {
	Send([]byte) error
	Close() error
}

// Player 房间内的玩家实体（服务端权威状态）
type Player struct {
	ID   string
	Side Side
	Body physics.Body

	LastUpdate time.Time

	Conn Conn
}

func (p *Player) send(b []byte) {
	if p.Conn == nil {
		return
	}
	if err := p.Conn.Send(b); err != nil {
		Log.Debugf("send to %s failed: %v", p.ID, err)
	}
}
