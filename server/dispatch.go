package server

import (
	"errors"
	"math"
	"time"

	"bouncybill/level"
	"bouncybill/protocol"
)

// Dispatcher 把入站消息路由到注册表与房间。
// 格式错误或未知类型的消息直接丢弃，不影响连接。
type Dispatcher struct {
	Registry *Registry
	Metrics  *Metrics
}

func NewDispatcher(reg *Registry, m *Metrics) *Dispatcher {
	if m == nil {
		m = &Metrics{}
	}
	return &Dispatcher{Registry: reg, Metrics: m}
}

// Handle 处理一条来自 conn 的消息
func (d *Dispatcher) Handle(conn Conn, raw []byte) {
	typ, err := protocol.DecodeType(raw)
	if err != nil {
		d.drop(conn, "", err)
		return
	}
	switch typ {
	case protocol.MsgCreateRoom:
		m, err := protocol.Decode[protocol.CreateRoom](raw)
		if err != nil {
			d.drop(conn, typ, err)
			return
		}
		d.create(conn, nil, m.MatchDuration)
	case protocol.MsgCreateRoomWithLevel:
		m, err := protocol.Decode[protocol.CreateRoomWithLevel](raw)
		if err != nil {
			d.drop(conn, typ, err)
			return
		}
		if m.Level == nil {
			m.Level = &level.Level{}
		}
		d.create(conn, m.Level, m.MatchDuration)
	case protocol.MsgJoinRoom:
		m, err := protocol.Decode[protocol.JoinRoom](raw)
		if err != nil {
			d.drop(conn, typ, err)
			return
		}
		if _, err := d.Registry.JoinRoom(conn, m.RoomID); err != nil {
			d.joinError(conn, err)
		}
	case protocol.MsgBounce:
		m, err := protocol.Decode[protocol.Bounce](raw)
		if err != nil {
			d.drop(conn, typ, err)
			return
		}
		if r, id, ok := d.Registry.RoomOf(conn); ok {
			r.Bounce(id.PlayerID, chargeDuration(m.ChargeMs))
		}
	case protocol.MsgStateUpdate:
		m, err := protocol.Decode[protocol.StateReport](raw)
		if err != nil {
			d.drop(conn, typ, err)
			return
		}
		if r, id, ok := d.Registry.RoomOf(conn); ok {
			r.UpdateState(id.PlayerID, m.State)
		}
	case protocol.MsgPlayAgain:
		if r, id, ok := d.Registry.RoomOf(conn); ok {
			r.PlayAgain(id.PlayerID)
		}
	case protocol.MsgSkipCountdown:
		if r, id, ok := d.Registry.RoomOf(conn); ok {
			r.SkipCountdown(id.PlayerID)
		}
	default:
		d.drop(conn, typ, errors.New("unknown message type"))
	}
}

func (d *Dispatcher) create(conn Conn, lv *level.Level, durationMs int64) {
	dur := time.Duration(durationMs) * time.Millisecond
	if _, err := d.Registry.CreateRoom(conn, lv, dur); err != nil {
		d.joinError(conn, err)
	}
}

// joinError 容量类错误：回复可读原因，连接保持
func (d *Dispatcher) joinError(conn Conn, err error) {
	msg := "Unable to join room"
	switch {
	case errors.Is(err, ErrRoomNotFound):
		msg = "Room not found"
	case errors.Is(err, ErrRoomFull):
		msg = "Room is full"
	case errors.Is(err, ErrAlreadyInRoom):
		msg = "Already in this room"
	case errors.Is(err, level.ErrInvalidLevel):
		msg = "Invalid level"
	}
	Log.Infof("join error: %v", err)
	_ = conn.Send(protocol.MustEncode(protocol.MsgJoinError, protocol.JoinError{Message: msg}))
}

func (d *Dispatcher) drop(conn Conn, typ string, err error) {
	d.Metrics.IncProtocolDrops()
	if id, ok := d.Registry.Identity(conn); ok {
		Log.Debugf("drop message type=%q from %s: %v", typ, id.PlayerID, err)
		return
	}
	Log.Debugf("drop message type=%q: %v", typ, err)
}

func chargeDuration(msVal float64) time.Duration {
	if math.IsNaN(msVal) || msVal <= 0 {
		return 0
	}
	if msVal > float64(time.Hour/time.Millisecond) {
		msVal = float64(time.Hour / time.Millisecond)
	}
	return time.Duration(msVal * float64(time.Millisecond))
}
