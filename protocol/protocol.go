package protocol

import (
	"bouncybill/level"
	"bouncybill/physics"
)

// 客户端 → 服务端
const (
	MsgCreateRoom          = "createRoom"
	MsgCreateRoomWithLevel = "createRoomWithLevel"
	MsgJoinRoom            = "joinRoom"
	MsgBounce              = "bounce"
	MsgStateUpdate         = "stateUpdate"
	MsgPlayAgain           = "playAgain"
	MsgSkipCountdown       = "skipCountdown"
)

// 服务端 → 客户端（bounce / stateUpdate 与上行同名）
const (
	MsgRoomCreated        = "roomCreated"
	MsgJoinError          = "joinError"
	MsgRoomJoined         = "roomJoined"
	MsgPlayerJoined       = "playerJoined"
	MsgGameStart          = "gameStart"
	MsgCountdown          = "countdown"
	MsgHeadBounce         = "headBounce"
	MsgScoreUpdate        = "scoreUpdate"
	MsgMatchEnd           = "matchEnd"
	MsgPlayerDisconnected = "playerDisconnected"
)

// GoMessage 倒计时归零时的提示
const GoMessage = "Bounce!"

// WireState 玩家状态的线上表示
type WireState struct {
	Position   physics.Vec `json:"position"`
	Velocity   physics.Vec `json:"velocity"`
	Grounded   bool        `json:"grounded"`
	ArrowAngle float64     `json:"arrowAngle"`
}

// StateOf 从物理状态生成线上状态
func StateOf(b *physics.Body) WireState {
	return WireState{
		Position:   b.Pos,
		Velocity:   b.Vel,
		Grounded:   b.Contact.Supported(),
		ArrowAngle: b.ArrowAngle,
	}
}

// Contact 由上报的 grounded 与脚底高度推断接触状态（离地面 1 像素以上视为站在平台上）
func (s WireState) Contact() physics.Contact {
	if !s.Grounded {
		return physics.Airborne
	}
	if s.Position.Y+physics.BodyHeight/2 < physics.GroundY-1 {
		return physics.OnPlatform
	}
	return physics.Grounded
}

// StatePatch 上行状态；缺省字段为 nil，沿用服务端已有的值
type StatePatch struct {
	Position   *physics.Vec `json:"position,omitempty"`
	Velocity   *physics.Vec `json:"velocity,omitempty"`
	Grounded   *bool        `json:"grounded,omitempty"`
	ArrowAngle *float64     `json:"arrowAngle,omitempty"`
}

// Patch 完整状态转为全部字段都存在的上行状态
func (s WireState) Patch() StatePatch {
	return StatePatch{Position: &s.Position, Velocity: &s.Velocity, Grounded: &s.Grounded, ArrowAngle: &s.ArrowAngle}
}

// Over 把上报的字段覆盖到 prev 上
func (p StatePatch) Over(prev WireState) WireState {
	if p.Position != nil {
		prev.Position = *p.Position
	}
	if p.Velocity != nil {
		prev.Velocity = *p.Velocity
	}
	if p.Grounded != nil {
		prev.Grounded = *p.Grounded
	}
	if p.ArrowAngle != nil {
		prev.ArrowAngle = *p.ArrowAngle
	}
	return prev
}

type CreateRoom struct {
	Type          string `json:"type"`
	MatchDuration int64  `json:"matchDuration,omitempty"` // 毫秒，只能延长
}

type CreateRoomWithLevel struct {
	Type          string       `json:"type"`
	Level         *level.Level `json:"level"`
	MatchDuration int64        `json:"matchDuration,omitempty"`
}

type JoinRoom struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
}

// Bounce 上行：释放蓄力。ChargeMs 缺省按零蓄力处理
type Bounce struct {
	Type     string  `json:"type"`
	ChargeMs float64 `json:"chargeMs,omitempty"`
}

type StateUpdate struct {
	Type  string    `json:"type"`
	State WireState `json:"state"`
}

// StateReport 服务端解码 stateUpdate 用，字段可缺省
type StateReport struct {
	Type  string     `json:"type"`
	State StatePatch `json:"state"`
}

// Simple 无负载的消息：playAgain / skipCountdown / createRoom
type Simple struct {
	Type string `json:"type"`
}

type RoomCreated struct {
	Type           string `json:"type"`
	RoomID         string `json:"roomId"`
	PlayerID       string `json:"playerId"`
	HasCustomLevel bool   `json:"hasCustomLevel,omitempty"`
}

type JoinError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type RoomJoined struct {
	Type     string `json:"type"`
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
}

type PlayerJoined struct {
	Type     string `json:"type"`
	PlayerID string `json:"playerId"`
	RoomID   string `json:"roomId,omitempty"`
}

// PlayerInfo gameStart 中的玩家初始状态
type PlayerInfo struct {
	ID         string      `json:"id"`
	Position   physics.Vec `json:"position"`
	Velocity   physics.Vec `json:"velocity"`
	Grounded   bool        `json:"grounded"`
	ArrowAngle float64     `json:"arrowAngle"`
	Side       string      `json:"side"`
}

type ScoreEntry struct {
	ID    string `json:"id"`
	Score int    `json:"score"`
}

type GameStart struct {
	Type          string       `json:"type"`
	Players       []PlayerInfo `json:"players"`
	YourPlayerID  string       `json:"yourPlayerId"`
	Countdown     int          `json:"countdown"`
	Scores        []ScoreEntry `json:"scores"`
	MatchDuration int64        `json:"matchDuration"`
	CustomLevel   *level.Level `json:"customLevel"`
}

type Countdown struct {
	Type      string `json:"type"`
	Countdown int    `json:"countdown"`
	Message   string `json:"message,omitempty"`
}

// BounceEvent 下行：权威弹跳广播
type BounceEvent struct {
	Type     string      `json:"type"`
	PlayerID string      `json:"playerId"`
	Angle    float64     `json:"angle"`
	Velocity physics.Vec `json:"velocity"`
}

// StateRelay 下行：转发对端状态
type StateRelay struct {
	Type     string    `json:"type"`
	PlayerID string    `json:"playerId"`
	State    WireState `json:"state"`
}

type HeadBounce struct {
	Type       string `json:"type"`
	AttackerID string `json:"attackerId"`
	TargetID   string `json:"targetId"`
}

type ScoreUpdate struct {
	Type   string       `json:"type"`
	Scores []ScoreEntry `json:"scores"`
}

// MatchEnd Winner 为 nil 表示平局
type MatchEnd struct {
	Type   string       `json:"type"`
	Winner *string      `json:"winner"`
	Scores []ScoreEntry `json:"scores"`
	IsTie  bool         `json:"isTie"`
}

type PlayerDisconnected struct {
	Type     string `json:"type"`
	PlayerID string `json:"playerId"`
}
