package client

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"bouncybill/level"
	"bouncybill/physics"
	"bouncybill/protocol"
)

// ErrNotPlaying 比赛未开始或已结束时的操作
var ErrNotPlaying = errors.New("match is not live")

// Sender 上行通道
type Sender interface {
	Send([]byte) error
}

// Status 客户端视角的比赛阶段
type Status int

const (
	StatusLobby Status = iota
	StatusCountdown
	StatusPlaying
	StatusOver
)

func (s Status) String() string {
	switch s {
	case StatusLobby:
		return "lobby"
	case StatusCountdown:
		return "countdown"
	case StatusPlaying:
		return "playing"
	case StatusOver:
		return "over"
	}
	return "unknown"
}

// Game 由服务端消息驱动的比赛镜像。HandleMessage 与 Frame 可以来自不同 goroutine。
type Game struct {
	mu     sync.Mutex
	out    Sender
	log    *zap.SugaredLogger
	consts physics.Constants
	blend  float64

	roomID    string
	selfID    string
	status    Status
	countdown int
	players   map[string]*PlayerState
	order     []string
	scores    []protocol.ScoreEntry
	duration  time.Duration
	level     *level.Level
	arena     *level.Arena
	result    *protocol.MatchEnd
	lastErr   string
	peerLeft  bool

	move      int
	lastFrame time.Time
}

// NewGame log 可为 nil
func NewGame(out Sender, c physics.Constants, log *zap.SugaredLogger) *Game {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Game{
		out:     out,
		log:     log,
		consts:  c,
		blend:   DefaultBlend,
		players: make(map[string]*PlayerState),
	}
}

func (g *Game) send(t string, payload any) error {
	b, err := protocol.Encode(t, payload)
	if err != nil {
		return err
	}
	return g.out.Send(b)
}

// CreateRoom 请求建房；lv 非 nil 时附带自定义关卡
func (g *Game) CreateRoom(lv *level.Level, matchDuration time.Duration) error {
	ms := matchDuration.Milliseconds()
	if lv != nil {
		return g.send(protocol.MsgCreateRoomWithLevel, protocol.CreateRoomWithLevel{Level: lv, MatchDuration: ms})
	}
	return g.send(protocol.MsgCreateRoom, protocol.CreateRoom{MatchDuration: ms})
}

func (g *Game) JoinRoom(code string) error {
	return g.send(protocol.MsgJoinRoom, protocol.JoinRoom{RoomID: code})
}

func (g *Game) PlayAgain() error {
	return g.send(protocol.MsgPlayAgain, nil)
}

func (g *Game) SkipCountdown() error {
	return g.send(protocol.MsgSkipCountdown, nil)
}

// HandleMessage 应用一条下行消息。未知类型忽略。
func (g *Game) HandleMessage(raw []byte, now time.Time) error {
	typ, err := protocol.DecodeType(raw)
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	switch typ {
	case protocol.MsgRoomCreated:
		m, err := protocol.Decode[protocol.RoomCreated](raw)
		if err != nil {
			return err
		}
		g.roomID, g.selfID, g.status = m.RoomID, m.PlayerID, StatusLobby
	case protocol.MsgRoomJoined:
		m, err := protocol.Decode[protocol.RoomJoined](raw)
		if err != nil {
			return err
		}
		g.roomID, g.selfID, g.status = m.RoomID, m.PlayerID, StatusLobby
	case protocol.MsgJoinError:
		m, err := protocol.Decode[protocol.JoinError](raw)
		if err != nil {
			return err
		}
		g.lastErr = m.Message
		g.log.Warnf("join error: %s", m.Message)
	case protocol.MsgPlayerJoined:
		m, err := protocol.Decode[protocol.PlayerJoined](raw)
		if err != nil {
			return err
		}
		g.log.Infof("player %s joined room %s", m.PlayerID, g.roomID)
	case protocol.MsgGameStart:
		m, err := protocol.Decode[protocol.GameStart](raw)
		if err != nil {
			return err
		}
		g.start(m)
	case protocol.MsgCountdown:
		m, err := protocol.Decode[protocol.Countdown](raw)
		if err != nil {
			return err
		}
		g.countdown = m.Countdown
		if m.Countdown <= 0 && g.status == StatusCountdown {
			g.status = StatusPlaying
			g.lastFrame = time.Time{}
		}
	case protocol.MsgBounce:
		m, err := protocol.Decode[protocol.BounceEvent](raw)
		if err != nil {
			return err
		}
		// 本地玩家的弹跳已在本地预测中生效
		if p := g.players[m.PlayerID]; p != nil && m.PlayerID != g.selfID {
			p.Body.Vel = m.Velocity
			p.Body.ArrowAngle = m.Angle
			p.Body.Contact = physics.Airborne
			p.Body.BoostsLeft = g.consts.MaxMiniBoosts
		}
	case protocol.MsgStateUpdate:
		m, err := protocol.Decode[protocol.StateRelay](raw)
		if err != nil {
			return err
		}
		if p := g.players[m.PlayerID]; p != nil {
			p.Body = Reconcile(p.Body, m.State, m.PlayerID == g.selfID, g.blend, &g.consts)
		}
	case protocol.MsgHeadBounce:
		m, err := protocol.Decode[protocol.HeadBounce](raw)
		if err != nil {
			return err
		}
		if att := g.players[m.AttackerID]; att != nil {
			physics.ApplyHeadBounce(&att.Body, now, &g.consts)
		}
		if tgt := g.players[m.TargetID]; tgt != nil {
			physics.Freeze(&tgt.Body, now, &g.consts)
		}
	case protocol.MsgScoreUpdate:
		m, err := protocol.Decode[protocol.ScoreUpdate](raw)
		if err != nil {
			return err
		}
		g.scores = m.Scores
	case protocol.MsgMatchEnd:
		m, err := protocol.Decode[protocol.MatchEnd](raw)
		if err != nil {
			return err
		}
		g.result = &m
		g.scores = m.Scores
		g.status = StatusOver
		for _, p := range g.players {
			p.Charging = false
		}
	case protocol.MsgPlayerDisconnected:
		m, err := protocol.Decode[protocol.PlayerDisconnected](raw)
		if err != nil {
			return err
		}
		delete(g.players, m.PlayerID)
		g.order = without(g.order, m.PlayerID)
		g.peerLeft = true
		g.status = StatusOver
		g.log.Infof("player %s disconnected", m.PlayerID)
	default:
		g.log.Debugf("ignore message type %q", typ)
	}
	return nil
}

func (g *Game) start(m protocol.GameStart) {
	g.selfID = m.YourPlayerID
	g.players = make(map[string]*PlayerState, len(m.Players))
	g.order = g.order[:0]
	for _, info := range m.Players {
		b := physics.Spawn(info.Position.X, &g.consts)
		b.Pos = info.Position
		b.Vel = info.Velocity
		b.ArrowAngle = info.ArrowAngle
		if !info.Grounded {
			b.Contact = physics.Airborne
		}
		g.players[info.ID] = &PlayerState{ID: info.ID, Side: info.Side, Body: b}
		g.order = append(g.order, info.ID)
	}
	g.scores = m.Scores
	g.countdown = m.Countdown
	g.duration = time.Duration(m.MatchDuration) * time.Millisecond
	g.level = m.CustomLevel
	g.arena = nil
	if m.CustomLevel != nil {
		g.arena = level.NewArena(m.CustomLevel)
	}
	g.result = nil
	g.peerLeft = false
	g.lastFrame = time.Time{}
	g.status = StatusCountdown
	if m.Countdown <= 0 {
		g.status = StatusPlaying
	}
	g.log.Infof("game start: %d players, countdown %d, custom level=%v", len(m.Players), m.Countdown, m.CustomLevel != nil)
}

func without(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func (g *Game) surfaces() physics.Surfaces {
	if g.arena == nil {
		return nil
	}
	return g.arena
}

// SetMove 水平输入：-1 左，0 无，1 右
func (g *Game) SetMove(dir int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch {
	case dir > 0:
		g.move = 1
	case dir < 0:
		g.move = -1
	default:
		g.move = 0
	}
}

// Frame 推进一帧：本地玩家按输入预测，远端玩家按惯性预测，
// 随后做双人分离并上报本地状态。比赛未进行时什么也不做。
func (g *Game) Frame(now time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.status != StatusPlaying {
		g.lastFrame = now
		return nil
	}
	dt := 1.0
	if !g.lastFrame.IsZero() {
		dt = physics.Delta(now.Sub(g.lastFrame), &g.consts)
	}
	g.lastFrame = now

	s := g.surfaces()
	for _, id := range g.order {
		p := g.players[id]
		in := physics.Input{}
		if id == g.selfID {
			in = physics.Input{Move: g.move, Charging: p.Charging}
		}
		physics.Step(&p.Body, in, dt, now, &g.consts, s)
	}
	if len(g.order) == 2 {
		physics.Separate(&g.players[g.order[0]].Body, &g.players[g.order[1]].Body, &g.consts)
	}

	self := g.players[g.selfID]
	if self == nil {
		return nil
	}
	return g.send(protocol.MsgStateUpdate, protocol.StateUpdate{State: protocol.StateOf(&self.Body)})
}

// PressCharge 开始蓄力，箭头进入快速摆动
func (g *Game) PressCharge(now time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	self := g.players[g.selfID]
	if g.status != StatusPlaying || self == nil {
		return ErrNotPlaying
	}
	if !self.Charging {
		self.Charging = true
		self.ChargeStart = now
	}
	return nil
}

// ReleaseCharge 释放蓄力：在地面/平台上为弹跳（上报 bounce），空中为小跳（上报 stateUpdate）。
// 两者都不可用时返回 false。
func (g *Game) ReleaseCharge(now time.Time) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	self := g.players[g.selfID]
	if g.status != StatusPlaying || self == nil {
		return false, ErrNotPlaying
	}
	if !self.Charging {
		return false, nil
	}
	held := now.Sub(self.ChargeStart)
	self.Charging = false

	if physics.Bounce(&self.Body, held, &g.consts) {
		chargeMs := float64(held) / float64(time.Millisecond)
		if err := g.send(protocol.MsgBounce, protocol.Bounce{ChargeMs: chargeMs}); err != nil {
			return true, fmt.Errorf("send bounce: %w", err)
		}
		return true, nil
	}
	if physics.MiniBoost(&self.Body, held, &g.consts) {
		if err := g.send(protocol.MsgStateUpdate, protocol.StateUpdate{State: protocol.StateOf(&self.Body)}); err != nil {
			return true, fmt.Errorf("send boost: %w", err)
		}
		return true, nil
	}
	return false, nil
}

// Snapshot 只读视图
type Snapshot struct {
	RoomID    string
	SelfID    string
	Status    Status
	Countdown int
	Players   []PlayerState
	Scores    []protocol.ScoreEntry
	Duration  time.Duration
	Level     *level.Level
	Result    *protocol.MatchEnd
	LastError string
	PeerLeft  bool
}

func (g *Game) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	players := make([]PlayerState, 0, len(g.order))
	for _, id := range g.order {
		players = append(players, *g.players[id])
	}
	return Snapshot{
		RoomID:    g.roomID,
		SelfID:    g.selfID,
		Status:    g.status,
		Countdown: g.countdown,
		Players:   players,
		Scores:    append([]protocol.ScoreEntry(nil), g.scores...),
		Duration:  g.duration,
		Level:     g.level,
		Result:    g.result,
		LastError: g.lastErr,
		PeerLeft:  g.peerLeft,
	}
}

// Player 查询指定玩家
func (g *Game) Player(id string) (PlayerState, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.players[id]
	if !ok {
		return PlayerState{}, false
	}
	return *p, true
}

// Self 本地玩家
func (g *Game) Self() (PlayerState, bool) {
	g.mu.Lock()
	id := g.selfID
	g.mu.Unlock()
	return g.Player(id)
}
