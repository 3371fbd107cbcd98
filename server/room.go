package server

import (
	"errors"
	"sync"
	"time"

	"bouncybill/level"
	"bouncybill/physics"
	"bouncybill/protocol"
)

// RoomState 房间生命周期
type RoomState int

const (
	StateWaiting RoomState = iota
	StateCountdown
	StateActive
	StateEnded
)

func (s RoomState) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateCountdown:
		return "countdown"
	case StateActive:
		return "active"
	case StateEnded:
		return "ended"
	}
	return "unknown"
}

const (
	MaxPlayers     = 2
	CountdownFrom  = 3
	countdownStep  = time.Second
	DefaultMatchMs = 60000
)

var (
	ErrRoomFull   = errors.New("room is full")
	ErrRoomClosed = errors.New("room is closed")
)

// RoomOptions 创建房间时注入的参数
type RoomOptions struct {
	Level         *level.Level
	MatchDuration time.Duration // 默认 60s；只能延长
	StartDelay    time.Duration // 第二名玩家加入到 gameStart 的间隔
	Constants     physics.Constants
	Now           func() time.Time
	Metrics       *Metrics
}

// Room 一局双人比赛：独占两名玩家、分数表与比赛计时。
// 消息处理与 Tick 共用同一把锁，保证同一房间状态不会被并发修改。
type Room struct {
	Code string

	mu      sync.Mutex
	state   RoomState
	players []*Player // 按加入顺序，最多 2 个
	scores  map[string]int
	winner  *string

	level         *level.Level
	consts        physics.Constants
	matchDuration time.Duration
	startDelay    time.Duration

	countdown     int
	startAt       time.Time // gameStart 的待发时刻；零值表示没有待发的 gameStart
	nextCountdown time.Time
	matchEnd      time.Time

	detector *HeadContactDetector
	now      func() time.Time
	metrics  *Metrics
	closed   bool
}

// NewRoom 创建房间，初始化数据结构
func NewRoom(code string, opts RoomOptions) *Room {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Metrics == nil {
		opts.Metrics = &Metrics{}
	}
	def := time.Duration(DefaultMatchMs) * time.Millisecond
	if opts.MatchDuration < def {
		opts.MatchDuration = def
	}
	c := opts.Constants
	return &Room{
		Code:          code,
		state:         StateWaiting,
		scores:        make(map[string]int),
		level:         opts.Level.Clone(),
		consts:        c,
		matchDuration: opts.MatchDuration,
		startDelay:    opts.StartDelay,
		detector:      NewHeadContactDetector(time.Duration(c.HeadBounceCooldownMs*float64(time.Millisecond)), c.HeadContactGap),
		now:           opts.Now,
		metrics:       opts.Metrics,
	}
}

// Join 将玩家加入房间：回复 roomJoined 并广播 playerJoined；
// 第二名玩家加入后进入倒计时。满员时返回 ErrRoomFull，不做任何改动。
func (r *Room) Join(id string, conn Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.admit(id, conn); err != nil {
		return err
	}
	p := r.players[len(r.players)-1]
	p.send(protocol.MustEncode(protocol.MsgRoomJoined, protocol.RoomJoined{RoomID: r.Code, PlayerID: id}))
	r.broadcast(protocol.MsgPlayerJoined, protocol.PlayerJoined{PlayerID: id, RoomID: r.Code})
	if len(r.players) == MaxPlayers {
		r.enterCountdown(r.now(), r.startDelay)
	}
	return nil
}

// Host 房间创建者入座，回复 roomCreated
func (r *Room) Host(id string, conn Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.admit(id, conn); err != nil {
		return err
	}
	r.players[0].send(protocol.MustEncode(protocol.MsgRoomCreated, protocol.RoomCreated{
		RoomID:         r.Code,
		PlayerID:       id,
		HasCustomLevel: r.level != nil,
	}))
	return nil
}

func (r *Room) admit(id string, conn Conn) error {
	if r.closed {
		return ErrRoomClosed
	}
	if len(r.players) >= MaxPlayers {
		return ErrRoomFull
	}
	side := SideLeft
	if len(r.players) == 1 {
		side = SideRight
	}
	r.players = append(r.players, &Player{
		ID:         id,
		Side:       side,
		Body:       physics.Spawn(side.SpawnX(), &r.consts),
		LastUpdate: r.now(),
		Conn:       conn,
	})
	r.scores[id] = 0
	return nil
}

// Leave 玩家断开：通知对端并关闭房间。返回仍在房间内的玩家 ID。
func (r *Room) Leave(id string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.indexOf(id)
	if idx < 0 {
		return nil
	}
	r.players = append(r.players[:idx], r.players[idx+1:]...)
	delete(r.scores, id)
	r.detector.Forget(id)
	r.broadcast(protocol.MsgPlayerDisconnected, protocol.PlayerDisconnected{PlayerID: id})

	rest := make([]string, 0, len(r.players))
	for _, p := range r.players {
		rest = append(rest, p.ID)
	}
	r.players = nil
	r.closed = true
	return rest
}

// Close 标记房间已销毁，之后的所有操作都是 no-op
func (r *Room) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}

// SkipCountdown 倒计时中任一玩家可直接开局
func (r *Room) SkipCountdown(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.state != StateCountdown || r.indexOf(id) < 0 {
		return
	}
	now := r.now()
	if !r.startAt.IsZero() {
		r.sendGameStart(now)
	}
	r.goLive(now)
}

// PlayAgain 比赛结束后重新开始一轮倒计时
func (r *Room) PlayAgain(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.state != StateEnded || r.indexOf(id) < 0 || len(r.players) != MaxPlayers {
		return
	}
	r.enterCountdown(r.now(), 0)
}

// Bounce 权威弹跳：用服务端持有的箭头角度与上报的蓄力时长计算出射速度
func (r *Room) Bounce(id string, charge time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.state != StateActive {
		return
	}
	p := r.player(id)
	if p == nil || !physics.Bounce(&p.Body, charge, &r.consts) {
		return
	}
	r.broadcast(protocol.MsgBounce, protocol.BounceEvent{
		PlayerID: id,
		Angle:    p.Body.ArrowAngle,
		Velocity: p.Body.Vel,
	})
}

// UpdateState 信任客户端上报的位置（NaN 等非法值回退到上次的安全值），并转发给对端
// 上报中缺省的字段保持原值
func (r *Room) UpdateState(id string, patch protocol.StatePatch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.state != StateActive {
		return
	}
	p := r.player(id)
	if p == nil {
		return
	}
	safe := p.Body
	s := patch.Over(protocol.StateOf(&p.Body))
	p.Body.Pos = s.Position
	p.Body.Vel = s.Velocity
	physics.Land(&p.Body, s.Contact(), &r.consts)
	// 落地会重置箭头，上报的角度在其后生效
	p.Body.ArrowAngle = s.ArrowAngle
	if physics.Sanitize(&p.Body, safe) {
		Log.Debugf("room %s: player %s sent invalid state, kept last safe position", r.Code, id)
	}
	p.LastUpdate = r.now()
	r.broadcastExcept(id, protocol.MsgStateUpdate, protocol.StateRelay{PlayerID: id, State: protocol.StateOf(&p.Body)})
}

// Tick 由调度器每帧调用：推进倒计时；比赛中检测踩头与计时
func (r *Room) Tick(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	switch r.state {
	case StateCountdown:
		r.advanceCountdown(now)
	case StateActive:
		r.checkCollisions(now)
		r.checkTimer(now)
	}
}

func (r *Room) enterCountdown(now time.Time, delay time.Duration) {
	r.state = StateCountdown
	r.countdown = CountdownFrom
	r.matchEnd = time.Time{}
	r.winner = nil
	r.detector.Reset()
	for _, p := range r.players {
		p.Body = physics.Spawn(p.Side.SpawnX(), &r.consts)
		r.scores[p.ID] = 0
	}
	if delay > 0 {
		r.startAt = now.Add(delay)
		return
	}
	r.sendGameStart(now)
}

func (r *Room) sendGameStart(now time.Time) {
	r.startAt = time.Time{}
	r.nextCountdown = now.Add(countdownStep)

	infos := make([]protocol.PlayerInfo, 0, len(r.players))
	for _, p := range r.players {
		infos = append(infos, protocol.PlayerInfo{
			ID:         p.ID,
			Position:   p.Body.Pos,
			Velocity:   p.Body.Vel,
			Grounded:   p.Body.Contact.Supported(),
			ArrowAngle: p.Body.ArrowAngle,
			Side:       string(p.Side),
		})
	}
	scores := protocol.Scores(r.order(), r.scores)
	for _, p := range r.players {
		p.send(protocol.MustEncode(protocol.MsgGameStart, protocol.GameStart{
			Players:       infos,
			YourPlayerID:  p.ID,
			Countdown:     r.countdown,
			Scores:        scores,
			MatchDuration: r.matchDuration.Milliseconds(),
			CustomLevel:   r.level,
		}))
	}
	Log.Infof("room %s: game start, countdown %d", r.Code, r.countdown)
}

func (r *Room) advanceCountdown(now time.Time) {
	if !r.startAt.IsZero() {
		if now.Before(r.startAt) {
			return
		}
		r.sendGameStart(now)
		return
	}
	for r.state == StateCountdown && !now.Before(r.nextCountdown) {
		r.countdown--
		if r.countdown <= 0 {
			r.goLive(now)
			return
		}
		r.broadcast(protocol.MsgCountdown, protocol.Countdown{Countdown: r.countdown})
		r.nextCountdown = r.nextCountdown.Add(countdownStep)
	}
}

// goLive 倒计时归零：广播开始信号并启动比赛计时
func (r *Room) goLive(now time.Time) {
	r.countdown = 0
	r.broadcast(protocol.MsgCountdown, protocol.Countdown{Countdown: 0, Message: protocol.GoMessage})
	r.state = StateActive
	r.matchEnd = now.Add(r.matchDuration)
	Log.Infof("room %s: match live until %s", r.Code, r.matchEnd.Format(time.RFC3339))
}

func (r *Room) checkCollisions(now time.Time) {
	if len(r.players) != MaxPlayers {
		return
	}
	a, b := r.players[0], r.players[1]
	ev, ok := r.detector.Check(
		Contender{ID: a.ID, Box: physics.Hitbox(&a.Body)},
		Contender{ID: b.ID, Box: physics.Hitbox(&b.Body)},
		now,
	)
	if !ok {
		return
	}
	r.scores[ev.AttackerID]++
	if att := r.player(ev.AttackerID); att != nil {
		physics.ApplyHeadBounce(&att.Body, now, &r.consts)
	}
	if tgt := r.player(ev.TargetID); tgt != nil {
		physics.Freeze(&tgt.Body, now, &r.consts)
	}
	r.metrics.IncHeadBounces()
	Log.Infof("room %s: head bounce %s -> %s (score %d)", r.Code, ev.AttackerID, ev.TargetID, r.scores[ev.AttackerID])
	r.broadcast(protocol.MsgHeadBounce, protocol.HeadBounce{AttackerID: ev.AttackerID, TargetID: ev.TargetID})
	r.broadcast(protocol.MsgScoreUpdate, protocol.ScoreUpdate{Scores: protocol.Scores(r.order(), r.scores)})
}

func (r *Room) checkTimer(now time.Time) {
	if r.matchEnd.IsZero() || now.Before(r.matchEnd) {
		return
	}
	r.state = StateEnded
	order := r.order()
	r.winner = decideWinner(order, r.scores)
	r.metrics.IncMatchesEnded()
	r.broadcast(protocol.MsgMatchEnd, protocol.MatchEnd{
		Winner: r.winner,
		Scores: protocol.Scores(order, r.scores),
		IsTie:  r.winner == nil,
	})
	Log.Infof("room %s: match ended, winner=%v", r.Code, deref(r.winner))
}

// decideWinner 分数严格更高者胜；相等（含 0:0）为平局，返回 nil
func decideWinner(order []string, scores map[string]int) *string {
	if len(order) != MaxPlayers {
		return nil
	}
	a, b := order[0], order[1]
	switch {
	case scores[a] > scores[b]:
		return &a
	case scores[b] > scores[a]:
		return &b
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return "<tie>"
	}
	return *s
}

func (r *Room) broadcast(t string, payload any) {
	b := protocol.MustEncode(t, payload)
	for _, p := range r.players {
		p.send(b)
	}
}

func (r *Room) broadcastExcept(id, t string, payload any) {
	b := protocol.MustEncode(t, payload)
	for _, p := range r.players {
		if p.ID != id {
			p.send(b)
		}
	}
}

func (r *Room) indexOf(id string) int {
	for i, p := range r.players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (r *Room) player(id string) *Player {
	if i := r.indexOf(id); i >= 0 {
		return r.players[i]
	}
	return nil
}

func (r *Room) order() []string {
	out := make([]string, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, p.ID)
	}
	return out
}

// RoomSnapshot 只读视图，供调度器、管理接口与测试使用
type RoomSnapshot struct {
	Code      string         `json:"code"`
	State     string         `json:"state"`
	Players   []string       `json:"players"`
	Scores    map[string]int `json:"scores"`
	Countdown int            `json:"countdown"`
	MatchEnd  *time.Time     `json:"matchEnd,omitempty"`
	Winner    *string        `json:"winner,omitempty"`
	Custom    bool           `json:"customLevel"`
}

func (r *Room) Snapshot() RoomSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	scores := make(map[string]int, len(r.scores))
	for k, v := range r.scores {
		scores[k] = v
	}
	snap := RoomSnapshot{
		Code:      r.Code,
		State:     r.state.String(),
		Players:   r.order(),
		Scores:    scores,
		Countdown: r.countdown,
		Winner:    r.winner,
		Custom:    r.level != nil,
	}
	if !r.matchEnd.IsZero() {
		end := r.matchEnd
		snap.MatchEnd = &end
	}
	return snap
}

// State 当前生命周期状态
func (r *Room) State() RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// NumPlayers 当前玩家数
func (r *Room) NumPlayers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// Closed 房间是否已销毁
func (r *Room) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
