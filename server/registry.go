package server

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"bouncybill/level"
	"bouncybill/physics"
)

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrAlreadyInRoom = errors.New("already in this room")
	ErrUnknownConn   = errors.New("unknown connection")
)

const (
	codeChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLen   = 6
)

// codeRand 房间码随机源
var codeRand io.Reader = rand.Reader

// Identity 连接对应的玩家身份；RoomCode 为空表示不在任何房间
type Identity struct {
	PlayerID string
	RoomCode string
}

// Defaults 新房间使用的参数（可由 /admin/config 热更新，只影响之后创建的房间）
type Defaults struct {
	Constants     physics.Constants
	MatchDuration time.Duration
	StartDelay    time.Duration
}

// Registry 会话注册表：房间码 → 房间，连接 → 玩家身份；所有修改都经由这里
type Registry struct {
	mu       sync.RWMutex
	rooms    map[string]*Room
	sessions map[Conn]*Identity
	conns    map[string]Conn // playerID → 连接

	defaults Defaults
	now      func() time.Time
	metrics  *Metrics
}

// NewRegistry now 为 nil 时使用 time.Now
func NewRegistry(d Defaults, now func() time.Time, m *Metrics) *Registry {
	if now == nil {
		now = time.Now
	}
	if m == nil {
		m = &Metrics{}
	}
	return &Registry{
		rooms:    make(map[string]*Room),
		sessions: make(map[Conn]*Identity),
		conns:    make(map[string]Conn),
		defaults: d,
		now:      now,
		metrics:  m,
	}
}

func newPlayerID() string {
	return "player_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
}

// Connect 为新连接分配玩家 ID
func (g *Registry) Connect(conn Conn) Identity {
	g.mu.Lock()
	defer g.mu.Unlock()
	if id, ok := g.sessions[conn]; ok {
		return *id
	}
	id := &Identity{PlayerID: newPlayerID()}
	g.sessions[conn] = id
	g.conns[id.PlayerID] = conn
	return *id
}

// Identity 查询连接的身份
func (g *Registry) Identity(conn Conn) (Identity, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	id, ok := g.sessions[conn]
	if !ok {
		return Identity{}, false
	}
	return *id, true
}

// CreateRoom 分配唯一房间码并让该连接成为唯一玩家。lv 可为 nil；
// matchDuration 小于默认时长时按默认处理
func (g *Registry) CreateRoom(conn Conn, lv *level.Level, matchDuration time.Duration) (*Room, error) {
	if lv != nil {
		if err := lv.Validate(); err != nil {
			return nil, err
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	id, ok := g.sessions[conn]
	if !ok {
		return nil, ErrUnknownConn
	}
	code, err := g.uniqueCodeLocked()
	if err != nil {
		return nil, err
	}
	g.leaveLocked(id)

	if matchDuration < g.defaults.MatchDuration {
		matchDuration = g.defaults.MatchDuration
	}
	r := NewRoom(code, RoomOptions{
		Level:         lv,
		MatchDuration: matchDuration,
		StartDelay:    g.defaults.StartDelay,
		Constants:     g.defaults.Constants,
		Now:           g.now,
		Metrics:       g.metrics,
	})
	if err := r.Host(id.PlayerID, conn); err != nil {
		return nil, err
	}
	g.rooms[code] = r
	id.RoomCode = code
	g.metrics.IncRoomsCreated()
	Log.Infof("room %s created by %s (custom level=%v)", code, id.PlayerID, lv != nil)
	return r, nil
}

// JoinRoom 按房间码加入（大小写不敏感）。房间不存在或已满时返回错误，不做部分加入
func (g *Registry) JoinRoom(conn Conn, code string) (*Room, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	g.mu.Lock()
	defer g.mu.Unlock()
	id, ok := g.sessions[conn]
	if !ok {
		return nil, ErrUnknownConn
	}
	r, ok := g.rooms[code]
	if !ok {
		g.metrics.IncJoinErrors()
		return nil, fmt.Errorf("join %q: %w", code, ErrRoomNotFound)
	}
	if id.RoomCode == code {
		g.metrics.IncJoinErrors()
		return nil, fmt.Errorf("join %q: %w", code, ErrAlreadyInRoom)
	}
	if r.NumPlayers() >= MaxPlayers {
		g.metrics.IncJoinErrors()
		return nil, fmt.Errorf("join %q: %w", code, ErrRoomFull)
	}
	g.leaveLocked(id)
	if err := r.Join(id.PlayerID, conn); err != nil {
		g.metrics.IncJoinErrors()
		return nil, fmt.Errorf("join %q: %w", code, err)
	}
	id.RoomCode = code
	g.metrics.IncJoins()
	Log.Infof("room %s: %s joined", code, id.PlayerID)
	return r, nil
}

// RoomOf 连接当前所在的房间
func (g *Registry) RoomOf(conn Conn) (*Room, Identity, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	id, ok := g.sessions[conn]
	if !ok || id.RoomCode == "" {
		return nil, Identity{}, false
	}
	r, ok := g.rooms[id.RoomCode]
	if !ok {
		return nil, Identity{}, false
	}
	return r, *id, true
}

// Lookup 按房间码查找
func (g *Registry) Lookup(code string) (*Room, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.rooms[strings.ToUpper(code)]
	return r, ok
}

// Disconnect 连接关闭：房间立即销毁并通知对端，不做重连保留
func (g *Registry) Disconnect(conn Conn) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, ok := g.sessions[conn]
	if !ok {
		return
	}
	g.leaveLocked(id)
	delete(g.sessions, conn)
	delete(g.conns, id.PlayerID)
}

// leaveLocked 离开当前房间并销毁之；调用方持有 g.mu
func (g *Registry) leaveLocked(id *Identity) {
	if id.RoomCode == "" {
		return
	}
	code := id.RoomCode
	id.RoomCode = ""
	r, ok := g.rooms[code]
	if !ok {
		return
	}
	rest := r.Leave(id.PlayerID)
	r.Close()
	delete(g.rooms, code)
	for _, pid := range rest {
		if c, ok := g.conns[pid]; ok {
			if other, ok := g.sessions[c]; ok && other.RoomCode == code {
				other.RoomCode = ""
			}
		}
	}
	g.metrics.IncRoomsClosed()
	Log.Infof("room %s closed: %s left", code, id.PlayerID)
}

func (g *Registry) uniqueCodeLocked() (string, error) {
	for {
		code, err := generateCode(codeLen)
		if err != nil {
			return "", err
		}
		if _, exists := g.rooms[code]; !exists {
			return code, nil
		}
	}
}

// Rooms 房间快照，供调度器遍历（不持锁调用 Tick）
func (g *Registry) Rooms() []*Room {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Room, 0, len(g.rooms))
	for _, r := range g.rooms {
		out = append(out, r)
	}
	return out
}

// ListRooms 管理接口：按房间码排序
func (g *Registry) ListRooms() []RoomSnapshot {
	rooms := g.Rooms()
	out := make([]RoomSnapshot, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Len 房间数
func (g *Registry) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}

// Defaults 当前新房间参数
func (g *Registry) Defaults() Defaults {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.defaults
}

// SetDefaults 更新新房间参数
func (g *Registry) SetDefaults(d Defaults) {
	g.mu.Lock()
	g.defaults = d
	g.mu.Unlock()
}

func generateCode(n int) (string, error) {
	b := make([]byte, n)
	alphabet := big.NewInt(int64(len(codeChars)))
	for i := range b {
		idx, err := rand.Int(codeRand, alphabet)
		if err != nil {
			return "", fmt.Errorf("room code: %w", err)
		}
		b[i] = codeChars[idx.Int64()]
	}
	return string(b), nil
}
