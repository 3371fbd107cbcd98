package server

import (
	"sync"
	"testing"
	"time"

	"bouncybill/physics"
	"bouncybill/protocol"
)

type fakeConn struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func (f *fakeConn) Send(b []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]byte, len(b))
	copy(cp, b)
	f.frames = append(f.frames, cp)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// ofType 返回所有指定类型的帧
func (f *fakeConn) ofType(t *testing.T, typ string) [][]byte {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	var out [][]byte
	for _, b := range f.frames {
		got, err := protocol.DecodeType(b)
		if err != nil {
			t.Fatalf("server sent undecodable frame %s: %v", b, err)
		}
		if got == typ {
			out = append(out, b)
		}
	}
	return out
}

func (f *fakeConn) last(t *testing.T, typ string) []byte {
	t.Helper()
	frames := f.ofType(t, typ)
	if len(frames) == 0 {
		t.Fatalf("no %q frame received", typ)
	}
	return frames[len(frames)-1]
}

func (f *fakeConn) reset() {
	f.mu.Lock()
	f.frames = nil
	f.mu.Unlock()
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
	return c.t
}

type harness struct {
	clock *fakeClock
	reg   *Registry
	disp  *Dispatcher
}

func newHarness(startDelay time.Duration) *harness {
	clk := newClock()
	m := &Metrics{}
	reg := NewRegistry(Defaults{
		Constants:     physics.Default(),
		MatchDuration: 60 * time.Second,
		StartDelay:    startDelay,
	}, clk.Now, m)
	return &harness{clock: clk, reg: reg, disp: NewDispatcher(reg, m)}
}

func (h *harness) connect() *fakeConn {
	c := &fakeConn{}
	h.reg.Connect(c)
	return c
}

func (h *harness) send(t *testing.T, c *fakeConn, typ string, payload any) {
	t.Helper()
	b, err := protocol.Encode(typ, payload)
	if err != nil {
		t.Fatalf("encode %s: %v", typ, err)
	}
	h.disp.Handle(c, b)
}

// pair 创建房间并让第二名玩家加入，返回房间与两端连接
func (h *harness) pair(t *testing.T) (*Room, *fakeConn, *fakeConn) {
	t.Helper()
	a, b := h.connect(), h.connect()
	h.send(t, a, protocol.MsgCreateRoom, nil)
	created, err := protocol.Decode[protocol.RoomCreated](a.last(t, protocol.MsgRoomCreated))
	if err != nil {
		t.Fatalf("decode roomCreated: %v", err)
	}
	h.send(t, b, protocol.MsgJoinRoom, protocol.JoinRoom{RoomID: created.RoomID})
	r, ok := h.reg.Lookup(created.RoomID)
	if !ok {
		t.Fatalf("room %s not registered", created.RoomID)
	}
	return r, a, b
}

// goLive 跑完倒计时，返回开局时刻
func (h *harness) goLive(t *testing.T, r *Room) time.Time {
	t.Helper()
	for i := 0; i < CountdownFrom; i++ {
		r.Tick(h.clock.Advance(time.Second))
	}
	if r.State() != StateActive {
		t.Fatalf("state after countdown = %v, want active", r.State())
	}
	return h.clock.Now()
}

func playerID(t *testing.T, h *harness, c *fakeConn) string {
	t.Helper()
	id, ok := h.reg.Identity(c)
	if !ok {
		t.Fatalf("connection not registered")
	}
	return id.PlayerID
}
