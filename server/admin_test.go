package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bouncybill/physics"
	"bouncybill/protocol"
)

func TestAdminConfigUpdateAffectsNewRooms(t *testing.T) {
	h := newHarness(0)
	admin := &Admin{Registry: h.reg, Metrics: h.disp.Metrics}

	body := `{"matchDurationMs":120000,"startDelayMs":0,"constants":` + mustJSON(t, func() physics.Constants {
		c := physics.Default()
		c.Gravity = 0.7
		return c
	}()) + `}`
	rec := httptest.NewRecorder()
	admin.HandleConfig(rec, httptest.NewRequest(http.MethodPost, "/admin/config", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("POST status = %d: %s", rec.Code, rec.Body)
	}
	d := h.reg.Defaults()
	if d.MatchDuration != 2*time.Minute || d.Constants.Gravity != 0.7 {
		t.Fatalf("defaults = %+v", d)
	}

	_, a, _ := h.pair(t)
	gs, _ := protocol.Decode[protocol.GameStart](a.last(t, protocol.MsgGameStart))
	if gs.MatchDuration != 120000 {
		t.Fatalf("new room matchDuration = %d", gs.MatchDuration)
	}
}

func TestAdminConfigRejectsShortMatch(t *testing.T) {
	h := newHarness(0)
	admin := &Admin{Registry: h.reg, Metrics: h.disp.Metrics}
	rec := httptest.NewRecorder()
	admin.HandleConfig(rec, httptest.NewRequest(http.MethodPost, "/admin/config", strings.NewReader(`{"matchDurationMs":1000}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if h.reg.Defaults().MatchDuration != time.Minute {
		t.Fatalf("rejected update changed defaults")
	}
}

func TestAdminConfigPartialConstants(t *testing.T) {
	h := newHarness(0)
	admin := &Admin{Registry: h.reg, Metrics: h.disp.Metrics}
	rec := httptest.NewRecorder()
	admin.HandleConfig(rec, httptest.NewRequest(http.MethodPost, "/admin/config", strings.NewReader(`{"constants":{"gravity":0.6}}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("POST status = %d: %s", rec.Code, rec.Body)
	}
	want := physics.Default()
	want.Gravity = 0.6
	d := h.reg.Defaults()
	if d.Constants != want {
		t.Fatalf("constants = %+v, want %+v", d.Constants, want)
	}
	if d.MatchDuration != time.Minute {
		t.Fatalf("match duration changed to %v", d.MatchDuration)
	}

	// 带校验时未提交的字段不会被当成零值拒绝
	admin.Check = func(c physics.Constants) error {
		if c.FrameMs <= 0 || c.MaxBouncePower <= 0 {
			return errors.New("constants zeroed")
		}
		return nil
	}
	rec = httptest.NewRecorder()
	admin.HandleConfig(rec, httptest.NewRequest(http.MethodPost, "/admin/config", strings.NewReader(`{"constants":{"gravity":0.5}}`)))
	if rec.Code != http.StatusOK || h.reg.Defaults().Constants.Gravity != 0.5 {
		t.Fatalf("checked partial update: status %d, gravity %v", rec.Code, h.reg.Defaults().Constants.Gravity)
	}
}

func TestAdminRoomsAndMetrics(t *testing.T) {
	h := newHarness(0)
	admin := &Admin{Registry: h.reg, Metrics: h.disp.Metrics}
	h.pair(t)

	rec := httptest.NewRecorder()
	admin.HandleRooms(rec, httptest.NewRequest(http.MethodGet, "/admin/rooms", nil))
	var rooms []RoomSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &rooms); err != nil {
		t.Fatalf("decode rooms: %v", err)
	}
	if len(rooms) != 1 || rooms[0].State != "countdown" || len(rooms[0].Players) != 2 {
		t.Fatalf("rooms = %+v", rooms)
	}

	rec = httptest.NewRecorder()
	admin.HandleMetrics(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	var out struct {
		Rooms   int              `json:"rooms"`
		Metrics map[string]int64 `json:"metrics"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode metrics: %v", err)
	}
	if out.Rooms != 1 || out.Metrics["rooms_created"] != 1 || out.Metrics["joins"] != 1 {
		t.Fatalf("metrics = %+v", out)
	}
}

func TestSchedulerTicksAllRooms(t *testing.T) {
	h := newHarness(0)
	r, _, _ := h.pair(t)
	s := NewScheduler(h.reg, h.disp.Metrics, 0)
	if s.Interval != time.Second/DefaultTickHz {
		t.Fatalf("interval = %v", s.Interval)
	}
	s.Now = h.clock.Now
	for i := 0; i < CountdownFrom; i++ {
		h.clock.Advance(time.Second)
		s.TickOnce()
	}
	if r.State() != StateActive {
		t.Fatalf("state = %v, want active", r.State())
	}
	if h.disp.Metrics.TickCount != CountdownFrom {
		t.Fatalf("tick count = %d", h.disp.Metrics.TickCount)
	}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}
