// bouncebot 无界面客户端：连上服务器，建房或加入房间，按简单策略打完一局
package main

import (
	"context"
	"flag"
	"math/rand"
	"net/url"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"bouncybill/client"
	"bouncybill/config"
	"bouncybill/physics"
)

const writeWait = 5 * time.Second

// wsSender 串行化写入，gorilla 连接只允许一个写者
type wsSender struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (s *wsSender) Send(b []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return s.ws.WriteMessage(websocket.TextMessage, b)
}

func main() {
	var (
		addr, room, physicsFile string
		again                   bool
		hz                      int
	)
	flag.StringVar(&addr, "addr", "localhost:3000", "server host:port")
	flag.StringVar(&room, "room", "", "room code to join; empty creates a new room")
	flag.StringVar(&physicsFile, "physics", "", "optional physics TOML file")
	flag.BoolVar(&again, "again", false, "request another round after each match")
	flag.IntVar(&hz, "hz", 60, "frame rate")
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()
	log := logger.Sugar()

	consts, err := config.LoadPhysics(physicsFile, physics.Default())
	if err != nil {
		log.Fatalf("physics: %v", err)
	}

	u := url.URL{Scheme: "ws", Host: addr, Path: "/ws"}
	ws, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("dial %s: %v", u.String(), err)
	}
	defer ws.Close()
	log.Infof("connected to %s", u.String())

	out := &wsSender{ws: ws}
	game := client.NewGame(out, consts, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		defer stop()
		for {
			_, msg, err := ws.ReadMessage()
			if err != nil {
				log.Infof("read: %v", err)
				return
			}
			if err := game.HandleMessage(msg, time.Now()); err != nil {
				log.Debugf("bad frame: %v", err)
			}
		}
	}()

	if room == "" {
		err = game.CreateRoom(nil, 0)
	} else {
		err = game.JoinRoom(room)
	}
	if err != nil {
		log.Fatalf("send: %v", err)
	}

	if hz <= 0 {
		hz = 60
	}
	b := &bot{game: game, log: log, again: again}
	ticker := time.NewTicker(time.Second / time.Duration(hz))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case now := <-ticker.C:
			if b.step(now) {
				_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
		}
	}
}

// bot 策略：站稳后随机蓄力再释放，朝对手方向走
type bot struct {
	game  *client.Game
	log   *zap.SugaredLogger
	again bool

	releaseAt time.Time
	lastRoom  string
	reported  bool
}

func (b *bot) step(now time.Time) bool {
	s := b.game.Snapshot()
	if s.RoomID != "" && s.RoomID != b.lastRoom {
		b.lastRoom = s.RoomID
		b.log.Infof("room %s, player %s", s.RoomID, s.SelfID)
	}
	if s.LastError != "" && s.RoomID == "" {
		b.log.Errorf("cannot join: %s", s.LastError)
		return true
	}

	switch s.Status {
	case client.StatusOver:
		if s.PeerLeft {
			b.log.Info("opponent left")
			return true
		}
		if !b.reported && s.Result != nil {
			b.reported = true
			if s.Result.IsTie {
				b.log.Infof("match ended in a tie: %+v", s.Result.Scores)
			} else {
				b.log.Infof("match won by %s: %+v", *s.Result.Winner, s.Result.Scores)
			}
			if !b.again {
				return true
			}
			if err := b.game.PlayAgain(); err != nil {
				b.log.Warnf("playAgain: %v", err)
			}
		}
		return false
	case client.StatusPlaying:
		b.reported = false
	default:
		return false
	}

	b.steer(s)
	if err := b.game.Frame(now); err != nil {
		b.log.Warnf("frame: %v", err)
		return true
	}

	self, ok := b.game.Self()
	if !ok {
		return false
	}
	switch {
	case !self.Charging && self.Body.Contact.Supported():
		_ = b.game.PressCharge(now)
		b.releaseAt = now.Add(time.Duration(200+rand.Intn(700)) * time.Millisecond)
	case self.Charging && !now.Before(b.releaseAt):
		if _, err := b.game.ReleaseCharge(now); err != nil {
			b.log.Warnf("release: %v", err)
		}
	case !self.Charging && self.Body.BoostsLeft > 0 && self.Body.Vel.Y > 2 && rand.Intn(30) == 0:
		// 下落中偶尔补一次小跳
		_ = b.game.PressCharge(now)
		b.releaseAt = now.Add(100 * time.Millisecond)
	}
	return false
}

func (b *bot) steer(s client.Snapshot) {
	var me, other *client.PlayerState
	for i := range s.Players {
		if s.Players[i].ID == s.SelfID {
			me = &s.Players[i]
		} else {
			other = &s.Players[i]
		}
	}
	if me == nil || other == nil {
		b.game.SetMove(0)
		return
	}
	dx := other.Body.Pos.X - me.Body.Pos.X
	switch {
	case dx > physics.BodyWidth:
		b.game.SetMove(1)
	case dx < -physics.BodyWidth:
		b.game.SetMove(-1)
	default:
		b.game.SetMove(0)
	}
}
