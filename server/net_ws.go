package server

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	sendQueueSize = 64
	writeWait     = 5 * time.Second
	pongWait      = 60 * time.Second
	pingPeriod    = 25 * time.Second
	maxMessage    = 1 << 20 // 1MB
)

var ErrConnClosed = errors.New("connection closed")

// ClientConn 负责发送（写）数据到客户端的轻量包装，实现 Conn
type ClientConn struct {
	ws      *websocket.Conn
	metrics *Metrics

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func NewClientConn(ws *websocket.Conn, m *Metrics) *ClientConn {
	if m == nil {
		m = &Metrics{}
	}
	return &ClientConn{
		ws:      ws,
		metrics: m,
		send:    make(chan []byte, sendQueueSize),
	}
}

// Send 将要发送的消息压入队列（非阻塞，满则丢弃）
func (c *ClientConn) Send(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- b:
	default:
		// 为了实时性，丢弃新消息（防止阻塞房间逻辑）
		c.metrics.IncSendQueueDrops()
	}
	return nil
}

// Close 关闭发送队列，写协程随之退出并关闭底层连接
func (c *ClientConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.send)
	return nil
}

// writePump 独立协程，负责从 send 队列写出到 WS，并定时 ping
func (c *ClientConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 读取客户端消息交给 Dispatcher；退出时立即断开会话
func (c *ClientConn) readPump(reg *Registry, d *Dispatcher) {
	defer func() {
		reg.Disconnect(c)
		_ = c.Close()
		_ = c.ws.Close()
	}()
	c.ws.SetReadLimit(maxMessage)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error { return c.ws.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				Log.Debugf("read error: %v", err)
			}
			return
		}
		d.Handle(c, payload)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 演示环境：允许所有来源（生产环境需严格限制）
		return true
	},
}

// WSHandler WebSocket 接入点
type WSHandler struct {
	Registry   *Registry
	Dispatcher *Dispatcher
	Metrics    *Metrics
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		Log.Warnf("upgrade error: %v", err)
		return
	}
	client := NewClientConn(ws, h.Metrics)
	id := h.Registry.Connect(client)
	Log.Debugf("connection from %s as %s", r.RemoteAddr, id.PlayerID)

	go client.writePump()
	go client.readPump(h.Registry, h.Dispatcher)
}
