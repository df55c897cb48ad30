package ws

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AppLauncher/backend/internal/domain/instance"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/domain/lifecycle"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/shared/id"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/shared/types"
)

// Message types on the stream
const (
	TypeSystem     = "system"
	TypeLifecycle  = "lifecycle"
	TypeCollection = "collection"
	TypePing       = "ping"
	TypePong       = "pong"
	TypeError      = "error"

	TypeWebViewOpen   = "webview_open"
	TypeWebViewFocus  = "webview_focus"
	TypeWebViewClose  = "webview_close"
	TypeWebViewOpened = "webview_opened"
	TypeWebViewFailed = "webview_failed"
	TypeWebViewClosed = "webview_closed"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 64

	DefaultOpenTimeout = 5 * time.Second
)

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub fans lifecycle events out to connected shell UIs and relays embedded
// browser requests to them.
type Hub struct {
	log         *logging.Logger
	metrics     *monitoring.Metrics
	upgrader    websocket.Upgrader
	openTimeout time.Duration
	now         func() time.Time

	mu       sync.Mutex
	clients  map[*client]struct{}
	sessions map[string]string
	pending  map[string]chan error
}

type Option func(*Hub)

func WithLogger(log *logging.Logger) Option {
	return func(h *Hub) { h.log = log }
}

// WithAllowedOrigins restricts which browser origins may connect. "*"
// allows any origin.
func WithAllowedOrigins(origins []string) Option {
	return func(h *Hub) {
		allowed := make(map[string]bool, len(origins))
		for _, o := range origins {
			allowed[strings.TrimRight(o, "/")] = true
		}
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowed["*"] || allowed[strings.TrimRight(origin, "/")]
		}
	}
}

// WithOpenTimeout bounds how long Open waits for the shell to confirm a session
func WithOpenTimeout(d time.Duration) Option {
	return func(h *Hub) { h.openTimeout = d }
}

// NewHub creates a hub with no connected clients
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		openTimeout: DefaultOpenTimeout,
		now:         time.Now,
		clients:     make(map[*client]struct{}),
		sessions:    make(map[string]string),
		pending:     make(map[string]chan error),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.log = logging.OrNop(h.log).Named("ws")
	return h
}

// WithMetrics records connection and message counts
func (h *Hub) WithMetrics(metrics *monitoring.Metrics) *Hub {
	h.metrics = metrics
	return h
}

// HandleConnection upgrades the request and serves the client until it
// disconnects
func (h *Hub) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	cl := &client{
		id:   id.NewSubscriberID().String(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	h.mu.Lock()
	h.clients[cl] = struct{}{}
	h.mu.Unlock()
	h.metrics.IncWSConnections()
	h.log.Info("Client connected", zap.String("client_id", cl.id), zap.String("remote", c.ClientIP()))

	h.sendTo(cl, types.WSMessage{Type: TypeSystem, Message: "connected"})

	go h.writePump(cl)
	h.readPump(cl)
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast sends msg to every client. Clients that cannot keep up are
// disconnected.
func (h *Hub) Broadcast(msg types.WSMessage) {
	if msg.Timestamp == 0 {
		msg.Timestamp = h.now().Unix()
	}
	data, err := sonic.Marshal(msg)
	if err != nil {
		h.log.Error("Encode failed", zap.String("type", msg.Type), zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.clients {
		select {
		case cl.send <- data:
			h.metrics.RecordWSMessage("out", msg.Type)
		default:
			h.log.Warn("Dropping slow client", zap.String("client_id", cl.id))
			h.dropLocked(cl)
		}
	}
}

// OnLifecycle forwards a lifecycle event. Subscribe it with
// lifecycle.Service.Subscribe.
func (h *Hub) OnLifecycle(ev lifecycle.Event) {
	reason := ev.Reason
	if ev.Method != "" {
		reason = string(ev.Method)
	}
	h.Broadcast(types.WSMessage{
		Type:     TypeLifecycle,
		Event:    string(ev.Kind),
		Instance: ev.Instance,
		Reason:   reason,
	})
}

// OnCollection forwards an instance registry event
func (h *Hub) OnCollection(ev instance.Event) {
	msg := types.WSMessage{
		Type:   TypeCollection,
		Event:  string(ev.Kind),
		Reason: ev.Reason,
	}
	if ev.Instance != nil {
		msg.Instance = ev.Instance
	}
	if !ev.At.IsZero() {
		msg.Timestamp = ev.At.Unix()
	}
	h.Broadcast(msg)
}

// Shutdown disconnects every client
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.clients {
		h.dropLocked(cl)
	}
	for sid, ch := range h.pending {
		select {
		case ch <- ErrNoShell:
		default:
		}
		delete(h.pending, sid)
	}
}

func (h *Hub) sendTo(cl *client, msg types.WSMessage) {
	if msg.Timestamp == 0 {
		msg.Timestamp = h.now().Unix()
	}
	data, err := sonic.Marshal(msg)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[cl]; !ok {
		return
	}
	select {
	case cl.send <- data:
		h.metrics.RecordWSMessage("out", msg.Type)
	default:
		h.dropLocked(cl)
	}
}

// dropLocked must be called with h.mu held
func (h *Hub) dropLocked(cl *client) {
	if _, ok := h.clients[cl]; !ok {
		return
	}
	delete(h.clients, cl)
	close(cl.send)
	h.metrics.DecWSConnections()
}

func (h *Hub) readPump(cl *client) {
	defer func() {
		h.mu.Lock()
		h.dropLocked(cl)
		h.mu.Unlock()
		cl.conn.Close()
		h.log.Info("Client disconnected", zap.String("client_id", cl.id))
	}()

	cl.conn.SetReadLimit(maxMessageSize)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := cl.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("Read failed", zap.String("client_id", cl.id), zap.Error(err))
			}
			return
		}
		var msg types.WSMessage
		if err := sonic.Unmarshal(data, &msg); err != nil {
			h.sendTo(cl, types.WSMessage{Type: TypeError, Message: "malformed message"})
			continue
		}
		h.metrics.RecordWSMessage("in", msg.Type)
		h.handle(cl, msg)
	}
}

func (h *Hub) writePump(cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cl.conn.Close()
	}()

	for {
		select {
		case data, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) handle(cl *client, msg types.WSMessage) {
	switch msg.Type {
	case TypePing:
		h.sendTo(cl, types.WSMessage{Type: TypePong})
	case TypeWebViewOpened:
		h.resolve(msg.SessionID, nil)
	case TypeWebViewFailed:
		h.resolve(msg.SessionID, &ShellError{SessionID: msg.SessionID, Message: msg.Message})
	case TypeWebViewClosed:
		h.mu.Lock()
		_, ok := h.sessions[msg.SessionID]
		delete(h.sessions, msg.SessionID)
		h.mu.Unlock()
		if ok {
			h.log.Info("Shell closed session", zap.String("session_id", msg.SessionID))
		}
	default:
		h.sendTo(cl, types.WSMessage{Type: TypeError, Message: "unknown message type"})
	}
}
