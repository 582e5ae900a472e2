package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/camden-git/attendancebackend/session"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Event types pushed to websocket clients.
const (
	EventPhase       = "session.phase"
	EventCountdown   = "session.countdown"
	EventRosterReset = "roster.reset"
	EventRosterEntry = "roster.entry"
)

// Event represents a message sent to websocket clients
type Event struct {
	Type         string                `json:"type"`
	SessionID    uint                  `json:"session_id,omitempty"`
	Phase        *session.Phase        `json:"phase,omitempty"`
	RemainingSec *int64                `json:"remaining_sec,omitempty"`
	Roster       []session.RosterEntry `json:"roster,omitempty"`
	Entry        *session.RosterEntry  `json:"entry,omitempty"`
	Timestamp    int64                 `json:"timestamp"`
}

var _ session.Notifier = (*Hub)(nil)

type Client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub is a simple global pubsub for websocket clients. It implements
// session.Notifier so the controller's transitions reach every screen.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}
	mu         sync.Mutex

	// Snapshot, when set, supplies the events a newly connected client
	// receives before any broadcast.
	Snapshot func() []Event
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
	}
}

// Run dispatches registrations and broadcasts until ctx is done, then closes
// every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// slow reader
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) Broadcast(event Event) {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}
	encoded, err := json.Marshal(event)
	if err != nil {
		zap.S().Errorf("realtime: failed to marshal event: %v", err)
		return
	}
	select {
	case h.broadcast <- encoded:
	default:
		zap.S().Warnf("realtime: dropping %s event, broadcast channel full", event.Type)
	}
}

func (h *Hub) PhaseChanged(sessionID uint, phase session.Phase) {
	h.Broadcast(PhaseEvent(sessionID, phase))
}

func (h *Hub) Countdown(sessionID uint, phase session.Phase, remaining time.Duration) {
	h.Broadcast(CountdownEvent(sessionID, phase, remaining))
}

func (h *Hub) RosterReset(sessionID uint, roster []session.RosterEntry) {
	h.Broadcast(Event{Type: EventRosterReset, SessionID: sessionID, Roster: roster})
}

func (h *Hub) RosterUpdated(sessionID uint, entry session.RosterEntry) {
	h.Broadcast(Event{Type: EventRosterEntry, SessionID: sessionID, Entry: &entry})
}

// PhaseEvent builds a session.phase event.
func PhaseEvent(sessionID uint, phase session.Phase) Event {
	return Event{Type: EventPhase, SessionID: sessionID, Phase: &phase, Timestamp: time.Now().Unix()}
}

// CountdownEvent builds a session.countdown event. Remaining time is
// rounded up so the display reaches zero exactly at the phase boundary.
func CountdownEvent(sessionID uint, phase session.Phase, remaining time.Duration) Event {
	secs := int64((remaining + time.Second - 1) / time.Second)
	return Event{Type: EventCountdown, SessionID: sessionID, Phase: &phase, RemainingSec: &secs, Timestamp: time.Now().Unix()}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS upgrades the connection and registers a client
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Warnf("realtime: websocket upgrade error: %v", err)
		return
	}
	client := &Client{conn: conn, send: make(chan []byte, 256)}

	// queue the snapshot before registering so it precedes any broadcast
	if h.Snapshot != nil {
		for _, event := range h.Snapshot() {
			if event.Timestamp == 0 {
				event.Timestamp = time.Now().Unix()
			}
			encoded, err := json.Marshal(event)
			if err != nil {
				zap.S().Errorf("realtime: failed to marshal snapshot event: %v", err)
				continue
			}
			select {
			case client.send <- encoded:
			default:
			}
		}
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	// writer
	go func() {
		for msg := range client.send {
			if err := client.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				break
			}
		}
		client.conn.Close()
	}()

	// reader (just consume pings/close)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}
