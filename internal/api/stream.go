package api

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event types broadcast on the case stream.
const (
	EventAnalysis = "analysis"
	EventRescored = "rescored"
	EventDeleted  = "deleted"
)

// AnalysisEvent describes websocket payloads emitted when cases change.
type AnalysisEvent struct {
	Type      string    `json:"type"`
	CaseID    string    `json:"case_id"`
	Case      *CaseDTO  `json:"case,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// wsClient wraps a websocket connection with write locking.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// AnalysisNotifier keeps track of active websocket clients and broadcasts case events.
type AnalysisNotifier struct {
	mu         sync.Mutex
	clients    map[*wsClient]struct{}
	lastStatus *AnalysisEvent
}

// NewAnalysisNotifier constructs a notifier instance.
func NewAnalysisNotifier() *AnalysisNotifier {
	return &AnalysisNotifier{clients: make(map[*wsClient]struct{})}
}

// Register attaches a websocket connection and replays the latest analysis.
func (n *AnalysisNotifier) Register(conn *websocket.Conn) *wsClient {
	client := &wsClient{conn: conn}
	n.mu.Lock()
	n.clients[client] = struct{}{}
	status := n.lastStatus
	n.mu.Unlock()

	if status != nil {
		_ = client.writeJSON(*status)
	}
	return client
}

// Unregister removes the websocket client from the notifier and closes the socket.
func (n *AnalysisNotifier) Unregister(client *wsClient) {
	if client == nil {
		return
	}
	n.mu.Lock()
	delete(n.clients, client)
	n.mu.Unlock()
	_ = client.conn.Close()
}

// Broadcast sends the supplied event to all registered websocket clients.
// Clients that fail a write are dropped.
func (n *AnalysisNotifier) Broadcast(event AnalysisEvent) {
	event.Timestamp = time.Now().UTC()

	n.mu.Lock()
	defer n.mu.Unlock()
	switch event.Type {
	case EventAnalysis, EventRescored:
		snapshot := event
		n.lastStatus = &snapshot
	case EventDeleted:
		if n.lastStatus != nil && n.lastStatus.CaseID == event.CaseID {
			n.lastStatus = nil
		}
	}

	for client := range n.clients {
		if err := client.writeJSON(event); err != nil {
			delete(n.clients, client)
			_ = client.conn.Close()
		}
	}
}

// ClientCount reports the number of connected clients.
func (n *AnalysisNotifier) ClientCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.clients)
}

func (c *wsClient) writeJSON(payload interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(payload)
}

// LastStatus returns a copy of the most recent analysis event.
func (n *AnalysisNotifier) LastStatus() *AnalysisEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.lastStatus == nil {
		return nil
	}
	copy := *n.lastStatus
	return &copy
}
