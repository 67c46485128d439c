package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/wastewise/backend/internal/domain"
	"github.com/wastewise/backend/internal/middleware"
	"github.com/wastewise/backend/pkg/response"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now (adjust for production)
	},
}

type wsClient struct {
	conn      *websocket.Conn
	send      chan []byte
	accountID uuid.UUID
	category  domain.Category
}

// RealtimeManager fans notifications out to connected websocket clients.
// It implements domain.RealtimePublisher: targeted notifications go to the
// recipient's connections, broadcasts go to every connection in the category.
type RealtimeManager struct {
	clients    map[*wsClient]bool
	register   chan *wsClient
	unregister chan *wsClient
	// accountClients maps (category, accountID) to active connections
	// so one account can hold several devices open at once.
	accountClients map[domain.Category]map[uuid.UUID]map[*wsClient]bool
	mu             sync.RWMutex
	logger         *zap.Logger
}

func NewRealtimeManager(logger *zap.Logger) *RealtimeManager {
	return &RealtimeManager{
		clients:        make(map[*wsClient]bool),
		register:       make(chan *wsClient),
		unregister:     make(chan *wsClient),
		accountClients: make(map[domain.Category]map[uuid.UUID]map[*wsClient]bool),
		logger:         logger,
	}
}

func (m *RealtimeManager) Run() {
	for {
		select {
		case client := <-m.register:
			m.mu.Lock()
			m.clients[client] = true
			if _, ok := m.accountClients[client.category]; !ok {
				m.accountClients[client.category] = make(map[uuid.UUID]map[*wsClient]bool)
			}
			if _, ok := m.accountClients[client.category][client.accountID]; !ok {
				m.accountClients[client.category][client.accountID] = make(map[*wsClient]bool)
			}
			m.accountClients[client.category][client.accountID][client] = true
			m.mu.Unlock()
			m.logger.Debug("realtime client connected",
				zap.String("account_id", client.accountID.String()),
				zap.String("category", string(client.category)))

		case client := <-m.unregister:
			m.mu.Lock()
			if _, ok := m.clients[client]; ok {
				delete(m.clients, client)
				if byAccount, ok := m.accountClients[client.category]; ok {
					if conns, ok := byAccount[client.accountID]; ok {
						delete(conns, client)
						if len(conns) == 0 {
							delete(byAccount, client.accountID)
						}
					}
				}
				close(client.send)
				m.logger.Debug("realtime client disconnected",
					zap.String("account_id", client.accountID.String()))
			}
			m.mu.Unlock()
		}
	}
}

type realtimeEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Publish delivers a stored notification to connected clients. Best effort:
// slow clients are skipped rather than blocking the dispatch path.
func (m *RealtimeManager) Publish(n *domain.Notification) {
	msg, err := json.Marshal(realtimeEvent{Type: "notification", Payload: n})
	if err != nil {
		m.logger.Error("failed to marshal realtime event", zap.Error(err))
		return
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if n.Recipient == nil {
		for byAccount := range m.accountClients[n.RecipientCategory] {
			for client := range m.accountClients[n.RecipientCategory][byAccount] {
				m.trySend(client, msg)
			}
		}
		return
	}

	for client := range m.accountClients[n.RecipientCategory][*n.Recipient] {
		m.trySend(client, msg)
	}
}

func (m *RealtimeManager) trySend(client *wsClient, msg []byte) {
	select {
	case client.send <- msg:
	default:
		// buffer full; the read pump will reap the connection
	}
}

// HandleWS upgrades an authenticated request to a websocket connection.
func (m *RealtimeManager) HandleWS(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}
	category, ok := middleware.GetCategory(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &wsClient{
		conn:      conn,
		send:      make(chan []byte, 64),
		accountID: accountID,
		category:  category,
	}
	m.register <- client

	go client.writePump()
	go client.readPump(m)
}

func (c *wsClient) readPump(m *RealtimeManager) {
	defer func() {
		m.unregister <- c
		c.conn.Close()
	}()

	for {
		// Server push only; inbound frames are drained to detect close.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *wsClient) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		w, err := c.conn.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}
		w.Write(message)

		n := len(c.send)
		for i := 0; i < n; i++ {
			w.Write(<-c.send)
		}

		if err := w.Close(); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
