// Package events fans shift events out to websocket subscribers of a branch.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/evn/pos_backend/config"
	"github.com/evn/pos_backend/internal/models"
)

const (
	sendBuffer = 256
	pingPeriod = 30 * time.Second
	pongWait   = 60 * time.Second
	writeWait  = 10 * time.Second
)

// Client is one websocket subscriber of a branch.
type Client struct {
	Conn      *websocket.Conn
	Send      chan []byte
	BranchID  string
	AccountID string
}

func NewClient(conn *websocket.Conn, branchID, accountID string) *Client {
	return &Client{
		Conn:      conn,
		Send:      make(chan []byte, sendBuffer),
		BranchID:  branchID,
		AccountID: accountID,
	}
}

var errHubStopped = errors.New("events: hub stopped")

type message struct {
	branchID string
	data     []byte
}

// Hub delivers events to the clients of this process. It implements
// ledger.Publisher for single-instance deployments; with Redis the relay
// feeds it instead.
type Hub struct {
	clients    map[string]map[*Client]bool
	broadcast  chan message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	log        *logrus.Logger
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		broadcast:  make(chan message, sendBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        config.GetLogger(),
	}
}

// Register adds client to its branch. Once the hub has stopped the client's
// Send channel is closed instead, so its write pump exits.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

// Unregister removes client. It returns immediately after the hub has stopped.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish encodes ev and queues it for the branch's subscribers.
func (h *Hub) Publish(ctx context.Context, ev models.ShiftEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return h.Deliver(ctx, ev.BranchID, data)
}

// Deliver queues an already encoded event.
func (h *Hub) Deliver(ctx context.Context, branchID string, data []byte) error {
	select {
	case <-h.done:
		return errHubStopped
	default:
	}
	select {
	case h.broadcast <- message{branchID: branchID, data: data}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return errHubStopped
	}
}

// Subscribers returns the number of clients connected for a branch.
func (h *Hub) Subscribers(branchID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[branchID])
}

// Run owns the client set until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.BranchID] == nil {
				h.clients[client.BranchID] = make(map[*Client]bool)
			}
			h.clients[client.BranchID][client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients[msg.branchID] {
				select {
				case client.Send <- msg.data:
				default:
					// slow consumer
					h.remove(client)
				}
			}
			h.mu.Unlock()
		case <-ctx.Done():
			h.mu.Lock()
			for _, set := range h.clients {
				for client := range set {
					h.remove(client)
				}
			}
			h.mu.Unlock()
			return
		}
	}
}

// remove must be called with mu held.
func (h *Hub) remove(client *Client) {
	set, ok := h.clients[client.BranchID]
	if !ok || !set[client] {
		return
	}
	delete(set, client)
	close(client.Send)
	if len(set) == 0 {
		delete(h.clients, client.BranchID)
	}
}

// ReadPump drains the connection so control frames are processed. Clients
// never send data; any read error ends the subscription.
func (h *Hub) ReadPump(client *Client) {
	defer func() {
		h.Unregister(client)
		client.Conn.Close()
	}()

	client.Conn.SetReadLimit(512)
	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		return client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.WithFields(logrus.Fields{
					"module": "events",
					"branch": client.BranchID,
				}).WithError(err).Warn("websocket closed unexpectedly")
			}
			return
		}
	}
}

func (h *Hub) WritePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
