// Package net mirrors a board to read-only viewers on the local network.
package net

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"CrayonBoard/internal/state"

	"github.com/gorilla/websocket"
)

// MessageType tags every frame sent over the mirror socket.
type MessageType string

// MsgSnapshot carries a full scene snapshot.
const MsgSnapshot MessageType = "snapshot"

// Message is the wire format between host and viewers.
type Message struct {
	Type     MessageType     `json:"type"`
	Revision uint64          `json:"revision,omitempty"`
	Scene    json.RawMessage `json:"scene,omitempty"`
}

// ErrHubClosed is returned by Broadcast after Close.
var ErrHubClosed = errors.New("hub closed")

const writeWait = 5 * time.Second

// peer is one connected viewer. send holds at most the latest frame.
type peer struct {
	conn *websocket.Conn
	addr string
	send chan []byte
	done chan struct{}
}

// offer queues msg, replacing a frame the viewer has not picked up yet.
func (p *peer) offer(msg []byte) {
	for {
		select {
		case p.send <- msg:
			return
		default:
		}
		select {
		case <-p.send:
		default:
		}
	}
}

func (p *peer) writeLoop() {
	for {
		select {
		case msg := <-p.send:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				state.Logger().Warn("[NET] send failed", "peer", p.addr, "err", err)
				p.conn.Close()
				return
			}
		case <-p.done:
			return
		}
	}
}

// Hub keeps the connected viewers and fans snapshots out to them. New
// viewers get the latest snapshot as soon as they connect.
type Hub struct {
	upgrader websocket.Upgrader

	mu     sync.RWMutex
	peers  map[*peer]struct{}
	last   []byte
	closed bool

	// OnJoin and OnLeave are called with the viewer's remote address.
	OnJoin  func(addr string)
	OnLeave func(addr string)
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		peers:    make(map[*peer]struct{}),
	}
}

// Handler serves the socket on /ws and the latest snapshot on /scene.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", h)
	mux.HandleFunc("/scene", h.serveScene)
	return mux
}

// ServeHTTP upgrades the request and serves one viewer until it leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		state.Logger().Warn("[NET] upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	p := &peer{
		conn: conn,
		addr: r.RemoteAddr,
		send: make(chan []byte, 1),
		done: make(chan struct{}),
	}
	if !h.add(p) {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
		conn.Close()
		return
	}
	go p.writeLoop()

	// Viewers are read only; reading only detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(p)
}

func (h *Hub) add(p *peer) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.peers[p] = struct{}{}
	if h.last != nil {
		p.offer(h.last)
	}
	n := len(h.peers)
	h.mu.Unlock()

	state.Logger().Info("[NET] viewer joined", "peer", p.addr, "viewers", n)
	if h.OnJoin != nil {
		h.OnJoin(p.addr)
	}
	return true
}

func (h *Hub) remove(p *peer) {
	h.mu.Lock()
	_, ok := h.peers[p]
	delete(h.peers, p)
	h.mu.Unlock()

	close(p.done)
	p.conn.Close()
	if !ok {
		return
	}
	state.Logger().Info("[NET] viewer left", "peer", p.addr)
	if h.OnLeave != nil {
		h.OnLeave(p.addr)
	}
}

// Broadcast sends snap to every viewer and keeps it for late joiners.
func (h *Hub) Broadcast(snap state.Snapshot) error {
	rev, err := snap.Revision()
	if err != nil {
		return err
	}
	msg, err := json.Marshal(Message{Type: MsgSnapshot, Revision: rev, Scene: json.RawMessage(snap)})
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHubClosed
	}
	h.last = msg
	for p := range h.peers {
		p.offer(msg)
	}
	return nil
}

// Viewers returns the number of connected viewers.
func (h *Hub) Viewers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

// Close tells every viewer the host is leaving and drops them.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	peers := make([]*peer, 0, len(h.peers))
	for p := range h.peers {
		peers = append(peers, p)
	}
	h.mu.Unlock()

	bye := websocket.FormatCloseMessage(websocket.CloseGoingAway, "host closing")
	deadline := time.Now().Add(writeWait)
	for _, p := range peers {
		p.conn.WriteControl(websocket.CloseMessage, bye, deadline)
		p.conn.Close()
	}
}

func (h *Hub) serveScene(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	last := h.last
	h.mu.RUnlock()
	if last == nil {
		http.Error(w, "no scene yet", http.StatusServiceUnavailable)
		return
	}
	var msg Message
	if err := json.Unmarshal(last, &msg); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(msg.Scene)
}
