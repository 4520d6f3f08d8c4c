// Package chattest runs an in-process chat server speaking the same JSON
// frames and REST routes as the real one. It backs integration tests.
package chattest

import (
	"c2c-client/protocol"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
)

type Server struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu      sync.Mutex
	rooms   map[string]map[string]*peer
	conns   map[*peer]struct{}
	beacons []string
}

type peer struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	roomID string
	name   string
}

func (p *peer) send(env protocol.Envelope) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.conn.WriteJSON(env)
}

type apiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Status  int    `json:"status"`
}

func NewServer() *Server {
	s := &Server{
		rooms: make(map[string]map[string]*peer),
		conns: make(map[*peer]struct{}),
	}

	r := chi.NewRouter()
	r.Get("/ws", s.serveWS)
	r.Route("/api/rooms", func(r chi.Router) {
		r.Post("/", s.createRoom)
		r.Get("/{roomID}", s.roomInfo)
		r.Post("/{roomID}/leave", s.leaveBeacon)
	})
	s.srv = httptest.NewServer(r)
	return s
}

func (s *Server) URL() string {
	return s.srv.URL
}

func (s *Server) WebsocketURL() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/ws"
}

func (s *Server) Close() {
	s.DropAll()
	s.srv.Close()
}

// OpenRoom registers a room without going through the REST API.
func (s *Server) OpenRoom(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[roomID]; !ok {
		s.rooms[roomID] = make(map[string]*peer)
	}
}

func (s *Server) Members(roomID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	members := lo.Keys(s.rooms[roomID])
	sort.Strings(members)
	return members
}

// Beacons lists "room/user" for every leave received over REST.
func (s *Server) Beacons() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.beacons...)
}

// DropAll closes every live connection without a close handshake.
func (s *Server) DropAll() {
	s.mu.Lock()
	peers := lo.Keys(s.conns)
	s.mu.Unlock()
	for _, p := range peers {
		_ = p.conn.UnderlyingConn().Close()
	}
}

// SendError pushes an error frame to every member of the room.
func (s *Server) SendError(roomID, code, message string) {
	for _, p := range s.peers(roomID) {
		p.send(protocol.Envelope{Type: protocol.TypeError, Code: code, Message: message})
	}
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	p := &peer{conn: conn}
	s.mu.Lock()
	s.conns[p] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, p)
		s.mu.Unlock()
		s.remove(p)
		_ = conn.Close()
	}()

	for {
		var env protocol.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			return
		}
		switch env.Type {
		case protocol.TypeJoin:
			s.join(p, env)
		case protocol.TypeChat:
			s.mu.Lock()
			roomID, name := p.roomID, p.name
			s.mu.Unlock()
			if roomID == "" {
				continue
			}
			s.broadcast(roomID, protocol.Envelope{Type: protocol.TypeMessage, From: name, Text: env.Text}, nil)
		case protocol.TypePing:
			p.send(protocol.Envelope{Type: protocol.TypePong})
		case protocol.TypeLeave:
			s.remove(p)
		}
	}
}

func (s *Server) join(p *peer, env protocol.Envelope) {
	s.mu.Lock()
	room, ok := s.rooms[env.RoomID]
	if !ok {
		s.mu.Unlock()
		p.send(protocol.Envelope{Type: protocol.TypeError, Code: "ROOM_NOT_FOUND", Message: "Room not found"})
		return
	}
	_, rejoin := room[env.Token]
	p.roomID, p.name = env.RoomID, env.Token
	room[p.name] = p
	members := lo.Keys(room)
	s.mu.Unlock()

	sort.Strings(members)
	p.send(protocol.Envelope{Type: protocol.TypeJoined, Me: p.name, Members: members})
	if !rejoin {
		s.broadcast(p.roomID, protocol.Envelope{Type: protocol.TypeUserJoined, UserID: p.name}, p)
	}
}

// remove drops p from its room unless a newer connection took its name.
func (s *Server) remove(p *peer) {
	s.mu.Lock()
	room, ok := s.rooms[p.roomID]
	if !ok || room[p.name] != p {
		s.mu.Unlock()
		return
	}
	delete(room, p.name)
	roomID, name := p.roomID, p.name
	p.roomID = ""
	s.mu.Unlock()

	s.broadcast(roomID, protocol.Envelope{Type: protocol.TypeUserLeft, UserID: name}, nil)
}

func (s *Server) peers(roomID string) []*peer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.Values(s.rooms[roomID])
}

func (s *Server) broadcast(roomID string, env protocol.Envelope, except *peer) {
	for _, p := range s.peers(roomID) {
		if p != except {
			p.send(env)
		}
	}
}

func (s *Server) createRoom(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CreatorName string `json:"creatorName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.CreatorName) == "" {
		writeJSON(w, http.StatusBadRequest, apiResponse{Message: "creatorName is required", Status: http.StatusBadRequest})
		return
	}
	roomID := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	s.OpenRoom(roomID)
	writeJSON(w, http.StatusCreated, apiResponse{
		Success: true,
		Data:    map[string]string{"roomId": roomID},
		Status:  http.StatusCreated,
	})
}

func (s *Server) roomInfo(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	s.mu.Lock()
	room, ok := s.rooms[roomID]
	count := len(room)
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, apiResponse{Message: fmt.Sprintf("room %s not found", roomID), Status: http.StatusNotFound})
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Data:    map[string]any{"roomId": roomID, "status": "ACTIVE", "memberCount": count},
		Status:  http.StatusOK,
	})
}

func (s *Server) leaveBeacon(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	var body struct {
		UserID string `json:"userId"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	s.mu.Lock()
	s.beacons = append(s.beacons, roomID+"/"+body.UserID)
	p := s.rooms[roomID][body.UserID]
	s.mu.Unlock()
	if p != nil {
		s.remove(p)
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Status: http.StatusOK})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
