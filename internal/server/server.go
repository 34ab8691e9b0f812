package server

import (
	"log"
	"net"
	"sync"

	"github.com/amitgk1/skribble/internal"
	"github.com/amitgk1/skribble/internal/game"
)

// Server owns the TCP listener and the single live room. The room is an
// explicit value constructed here, not ambient global state; when a game
// ends the finished instance is swapped for a fresh one under the server's
// own lock and players reconnect from scratch.
type Server struct {
	ListenAddr string

	mu      sync.Mutex
	room    *game.Room
	roomCfg game.RoomConfig
}

func New(listenAddr string, cfg game.RoomConfig) *Server {
	s := &Server{
		ListenAddr: listenAddr,
		roomCfg:    cfg,
	}
	s.room = s.newRoom()
	return s
}

func (s *Server) newRoom() *game.Room {
	return game.NewRoom(s.roomCfg, s.replaceRoom)
}

// replaceRoom retires the finished room for a fresh instance: new word
// manager, new round manager, empty chat.
func (s *Server) replaceRoom() {
	s.mu.Lock()
	s.room = s.newRoom()
	s.mu.Unlock()
	log.Printf("[replaceRoom] game over, fresh room ready")
}

// Room returns the currently live room.
func (s *Server) Room() *game.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room
}

// ListenAndServe accepts connections forever, handing each one to the live
// room. Accept errors are logged and the loop continues.
func (s *Server) ListenAndServe() error {
	listener, err := net.Listen("tcp", s.ListenAddr)
	if err != nil {
		return err
	}
	defer listener.Close()

	log.Printf("[ListenAndServe] listening on %s (max %d clients)", s.ListenAddr, s.roomCfg.MaxClients)

	for {
		conn, err := listener.Accept()
		if err != nil {
			log.Printf("[ListenAndServe] accept error: %v", err)
			continue
		}
		log.Printf("[ListenAndServe] new connection from %s", conn.RemoteAddr())
		s.Room().AddClient(conn)
	}
}

// RoomConfigFromEnv maps the process configuration onto room tunables.
func RoomConfigFromEnv(cfg internal.Config, words []string) game.RoomConfig {
	return game.RoomConfig{
		MaxRounds:   cfg.MaxRounds,
		TurnTimeout: cfg.TurnTimeout,
		MaxClients:  cfg.MaxClients,
		Words:       words,
	}
}
