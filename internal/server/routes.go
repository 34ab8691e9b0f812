package server

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes builds the ops HTTP surface: liveness plus a read-only room
// snapshot. Game traffic never touches HTTP; this exists for humans and
// health checks.
func (s *Server) RegisterRoutes() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/", s.HelloHandler)
	r.HandleFunc("/health", s.HealthHandler)
	r.HandleFunc("/room", s.RoomHandler)

	return r
}

func (s *Server) HelloHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"message": "skribble server"})
}

func (s *Server) HealthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "healthy"})
}

// RoomHandler serves the live room's snapshot, taken through the room's own
// synchronized entry point.
func (s *Server) RoomHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.Room().Snapshot())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[writeJSON] encode error: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
