package main

import (
	"log"
	"net"
	"net/http"

	"github.com/amitgk1/skribble/internal"
	"github.com/amitgk1/skribble/internal/game"
	"github.com/amitgk1/skribble/internal/server"
)

func main() {
	cfg := internal.LoadConfig()

	words := game.DrawableWords
	if cfg.WordsCSV != "" {
		loaded, err := game.LoadWordsCSV(cfg.WordsCSV)
		if err != nil {
			log.Fatalf("failed to load word pool: %v", err)
		}
		words = loaded
		log.Printf("loaded %d words from %s", len(words), cfg.WordsCSV)
	}

	s := server.New(net.JoinHostPort(cfg.Host, cfg.Port), server.RoomConfigFromEnv(cfg, words))

	go func() {
		addr := net.JoinHostPort(cfg.Host, cfg.HTTPPort)
		log.Printf("ops endpoints on http://%s", addr)
		if err := http.ListenAndServe(addr, s.RegisterRoutes()); err != nil {
			log.Printf("ops server stopped: %v", err)
		}
	}()

	if err := s.ListenAndServe(); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
