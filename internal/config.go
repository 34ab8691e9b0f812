package internal

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the process-level configuration surface, read once at startup.
type Config struct {
	Host        string
	Port        string
	HTTPPort    string
	MaxClients  int
	MaxRounds   int
	TurnTimeout time.Duration
	WordsCSV    string
}

// LoadConfig reads an optional .env file and falls back to built-in defaults
// for anything unset.
func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("[LoadConfig] no .env file loaded: %v", err)
	}

	return Config{
		Host:        envString("SKRIBBLE_HOST", "0.0.0.0"),
		Port:        envString("SKRIBBLE_PORT", "8436"),
		HTTPPort:    envString("SKRIBBLE_HTTP_PORT", "8080"),
		MaxClients:  envInt("SKRIBBLE_MAX_CONNS", MaxClients),
		MaxRounds:   envInt("SKRIBBLE_MAX_ROUNDS", MaxRounds),
		TurnTimeout: time.Duration(envInt("SKRIBBLE_TURN_SECONDS", int(TurnTimeout/time.Second))) * time.Second,
		WordsCSV:    envString("SKRIBBLE_WORDS_CSV", ""),
	}
}

func envString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[LoadConfig] invalid value for %s: %q, using default %d", key, v, fallback)
		return fallback
	}
	return n
}
