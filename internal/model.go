package internal

import "time"

const (
	MaxRounds         = 3
	TurnTimeout       = 60 * time.Second
	TurnEndDelay      = 5 * time.Second
	GameOverDelay     = 3 * time.Second
	MinPlayersToStart = 2
	MaxClients        = 10
	WordOptionCount   = 3
)

// SystemSender is the reserved chat sender name for server-generated lines.
const SystemSender = "SYSTEM"

type GamePhase string

const (
	PhaseWaiting  GamePhase = "waiting"
	PhasePlaying  GamePhase = "playing"
	PhaseGameOver GamePhase = "game_over"
)

type TurnEndReason string

const (
	TurnEndTimeout         TurnEndReason = "TIMEOUT"
	TurnEndEveryoneGuessed TurnEndReason = "EVERYONE_GUESSED_CORRECTLY"
)

// Color is an RGB triple shared with the client for chat and brush colors.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

var (
	ColorWhite = Color{255, 255, 255}
	ColorBlack = Color{0, 0, 0}
	ColorGreen = Color{102, 255, 102}
	ColorRed   = Color{255, 102, 102}
	ColorGray  = Color{200, 200, 200}
	ColorGold  = Color{255, 215, 0}
)

// Point is a 2D canvas coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Player is the per-connection identity and game status shared with clients.
// The connection handle lives on the room's client record, keyed by Id, so
// no collection key ever depends on a live OS resource.
type Player struct {
	Id           string `json:"id"`
	Name         string `json:"name"`
	Score        int    `json:"score"`
	IsOwner      bool   `json:"is_owner"`
	IsPlayerTurn bool   `json:"is_player_turn"`
}

// ChatMessage is one line of room chat history.
type ChatMessage struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
	Color  Color  `json:"color"`
}
