package game

import (
	"time"

	"github.com/amitgk1/skribble/internal"
)

// Turn is the mutable state of the active drawing turn. It is owned by the
// round manager and only touched under the room lock.
type Turn struct {
	Word           string
	ActivePlayerId string
	Strokes        []internal.DrawAction
	Guessed        map[string]bool
	ScoreDeltas    map[string]int
	StartTime      time.Time

	timer *time.Timer

	// finalized guards the race between the countdown firing and the last
	// guesser completing: whichever path gets here first runs the turn-end
	// side effects, the other becomes a no-op.
	finalized bool
}

func NewTurn(activePlayerId string) *Turn {
	return &Turn{
		ActivePlayerId: activePlayerId,
		Guessed:        make(map[string]bool),
		ScoreDeltas:    make(map[string]int),
	}
}

// cancelTimer stops the countdown if it is running. Stopping an
// already-fired timer is harmless; the finalized flag is what makes turn-end
// exactly-once.
func (t *Turn) cancelTimer() {
	if t.timer != nil {
		t.timer.Stop()
	}
}
