package game

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/amitgk1/skribble/internal"
)

// =============================================================================
// ROUND MANAGEMENT
// =============================================================================

type roundState int

const (
	stateIdle roundState = iota
	stateWordSelection
	stateDrawing
	stateTurnEnd
)

var (
	ErrNotWordSelection = errors.New("no word selection is in progress")
	ErrNotDrawer        = errors.New("only the active drawer may pick the word")
)

// RoundManager drives the turn/round state machine: drawer rotation, word
// commit, guess evaluation, scoring and turn end. Every method must be
// called with the owning room's lock held; timers re-acquire it themselves.
type RoundManager struct {
	room  *Room
	words *WordManager

	maxRounds    int
	turnTimeout  time.Duration
	turnEndDelay time.Duration

	round int
	idx   int
	state roundState
	turn  *Turn

	now func() time.Time
}

func newRoundManager(room *Room, words *WordManager) *RoundManager {
	return &RoundManager{
		room:         room,
		words:        words,
		maxRounds:    room.cfg.MaxRounds,
		turnTimeout:  room.cfg.TurnTimeout,
		turnEndDelay: room.cfg.TurnEndDelay,
		state:        stateIdle,
		now:          room.cfg.now,
	}
}

// start begins the first round. The room has already validated the player
// count and flipped its phase to playing.
func (rm *RoundManager) start() {
	rm.round = 1
	rm.idx = -1
	rm.nextTurn()
}

// nextTurn advances the rotation to the next registered drawer. Completing a
// full pass over the ordered player list finishes a round; exceeding the
// round limit is the sole game-over trigger besides the forced-abort path on
// disconnect.
func (rm *RoundManager) nextTurn() {
	room := rm.room
	if len(room.order) == 0 {
		log.Printf("[nextTurn] no players left, ending game")
		room.gameOverLocked()
		return
	}

	rm.idx++
	if rm.idx >= len(room.order) {
		rm.idx = 0
		rm.round++
		if rm.round > rm.maxRounds {
			log.Printf("[nextTurn] round %d exceeds max %d, game over", rm.round, rm.maxRounds)
			room.gameOverLocked()
			return
		}
	}

	drawerId := room.order[rm.idx]
	for id, c := range room.players {
		c.player.IsPlayerTurn = id == drawerId
	}

	rm.turn = NewTurn(drawerId)
	rm.state = stateWordSelection

	options, err := rm.words.GetWordOptions(internal.WordOptionCount)
	if err != nil {
		// Pool exhausted relative to rounds × players; end early instead of
		// offering duplicates.
		log.Printf("[nextTurn] %v, ending game early", err)
		room.gameOverLocked()
		return
	}

	log.Printf("[nextTurn] round=%d drawer=%s options=%v", rm.round, drawerId, options)

	// Everyone sees the refreshed drawer flags before the word is chosen;
	// only the drawer gets the options.
	room.broadcastLocked(internal.PlayerListAction{Players: room.playerListLocked()})
	room.unicastLocked(drawerId, internal.ChooseWordAction{Options: options})
}

// setTurnWord commits the drawer's pick and starts the countdown. A pick by
// anyone but the drawer, outside word selection, or of a word not currently
// available is rejected without touching shared state.
func (rm *RoundManager) setTurnWord(playerId, word string) error {
	if rm.state != stateWordSelection || rm.turn == nil {
		return ErrNotWordSelection
	}
	if playerId != rm.turn.ActivePlayerId {
		return ErrNotDrawer
	}
	if err := rm.words.PickWord(word); err != nil {
		return err
	}

	rm.turn.Word = word
	rm.turn.StartTime = rm.now()
	rm.state = stateDrawing

	seconds := int(rm.turnTimeout.Seconds())
	placeholder := Placeholder(word)
	for id := range rm.room.players {
		action := internal.TurnStartAction{Word: placeholder, Round: rm.round, Seconds: seconds}
		if id == rm.turn.ActivePlayerId {
			action.Word = word
		}
		rm.room.unicastLocked(id, action)
	}

	rm.turn.timer = time.AfterFunc(rm.turnTimeout, rm.onTimeout)
	log.Printf("[setTurnWord] round=%d drawer=%s word committed, countdown %v started",
		rm.round, playerId, rm.turnTimeout)
	return nil
}

func (rm *RoundManager) onTimeout() {
	rm.room.mu.Lock()
	defer rm.room.mu.Unlock()
	rm.finalizeTurn(internal.TurnEndTimeout)
}

// checkGuess evaluates a chat line against the turn's secret word using
// exact case-sensitive equality. It reports whether the line was a correct
// first-time guess by a non-drawer, in which case the guesser's score delta
// is recorded and, if every guesser is now done, the turn ends early.
func (rm *RoundManager) checkGuess(playerId, guess string) bool {
	if rm.state != stateDrawing || rm.turn == nil {
		return false
	}
	if playerId == rm.turn.ActivePlayerId || rm.turn.Guessed[playerId] {
		return false
	}
	if guess != rm.turn.Word {
		return false
	}

	elapsed := int(rm.now().Sub(rm.turn.StartTime).Seconds())
	delta := int(rm.turnTimeout.Seconds()) - elapsed
	rm.turn.Guessed[playerId] = true
	rm.turn.ScoreDeltas[playerId] = delta

	log.Printf("[checkGuess] player=%s guessed correctly after %ds, delta=%d", playerId, elapsed, delta)

	if rm.allGuessed() {
		rm.turn.cancelTimer()
		rm.finalizeTurn(internal.TurnEndEveryoneGuessed)
	}
	return true
}

// allGuessed reports whether every connected non-drawer has guessed the word.
func (rm *RoundManager) allGuessed() bool {
	if len(rm.room.players) < internal.MinPlayersToStart {
		return false
	}
	for id := range rm.room.players {
		if id == rm.turn.ActivePlayerId {
			continue
		}
		if !rm.turn.Guessed[id] {
			return false
		}
	}
	return true
}

// finalizeTurn runs the turn-end side effects exactly once: drawer reward,
// score application, reveal broadcast, and the grace-delayed advancement to
// the next drawer.
func (rm *RoundManager) finalizeTurn(reason internal.TurnEndReason) {
	if rm.turn == nil || rm.turn.finalized {
		return
	}
	rm.turn.finalized = true
	rm.turn.cancelTimer()
	rm.state = stateTurnEnd

	room := rm.room

	// The drawer earns in proportion to how many players they got the word
	// across to, capped at the full timeout value.
	drawerDelta := 10 * len(rm.turn.Guessed)
	if limit := int(rm.turnTimeout.Seconds()); drawerDelta > limit {
		drawerDelta = limit
	}
	if _, ok := room.players[rm.turn.ActivePlayerId]; ok {
		rm.turn.ScoreDeltas[rm.turn.ActivePlayerId] = drawerDelta
	}

	for id, delta := range rm.turn.ScoreDeltas {
		if c, ok := room.players[id]; ok {
			c.player.Score += delta
		}
	}

	log.Printf("[finalizeTurn] reason=%s word=%q deltas=%v", reason, rm.turn.Word, rm.turn.ScoreDeltas)

	room.appendChatLocked(internal.ChatMessage{
		Sender: internal.SystemSender,
		Text:   fmt.Sprintf("The word was %q", rm.turn.Word),
		Color:  internal.ColorGold,
	})
	room.broadcastLocked(internal.TurnEndAction{
		Players:     room.playerListLocked(),
		Word:        rm.turn.Word,
		Reason:      reason,
		ScoreDeltas: rm.turn.ScoreDeltas,
	})

	// Grace delay so clients can show the summary before the next drawer is
	// announced.
	time.AfterFunc(rm.turnEndDelay, func() {
		room.mu.Lock()
		defer room.mu.Unlock()
		if room.phase == internal.PhasePlaying && rm.state == stateTurnEnd {
			rm.nextTurn()
		}
	})
}

// drawerRemoved reacts to the active drawer leaving mid-turn: the turn
// cannot proceed without its drawer, so it is either finalized (drawing) or
// skipped (word selection). The caller has already fixed the rotation index.
func (rm *RoundManager) drawerRemoved() {
	switch rm.state {
	case stateDrawing:
		rm.turn.cancelTimer()
		rm.finalizeTurn(internal.TurnEndTimeout)
	case stateWordSelection:
		rm.nextTurn()
	}
}

// Placeholder builds the censored word representation shown to guessers:
// one blank marker per character, space separated.
func Placeholder(word string) string {
	blanks := make([]string, 0, len(word))
	for range word {
		blanks = append(blanks, "_")
	}
	return strings.Join(blanks, " ")
}
