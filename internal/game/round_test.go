package game

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amitgk1/skribble/internal"
)

// startedRoom wires up a room with n connected clients and a committed first
// turn: the first joiner is drawing the returned word. The turn-end grace is
// an hour so nothing advances behind the test's back.
func startedRoom(t *testing.T, n int, clk *fakeClock) (*Room, []*testConn, string) {
	t.Helper()

	cfg := RoomConfig{
		TurnEndDelay: time.Hour,
		now:          clk.Now,
		rng:          rand.New(rand.NewSource(7)),
	}
	r := NewRoom(cfg, nil)

	clients := make([]*testConn, 0, n)
	for i := 0; i < n; i++ {
		clients = append(clients, join(t, r, false))
	}

	clients[0].push(internal.StartGameAction{})
	options := waitFor[internal.ChooseWordAction](t, clients[0]).Options
	require.Len(t, options, internal.WordOptionCount)

	clients[0].push(internal.WordPickedAction{Word: options[0]})
	waitFor[internal.TurnStartAction](t, clients[1])
	return r, clients, options[0]
}

func TestTurnStartHidesWordFromGuessers(t *testing.T) {
	t.Parallel()

	_, clients, word := startedRoom(t, 3, newFakeClock())

	drawer := waitFor[internal.TurnStartAction](t, clients[0])
	assert.Equal(t, word, drawer.Word, "the drawer sees the real word")
	assert.Equal(t, 1, drawer.Round)

	for _, guesser := range clients[1:] {
		start := waitFor[internal.TurnStartAction](t, guesser)
		assert.Equal(t, Placeholder(word), start.Word, "guessers see only the blanked word")
	}
}

func TestGuessScoringAndEarlyTurnEnd(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	_, clients, word := startedRoom(t, 3, clk)

	clk.Advance(3 * time.Second)
	clients[1].push(internal.ChatMessageAction{Message: internal.ChatMessage{Text: word}})

	// The correct guess is replaced by a system line; the secret never
	// reaches the other clients as chat.
	require.Eventually(t, func() bool {
		return clients[2].countKind(internal.KindChatMessage) > 0 &&
			len(clients[2].received(func(a internal.Action) bool {
				cm, ok := a.(internal.ChatMessageAction)
				return ok && strings.Contains(cm.Message.Text, "guessed the word")
			})) == 1
	}, 2*time.Second, 5*time.Millisecond)
	for _, c := range clients {
		leaks := c.received(func(a internal.Action) bool {
			cm, ok := a.(internal.ChatMessageAction)
			return ok && cm.Message.Text == word
		})
		assert.Empty(t, leaks, "guessed word must not be echoed to chat")
	}

	clk.Advance(7 * time.Second)
	clients[2].push(internal.ChatMessageAction{Message: internal.ChatMessage{Text: word}})

	// Both guessers done ends the turn without waiting out the countdown.
	end := waitFor[internal.TurnEndAction](t, clients[0])
	assert.Equal(t, internal.TurnEndEveryoneGuessed, end.Reason)
	assert.Equal(t, word, end.Word)

	timeout := int(internal.TurnTimeout.Seconds())
	assert.Equal(t, map[string]int{
		clients[1].id: timeout - 3,
		clients[2].id: timeout - 10,
		clients[0].id: 20, // 10 per correct guesser, under the timeout cap
	}, end.ScoreDeltas)

	for _, p := range end.Players {
		assert.Equal(t, end.ScoreDeltas[p.Id], p.Score, "deltas are applied exactly once at turn end")
	}
}

func TestDrawerDeltaCappedAtTimeoutValue(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	cfg := RoomConfig{
		TurnTimeout:  15 * time.Second, // below 10 × 2 guessers, so the cap binds
		TurnEndDelay: time.Hour,
		now:          clk.Now,
		rng:          rand.New(rand.NewSource(7)),
	}
	r := NewRoom(cfg, nil)
	clients := []*testConn{join(t, r, false), join(t, r, false), join(t, r, false)}

	clients[0].push(internal.StartGameAction{})
	options := waitFor[internal.ChooseWordAction](t, clients[0]).Options
	clients[0].push(internal.WordPickedAction{Word: options[0]})
	waitFor[internal.TurnStartAction](t, clients[1])

	clk.Advance(time.Second)
	clients[1].push(internal.ChatMessageAction{Message: internal.ChatMessage{Text: options[0]}})
	clients[2].push(internal.ChatMessageAction{Message: internal.ChatMessage{Text: options[0]}})

	end := waitFor[internal.TurnEndAction](t, clients[0])
	assert.Equal(t, 15, end.ScoreDeltas[clients[0].id],
		"the drawer's reward never exceeds the turn's timeout value")
}

func TestGuessIsExactAndCaseSensitive(t *testing.T) {
	t.Parallel()

	_, clients, word := startedRoom(t, 2, newFakeClock())

	for _, miss := range []string{strings.ToUpper(word), word + " ", "wrong"} {
		clients[1].push(internal.ChatMessageAction{Message: internal.ChatMessage{Text: miss}})
	}

	// All three lines land in chat as ordinary messages; nothing scores and
	// the turn keeps running.
	require.Eventually(t, func() bool {
		misses := clients[0].received(func(a internal.Action) bool {
			cm, ok := a.(internal.ChatMessageAction)
			return ok && cm.Message.Sender != internal.SystemSender
		})
		return len(misses) == 3
	}, 2*time.Second, 5*time.Millisecond)
	assert.Zero(t, clients[0].countKind(internal.KindTurnEnd))
}

func TestRepeatGuessDoesNotScoreTwice(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	_, clients, word := startedRoom(t, 3, clk)

	clk.Advance(2 * time.Second)
	clients[1].push(internal.ChatMessageAction{Message: internal.ChatMessage{Text: word}})
	clients[1].push(internal.ChatMessageAction{Message: internal.ChatMessage{Text: word}})

	clk.Advance(4 * time.Second)
	clients[2].push(internal.ChatMessageAction{Message: internal.ChatMessage{Text: word}})

	end := waitFor[internal.TurnEndAction](t, clients[1])
	assert.Equal(t, int(internal.TurnTimeout.Seconds())-2, end.ScoreDeltas[clients[1].id],
		"only the first correct guess sets the delta")
}

func TestWordPickRejections(t *testing.T) {
	t.Parallel()

	cfg := RoomConfig{
		TurnEndDelay: time.Hour,
		now:          newFakeClock().Now,
		rng:          rand.New(rand.NewSource(7)),
	}
	r := NewRoom(cfg, nil)
	a := join(t, r, false)
	b := join(t, r, false)

	a.push(internal.StartGameAction{})
	options := waitFor[internal.ChooseWordAction](t, a).Options

	r.mu.Lock()
	assert.ErrorIs(t, r.rm.setTurnWord(b.id, options[0]), ErrNotDrawer)
	assert.ErrorIs(t, r.rm.setTurnWord(a.id, "not in the pool"), ErrWordNotAvailable)
	require.NoError(t, r.rm.setTurnWord(a.id, options[0]))
	assert.ErrorIs(t, r.rm.setTurnWord(a.id, options[1]), ErrNotWordSelection,
		"a committed turn accepts no second pick")
	r.mu.Unlock()
}

func TestTurnTimeoutEndsTurnExactlyOnce(t *testing.T) {
	t.Parallel()

	cfg := RoomConfig{
		TurnTimeout:  30 * time.Millisecond,
		TurnEndDelay: time.Hour,
		rng:          rand.New(rand.NewSource(7)),
	}
	r := NewRoom(cfg, nil)
	a := join(t, r, false)
	b := join(t, r, false)

	a.push(internal.StartGameAction{})
	options := waitFor[internal.ChooseWordAction](t, a).Options
	a.push(internal.WordPickedAction{Word: options[0]})

	end := waitFor[internal.TurnEndAction](t, b)
	assert.Equal(t, internal.TurnEndTimeout, end.Reason)
	assert.Equal(t, options[0], end.Word, "the word is revealed at turn end")

	// A late competing finalization is a no-op.
	r.mu.Lock()
	r.rm.finalizeTurn(internal.TurnEndEveryoneGuessed)
	r.mu.Unlock()

	time.Sleep(3 * cfg.TurnTimeout)
	assert.Equal(t, 1, a.countKind(internal.KindTurnEnd))
	assert.Equal(t, 1, b.countKind(internal.KindTurnEnd))
}

func TestPlaceholder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		word string
		want string
	}{
		{word: "cat", want: "_ _ _"},
		{word: "a", want: "_"},
		{word: "", want: ""},
		{word: "ice cream", want: "_ _ _ _ _ _ _ _ _"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Placeholder(tc.word), "word %q", tc.word)
	}
}
