package game

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/amitgk1/skribble/internal"
	"github.com/amitgk1/skribble/internal/protocol"
)

// =============================================================================
// ROOM MANAGEMENT
// =============================================================================

// Inbound action budget per connection. Drawing at full batch rate is well
// inside this; anything past it is a misbehaving client and gets dropped.
const (
	actionRate  rate.Limit = 1500
	actionBurst            = 3000
)

// RoomConfig carries the per-room tunables. Zero values fall back to the
// package defaults in internal.
type RoomConfig struct {
	MaxRounds     int
	TurnTimeout   time.Duration
	TurnEndDelay  time.Duration
	GameOverDelay time.Duration
	MaxClients    int
	Words         []string

	now func() time.Time
	rng *rand.Rand
}

func (cfg *RoomConfig) applyDefaults() {
	if cfg.MaxRounds == 0 {
		cfg.MaxRounds = internal.MaxRounds
	}
	if cfg.TurnTimeout == 0 {
		cfg.TurnTimeout = internal.TurnTimeout
	}
	if cfg.TurnEndDelay == 0 {
		cfg.TurnEndDelay = internal.TurnEndDelay
	}
	if cfg.GameOverDelay == 0 {
		cfg.GameOverDelay = internal.GameOverDelay
	}
	if cfg.MaxClients == 0 {
		cfg.MaxClients = internal.MaxClients
	}
	if len(cfg.Words) == 0 {
		cfg.Words = DrawableWords
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}
	if cfg.rng == nil {
		cfg.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
}

// client binds a connected player to their socket and inbound budget. The
// player id, not the socket, keys every collection.
type client struct {
	player  *internal.Player
	conn    io.ReadWriteCloser
	limiter *rate.Limiter
}

// actionHandler processes one same-kind group of inbound actions under the
// room lock. Returning true forwards the group to every other client;
// returning false consumes it server-side.
type actionHandler func(c *client, group []internal.Action) bool

// Room owns the connected player set, the chat log and the round manager.
// One coarse mutex serializes every state transition, whichever connection's
// receive loop triggers it; broadcast fan-out runs under the same lock so a
// send never races a player-map mutation.
type Room struct {
	mu  sync.Mutex
	cfg RoomConfig

	phase   internal.GamePhase
	players map[string]*client
	order   []string
	chat    []internal.ChatMessage
	rm      *RoundManager

	handlers map[internal.ActionKind]actionHandler

	// onGameOver lets the owning server replace this instance with a fresh
	// room once the sockets are closed.
	onGameOver func()
}

func NewRoom(cfg RoomConfig, onGameOver func()) *Room {
	cfg.applyDefaults()
	r := &Room{
		cfg:        cfg,
		phase:      internal.PhaseWaiting,
		players:    make(map[string]*client),
		onGameOver: onGameOver,
	}
	r.rm = newRoundManager(r, NewWordManager(cfg.Words, cfg.rng))
	r.handlers = map[internal.ActionKind]actionHandler{
		internal.KindDraw:        r.onDrawActions,
		internal.KindClearCanvas: r.onClearCanvas,
		internal.KindPlayerName:  r.onPlayerName,
		internal.KindStartGame:   r.onStartGame,
		internal.KindChatMessage: r.onChatMessages,
		internal.KindWordPicked:  r.onWordPicked,
	}
	return r
}

// AddClient registers a new player for the connection, unicasts the initial
// game state snapshot, and starts the per-connection receive loop. The first
// connector becomes the room owner.
func (r *Room) AddClient(conn io.ReadWriteCloser) {
	r.mu.Lock()

	if r.phase == internal.PhaseGameOver {
		r.mu.Unlock()
		log.Printf("[AddClient] room is shutting down, rejecting connection")
		conn.Close()
		return
	}
	if len(r.players) >= r.cfg.MaxClients {
		r.mu.Unlock()
		log.Printf("[AddClient] room is full (%d clients), rejecting connection", r.cfg.MaxClients)
		conn.Close()
		return
	}

	player := &internal.Player{
		Id:      uuid.NewString(),
		IsOwner: len(r.players) == 0,
	}
	c := &client{
		player:  player,
		conn:    conn,
		limiter: rate.NewLimiter(actionRate, actionBurst),
	}
	r.players[player.Id] = c
	r.order = append(r.order, player.Id)

	log.Printf("[AddClient] player=%s joined (owner=%t), %d connected", player.Id, player.IsOwner, len(r.players))

	r.appendChatLocked(internal.ChatMessage{
		Sender: internal.SystemSender,
		Text:   "A new player joined the room",
		Color:  internal.ColorGray,
	})
	r.unicastLocked(player.Id, internal.InitGameStateAction{
		Players:   r.playerListLocked(),
		You:       player.Id,
		Chat:      append([]internal.ChatMessage(nil), r.chat...),
		MaxRounds: r.cfg.MaxRounds,
	})
	r.broadcastExceptLocked(player.Id, internal.PlayerListAction{Players: r.playerListLocked()})

	r.mu.Unlock()

	go r.serve(c)
}

// serve is the per-connection receive loop: decode a batch, dispatch it,
// repeat until the stream ends. Any receive anomaly removes the player.
func (r *Room) serve(c *client) {
	for {
		batch, err := protocol.RecvBatch(c.conn)
		if err != nil {
			if errors.Is(err, io.EOF) {
				log.Printf("[serve] player=%s closed the connection", c.player.Id)
			} else {
				log.Printf("[serve] player=%s receive fault: %v", c.player.Id, err)
			}
			break
		}
		if !c.limiter.AllowN(time.Now(), len(batch)) {
			log.Printf("[serve] player=%s over action rate limit, dropping batch of %d", c.player.Id, len(batch))
			continue
		}
		r.dispatch(c, batch)
	}
	r.removeClient(c)
}

// dispatch groups a batch by kind, preserving order within each group, and
// routes each group through the handler table. Unrecognized kinds are logged
// and dropped without faulting the connection.
func (r *Room) dispatch(c *client, batch []internal.Action) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.players[c.player.Id]; !ok {
		return
	}

	for i := 0; i < len(batch); {
		kind := batch[i].Kind()
		j := i
		for j < len(batch) && batch[j].Kind() == kind {
			j++
		}
		group := batch[i:j]
		i = j

		handler, ok := r.handlers[kind]
		if !ok {
			log.Printf("[dispatch] player=%s sent unrecognized action kind %q, dropping %d", c.player.Id, kind, len(group))
			continue
		}
		if handler(c, group) {
			r.forwardLocked(c.player.Id, group)
		}
	}
}

// removeClient closes the socket, deletes the player, reassigns ownership
// and the rotation, and either keeps the game going or forces game-over when
// the room drops below the minimum mid-game.
func (r *Room) removeClient(c *client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.players[c.player.Id]
	if !ok || current != c {
		return
	}
	c.conn.Close()

	removedIdx := -1
	for i, id := range r.order {
		if id == c.player.Id {
			removedIdx = i
			break
		}
	}
	delete(r.players, c.player.Id)
	r.order = append(r.order[:removedIdx], r.order[removedIdx+1:]...)

	wasDrawer := r.rm.turn != nil && r.rm.turn.ActivePlayerId == c.player.Id && !r.rm.turn.finalized
	if removedIdx < r.rm.idx {
		r.rm.idx--
	} else if removedIdx == r.rm.idx {
		r.rm.idx = removedIdx - 1
	}

	if c.player.IsOwner && len(r.order) > 0 {
		newOwner := r.order[r.cfg.rng.Intn(len(r.order))]
		r.players[newOwner].player.IsOwner = true
		log.Printf("[removeClient] owner left, reassigned ownership to player=%s", newOwner)
	}

	name := c.player.Name
	if name == "" {
		name = "A player"
	}
	log.Printf("[removeClient] player=%s (%s) removed, %d remaining", c.player.Id, name, len(r.players))
	r.appendChatLocked(internal.ChatMessage{
		Sender: internal.SystemSender,
		Text:   fmt.Sprintf("%s left the room", name),
		Color:  internal.ColorGray,
	})

	if r.phase == internal.PhasePlaying && len(r.players) < internal.MinPlayersToStart {
		// Below minimum mid-game: forfeit the remaining rounds.
		log.Printf("[removeClient] %d players remaining, forcing game over", len(r.players))
		r.gameOverLocked()
		return
	}

	if r.phase == internal.PhasePlaying {
		if wasDrawer {
			r.rm.drawerRemoved()
		} else if r.rm.state == stateDrawing && r.rm.allGuessed() {
			// The leaver was the last outstanding guesser.
			r.rm.turn.cancelTimer()
			r.rm.finalizeTurn(internal.TurnEndEveryoneGuessed)
		}
	}
	r.broadcastLocked(internal.PlayerListAction{Players: r.playerListLocked()})
}

// =============================================================================
// ACTION HANDLERS
// =============================================================================

// onDrawActions records strokes on the live turn and forwards them verbatim.
// Strokes are never persisted past the turn and never replayed to late
// joiners.
func (r *Room) onDrawActions(_ *client, group []internal.Action) bool {
	if r.rm.turn != nil && r.rm.state == stateDrawing {
		for _, a := range group {
			r.rm.turn.Strokes = append(r.rm.turn.Strokes, a.(internal.DrawAction))
		}
	}
	return true
}

func (r *Room) onClearCanvas(_ *client, _ []internal.Action) bool {
	// Client-only effect; no server-side canvas state is retained.
	return true
}

// onPlayerName applies the batch's final name (last one wins) and broadcasts
// the refreshed player list to everyone, sender included, so all clients
// share one canonical name.
func (r *Room) onPlayerName(c *client, group []internal.Action) bool {
	last := group[len(group)-1].(internal.PlayerNameAction)
	c.player.Name = last.Name
	log.Printf("[onPlayerName] player=%s is now %q", c.player.Id, last.Name)
	r.broadcastLocked(internal.PlayerListAction{Players: r.playerListLocked()})
	return false
}

// onStartGame transitions the room to playing. Only the first start request
// has effect; repeats and understaffed starts are logged and ignored.
func (r *Room) onStartGame(c *client, _ []internal.Action) bool {
	if r.phase != internal.PhaseWaiting {
		log.Printf("[onStartGame] player=%s requested start but game already %s, ignoring", c.player.Id, r.phase)
		return false
	}
	if len(r.players) < internal.MinPlayersToStart {
		log.Printf("[onStartGame] player=%s requested start with %d players, need %d",
			c.player.Id, len(r.players), internal.MinPlayersToStart)
		return false
	}

	r.phase = internal.PhasePlaying
	log.Printf("[onStartGame] player=%s started the game with %d players", c.player.Id, len(r.players))
	r.broadcastExceptLocked(c.player.Id, internal.StartGameAction{})
	r.appendChatLocked(internal.ChatMessage{
		Sender: internal.SystemSender,
		Text:   "The game has started!",
		Color:  internal.ColorGreen,
	})
	r.rm.start()
	return false
}

// onChatMessages evaluates each line as a guess first. Correct guesses are
// replaced by a system line so the secret is never echoed; everything else
// goes to the chat log and out to every client.
func (r *Room) onChatMessages(c *client, group []internal.Action) bool {
	sender := c.player.Name
	if sender == "" {
		sender = c.player.Id[:8]
	}
	for _, a := range group {
		msg := a.(internal.ChatMessageAction).Message
		msg.Sender = sender

		if r.rm.checkGuess(c.player.Id, msg.Text) {
			r.appendChatLocked(internal.ChatMessage{
				Sender: internal.SystemSender,
				Text:   fmt.Sprintf("%s guessed the word!", sender),
				Color:  internal.ColorGreen,
			})
			continue
		}
		r.appendChatLocked(msg)
	}
	return false
}

func (r *Room) onWordPicked(c *client, group []internal.Action) bool {
	for _, a := range group {
		word := a.(internal.WordPickedAction).Word
		if err := r.rm.setTurnWord(c.player.Id, word); err != nil {
			log.Printf("[onWordPicked] player=%s pick %q rejected: %v", c.player.Id, word, err)
		}
	}
	return false
}

// =============================================================================
// GAME OVER
// =============================================================================

// gameOverLocked finishes the game: winner set (ties included), game-over
// broadcast, then after a short delay every socket closes and the owning
// server replaces the room instance.
func (r *Room) gameOverLocked() {
	if r.phase == internal.PhaseGameOver {
		return
	}
	r.phase = internal.PhaseGameOver
	r.rm.state = stateIdle
	if r.rm.turn != nil {
		r.rm.turn.cancelTimer()
		r.rm.turn.finalized = true
	}

	best := 0
	for _, c := range r.players {
		if c.player.Score > best {
			best = c.player.Score
		}
	}
	var winners []string
	for _, id := range r.order {
		if r.players[id].player.Score == best {
			winners = append(winners, id)
		}
	}

	log.Printf("[gameOverLocked] game over, winning score=%d winners=%v", best, winners)
	r.appendChatLocked(internal.ChatMessage{
		Sender: internal.SystemSender,
		Text:   fmt.Sprintf("Game over! Winning score: %d", best),
		Color:  internal.ColorGold,
	})
	r.broadcastLocked(internal.GameOverAction{Score: best, Winners: winners})

	time.AfterFunc(r.cfg.GameOverDelay, func() {
		r.mu.Lock()
		conns := make([]io.Closer, 0, len(r.players))
		for _, c := range r.players {
			conns = append(conns, c.conn)
		}
		r.mu.Unlock()

		for _, conn := range conns {
			conn.Close()
		}
		if r.onGameOver != nil {
			r.onGameOver()
		}
	})
}

// =============================================================================
// BROADCAST HELPERS
// =============================================================================

// appendChatLocked appends a line to the session chat log and sends it to
// every client. The log is part of the snapshot new joiners receive.
func (r *Room) appendChatLocked(msg internal.ChatMessage) {
	r.chat = append(r.chat, msg)
	r.broadcastLocked(internal.ChatMessageAction{Message: msg})
}

func (r *Room) broadcastLocked(action internal.Action) {
	for _, id := range r.order {
		r.sendLocked(r.players[id], []internal.Action{action})
	}
}

func (r *Room) broadcastExceptLocked(exceptId string, action internal.Action) {
	for _, id := range r.order {
		if id == exceptId {
			continue
		}
		r.sendLocked(r.players[id], []internal.Action{action})
	}
}

func (r *Room) forwardLocked(senderId string, group []internal.Action) {
	for _, id := range r.order {
		if id == senderId {
			continue
		}
		r.sendLocked(r.players[id], group)
	}
}

func (r *Room) unicastLocked(id string, action internal.Action) {
	if c, ok := r.players[id]; ok {
		r.sendLocked(c, []internal.Action{action})
	}
}

// sendLocked writes one batch to one client. A send fault is logged and the
// batch dropped; the client's own receive loop is what tears it down.
func (r *Room) sendLocked(c *client, batch []internal.Action) {
	if err := protocol.SendBatch(c.conn, batch); err != nil {
		log.Printf("[sendLocked] player=%s send failed: %v", c.player.Id, err)
	}
}

// playerListLocked snapshots the players in join order.
func (r *Room) playerListLocked() []internal.Player {
	players := make([]internal.Player, 0, len(r.order))
	for _, id := range r.order {
		players = append(players, *r.players[id].player)
	}
	return players
}

// =============================================================================
// OPS SNAPSHOT
// =============================================================================

// Snapshot is the read-only room view served by the ops HTTP surface.
type Snapshot struct {
	Phase       internal.GamePhase `json:"phase"`
	Round       int                `json:"round"`
	MaxRounds   int                `json:"max_rounds"`
	Players     []internal.Player  `json:"players"`
	ChatLines   int                `json:"chat_lines"`
	WordsUnused int                `json:"words_unused"`
}

func (r *Room) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{
		Phase:       r.phase,
		Round:       r.rm.round,
		MaxRounds:   r.cfg.MaxRounds,
		Players:     r.playerListLocked(),
		ChatLines:   len(r.chat),
		WordsUnused: r.rm.words.Remaining(),
	}
}
