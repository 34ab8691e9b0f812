package internal

import (
	"encoding/json"
	"fmt"
)

// ActionKind discriminates the tagged union of wire actions.
type ActionKind string

const (
	KindPlayerList    ActionKind = "player_list"
	KindInitGameState ActionKind = "init_game_state"
	KindChooseWord    ActionKind = "choose_word"
	KindWordPicked    ActionKind = "word_picked"
	KindTurnStart     ActionKind = "turn_start"
	KindTurnEnd       ActionKind = "turn_end"
	KindGameOver      ActionKind = "game_over"
	KindDraw          ActionKind = "draw"
	KindClearCanvas   ActionKind = "clear_canvas"
	KindChatMessage   ActionKind = "chat_message"
	KindPlayerName    ActionKind = "player_name"
	KindStartGame     ActionKind = "start_game"
)

// Action is one tagged event message exchanged between client and server.
type Action interface {
	Kind() ActionKind
}

type PlayerListAction struct {
	Players []Player `json:"players"`
}

// InitGameStateAction is the full snapshot unicast to a newly joined client.
type InitGameStateAction struct {
	Players   []Player      `json:"players"`
	You       string        `json:"you"`
	Chat      []ChatMessage `json:"chat"`
	MaxRounds int           `json:"max_rounds"`
}

// ChooseWordAction is unicast to the active drawer only.
type ChooseWordAction struct {
	Options []string `json:"options"`
}

type WordPickedAction struct {
	Word string `json:"word"`
}

// TurnStartAction carries the real word for the drawer and a placeholder for
// everyone else.
type TurnStartAction struct {
	Word    string `json:"word"`
	Round   int    `json:"round"`
	Seconds int    `json:"seconds"`
}

type TurnEndAction struct {
	Players     []Player       `json:"players"`
	Word        string         `json:"word"`
	Reason      TurnEndReason  `json:"reason"`
	ScoreDeltas map[string]int `json:"score_deltas"`
}

type GameOverAction struct {
	Score   int      `json:"score"`
	Winners []string `json:"winners"`
}

type DrawAction struct {
	Start     Point `json:"start"`
	End       Point `json:"end"`
	Color     Color `json:"color"`
	BrushSize int   `json:"brush_size"`
}

type ClearCanvasAction struct{}

type ChatMessageAction struct {
	Message ChatMessage `json:"message"`
}

type PlayerNameAction struct {
	Name string `json:"name"`
}

type StartGameAction struct{}

// UnknownAction preserves an unrecognized kind so the dispatch layer can log
// and drop it without faulting the connection.
type UnknownAction struct {
	RawKind ActionKind
}

func (PlayerListAction) Kind() ActionKind    { return KindPlayerList }
func (InitGameStateAction) Kind() ActionKind { return KindInitGameState }
func (ChooseWordAction) Kind() ActionKind    { return KindChooseWord }
func (WordPickedAction) Kind() ActionKind    { return KindWordPicked }
func (TurnStartAction) Kind() ActionKind     { return KindTurnStart }
func (TurnEndAction) Kind() ActionKind       { return KindTurnEnd }
func (GameOverAction) Kind() ActionKind      { return KindGameOver }
func (DrawAction) Kind() ActionKind          { return KindDraw }
func (ClearCanvasAction) Kind() ActionKind   { return KindClearCanvas }
func (ChatMessageAction) Kind() ActionKind   { return KindChatMessage }
func (PlayerNameAction) Kind() ActionKind    { return KindPlayerName }
func (StartGameAction) Kind() ActionKind     { return KindStartGame }
func (a UnknownAction) Kind() ActionKind     { return a.RawKind }

// envelope is the wire shape of a single action: the kind discriminant plus
// the kind-specific payload.
type envelope struct {
	Kind ActionKind      `json:"kind"`
	Data json.RawMessage `json:"data,omitempty"`
}

// MarshalActions encodes an ordered batch as a JSON array of envelopes.
func MarshalActions(batch []Action) ([]byte, error) {
	envs := make([]envelope, 0, len(batch))
	for _, a := range batch {
		data, err := json.Marshal(a)
		if err != nil {
			return nil, fmt.Errorf("marshal %s action: %w", a.Kind(), err)
		}
		envs = append(envs, envelope{Kind: a.Kind(), Data: data})
	}
	return json.Marshal(envs)
}

// UnmarshalActions decodes a payload into an ordered action list. A lone
// envelope object is normalized to a one-element list.
func UnmarshalActions(data []byte) ([]Action, error) {
	var envs []envelope
	if err := json.Unmarshal(data, &envs); err != nil {
		var single envelope
		if err2 := json.Unmarshal(data, &single); err2 != nil {
			return nil, fmt.Errorf("decode action batch: %w", err)
		}
		envs = []envelope{single}
	}

	batch := make([]Action, 0, len(envs))
	for _, env := range envs {
		action, err := decodeEnvelope(env)
		if err != nil {
			return nil, err
		}
		batch = append(batch, action)
	}
	return batch, nil
}

func decodeEnvelope(env envelope) (Action, error) {
	var (
		action Action
		err    error
	)
	switch env.Kind {
	case KindPlayerList:
		action, err = decodePayload[PlayerListAction](env)
	case KindInitGameState:
		action, err = decodePayload[InitGameStateAction](env)
	case KindChooseWord:
		action, err = decodePayload[ChooseWordAction](env)
	case KindWordPicked:
		action, err = decodePayload[WordPickedAction](env)
	case KindTurnStart:
		action, err = decodePayload[TurnStartAction](env)
	case KindTurnEnd:
		action, err = decodePayload[TurnEndAction](env)
	case KindGameOver:
		action, err = decodePayload[GameOverAction](env)
	case KindDraw:
		action, err = decodePayload[DrawAction](env)
	case KindClearCanvas:
		action, err = decodePayload[ClearCanvasAction](env)
	case KindChatMessage:
		action, err = decodePayload[ChatMessageAction](env)
	case KindPlayerName:
		action, err = decodePayload[PlayerNameAction](env)
	case KindStartGame:
		action, err = decodePayload[StartGameAction](env)
	default:
		action = UnknownAction{RawKind: env.Kind}
	}
	return action, err
}

func decodePayload[T Action](env envelope) (Action, error) {
	var payload T
	if len(env.Data) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", env.Kind, err)
	}
	return payload, nil
}
