package communication

import (
	"bubbles/engine"
	"bubbles/game"
	"bubbles/player"
	"context"
	"encoding/json"
)

// Controller is the game surface exposed to remote clients.
type Controller interface {
	Setup(ctx context.Context) error
	Start(ctx context.Context, kinds [2]player.Kind) error
	Tap(ctx context.Context, cell game.CellID) error
	Finish(ctx context.Context) error
	Status() engine.Status
}

type CellDTO struct {
	ID    string `json:"id"`
	Color int    `json:"color"` // 0 for padding
}

type StatusDTO struct {
	Phase            string      `json:"phase"`
	Result           string      `json:"result,omitempty"`
	Rows             [][]CellDTO `json:"rows"`
	RemainingSeconds int         `json:"remaining_seconds"`
	ActivePlayer     int         `json:"active_player"`
	Scores           [2]int      `json:"scores"`
	Dismissed        []string    `json:"dismissed,omitempty"`
}

type StartRequest struct {
	Player1 player.Kind `json:"player1"`
	Player2 player.Kind `json:"player2"`
}

type TapRequest struct {
	Cell string `json:"cell"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// Message is the envelope of every websocket frame.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

const (
	StatusMessage = "status"
	PingMessage   = "ping"
)

func NewStatusDTO(status engine.Status) StatusDTO {
	rows := make([][]CellDTO, len(status.Rows))
	for r, row := range status.Rows {
		rows[r] = make([]CellDTO, len(row))
		for c, cell := range row {
			rows[r][c] = CellDTO{ID: cell.ID.String(), Color: int(cell.Color)}
		}
	}
	var dismissed []string
	for _, id := range status.Dismissed {
		dismissed = append(dismissed, id.String())
	}
	return StatusDTO{
		Phase:            status.Phase.String(),
		Result:           status.Result.String(),
		Rows:             rows,
		RemainingSeconds: status.Remaining,
		ActivePlayer:     int(status.Active),
		Scores:           status.Scores,
		Dismissed:        dismissed,
	}
}
