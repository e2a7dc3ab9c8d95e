package streaming

import (
	"encoding/json"

	"github.com/chiwar/fightcore/pkg/core"
	"github.com/google/uuid"
)

// Message type constants matching the streaming protocol.
const (
	TypeFightUpdated = "fight_updated"
	TypeAck          = "ack"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// FightUpdatedPayload carries the full fight snapshot for a campaign channel.
type FightUpdatedPayload struct {
	CampaignID uuid.UUID   `json:"campaignId"`
	FightID    uuid.UUID   `json:"fightId"`
	Fight      *core.Fight `json:"fight"`
}

// NewFightUpdated builds the envelope for a fight snapshot.
func NewFightUpdated(f *core.Fight) (Envelope, error) {
	payload, err := json.Marshal(FightUpdatedPayload{
		CampaignID: f.CampaignID,
		FightID:    f.ID,
		Fight:      f,
	})
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: TypeFightUpdated, Payload: payload}, nil
}
