package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"famfin/internal/core"

	"github.com/google/uuid"
)

// RoutingKeySnapshotCalculated is the routing key of snapshot events.
const RoutingKeySnapshotCalculated = "agency.snapshot.calculated"

// SnapshotCalculatedMessage announces a stored agency snapshot. It carries
// only identifiers; consumers load the snapshot itself from the database.
type SnapshotCalculatedMessage struct {
	MessageID     string    `json:"messageId"`
	SnapshotID    int64     `json:"snapshotId"`
	UserID        int64     `json:"userId"`
	CalculatedFor core.Date `json:"calculatedFor"`
	CalculatedAt  time.Time `json:"calculatedAt"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewSnapshotCalculatedMessage(s core.AgencySnapshot) *SnapshotCalculatedMessage {
	return &SnapshotCalculatedMessage{
		MessageID:     uuid.NewString(),
		SnapshotID:    s.ID,
		UserID:        s.UserID,
		CalculatedFor: s.CalculatedFor,
		CalculatedAt:  s.CalculatedAt,
		Timestamp:     time.Now().UTC(),
	}
}

func (m *SnapshotCalculatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func SnapshotCalculatedMessageFromJSON(data []byte) (*SnapshotCalculatedMessage, error) {
	var msg SnapshotCalculatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.SnapshotID <= 0 {
		return nil, fmt.Errorf("snapshot message without snapshot id")
	}
	return &msg, nil
}
