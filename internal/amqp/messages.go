package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Op is the kind of write a ChangeEvent reports.
type Op string

const (
	OpPut      Op = "put"
	OpDelete   Op = "delete"
	OpRollover Op = "rollover"
	OpClear    Op = "clear"
)

// ChangeEvent tells downstream consumers that a collection of an account
// changed. It carries no record data: consumers reload what they need.
type ChangeEvent struct {
	Account    string    `json:"account"`
	Kind       string    `json:"kind"`
	Op         Op        `json:"op"`
	DocumentID string    `json:"document_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewChangeEvent(account, kind string, op Op, documentID string) *ChangeEvent {
	return &ChangeEvent{
		Account:    account,
		Kind:       kind,
		Op:         op,
		DocumentID: documentID,
		Timestamp:  time.Now().UTC(),
	}
}

func (m *ChangeEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ChangeEventFromJSON(data []byte) (*ChangeEvent, error) {
	var msg ChangeEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Account == "" {
		return nil, fmt.Errorf("change event without account")
	}
	return &msg, nil
}
