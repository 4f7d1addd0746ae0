package models

import (
	"encoding/json"
	"errors"
)

var ErrMissingBody = errors.New("message body is required")

type Message struct {
	Id string `json:"id"`

	// Raw JSON, kept as sent by the producer
	Body json.RawMessage `json:"body"`
}

func NewMessage(id string, body any) (*Message, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	return &Message{
		Id:   id,
		Body: raw,
	}, nil
}

func (m *Message) FromRawMessage(data []byte) error {
	if err := json.Unmarshal(data, m); err != nil {
		return err
	}

	if len(m.Body) == 0 || string(m.Body) == "null" {
		return ErrMissingBody
	}

	return nil
}

type QueueStats struct {
	Name string `json:"name"`

	// -1 when the queue is no longer usable
	Depth int `json:"depth"`
}
