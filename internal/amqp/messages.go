package amqp

import (
	"encoding/json"
	"time"
)

// CategoryUpdatedMessage tells the propagation worker that a category's
// display fields changed. It carries the new name/color directly so the
// worker does not have to re-read the category document.
type CategoryUpdatedMessage struct {
	CategoryID string    `json:"categoryId"`
	Name       string    `json:"name"`
	Color      string    `json:"color"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewCategoryUpdatedMessage(categoryID, name, color string) *CategoryUpdatedMessage {
	return &CategoryUpdatedMessage{
		CategoryID: categoryID,
		Name:       name,
		Color:      color,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *CategoryUpdatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// CategoryUpdatedMessageFromJSON creates a message from JSON bytes.
func CategoryUpdatedMessageFromJSON(data []byte) (*CategoryUpdatedMessage, error) {
	var msg CategoryUpdatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
