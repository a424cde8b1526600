package kafka

import (
	"encoding/json"
	"time"

	"github.com/Ramsey-B/fern/pkg/models"
)

// IncomingMessage wraps a raw Kafka message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string

	// Parsed content
	Document *models.ExtractedDocumentMessage
}

// ParseDocument parses the message value as an extracted-document message
func (m *IncomingMessage) ParseDocument() error {
	var msg models.ExtractedDocumentMessage
	if err := json.Unmarshal(m.Value, &msg); err != nil {
		return err
	}
	m.Document = &msg
	return nil
}

// GetDocumentID returns the document ID, falling back to the message key
func (m *IncomingMessage) GetDocumentID() string {
	if m.Document != nil && m.Document.DocumentID != "" {
		return m.Document.DocumentID
	}
	return m.Key
}
