// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package events

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
)

// Bus topics.
const (
	// TopicContentSubmitted carries ContentSubmitted for new and edited
	// content that needs an embedding.
	TopicContentSubmitted = "content.submitted"
	// TopicContentTombstoned carries ContentTombstoned.
	TopicContentTombstoned = "content.tombstoned"
	// TopicPoison receives messages whose handler failed after all retries.
	TopicPoison = "civitas.poison"
)

// ContentSubmitted asks the embedding worker to embed one text version.
type ContentSubmitted struct {
	ContentID   string    `json:"content_id"`
	TextVersion int       `json:"text_version"`
	AuthorID    string    `json:"author_id,omitempty"`
	At          time.Time `json:"at"`
}

// ContentTombstoned announces soft-deleted content.
type ContentTombstoned struct {
	ContentIDs []string  `json:"content_ids"`
	At         time.Time `json:"at"`
}

// NewMessage encodes payload as a watermill message with a fresh UUID.
func NewMessage(payload any) (*message.Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return message.NewMessage(watermill.NewUUID(), data), nil
}

// Decode unmarshals a message payload into out.
func Decode(msg *message.Message, out any) error {
	if err := json.Unmarshal(msg.Payload, out); err != nil {
		return fmt.Errorf("decode event %s: %w", msg.UUID, err)
	}
	return nil
}
