// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package navigation

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// ErrInvalidCursor is returned for cursors that do not decode.
var ErrInvalidCursor = errors.New("invalid pagination cursor")

type cursorPayload struct {
	TopicID string `json:"t"`
	Offset  int    `json:"o"`
}

// EncodeCursor returns the opaque cursor for a topic offset.
func EncodeCursor(topicID string, offset int) string {
	data, _ := json.Marshal(cursorPayload{TopicID: topicID, Offset: offset})
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeCursor parses a cursor produced by EncodeCursor.
func DecodeCursor(cursor string) (topicID string, offset int, err error) {
	data, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %w", ErrInvalidCursor, err)
	}
	var p cursorPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return "", 0, fmt.Errorf("%w: %w", ErrInvalidCursor, err)
	}
	if p.TopicID == "" || p.Offset < 0 {
		return "", 0, ErrInvalidCursor
	}
	return p.TopicID, p.Offset, nil
}
