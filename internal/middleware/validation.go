package middleware

import (
	"errors"
	"unicode/utf8"
)

// ValidateMessageContent validates message content.
func ValidateMessageContent(content string) error {
	if len(content) == 0 {
		return errors.New("content cannot be empty")
	}
	if len(content) > 100000 { // ~100KB limit
		return errors.New("content exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("content must be valid UTF-8")
	}
	return nil
}

// ValidateID validates a room or participant id.
func ValidateID(id string) error {
	if len(id) == 0 {
		return errors.New("id cannot be empty")
	}
	if len(id) > 128 {
		return errors.New("id exceeds maximum length")
	}
	if !utf8.ValidString(id) {
		return errors.New("id must be valid UTF-8")
	}
	return nil
}

// ValidateRoomName validates a room name.
func ValidateRoomName(name string) error {
	if len(name) == 0 {
		return errors.New("room name cannot be empty")
	}
	if len(name) > 256 {
		return errors.New("room name exceeds maximum length")
	}
	if !utf8.ValidString(name) {
		return errors.New("room name must be valid UTF-8")
	}
	return nil
}
