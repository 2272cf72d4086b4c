package middleware

import (
	"errors"
	"strconv"
	"unicode/utf8"

	"github.com/commercekit/support-chat/internal/model"
)

// ValidateMessageBody validates message text.
func ValidateMessageBody(body string) error {
	if len(body) == 0 {
		return errors.New("message cannot be empty")
	}
	if len(body) > 10000 {
		return errors.New("message exceeds maximum length")
	}
	if !utf8.ValidString(body) {
		return errors.New("message must be valid UTF-8")
	}
	return nil
}

// ValidateSubject validates a conversation subject.
func ValidateSubject(subject string) error {
	if len(subject) == 0 {
		return errors.New("subject cannot be empty")
	}
	if len(subject) > 256 {
		return errors.New("subject exceeds maximum length")
	}
	if !utf8.ValidString(subject) {
		return errors.New("subject must be valid UTF-8")
	}
	return nil
}

// ValidateConversationID parses and validates a conversation ID.
func ValidateConversationID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid conversation ID")
	}
	return id, nil
}

// ValidateStatus validates a conversation status value.
func ValidateStatus(status model.Status) error {
	if !status.Valid() {
		return errors.New("invalid status")
	}
	return nil
}

// ValidatePriority validates a conversation priority value.
func ValidatePriority(priority model.Priority) error {
	if !priority.Valid() {
		return errors.New("invalid priority")
	}
	return nil
}

// ValidateDeleteType validates a delete type value.
func ValidateDeleteType(deleteType model.DeleteType) error {
	if !deleteType.Valid() {
		return errors.New("invalid delete type")
	}
	return nil
}
