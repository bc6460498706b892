// Package store persists published quizzes as a single keyed blob, the way the
// portal's browser build kept them in local storage: one JSON object mapping quiz
// id to quiz record under a fixed key.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cbtportal/models"
)

// BlobKey is the fixed key shared by the authoring and take-quiz flows.
const BlobKey = "quizzes"

var (
	ErrNotFound           = errors.New("quiz not found")
	ErrMalformedRecord    = errors.New("stored quiz is malformed")
	ErrStorageUnavailable = errors.New("quiz storage unavailable")
)

// Store is the capability injected into the publisher and the session engine.
type Store interface {
	Put(ctx context.Context, quiz *models.Quiz) error
	Get(ctx context.Context, id string) (*models.Quiz, error)
}

// blob is the decoded top level of the stored value. Entries stay raw so one bad
// record does not hide the others.
type blob map[string]json.RawMessage

func decodeBlob(data []byte) (blob, error) {
	b := blob{}
	if len(data) == 0 {
		return b, nil
	}
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if b == nil {
		// a literal "null" blob
		b = blob{}
	}
	return b, nil
}

func (b blob) lookup(id string) (*models.Quiz, error) {
	raw, ok := b[id]
	if !ok {
		return nil, ErrNotFound
	}

	if string(raw) == "null" {
		return nil, fmt.Errorf("%w: quiz %s is null", ErrMalformedRecord, id)
	}

	var quiz models.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return nil, fmt.Errorf("%w: quiz %s: %v", ErrMalformedRecord, id, err)
	}
	return &quiz, nil
}

func (b blob) with(quiz *models.Quiz) ([]byte, error) {
	raw, err := json.Marshal(quiz)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal quiz %s: %w", quiz.ID, err)
	}
	b[quiz.ID] = raw
	return json.Marshal(b)
}

// merge decodes the current blob, adds quiz and re-encodes the whole mapping.
// An undecodable current blob is reported as unavailable storage, since writing
// over it would drop every other quiz.
func merge(current []byte, quiz *models.Quiz) ([]byte, error) {
	if quiz == nil || quiz.ID == "" {
		return nil, errors.New("quiz id is required")
	}
	b, err := decodeBlob(current)
	if err != nil {
		return nil, fmt.Errorf("%w: existing blob cannot be decoded: %v", ErrStorageUnavailable, err)
	}
	return b.with(quiz)
}

func find(current []byte, id string) (*models.Quiz, error) {
	b, err := decodeBlob(current)
	if err != nil {
		return nil, err
	}
	return b.lookup(id)
}
