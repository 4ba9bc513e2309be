package queuestore

import (
	"context"
	"encoding/json"

	"github.com/valkey-io/valkey-go"

	"github.com/tharunkamalesh/crop-yield-platform-devops/internal/domain/syncqueue"
)

// ValkeyStore persists the queue snapshot as one JSON value in a
// Valkey-compatible database.
type ValkeyStore struct {
	client valkey.Client
	key    string
}

// NewValkeyStore constructs a store backed by Valkey.
func NewValkeyStore(client valkey.Client, key string) *ValkeyStore {
	if key == "" {
		key = "syncqueue:snapshot"
	}
	return &ValkeyStore{client: client, key: key}
}

// Load implements syncqueue.Store. A missing key means an empty queue.
func (s *ValkeyStore) Load(ctx context.Context) ([]syncqueue.QueuedSubmission, error) {
	result := s.client.Do(ctx, s.client.B().Get().Key(s.key).Build())
	payload, err := result.ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, nil
		}
		return nil, err
	}
	var entries []syncqueue.QueuedSubmission
	if err := json.Unmarshal([]byte(payload), &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Save implements syncqueue.Store.
func (s *ValkeyStore) Save(ctx context.Context, entries []syncqueue.QueuedSubmission) error {
	payload, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return s.client.Do(ctx, s.client.B().Set().Key(s.key).Value(string(payload)).Build()).Error()
}

var _ syncqueue.Store = (*ValkeyStore)(nil)
