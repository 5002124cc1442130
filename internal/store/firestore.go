/*
 *    Copyright 2025 sbistransin
 *
 *    Licensed under the Apache License, Version 2.0 (the "License");
 *    you may not use this file except in compliance with the License.
 *    You may obtain a copy of the License at
 *
 *        http://www.apache.org/licenses/LICENSE-2.0
 *
 *    Unless required by applicable law or agreed to in writing, software
 *    distributed under the License is distributed on an "AS IS" BASIS,
 *    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *    See the License for the specific language governing permissions and
 *    limitations under the License.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Verify interface compliance.
var _ Store = (*FirestoreStore)(nil)

const kvCollection = "kv"

type kvDocument struct {
	Value     string    `firestore:"value"`
	ExpiresAt time.Time `firestore:"expiresAt,omitempty"`
}

// FirestoreStore is a Firestore-backed Store. Firestore has no native
// per-key TTL, so expiry is enforced on read: an expired document reads as
// absent and is deleted, and a janitor sweeps the rest.
type FirestoreStore struct {
	client *firestore.Client
	logger *zap.Logger
	now    func() time.Time
	stop   chan struct{}
	once   sync.Once
}

// NewFirestoreStore creates a Firestore-backed Store and starts its expiry
// janitor.
func NewFirestoreStore(ctx context.Context, projectID string, logger *zap.Logger) (*FirestoreStore, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	s := &FirestoreStore{
		client: client,
		logger: logger.Named("firestore_store"),
		now:    time.Now,
		stop:   make(chan struct{}),
	}
	go s.janitor()
	return s, nil
}

func (s *FirestoreStore) Get(ctx context.Context, key string) (string, bool, error) {
	snap, err := s.client.Collection(kvCollection).Doc(key).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}

	var doc kvDocument
	if err := snap.DataTo(&doc); err != nil {
		return "", false, fmt.Errorf("decode %s: %w", key, err)
	}

	if !doc.ExpiresAt.IsZero() && !s.now().Before(doc.ExpiresAt) {
		if _, err := snap.Ref.Delete(ctx); err != nil {
			s.logger.Warn("Failed to delete expired key", zap.String("key", key), zap.Error(err))
		}
		return "", false, nil
	}
	return doc.Value, true, nil
}

func (s *FirestoreStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	doc := kvDocument{Value: value}
	if ttl > 0 {
		doc.ExpiresAt = s.now().Add(ttl)
	}
	if _, err := s.client.Collection(kvCollection).Doc(key).Set(ctx, doc); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	s.logger.Debug("Stored key", zap.String("key", key), zap.Duration("ttl", ttl))
	return nil
}

func (s *FirestoreStore) Delete(ctx context.Context, key string) error {
	if _, err := s.client.Collection(kvCollection).Doc(key).Delete(ctx); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	s.logger.Debug("Deleted key", zap.String("key", key))
	return nil
}

func (s *FirestoreStore) Close() error {
	s.once.Do(func() { close(s.stop) })
	return s.client.Close()
}

func (s *FirestoreStore) janitor() {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := s.purgeExpired(ctx); err != nil {
				s.logger.Warn("Failed to purge expired keys", zap.Error(err))
			}
			cancel()
		}
	}
}

// purgeExpired removes documents whose expiry has passed. Documents without
// an expiresAt field never match the range query.
func (s *FirestoreStore) purgeExpired(ctx context.Context) error {
	iter := s.client.Collection(kvCollection).Where("expiresAt", "<", s.now()).Documents(ctx)
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("iterate expired keys: %w", err)
		}
		if _, err := snap.Ref.Delete(ctx); err != nil {
			s.logger.Warn("Failed to delete expired key", zap.String("key", snap.Ref.ID), zap.Error(err))
		}
	}
}
