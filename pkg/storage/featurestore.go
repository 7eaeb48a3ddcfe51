// Package storage provides the online feature cache: the last extracted
// vector per patient, kept in Redis with a TTL. It is a cache only; every
// scoring call re-extracts from the record streams.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vitalsight-ai/platform/pkg/common/logger"
	"github.com/vitalsight-ai/platform/pkg/common/models"
)

type FeatureStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewFeatureStore(client *redis.Client, prefix string, ttl time.Duration) *FeatureStore {
	if prefix == "" {
		prefix = "features"
	}
	return &FeatureStore{client: client, prefix: prefix, ttl: ttl}
}

// Materialize writes the freshly extracted vector for fast what-if reads.
func (f *FeatureStore) Materialize(ctx context.Context, patientID string, vector models.FeatureVector) error {
	data, err := json.Marshal(vector)
	if err != nil {
		return err
	}

	key := f.key(patientID)
	if err := f.client.Set(ctx, key, data, f.ttl).Err(); err != nil {
		return err
	}

	logger.Log.WithFields(map[string]interface{}{
		"key":  key,
		"size": len(data),
	}).Debug("Materialized features to cache")
	return nil
}

// Get returns the cached vector, or nil when the cache has no entry.
func (f *FeatureStore) Get(ctx context.Context, patientID string) (models.FeatureVector, error) {
	data, err := f.client.Get(ctx, f.key(patientID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var vector models.FeatureVector
	if err := json.Unmarshal(data, &vector); err != nil {
		return nil, err
	}
	return vector, nil
}

func (f *FeatureStore) key(patientID string) string {
	return fmt.Sprintf("%s:%s", f.prefix, patientID)
}
