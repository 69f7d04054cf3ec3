package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/aiimpactmedia/casting/internal/model"
)

const (
	submissionsKey = "casting:submissions"
	maxTxRetries   = 5
)

// RedisStore keeps submission records as JSON entries of a redis list.
// RPUSH is a single command, so readers never see a partial record.
type RedisStore struct {
	redisClient redis.UniversalClient
	key         string
}

// NewRedisStore creates a store on the default key
func NewRedisStore(redisClient redis.UniversalClient) *RedisStore {
	return &RedisStore{redisClient: redisClient, key: submissionsKey}
}

// Append adds rec to the end of the list
func (s *RedisStore) Append(ctx context.Context, rec model.SubmissionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal submission: %w", err)
	}
	if err := s.redisClient.RPush(ctx, s.key, data).Err(); err != nil {
		return fmt.Errorf("failed to append submission: %w", err)
	}
	return nil
}

// List returns every record in insertion order
func (s *RedisStore) List(ctx context.Context) ([]model.SubmissionRecord, error) {
	raw, err := s.redisClient.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return decodeAll(raw)
}

// UpdateStatus rewrites the status of one record. The list is watched so a
// concurrent append or update forces a retry instead of a lost write.
func (s *RedisStore) UpdateStatus(ctx context.Context, id string, status model.SubmissionStatus) (model.SubmissionRecord, error) {
	var updated model.SubmissionRecord

	txf := func(tx *redis.Tx) error {
		raw, err := tx.LRange(ctx, s.key, 0, -1).Result()
		if err != nil {
			return err
		}
		records, err := decodeAll(raw)
		if err != nil {
			return err
		}

		idx := -1
		for i, r := range records {
			if r.ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return model.ErrRecordNotFound
		}

		rec := records[idx]
		rec.Status = status
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.LSet(ctx, s.key, int64(idx), data)
			return nil
		})
		if err == nil {
			updated = rec
		}
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.redisClient.Watch(ctx, txf, s.key)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, model.ErrRecordNotFound) {
			return model.SubmissionRecord{}, err
		}
		return model.SubmissionRecord{}, fmt.Errorf("failed to update submission status: %w", err)
	}
	return model.SubmissionRecord{}, fmt.Errorf("failed to update submission status: too much contention")
}

func decodeAll(raw []string) ([]model.SubmissionRecord, error) {
	records := make([]model.SubmissionRecord, 0, len(raw))
	for _, item := range raw {
		var rec model.SubmissionRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal submission: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}
