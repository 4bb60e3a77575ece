package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const defaultRedisKeyPrefix = "cardreader"

// RedisDatabase keeps insertion order in a list of timestamps and the
// records themselves in a hash keyed by timestamp.
type RedisDatabase struct {
	client     *redis.Client
	maxRecords int

	orderKey       string
	recordsKey     string
	initializedKey string
}

// NewRedisDatabase connects using a redis:// URL
func NewRedisDatabase(connectionString string) (*RedisDatabase, error) {
	options, err := redis.ParseURL(connectionString)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisDatabaseWithClient(redis.NewClient(options), defaultRedisKeyPrefix), nil
}

// NewRedisDatabaseWithClient wraps an existing client; keys are namespaced by prefix
func NewRedisDatabaseWithClient(client *redis.Client, prefix string) *RedisDatabase {
	if prefix == "" {
		prefix = defaultRedisKeyPrefix
	}
	return &RedisDatabase{
		client:         client,
		maxRecords:     MaxRecords,
		orderKey:       prefix + ":order",
		recordsKey:     prefix + ":records",
		initializedKey: prefix + ":initialized",
	}
}

func (s *RedisDatabase) CreateDatabase(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

func (s *RedisDatabase) DoesDatabaseExist(ctx context.Context) (bool, error) {
	n, err := s.client.Exists(ctx, s.initializedKey).Result()
	if err != nil {
		return false, fmt.Errorf("check redis store: %w", err)
	}
	return n > 0, nil
}

func (s *RedisDatabase) Close() error {
	return s.client.Close()
}

func (s *RedisDatabase) AppendRecord(ctx context.Context, record Record) (Record, error) {
	encoded, err := json.Marshal(record)
	if err != nil {
		return Record{}, fmt.Errorf("encode record: %w", err)
	}

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		length, err := tx.LLen(ctx, s.orderKey).Result()
		if err != nil {
			return err
		}
		overflow := length + 1 - int64(s.maxRecords)
		var evicted []string
		if overflow > 0 {
			evicted, err = tx.LRange(ctx, s.orderKey, 0, overflow-1).Result()
			if err != nil {
				return err
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.RPush(ctx, s.orderKey, record.Timestamp)
			pipe.HSet(ctx, s.recordsKey, record.Timestamp, encoded)
			if len(evicted) > 0 {
				pipe.LTrim(ctx, s.orderKey, -int64(s.maxRecords), -1)
				pipe.HDel(ctx, s.recordsKey, evicted...)
			}
			pipe.Set(ctx, s.initializedKey, record.Timestamp, 0)
			return nil
		})
		return err
	}, s.orderKey)
	if err != nil {
		return Record{}, fmt.Errorf("append record: %w", err)
	}
	return record, nil
}

func (s *RedisDatabase) GetRecords(ctx context.Context) ([]Record, error) {
	timestamps, err := s.client.LRange(ctx, s.orderKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list record order: %w", err)
	}
	records := []Record{}
	if len(timestamps) == 0 {
		return records, nil
	}

	values, err := s.client.HMGet(ctx, s.recordsKey, timestamps...).Result()
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			slog.Warn("record listed in order but missing from hash", "timestamp", timestamps[i])
			continue
		}
		var record Record
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			slog.Warn("skipping unreadable record", "timestamp", timestamps[i], "error", err)
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

func (s *RedisDatabase) UpdateAnalyzed(ctx context.Context, timestamp string, analyzed Analyzed) (bool, error) {
	found := false
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.HGet(ctx, s.recordsKey, timestamp).Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}

		var record Record
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			return fmt.Errorf("%w: record %s: %w", ErrCorruptStore, timestamp, err)
		}
		record.Analyzed = analyzed
		encoded, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("encode record: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, s.recordsKey, timestamp, encoded)
			return nil
		})
		if err == nil {
			found = true
		}
		return err
	}, s.recordsKey)
	if err != nil {
		return false, fmt.Errorf("update record: %w", err)
	}
	return found, nil
}

func (s *RedisDatabase) DeleteRecords(ctx context.Context, timestamp string) (int, error) {
	var removed *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		removed = pipe.LRem(ctx, s.orderKey, 0, timestamp)
		pipe.HDel(ctx, s.recordsKey, timestamp)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("delete records: %w", err)
	}
	return int(removed.Val()), nil
}
