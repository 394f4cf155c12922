package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/evyataryagoni/geolookup/internal/models"
	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces record keys: geo:<ip> -> JSON-encoded GeoRecord
const keyPrefix = "geo:"

// RedisStore implements Store using Redis
type RedisStore struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisStore connects to Redis and pings it
func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx := context.Background()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{
		client: client,
		ctx:    ctx,
	}, nil
}

func recordKey(ip string) string {
	return keyPrefix + ip
}

// FindByIP implements the Store interface
func (s *RedisStore) FindByIP(ip string) (*models.GeoRecord, error) {
	val, err := s.client.Get(s.ctx, recordKey(ip)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("Redis query failed: %w", err)
	}

	var rec models.GeoRecord
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return nil, fmt.Errorf("failed to decode geo record: %w", err)
	}
	// the key is authoritative for the address
	rec.IP = ip

	return &rec, nil
}

// Set adds or replaces a record, without expiry
func (s *RedisStore) Set(rec models.GeoRecord) error {
	if rec.IP == "" {
		return fmt.Errorf("record has no IP")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode geo record: %w", err)
	}

	if err := s.client.Set(s.ctx, recordKey(rec.IP), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store in Redis: %w", err)
	}

	return nil
}

// LoadFromCSV copies every record of a CSV dataset into Redis in one pipeline
// and returns the number of records written.
func (s *RedisStore) LoadFromCSV(csvPath string) (int, error) {
	csvStore, err := NewCSVStore(csvPath)
	if err != nil {
		return 0, fmt.Errorf("failed to load CSV: %w", err)
	}
	defer csvStore.Close()

	pipe := s.client.Pipeline()
	records := csvStore.Records()
	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return 0, fmt.Errorf("failed to encode IP %s: %w", rec.IP, err)
		}
		pipe.Set(s.ctx, recordKey(rec.IP), data, 0)
	}
	if _, err := pipe.Exec(s.ctx); err != nil {
		return 0, fmt.Errorf("failed to store records in Redis: %w", err)
	}

	return len(records), nil
}

// IsEmpty reports whether no geo:* keys exist
func (s *RedisStore) IsEmpty() (bool, error) {
	keys, err := s.client.Keys(s.ctx, keyPrefix+"*").Result()
	if err != nil {
		return false, fmt.Errorf("failed to check Redis keys: %w", err)
	}
	return len(keys) == 0, nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
