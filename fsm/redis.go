package fsm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists conversation state so multi-step admin flows
// survive a process restart. States expire after ttl of inactivity.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(addr string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &RedisStore{client: client, ttl: 24 * time.Hour}, nil
}

func stateKey(userID int64) string {
	return fmt.Sprintf("fsm:state:%d", userID)
}

type redisState struct {
	Tag       Tag     `json:"tag"`
	Payload   Payload `json:"payload"`
	UpdatedAt int64   `json:"updated_at"`
}

func (s *RedisStore) Get(ctx context.Context, userID int64) (*State, error) {
	raw, err := s.client.Get(ctx, stateKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rs redisState
	if err := json.Unmarshal([]byte(raw), &rs); err != nil {
		return nil, err
	}
	if rs.Payload == nil {
		rs.Payload = Payload{}
	}
	return &State{Tag: rs.Tag, Payload: rs.Payload, UpdatedAt: time.Unix(rs.UpdatedAt, 0).UTC()}, nil
}

func (s *RedisStore) Set(ctx context.Context, userID int64, tag Tag, payload Payload) error {
	if payload == nil {
		payload = Payload{}
	}
	raw, err := json.Marshal(redisState{Tag: tag, Payload: payload, UpdatedAt: time.Now().Unix()})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, stateKey(userID), raw, s.ttl).Err()
}

func (s *RedisStore) UpdatePayload(ctx context.Context, userID int64, patch Payload) error {
	st, err := s.Get(ctx, userID)
	if err != nil || st == nil {
		return err
	}
	for k, v := range patch {
		st.Payload[k] = v
	}
	return s.Set(ctx, userID, st.Tag, st.Payload)
}

func (s *RedisStore) Clear(ctx context.Context, userID int64) error {
	return s.client.Del(ctx, stateKey(userID)).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
