package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	interfaces "github.com/sheikh-saqib/credit-tracker/internal/interfaces"
	"github.com/sheikh-saqib/credit-tracker/internal/models"
)

const (
	documentNamespace = "tracker:doc"
	sessionNamespace  = "tracker:session"
)

// NewClient returns a single-node client, or a cluster client when more than one
// address is given.
func NewClient(addrs []string, password string) redis.UniversalClient {
	if len(addrs) > 1 {
		return redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:    addrs,
			Password: password,
		})
	}
	return redis.NewClient(&redis.Options{
		Addr:     addrs[0],
		Password: password,
		DB:       0,
	})
}

// DocumentStore keeps each document as a plain string value under namespace:key.
type DocumentStore struct {
	client redis.UniversalClient
}

func NewDocumentStore(client redis.UniversalClient) *DocumentStore {
	return &DocumentStore{client: client}
}

func (s *DocumentStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, documentNamespace+":"+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, interfaces.ErrDocumentNotFound
	}
	return value, err
}

func (s *DocumentStore) Set(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, documentNamespace+":"+key, value, 0).Err()
}

// SessionStore keeps sessions as JSON with a TTL equal to their remaining lifetime,
// so redis forgets them on its own.
type SessionStore struct {
	client redis.UniversalClient
	now    func() time.Time
}

func NewSessionStore(client redis.UniversalClient) *SessionStore {
	return &SessionStore{client: client, now: time.Now}
}

func (s *SessionStore) Save(ctx context.Context, session models.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	var ttl time.Duration
	if !session.ExpiresAt.IsZero() {
		ttl = session.ExpiresAt.Sub(s.now())
		if ttl <= 0 {
			return s.Delete(ctx, session.ID)
		}
	}
	return s.client.Set(ctx, sessionNamespace+":"+session.ID, data, ttl).Err()
}

func (s *SessionStore) Get(ctx context.Context, id string) (models.Session, error) {
	data, err := s.client.Get(ctx, sessionNamespace+":"+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Session{}, interfaces.ErrSessionNotFound
	}
	if err != nil {
		return models.Session{}, err
	}
	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return models.Session{}, err
	}
	return session, nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, sessionNamespace+":"+id).Err()
}

var (
	_ interfaces.DocumentStore = (*DocumentStore)(nil)
	_ interfaces.SessionStore  = (*SessionStore)(nil)
)
