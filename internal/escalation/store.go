package escalation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionStore keeps escalation sessions in redis. The redis TTL is only
// hygiene for abandoned tokens; validity is always recomputed from the
// session's own timestamp so clock decisions stay in one place.
type SessionStore struct {
	client *redis.Client
}

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

func sessionKey(token string) string {
	return "escalation:" + token
}

func (s *SessionStore) Put(ctx context.Context, sess Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("escalation: encode session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(sess.Token), raw, sess.Timeout).Err(); err != nil {
		return fmt.Errorf("escalation: store session: %w", err)
	}
	return nil
}

// Get returns the session for a token, or ok=false when none exists.
func (s *SessionStore) Get(ctx context.Context, token string) (Session, bool, error) {
	if token == "" {
		return Session{}, false, nil
	}
	raw, err := s.client.Get(ctx, sessionKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, fmt.Errorf("escalation: load session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return Session{}, false, fmt.Errorf("escalation: decode session: %w", err)
	}
	return sess, true, nil
}

func (s *SessionStore) Delete(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.client.Del(ctx, sessionKey(token)).Err(); err != nil {
		return fmt.Errorf("escalation: delete session: %w", err)
	}
	return nil
}

func newToken() string {
	return uuid.NewString()
}
