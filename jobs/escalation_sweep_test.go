package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-lms/meridian-lms/internal/escalation"
)

func sweepFixture(t *testing.T) (*EscalationSweepJob, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewEscalationSweepJob(client, slog.Default(), nil), client
}

func putSession(t *testing.T, client *redis.Client, sess escalation.Session) {
	t.Helper()
	raw, err := json.Marshal(sess)
	require.NoError(t, err)
	require.NoError(t, client.Set(context.Background(), "escalation:"+sess.Token, raw, 0).Err())
}

func TestEscalationSweepRemovesLapsedSessions(t *testing.T) {
	job, client := sweepFixture(t)
	base := time.Now()
	job.now = func() time.Time { return base }

	putSession(t, client, escalation.Session{
		Token:       "live",
		UserID:      1,
		EscalatedAt: base.Add(-5 * time.Minute),
		Timeout:     15 * time.Minute,
	})
	putSession(t, client, escalation.Session{
		Token:       "stale",
		UserID:      2,
		EscalatedAt: base.Add(-30 * time.Minute),
		Timeout:     15 * time.Minute,
	})
	require.NoError(t, client.Set(context.Background(), "escalation:junk", "not json", 0).Err())

	task, err := NewEscalationSweepTask(10)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	ctx := context.Background()
	assert.Equal(t, int64(1), client.Exists(ctx, "escalation:live").Val())
	assert.Equal(t, int64(0), client.Exists(ctx, "escalation:stale").Val())
	assert.Equal(t, int64(0), client.Exists(ctx, "escalation:junk").Val())
}

func TestEscalationSweepKeepsShortenedWindowUntilLapsed(t *testing.T) {
	job, client := sweepFixture(t)
	base := time.Now()
	job.now = func() time.Time { return base }

	// Window shortened after issuance: the stored timeout governs, not the
	// redis TTL the token was written with.
	putSession(t, client, escalation.Session{
		Token:       "shortened",
		UserID:      3,
		EscalatedAt: base.Add(-10 * time.Minute),
		Timeout:     5 * time.Minute,
	})

	task, err := NewEscalationSweepTask(0)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	assert.Equal(t, int64(0), client.Exists(context.Background(), "escalation:shortened").Val())
}
