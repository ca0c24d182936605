package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPingsServer(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := New(context.Background(), mr.Addr())
	require.NoError(t, err)
	require.NotNil(t, client)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	assert.Equal(t, "v", client.Get(context.Background(), "k").Val())
}

func TestNewReturnsClientWhenPingFails(t *testing.T) {
	// Port 1 is never listening; the ping errors but the handle must still
	// be usable so startup can continue degraded.
	client, err := New(context.Background(), "127.0.0.1:1")
	require.Error(t, err)
	require.NotNil(t, client)
	assert.NoError(t, client.Close())
}
