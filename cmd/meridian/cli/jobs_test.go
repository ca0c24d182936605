package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTriggerRejectsUnknownJob(t *testing.T) {
	// Connections are lazy; an unsupported name must fail before any dial.
	jobsCLI, err := NewJobsCLI("127.0.0.1:1")
	require.NoError(t, err)
	t.Cleanup(func() { _ = jobsCLI.Close() })

	_, err = jobsCLI.Trigger(context.Background(), "no:such:job")
	require.ErrorContains(t, err, "unsupported job")
}

func TestJobsCLINilGuards(t *testing.T) {
	var jobsCLI *JobsCLI

	_, err := jobsCLI.Trigger(context.Background(), "reference:warmup")
	require.ErrorContains(t, err, "client not configured")

	_, err = jobsCLI.InspectQueue(context.Background())
	require.ErrorContains(t, err, "inspector not configured")

	_, err = jobsCLI.ListScheduled(context.Background(), 5)
	require.ErrorContains(t, err, "inspector not configured")
}
