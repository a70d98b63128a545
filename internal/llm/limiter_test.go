package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingClient struct {
	calls  int
	reply  string
	err    error
	closed bool
}

func (c *recordingClient) Complete(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	c.calls++
	return c.reply, c.err
}

func (c *recordingClient) Close() error {
	c.closed = true
	return nil
}

func TestRateLimitedClientPassthrough(t *testing.T) {
	inner := &recordingClient{reply: "ok"}
	c := NewRateLimitedClient(inner, 0)

	out, err := c.Complete(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 1, inner.calls)

	require.NoError(t, c.Close())
	assert.True(t, inner.closed)
}

func TestRateLimitedClientPropagatesError(t *testing.T) {
	inner := &recordingClient{err: errors.New("upstream down")}
	c := NewRateLimitedClient(inner, 0)

	_, err := c.Complete(context.Background(), "sys", "user")
	assert.EqualError(t, err, "upstream down")
}

func TestRateLimitedClientHonorsContext(t *testing.T) {
	inner := &recordingClient{reply: "ok"}
	c := NewRateLimitedClient(inner, 1)

	ctx := context.Background()
	_, err := c.Complete(ctx, "sys", "user")
	require.NoError(t, err)

	// bucket is drained; a cancelled context must not block
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = c.Complete(cancelled, "sys", "user")
	assert.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}
