package future

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoResolves(t *testing.T) {
	f := Go(context.Background(), func(ctx context.Context) (int, error) {
		return 42, nil
	})

	v, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	select {
	case <-f.Done():
	default:
		t.Fatal("Done not closed after Await returned a result")
	}
}

func TestGoError(t *testing.T) {
	boom := errors.New("boom")
	f := Go(context.Background(), func(ctx context.Context) (string, error) {
		return "", boom
	})
	_, err := f.Await(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestCancelStopsCall(t *testing.T) {
	started := make(chan struct{})
	f := Go(context.Background(), func(ctx context.Context) (int, error) {
		close(started)
		<-ctx.Done()
		return 0, ctx.Err()
	})
	<-started
	f.Cancel()

	v, err := f.Await(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, v)
}

func TestCancelDropsLateResult(t *testing.T) {
	release := make(chan struct{})
	f := Go(context.Background(), func(ctx context.Context) (int, error) {
		<-release
		return 7, nil // ignores ctx, like a call already on the wire
	})
	f.Cancel()
	close(release)

	v, err := f.Await(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, v)
}

func TestAwaitGivesUp(t *testing.T) {
	f := Go(context.Background(), func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	defer f.Cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := f.Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestResolved(t *testing.T) {
	f := Resolved("done", nil)
	v, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "done", v)
	f.Cancel()
}
