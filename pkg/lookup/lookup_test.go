package lookup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_ReturnsResult(t *testing.T) {
	var g Group

	v, err := Do(context.Background(), &g, "cart-1", func(ctx context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Zero(t, g.InFlight())
}

func TestDo_PassesErrorsThrough(t *testing.T) {
	var g Group
	boom := errors.New("boom")

	_, err := Do(context.Background(), &g, "cart-1", func(ctx context.Context) (string, error) {
		return "", boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestDo_NewerLookupSupersedesOlder(t *testing.T) {
	var g Group
	started := make(chan struct{})
	firstDone := make(chan error, 1)

	go func() {
		_, err := Do(context.Background(), &g, "cart-1", func(ctx context.Context) (string, error) {
			close(started)
			<-ctx.Done()
			return "stale", ctx.Err()
		})
		firstDone <- err
	}()

	<-started
	v, err := Do(context.Background(), &g, "cart-1", func(ctx context.Context) (string, error) {
		return "fresh", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)

	select {
	case err := <-firstDone:
		assert.ErrorIs(t, err, ErrSuperseded)
	case <-time.After(2 * time.Second):
		t.Fatal("first lookup was not cancelled")
	}
	assert.Zero(t, g.InFlight())
}

func TestDo_KeysAreIndependent(t *testing.T) {
	var g Group
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		_, err := Do(context.Background(), &g, "cart-1", func(ctx context.Context) (int, error) {
			close(started)
			select {
			case <-release:
				return 1, nil
			case <-ctx.Done():
				return 0, ctx.Err()
			}
		})
		done <- err
	}()

	<-started
	_, err := Do(context.Background(), &g, "cart-2", func(ctx context.Context) (int, error) {
		return 2, nil
	})
	require.NoError(t, err)

	close(release)
	assert.NoError(t, <-done)
}
