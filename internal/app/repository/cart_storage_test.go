package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ikkim/udonggeum-storefront/internal/app/model"
	"github.com/ikkim/udonggeum-storefront/internal/cart"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDBCartStorage_LoadSave(t *testing.T) {
	testDB := setupTestDB(t)
	ctx := context.Background()
	s := NewDBCartStorage(testDB, "sess-1")

	_, err := s.Load(ctx, cart.StorageKey)
	assert.ErrorIs(t, err, cart.ErrNotStored)

	require.NoError(t, s.Save(ctx, cart.StorageKey, []byte(`{"items":[]}`)))
	require.NoError(t, s.Save(ctx, cart.StorageKey, []byte(`{"items":[{"variant_id":"1","quantity":1}]}`)))

	data, err := s.Load(ctx, cart.StorageKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[{"variant_id":"1","quantity":1}]}`, string(data))

	var count int64
	require.NoError(t, testDB.Model(&model.CartRecord{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	other := NewDBCartStorage(testDB, "sess-2")
	_, err = other.Load(ctx, cart.StorageKey)
	assert.ErrorIs(t, err, cart.ErrNotStored)
}

func TestDBCartStorage_BacksAStore(t *testing.T) {
	testDB := setupTestDB(t)
	ctx := context.Background()

	store := cart.NewStore(ctx, NewDBCartStorage(testDB, "sess-1"))
	_, err := store.Dispatch(ctx, cart.Add{Item: cart.LineItem{VariantID: "7", Quantity: 2, UnitPrice: 1000}})
	require.NoError(t, err)

	reloaded := cart.NewStore(ctx, NewDBCartStorage(testDB, "sess-1"))
	require.Len(t, reloaded.State().Items, 1)
	assert.Equal(t, 2, reloaded.State().Items[0].Quantity)
}

func TestRedisCartStorage_LoadSave(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	ctx := context.Background()

	s := NewRedisCartStorage(client, "sess-1", time.Hour)

	_, err := s.Load(ctx, cart.StorageKey)
	assert.ErrorIs(t, err, cart.ErrNotStored)

	require.NoError(t, s.Save(ctx, cart.StorageKey, []byte(`{"items":[]}`)))
	data, err := s.Load(ctx, cart.StorageKey)
	require.NoError(t, err)
	assert.Equal(t, `{"items":[]}`, string(data))
	assert.Equal(t, time.Hour, mr.TTL("cart:sess-1:cart"))

	mr.FastForward(2 * time.Hour)
	_, err = s.Load(ctx, cart.StorageKey)
	assert.ErrorIs(t, err, cart.ErrNotStored)
}

func TestCartRecordRepository_PurgeOlderThan(t *testing.T) {
	testDB := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, NewDBCartStorage(testDB, "stale").Save(ctx, cart.StorageKey, []byte(`{}`)))
	require.NoError(t, NewDBCartStorage(testDB, "fresh").Save(ctx, cart.StorageKey, []byte(`{}`)))
	require.NoError(t, testDB.Model(&model.CartRecord{}).
		Where("session_id = ?", "stale").
		UpdateColumn("updated_at", time.Now().Add(-48*time.Hour)).Error)

	purged, err := NewCartRecordRepository(testDB).PurgeOlderThan(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	_, err = NewDBCartStorage(testDB, "fresh").Load(ctx, cart.StorageKey)
	assert.NoError(t, err)
}
