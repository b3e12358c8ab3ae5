package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ikkim/udonggeum-storefront/internal/app/model"
	"github.com/ikkim/udonggeum-storefront/internal/cart"
	"github.com/ikkim/udonggeum-storefront/pkg/logger"
	redisstore "github.com/ikkim/udonggeum-storefront/pkg/redis"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DBCartStorage keeps the documents of one cart session in cart_records.
type DBCartStorage struct {
	db        *gorm.DB
	sessionID string
}

func NewDBCartStorage(db *gorm.DB, sessionID string) *DBCartStorage {
	return &DBCartStorage{db: db, sessionID: sessionID}
}

func (s *DBCartStorage) Load(ctx context.Context, key string) ([]byte, error) {
	var record model.CartRecord
	err := s.db.WithContext(ctx).
		Where("session_id = ? AND doc_key = ?", s.sessionID, key).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, cart.ErrNotStored
	}
	if err != nil {
		return nil, err
	}
	return []byte(record.Data), nil
}

func (s *DBCartStorage) Save(ctx context.Context, key string, data []byte) error {
	record := model.CartRecord{
		SessionID: s.sessionID,
		Key:       key,
		Data:      string(data),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "doc_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&record).Error
}

// RedisCartStorage keeps cart documents in Redis with a sliding expiry.
type RedisCartStorage struct {
	client    redis.Cmdable
	sessionID string
	ttl       time.Duration
}

func NewRedisCartStorage(client redis.Cmdable, sessionID string, ttl time.Duration) *RedisCartStorage {
	return &RedisCartStorage{client: client, sessionID: sessionID, ttl: ttl}
}

func (s *RedisCartStorage) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, redisstore.CartKey(s.sessionID, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, cart.ErrNotStored
	}
	return data, err
}

func (s *RedisCartStorage) Save(ctx context.Context, key string, data []byte) error {
	return s.client.Set(ctx, redisstore.CartKey(s.sessionID, key), data, s.ttl).Err()
}

type CartRecordRepository interface {
	// PurgeOlderThan deletes cart documents not written since cutoff
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type cartRecordRepository struct {
	db *gorm.DB
}

func NewCartRecordRepository(db *gorm.DB) CartRecordRepository {
	return &cartRecordRepository{db: db}
}

func (r *cartRecordRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("updated_at < ?", cutoff).Delete(&model.CartRecord{})
	if res.Error != nil {
		logger.Error("Failed to purge stale carts", res.Error, map[string]interface{}{
			"cutoff": cutoff,
		})
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
