package db

import (
	"testing"
	"time"

	"github.com/ikkim/udonggeum-storefront/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

func TestConnect_AppliesPoolSettings(t *testing.T) {
	tests := []struct {
		name        string
		cfg         config.DatabaseConfig
		wantMaxOpen int
	}{
		{name: "Configured", cfg: config.DatabaseConfig{MaxIdleConns: 2, MaxOpenConns: 4, ConnMaxLifetime: time.Minute}, wantMaxOpen: 4},
		{name: "Defaults", cfg: config.DatabaseConfig{}, wantMaxOpen: defaultMaxOpenConns},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			previous := DB
			t.Cleanup(func() {
				Close()
				DB = previous
			})

			require.NoError(t, connect(sqlite.Open(":memory:"), &tt.cfg))
			require.NotNil(t, GetDB())

			sqlDB, err := GetDB().DB()
			require.NoError(t, err)
			assert.Equal(t, tt.wantMaxOpen, sqlDB.Stats().MaxOpenConnections)
		})
	}
}

func TestConnect_UnreachableKeepsPreviousDB(t *testing.T) {
	previous := DB
	t.Cleanup(func() { DB = previous })

	err := connect(sqlite.Open("file:/nonexistent-dir/storefront.db?mode=ro"), &config.DatabaseConfig{})
	assert.Error(t, err)
	assert.Equal(t, previous, DB)
}
