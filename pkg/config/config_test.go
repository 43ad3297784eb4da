package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CLOUD_DB_HOST", "")
	t.Setenv("SYNC_STRICT_TRANSITIONS", "")
	t.Setenv("KITCHEN_FEED_LIMIT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.Cloud.Configured())
	assert.True(t, cfg.Sync.StrictTransitions)
	assert.Equal(t, 50, cfg.Sync.KitchenFeedLimit)
	assert.Equal(t, "Sistema WA", cfg.Sync.DefaultCashier)
	assert.Equal(t, "retail_changes", cfg.Cloud.NotifyChannel)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SYNC_STRICT_TRANSITIONS", "false")
	t.Setenv("KITCHEN_FEED_LIMIT", "20")
	t.Setenv("CLOUD_DB_LOG_LEVEL", "silent")
	t.Setenv("CLOUD_DB_CONNECT_TIMEOUT", "3s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.Sync.StrictTransitions)
	assert.Equal(t, 20, cfg.Sync.KitchenFeedLimit)
	assert.Equal(t, logger.Silent, cfg.Cloud.LogLevel)
	assert.Equal(t, 3*time.Second, cfg.Cloud.ConnectTimeout)
}

func TestLoad_RejectsNonPositiveKitchenLimit(t *testing.T) {
	t.Setenv("KITCHEN_FEED_LIMIT", "0")

	_, err := Load()
	assert.Error(t, err)
}

func TestCloudConfig_Configured(t *testing.T) {
	tests := []struct {
		name string
		cfg  CloudConfig
		want bool
	}{
		{"empty", CloudConfig{}, false},
		{"real", CloudConfig{Host: "db.example.net", Password: "s3cret", DBName: "tienda"}, true},
		{"placeholder key", CloudConfig{Host: "db.example.net", Password: "TU_API_KEY_AQUI", DBName: "tienda"}, false},
		{"placeholder project", CloudConfig{Host: "tu-proyecto.example.net", Password: "s3cret", DBName: "tienda"}, false},
		{"english placeholder", CloudConfig{Host: "db.example.net", Password: "s3cret", DBName: "your-project-db"}, false},
		{"blank password", CloudConfig{Host: "db.example.net", Password: "  ", DBName: "tienda"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.Configured())
		})
	}
}

func TestCloudConfig_GetDSN(t *testing.T) {
	cfg := CloudConfig{Host: "h", Port: "5432", User: "u", Password: "p", DBName: "d", SSLMode: "require", ConnectTimeout: 5 * time.Second}

	assert.Equal(t, "host=h port=5432 user=u password=p dbname=d sslmode=require connect_timeout=5", cfg.GetDSN())
}
