package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cleanupEnv()
	defer cleanupEnv()

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "devnet", cfg.SolanaNetwork)
	assert.Equal(t, []string{"https://api.devnet.solana.com"}, cfg.SolanaRPCURLs)
	assert.Equal(t, "solplay", cfg.TemporalTaskQueue)
	assert.Equal(t, 60*time.Second, cfg.ConfirmTimeout)
	assert.Equal(t, 2*time.Second, cfg.ConfirmPollInterval)
	assert.Equal(t, 65536, cfg.MaxDecodeBytes)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Empty(t, cfg.NATSURL)
	assert.True(t, cfg.AirdropsAllowed())
}

func TestLoad_CustomValues(t *testing.T) {
	os.Setenv("SERVER_ADDR", ":9090")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("DATABASE_URL", "postgres://localhost/test")
	os.Setenv("NATS_URL", "nats://nats.example.com:4222")
	os.Setenv("SOLANA_NETWORK", "Mainnet")
	os.Setenv("SOLANA_RPC_URL", "https://a.example.com, https://b.example.com,")
	os.Setenv("PAYER_KEYPAIR_PATH", "/keys/payer.json")
	os.Setenv("TEMPORAL_HOST", "temporal.example.com:7233")
	os.Setenv("CONFIRM_TIMEOUT", "2m")
	os.Setenv("CONFIRM_POLL_INTERVAL", "500ms")
	os.Setenv("MAX_DECODE_BYTES", "4096")
	defer cleanupEnv()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ServerAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "postgres://localhost/test", cfg.DatabaseURL)
	assert.Equal(t, "nats://nats.example.com:4222", cfg.NATSURL)
	assert.Equal(t, "mainnet", cfg.SolanaNetwork)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.SolanaRPCURLs)
	assert.Equal(t, "/keys/payer.json", cfg.PayerKeypairPath)
	assert.Equal(t, "temporal.example.com:7233", cfg.TemporalHost)
	assert.Equal(t, 2*time.Minute, cfg.ConfirmTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.ConfirmPollInterval)
	assert.Equal(t, 4096, cfg.MaxDecodeBytes)
	assert.False(t, cfg.AirdropsAllowed())
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "invalid duration",
			env:     map[string]string{"CONFIRM_TIMEOUT": "soon"},
			wantErr: "invalid duration",
		},
		{
			name:    "invalid integer",
			env:     map[string]string{"MAX_DECODE_BYTES": "lots"},
			wantErr: "invalid integer",
		},
		{
			name:    "unknown network",
			env:     map[string]string{"SOLANA_NETWORK": "moonnet"},
			wantErr: "SOLANA_NETWORK must be one of",
		},
		{
			name:    "timeout shorter than poll interval",
			env:     map[string]string{"CONFIRM_TIMEOUT": "1s", "CONFIRM_POLL_INTERVAL": "5s"},
			wantErr: "cannot be shorter than",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanupEnv()
			defer cleanupEnv()
			for k, v := range tt.env {
				os.Setenv(k, v)
			}

			cfg, err := Load()
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_ReportsAllErrors(t *testing.T) {
	os.Setenv("CONFIRM_TIMEOUT", "soon")
	os.Setenv("MAX_DECODE_BYTES", "lots")
	defer cleanupEnv()

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CONFIRM_TIMEOUT")
	assert.Contains(t, err.Error(), "MAX_DECODE_BYTES")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			ServerAddr:          ":8080",
			SolanaNetwork:       "devnet",
			SolanaRPCURLs:       []string{"https://api.devnet.solana.com"},
			TemporalHost:        "localhost:7233",
			TemporalNamespace:   "default",
			TemporalTaskQueue:   "solplay",
			ConfirmTimeout:      time.Minute,
			ConfirmPollInterval: time.Second,
			MaxDecodeBytes:      65536,
		}
	}

	t.Run("valid config", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("missing rpc url", func(t *testing.T) {
		cfg := valid()
		cfg.SolanaRPCURLs = nil
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SOLANA_RPC_URL is required")
	})

	t.Run("tiny decode limit", func(t *testing.T) {
		cfg := valid()
		cfg.MaxDecodeBytes = 10
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "MAX_DECODE_BYTES")
	})

	t.Run("missing temporal settings", func(t *testing.T) {
		cfg := valid()
		cfg.TemporalHost = ""
		cfg.TemporalTaskQueue = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "TemporalHost is required")
		assert.Contains(t, err.Error(), "TemporalTaskQueue is required")
	})
}

func TestMustLoad_Panics(t *testing.T) {
	os.Setenv("SOLANA_NETWORK", "moonnet")
	defer cleanupEnv()

	assert.Panics(t, func() {
		MustLoad()
	})
}

func TestMustLoad_Success(t *testing.T) {
	cleanupEnv()
	defer cleanupEnv()

	assert.NotPanics(t, func() {
		cfg := MustLoad()
		assert.NotNil(t, cfg)
	})
}

// cleanupEnv clears all environment variables used in tests
func cleanupEnv() {
	for _, key := range []string{
		"SERVER_ADDR", "METRICS_ADDR", "LOG_LEVEL", "DATABASE_URL", "NATS_URL",
		"SOLANA_NETWORK", "SOLANA_RPC_URL", "PAYER_KEYPAIR_PATH",
		"TEMPORAL_HOST", "TEMPORAL_NAMESPACE", "TEMPORAL_TASK_QUEUE",
		"CONFIRM_TIMEOUT", "CONFIRM_POLL_INTERVAL", "MAX_DECODE_BYTES",
	} {
		os.Unsetenv(key)
	}
}
