package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LogConfig
		wantErr bool
		level   zapcore.Level
	}{
		{"json info", config.LogConfig{Level: "info", Format: "json", OutputPath: "stdout"}, false, zapcore.InfoLevel},
		{"console debug", config.LogConfig{Level: "debug", Format: "console"}, false, zapcore.DebugLevel},
		{"bad level", config.LogConfig{Level: "loud", Format: "json"}, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, log.Core().Enabled(tt.level))
			assert.False(t, log.Core().Enabled(tt.level-1))
		})
	}
}
