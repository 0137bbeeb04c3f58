package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"WARN", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	level, err := ParseLevel("loud")
	assert.Error(t, err)
	assert.Equal(t, zapcore.InfoLevel, level)
}

func TestNewZapLogger(t *testing.T) {
	logs := NewZapLogger("nftmarket", zapcore.WarnLevel)
	require.NotNil(t, logs)
	assert.False(t, logs.Desugar().Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logs.Desugar().Core().Enabled(zapcore.ErrorLevel))
}
