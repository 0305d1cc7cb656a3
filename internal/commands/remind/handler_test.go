package remind

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDelay(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
	}{
		{"90s", 90 * time.Second},
		{"30m", 30 * time.Minute},
		{"2h", 2 * time.Hour},
		{"1d", 24 * time.Hour},
		{"7d", 7 * 24 * time.Hour},
		{"1h30m", 90 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseDelay(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDelayInvalid(t *testing.T) {
	for _, input := range []string{"", "tomorrow", "d", "1.5d", "-5m"} {
		t.Run(input, func(t *testing.T) {
			_, err := parseDelay(input)
			if input == "-5m" {
				// Negative durations parse; the scheduler rejects them.
				require.NoError(t, err)
				return
			}
			assert.Error(t, err)
		})
	}
}
