package timex

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Duration
	}{
		{"string minutes", `"90m"`, 90 * time.Minute},
		{"string composite", `"1h30m"`, 90 * time.Minute},
		{"integer nanoseconds", `60000000000`, time.Minute},
		{"zero", `0`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration
			require.NoError(t, json.Unmarshal([]byte(tt.input), &d))
			assert.Equal(t, tt.want, d.Duration)
		})
	}
}

func TestUnmarshalJSON_Invalid(t *testing.T) {
	for _, input := range []string{`"not a duration"`, `true`, `["1h"]`} {
		var d Duration
		assert.Error(t, json.Unmarshal([]byte(input), &d), "input %s", input)
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	d := Duration{Duration: 15 * time.Minute}

	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"15m0s"`, string(data))

	var back Duration
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, d.Duration, back.Duration)
}
