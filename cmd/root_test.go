package cmd

import (
	"testing"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, input map[string]any, out any) error {
	t.Helper()

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: decodeHook(),
		Result:     out,
	})
	require.NoError(t, err)
	return decoder.Decode(input)
}

func TestDecodeHookThousands(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want int
	}{
		{name: "comma", in: "14,400", want: 14400},
		{name: "underscore", in: "1_000", want: 1000},
		{name: "plain string", in: "20", want: 20},
		{name: "int", in: 7, want: 7},
		{name: "empty", in: "", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out AIConfig
			require.NoError(t, decode(t, map[string]any{"max-daily-calls": tt.in}, &out))
			assert.Equal(t, tt.want, out.MaxDailyCalls)
		})
	}
}

func TestDecodeHookRejectsGarbage(t *testing.T) {
	var out AIConfig
	err := decode(t, map[string]any{"max-daily-calls": "lots"}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lots")
}

func TestDecodeHookDurationAndSlices(t *testing.T) {
	var out Config
	err := decode(t, map[string]any{
		"ai":        map[string]any{"retry-backoff": "1m30s"},
		"blacklist": map[string]any{"titles": "intern,junior"},
	}, &out)
	require.NoError(t, err)

	assert.Equal(t, 90*time.Second, out.AI.RetryBackoff)
	assert.Equal(t, []string{"intern", "junior"}, out.Blacklist.Titles)
}

func TestGetConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	viper.Set("work-dir", "/tmp/jobpilot")
	viper.Set("ai.max-daily-calls", "14,400")
	viper.Set("ai.match-threshold", 80)
	viper.Set("ai.retry-backoff", "5s")

	config, err := getConfig()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/jobpilot", config.WorkDir)
	assert.Equal(t, 14400, config.AI.MaxDailyCalls)
	assert.Equal(t, 80, config.AI.MatchThreshold)
	assert.Equal(t, 5*time.Second, config.AI.RetryBackoff)
}

func TestGetConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		set  map[string]any
	}{
		{name: "missing work dir", set: map[string]any{"work-dir": ""}},
		{name: "threshold above 100", set: map[string]any{"work-dir": "w", "ai.match-threshold": 101}},
		{name: "threshold zero", set: map[string]any{"work-dir": "w", "ai.match-threshold": 0}},
		{name: "unknown provider", set: map[string]any{"work-dir": "w", "ai.provider": "openai"}},
		{name: "negative calls", set: map[string]any{"work-dir": "w", "ai.max-daily-calls": -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Cleanup(viper.Reset)
			for k, v := range tt.set {
				viper.Set(k, v)
			}

			_, err := getConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "validate config")
		})
	}
}

func TestStructuredPreferences(t *testing.T) {
	config := &Config{Preferences: map[string]any{
		"email":          "jane@example.com",
		"checkboxes":     map[string]any{"relocate": true},
		"personal-info":  map[string]any{"city": "Berlin"},
		"experience":     map[string]any{"go": "6", "default": 3},
		"university-gpa": "3.8",
		"salary":         "ignored by the typed view",
	}}

	prefs, err := config.structuredPreferences()
	require.NoError(t, err)

	assert.Equal(t, "jane@example.com", prefs.Email)
	assert.True(t, prefs.Checkboxes["relocate"])
	assert.Equal(t, "Berlin", prefs.PersonalInfo["city"])
	assert.Equal(t, 6, prefs.ExperienceYears("go"))
	assert.InDelta(t, 3.8, prefs.UniversityGPA, 0.001)
}

func TestStructuredPreferencesValidation(t *testing.T) {
	config := &Config{Preferences: map[string]any{"university-gpa": 42}}

	_, err := config.structuredPreferences()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validate preferences")
}

func TestStructuredPreferencesEmpty(t *testing.T) {
	prefs, err := (&Config{}).structuredPreferences()
	require.NoError(t, err)
	assert.NotNil(t, prefs)
}

func TestRedactedHidesAPIKey(t *testing.T) {
	config := &Config{AI: &AIConfig{APIKey: "secret"}}

	out := redacted(config)

	assert.Equal(t, "***", out.AI.APIKey)
	assert.Equal(t, "secret", config.AI.APIKey)
}
