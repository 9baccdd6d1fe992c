package answers

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/spigell/jobpilot/internal/gateway"
	"github.com/spigell/jobpilot/internal/intent"
	"github.com/spigell/jobpilot/internal/preferences"
	"github.com/spigell/jobpilot/internal/profile"
	"github.com/spigell/jobpilot/internal/store"
)

type fakeInvoker struct {
	reply    string
	err      error
	calls    int
	purposes []string
}

func (f *fakeInvoker) Invoke(_ context.Context, _ any, purpose string) (string, error) {
	f.calls++
	f.purposes = append(f.purposes, purpose)
	return f.reply, f.err
}

func newTestEngine(t *testing.T, invoker gateway.Invoker, classifier *intent.Classifier, prefs *preferences.Preferences, seed map[string]string) (*Engine, *store.JSONMap) {
	t.Helper()

	cache := store.NewJSONMap(filepath.Join(t.TempDir(), "qa_cache.json"), zaptest.NewLogger(t))
	for q, a := range seed {
		require.NoError(t, cache.Put(q, a))
	}

	return New(invoker, cache, classifier, prefs, zaptest.NewLogger(t)), cache
}

func TestAnswerStrictRuleWins(t *testing.T) {
	prefs := &preferences.Preferences{
		Email:        "me@example.com",
		PersonalInfo: map[string]string{"Mobile Phone Number": "+123456789", "City": "Berlin"},
	}
	oracle := &fakeInvoker{reply: `{"answer": "ignored", "type": "text"}`}
	engine, _ := newTestEngine(t, oracle, nil, prefs, map[string]string{"Phone number": "cached"})

	cases := map[string]string{
		"Phone number":      "+123456789",
		"Número de celular": "+123456789",
		"Email address":     "me@example.com",
		"City":              "Berlin",
	}
	for question, want := range cases {
		got, err := engine.Answer(context.Background(), question, "", profile.Profile{})
		require.NoError(t, err)
		require.NotNil(t, got, question)
		assert.Equal(t, want, got.Text, question)
		assert.Equal(t, LayerRule, got.Layer, question)
	}
	assert.Zero(t, oracle.calls)
}

func TestAnswerRuleAndExactCacheComeBeforeIntent(t *testing.T) {
	const (
		ruleQuestion  = "Email address"
		cacheQuestion = "Years of experience with Kubernetes"
	)

	classifier := intent.New(nil, intent.LearnedSeeds(map[string]string{
		ruleQuestion:  "other@example.com",
		cacheQuestion: "9",
	}))
	for question, other := range map[string]string{ruleQuestion: "other@example.com", cacheQuestion: "9"} {
		match, ok := classifier.Match(question)
		require.True(t, ok, question)
		require.Equal(t, intent.RawKey(other), match.Key, question)
	}

	prefs := &preferences.Preferences{Email: "me@example.com"}
	oracle := &fakeInvoker{reply: `{"answer": "ignored", "type": "text"}`}
	engine, _ := newTestEngine(t, oracle, classifier, prefs, map[string]string{cacheQuestion: "4"})

	got, err := engine.Answer(context.Background(), ruleQuestion, "", profile.Profile{})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, LayerRule, got.Layer)
	assert.Equal(t, "me@example.com", got.Text)

	got, err = engine.Answer(context.Background(), cacheQuestion, "", profile.Profile{})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, LayerExactCache, got.Layer)
	assert.Equal(t, "4", got.Text)

	assert.Zero(t, oracle.calls)
}

func TestAnswerEmptyRuleValueFallsThrough(t *testing.T) {
	oracle := &fakeInvoker{reply: `{"answer": "https://linkedin.com/in/me", "type": "text"}`}
	engine, _ := newTestEngine(t, oracle, nil, &preferences.Preferences{}, nil)

	got, err := engine.Answer(context.Background(), "LinkedIn profile", "", profile.New("resume"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, LayerModel, got.Layer)
	assert.Equal(t, 1, oracle.calls)
}

func TestAnswerExactCacheSelfRepair(t *testing.T) {
	question := "Years of experience with Go"
	oracle := &fakeInvoker{}
	engine, cache := newTestEngine(t, oracle, nil, nil, map[string]string{question: "5 years"})

	got, err := engine.Answer(context.Background(), question, "", profile.Profile{})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "5", got.Text)
	assert.Equal(t, LayerExactCache, got.Layer)

	stored, ok := cache.Get(question)
	require.True(t, ok)
	assert.Equal(t, "5", stored)
	assert.Zero(t, oracle.calls)
}

func TestAnswerExactCacheRewritesWordNumbers(t *testing.T) {
	question := "How many years have you worked remotely?"
	engine, cache := newTestEngine(t, &fakeInvoker{}, nil, nil, map[string]string{question: "two"})

	got, err := engine.Answer(context.Background(), question, "", profile.Profile{})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "0", got.Text)

	stored, _ := cache.Get(question)
	assert.Equal(t, "0", stored)
}

func TestAnswerFuzzyCache(t *testing.T) {
	oracle := &fakeInvoker{reply: `{"answer": "No", "type": "boolean"}`}
	engine, _ := newTestEngine(t, oracle, nil, nil, map[string]string{
		"Are you willing to relocate to Berlin?": "Yes",
	})

	got, err := engine.Answer(context.Background(), "Are you willing to relocate to Berlin", "", profile.Profile{})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, LayerFuzzyCache, got.Layer)
	assert.Equal(t, "Yes", got.Text)
	assert.GreaterOrEqual(t, got.Confidence, FuzzyCutoff)

	got, err = engine.Answer(context.Background(), "Are you willing to relocate to Munich?", "", profile.Profile{})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, LayerModel, got.Layer)
	assert.Equal(t, 1, oracle.calls)
}

func TestAnswerIntentIsNotCached(t *testing.T) {
	seeds, err := intent.BuiltinSeeds()
	require.NoError(t, err)

	prefs := &preferences.Preferences{Checkboxes: map[string]bool{"relocation": true}}
	oracle := &fakeInvoker{}
	engine, cache := newTestEngine(t, oracle, intent.New(seeds, nil), prefs, nil)

	got, err := engine.Answer(context.Background(), "Are you willing to relocate?", "", profile.Profile{})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, LayerIntent, got.Layer)
	assert.Equal(t, "Yes", got.Text)
	assert.Greater(t, got.Confidence, intent.Threshold)

	assert.Zero(t, cache.Len())
	assert.Zero(t, oracle.calls)
}

func TestAnswerModelNormalizesCachesAndLearns(t *testing.T) {
	seeds, err := intent.BuiltinSeeds()
	require.NoError(t, err)
	classifier := intent.New(seeds, nil)

	question := "What is your expected salary?"
	oracle := &fakeInvoker{reply: "```json\n{\"answer\": \"$ 120,000 per year\", \"type\": \"numeric\"}\n```"}
	engine, cache := newTestEngine(t, oracle, nil, nil, nil)

	got, err := engine.Answer(context.Background(), question, "text", profile.New("resume"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "120000", got.Text)
	assert.Equal(t, LayerModel, got.Layer)
	assert.Equal(t, []string{PurposeQuestionAnswering}, oracle.purposes)

	stored, ok := cache.Get(question)
	require.True(t, ok)
	assert.Equal(t, "120000", stored)

	again, err := engine.Answer(context.Background(), question, "text", profile.New("resume"))
	require.NoError(t, err)
	assert.Equal(t, LayerExactCache, again.Layer)
	assert.Equal(t, 1, oracle.calls)

	engine.classifier = classifier
	oracle.reply = `{"answer": "\"Next month\"", "type": "text"}`
	got, err = engine.Answer(context.Background(), "Preferred start date", "", profile.Profile{})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Next month", got.Text)

	match, ok := classifier.Match("Preferred start date")
	require.True(t, ok)
	assert.Equal(t, intent.RawKey("Next month"), match.Key)
}

func TestAnswerUnparsableModelReplyIsNotCached(t *testing.T) {
	oracle := &fakeInvoker{reply: "  I would say seven  "}
	engine, cache := newTestEngine(t, oracle, nil, nil, nil)

	got, err := engine.Answer(context.Background(), "Describe your ideal team", "", profile.Profile{})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "I would say seven", got.Text)
	assert.Equal(t, LayerModelRaw, got.Layer)
	assert.Zero(t, cache.Len())
}

func TestAnswerModelErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{name: "unavailable", err: fmt.Errorf("call: %w", gateway.ErrModelUnavailable)},
		{name: "quota", err: fmt.Errorf("call: %w", gateway.ErrQuotaExceeded), wantErr: gateway.ErrQuotaExceeded},
		{name: "throttled", err: gateway.ErrRateLimitExhausted, wantErr: gateway.ErrRateLimitExhausted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, cache := newTestEngine(t, &fakeInvoker{err: tt.err}, nil, nil, nil)

			got, err := engine.Answer(context.Background(), "Describe your ideal team", "", profile.Profile{})
			assert.Nil(t, got)
			assert.Zero(t, cache.Len())
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr))
		})
	}
}

func TestAnswerEmptyModelAnswer(t *testing.T) {
	engine, cache := newTestEngine(t, &fakeInvoker{reply: `{"answer": "  ", "type": "text"}`}, nil, nil, nil)

	got, err := engine.Answer(context.Background(), "Describe your ideal team", "", profile.Profile{})
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Zero(t, cache.Len())
}

func TestAnswerBlankQuestion(t *testing.T) {
	oracle := &fakeInvoker{}
	engine, _ := newTestEngine(t, oracle, nil, nil, nil)

	got, err := engine.Answer(context.Background(), "   ", "", profile.Profile{})
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Zero(t, oracle.calls)
}

func TestResolveLoadsProfileOnlyForModel(t *testing.T) {
	oracle := &fakeInvoker{reply: `{"answer": "Remote", "type": "text"}`}
	engine, _ := newTestEngine(t, oracle, nil, nil, map[string]string{"Preferred work mode": "Hybrid"})

	loads := 0
	load := func(context.Context) (profile.Profile, error) {
		loads++
		return profile.New("Go engineer, remote only"), nil
	}

	got, err := engine.Resolve(context.Background(), "Preferred work mode", "", load)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, LayerExactCache, got.Layer)
	assert.Zero(t, loads)

	got, err = engine.Resolve(context.Background(), "Preferred team size", "", load)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, LayerModel, got.Layer)
	assert.Equal(t, 1, loads)
	assert.Equal(t, 1, oracle.calls)
}

func TestResolveProfileError(t *testing.T) {
	oracle := &fakeInvoker{reply: `{"answer": "Remote", "type": "text"}`}
	engine, _ := newTestEngine(t, oracle, nil, nil, nil)

	_, err := engine.Resolve(context.Background(), "Preferred team size", "", func(context.Context) (profile.Profile, error) {
		return profile.Profile{}, profile.ErrEmptyResume
	})
	require.ErrorIs(t, err, profile.ErrEmptyResume)
	assert.Zero(t, oracle.calls)
}
