package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeExtractor struct {
	bundle FeatureBundle
	err    error
	panics bool
}

func (f *fakeExtractor) Extract(_ *ParsedMessage) (FeatureBundle, error) {
	if f.panics {
		panic("extractor exploded")
	}
	return f.bundle, f.err
}

type fakeDetector struct {
	score RuleScore
}

func (f *fakeDetector) Detect(_ *ParsedMessage, _ FeatureBundle) RuleScore {
	return f.score
}

type fakeClassifier struct {
	trained  bool
	pred     *ModelPrediction
	lastText string
}

func (f *fakeClassifier) Predict(text string) *ModelPrediction {
	f.lastText = text
	return f.pred
}

func (f *fakeClassifier) IsTrained() bool { return f.trained }

type fakeCache struct {
	verdicts map[string]*CachedVerdict
	sets     int
}

func newFakeCache() *fakeCache {
	return &fakeCache{verdicts: make(map[string]*CachedVerdict)}
}

func (f *fakeCache) Get(_ context.Context, sender string) (*CachedVerdict, error) {
	return f.verdicts[sender], nil
}

func (f *fakeCache) Set(_ context.Context, v *CachedVerdict) error {
	f.sets++
	f.verdicts[v.SenderAddress] = v
	return nil
}

func (f *fakeCache) Delete(_ context.Context, sender string) error {
	delete(f.verdicts, sender)
	return nil
}

func (f *fakeCache) Cleanup(_ context.Context) error { return nil }

func defaultOptions() ScoringServiceOptions {
	return ScoringServiceOptions{
		ModelWeight:         0.6,
		SafeThreshold:       30,
		SuspiciousThreshold: 70,
	}
}

func testMessage() *ParsedMessage {
	return &ParsedMessage{
		Sender:   Sender{Address: "alice@example.com", Domain: "example.com"},
		Subject:  "hello",
		BodyText: "just checking in",
	}
}

func TestScoreMessageRulesOnly(t *testing.T) {
	svc := NewScoringService(
		&fakeExtractor{},
		&fakeDetector{score: RuleScore{Combined: 20, Indicators: []string{"Sender from unknown domain"}}},
		&fakeClassifier{trained: false},
		nil,
		zap.NewNop(),
		defaultOptions(),
	)

	c, err := svc.ScoreMessage(context.Background(), testMessage())
	require.NoError(t, err)

	assert.InDelta(t, 20.0, c.Score, 1e-9)
	assert.Equal(t, TierSafe, c.Tier)
	assert.Equal(t, ActionNone, c.RecommendedAction)
	assert.False(t, c.ModelUsed)
	assert.Equal(t, []string{"Sender from unknown domain"}, c.Indicators)
}

func TestScoreMessageWithModel(t *testing.T) {
	cls := &fakeClassifier{trained: true, pred: &ModelPrediction{Label: 1, Confidence: 0.8}}
	svc := NewScoringService(
		&fakeExtractor{},
		&fakeDetector{score: RuleScore{Combined: 40}},
		cls,
		nil,
		zap.NewNop(),
		defaultOptions(),
	)

	c, err := svc.ScoreMessage(context.Background(), testMessage())
	require.NoError(t, err)

	// Model maps to 90; fused 90*0.6 + 40*0.4 = 70, still SUSPICIOUS.
	assert.InDelta(t, 70.0, c.Score, 1e-9)
	assert.Equal(t, TierSuspicious, c.Tier)
	assert.True(t, c.ModelUsed)

	// Subject is doubled in the model text.
	assert.Equal(t, "hello hello just checking in", cls.lastText)
}

func TestScoreMessagePanicFailClosed(t *testing.T) {
	svc := NewScoringService(
		&fakeExtractor{panics: true},
		&fakeDetector{},
		&fakeClassifier{},
		nil,
		zap.NewNop(),
		defaultOptions(),
	)

	c, err := svc.ScoreMessage(context.Background(), testMessage())
	assert.Nil(t, c)
	assert.ErrorIs(t, err, ErrPipelineFailure)
}

func TestScoreMessagePanicFailOpen(t *testing.T) {
	opts := defaultOptions()
	opts.FailOpen = true
	svc := NewScoringService(
		&fakeExtractor{panics: true},
		&fakeDetector{},
		&fakeClassifier{},
		nil,
		zap.NewNop(),
		opts,
	)

	c, err := svc.ScoreMessage(context.Background(), testMessage())
	require.NoError(t, err)

	assert.Equal(t, TierSafe, c.Tier)
	assert.Zero(t, c.Score)
	assert.Equal(t, []string{"Error during classification"}, c.Indicators)
}

func TestScoreMessageExtractionErrorIsNotFatal(t *testing.T) {
	svc := NewScoringService(
		&fakeExtractor{err: ErrExtractionFailure},
		&fakeDetector{score: RuleScore{Combined: 3}},
		&fakeClassifier{},
		nil,
		zap.NewNop(),
		defaultOptions(),
	)

	c, err := svc.ScoreMessage(context.Background(), testMessage())
	require.NoError(t, err)
	assert.Equal(t, TierSafe, c.Tier)
}

func TestScoreMessageCachesConfidentVerdicts(t *testing.T) {
	cache := newFakeCache()
	opts := defaultOptions()
	opts.CacheEnabled = true
	opts.CacheTTL = time.Hour
	opts.MinCacheConfidence = 0.85

	// Rule score 95 yields confidence 1 - 45/100 = 0.55: below the bar.
	svc := NewScoringService(
		&fakeExtractor{},
		&fakeDetector{score: RuleScore{Combined: 95}},
		&fakeClassifier{},
		cache,
		zap.NewNop(),
		opts,
	)
	_, err := svc.ScoreMessage(context.Background(), testMessage())
	require.NoError(t, err)
	assert.Zero(t, cache.sets)

	// A near-midpoint rule score with a confident model clears the bar.
	svc = NewScoringService(
		&fakeExtractor{},
		&fakeDetector{score: RuleScore{Combined: 50}},
		&fakeClassifier{trained: true, pred: &ModelPrediction{Label: 1, Confidence: 1.0}},
		cache,
		zap.NewNop(),
		opts,
	)
	_, err = svc.ScoreMessage(context.Background(), testMessage())
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)
}

func TestScoreMessageUsesCachedVerdict(t *testing.T) {
	cache := newFakeCache()
	cache.verdicts["alice@example.com"] = &CachedVerdict{
		SenderAddress: "alice@example.com",
		Tier:          TierSpam,
		Score:         92,
		Confidence:    0.9,
	}

	opts := defaultOptions()
	opts.CacheEnabled = true
	svc := NewScoringService(
		&fakeExtractor{panics: true}, // the pipeline must not even run
		&fakeDetector{},
		&fakeClassifier{},
		cache,
		zap.NewNop(),
		opts,
	)

	c, err := svc.ScoreMessage(context.Background(), testMessage())
	require.NoError(t, err)

	assert.Equal(t, TierSpam, c.Tier)
	assert.InDelta(t, 92.0, c.Score, 1e-9)
	assert.Equal(t, ActionQuarantine, c.RecommendedAction)
	assert.Equal(t, []string{"Previously seen sender (cached verdict)"}, c.Indicators)
}

func TestScoreBatch(t *testing.T) {
	svc := NewScoringService(
		&fakeExtractor{},
		&fakeDetector{score: RuleScore{Combined: 80}},
		&fakeClassifier{},
		nil,
		zap.NewNop(),
		defaultOptions(),
	)

	msgs := []*ParsedMessage{testMessage(), testMessage(), testMessage()}
	results, summary := svc.ScoreBatch(context.Background(), msgs)

	assert.Len(t, results, 3)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 3, summary.Spam)
	assert.Zero(t, summary.Safe)
}

func TestScoreBatchSkipsFailingMessage(t *testing.T) {
	svc := NewScoringService(
		&fakeExtractor{panics: true},
		&fakeDetector{},
		&fakeClassifier{},
		nil,
		zap.NewNop(),
		defaultOptions(),
	)

	results, summary := svc.ScoreBatch(context.Background(), []*ParsedMessage{testMessage()})
	assert.Empty(t, results)
	assert.Zero(t, summary.Total)
}

func TestPrepareModelTextCap(t *testing.T) {
	svc := NewScoringService(
		&fakeExtractor{},
		&fakeDetector{},
		&fakeClassifier{},
		nil,
		zap.NewNop(),
		defaultOptions(),
	)

	msg := testMessage()
	msg.BodyText = string(make([]byte, 20000))
	text := svc.prepareModelText(msg)
	assert.Len(t, text, 5000)
}
