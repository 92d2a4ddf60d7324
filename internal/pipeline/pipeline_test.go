package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/crowdsense/vibesense/internal/config"
	"github.com/crowdsense/vibesense/internal/model"
	"github.com/crowdsense/vibesense/internal/taxonomy"
	"github.com/crowdsense/vibesense/pkg/anthropic"
)

type recordingMetrics struct {
	mu          sync.Mutex
	results     map[string]int
	triggers    map[string]int
	confidences []float64
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{results: map[string]int{}, triggers: map[string]int{}}
}

func (m *recordingMetrics) RecordResult(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[kind]++
}

func (m *recordingMetrics) RecordStageBTrigger(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.triggers[reason]++
}

func (m *recordingMetrics) ObserveConfidence(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confidences = append(m.confidences, v)
}

func aiCfg() config.AnthropicConfig {
	return config.AnthropicConfig{
		StageAModel: "model-a",
		StageBModel: "model-b",
		MaxTokens:   3072,
	}
}

func newTestClassifier(st *mockStore, client *mockAnthropicClient, metrics Metrics) *Classifier {
	return NewClassifier(st, client, taxonomy.Default(), aiCfg(), vibeCfg(), metrics)
}

func stageARequest() any {
	return mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.Model == "model-a"
	})
}

func stageBRequest() any {
	return mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.Model == "model-b"
	})
}

// expectEvidence wires the store reads for one venue with a single photo
// and no text evidence.
func expectEvidence(st *mockStore, venueID string) {
	st.On("GetVenuePhotos", mock.Anything, venueID).Return([]model.Photo{
		{URL: "https://p/0.jpg"},
		{URL: "https://p/1.jpg"},
	}, nil)
	st.On("GetVenue", mock.Anything, venueID).Return(&model.Venue{ID: venueID, Name: "Bar do Zé"}, nil)
	st.On("GetVenueInstagram", mock.Anything, venueID).Return(nil, nil)
	st.On("GetVenueReviews", mock.Anything, venueID).Return(nil, nil)
}

const confidentPayload = `{
  "photos": [{"index": 0, "relevance": 8.0, "vibe_appeal": 7.0, "type": "interior"}],
  "publico": {"labels": ["Galera jovem"], "confidence": 0.8},
  "musica": {"labels": ["Eletrônica"], "confidence": 0.85},
  "music_format": {"labels": ["DJ"], "confidence": 0.9},
  "estilo_do_lugar": {"labels": ["Balada"], "confidence": 0.9},
  "estetica": {"labels": ["Neon"], "confidence": 0.7},
  "intencao": {"labels": ["Pra dançar"], "confidence": 0.8},
  "dress_code": {"labels": ["Casual"], "confidence": 0.6},
  "clima_social": {"labels": ["Agitado"], "confidence": 0.85},
  "top_vibes": ["Pra dançar", "Eletrônica", "Balada"],
  "overall_confidence": 0.92
}`

const uncertainPayload = `{
  "photos": [{"index": 1, "relevance": 9.0}, {"index": 0, "relevance": 2.0}],
  "estilo_do_lugar": {"labels": ["Balada"], "confidence": 0.6},
  "clima_social": {"labels": ["Agitado"], "confidence": 0.6},
  "top_vibes": ["Balada"],
  "overall_confidence": 0.40
}`

func TestClassifyVenue_CacheHitSkipsInference(t *testing.T) {
	st := new(mockStore)
	client := new(mockAnthropicClient)
	metrics := newRecordingMetrics()
	existing := &model.VibeProfile{VenueID: "ven-001", OverallConfidence: 0.9}
	st.On("GetVibeProfile", mock.Anything, "ven-001").Return(existing, nil)

	c := newTestClassifier(st, client, metrics)
	got, err := c.ClassifyVenue(context.Background(), "ven-001", false)

	require.NoError(t, err)
	assert.Same(t, existing, got)
	client.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
	assert.Equal(t, 1, metrics.results[ResultCached])
}

func TestClassifyVenue_Idempotence(t *testing.T) {
	st := new(mockStore)
	client := new(mockAnthropicClient)

	st.On("GetVibeProfile", mock.Anything, "ven-001").Return(nil, nil).Once()
	expectEvidence(st, "ven-001")
	client.On("CreateMessage", mock.Anything, stageARequest()).Return(textResponse(confidentPayload), nil)
	st.On("SetVibeProfile", mock.Anything, mock.Anything).Return(nil)

	c := newTestClassifier(st, client, nil)

	first, err := c.ClassifyVenue(context.Background(), "ven-001", false)
	require.NoError(t, err)
	require.NotNil(t, first)

	// second lookup hits the cache written by the first run
	st.On("GetVibeProfile", mock.Anything, "ven-001").Return(first, nil).Once()
	second, err := c.ClassifyVenue(context.Background(), "ven-001", false)
	require.NoError(t, err)

	// one classifier invocation sequence total; the second call is a cache hit
	client.AssertNumberOfCalls(t, "CreateMessage", 1)
	st.AssertNumberOfCalls(t, "SetVibeProfile", 1)
	assert.Equal(t, first, second)
}

func TestClassifyVenue_NoPhotosShortCircuit(t *testing.T) {
	st := new(mockStore)
	client := new(mockAnthropicClient)
	metrics := newRecordingMetrics()
	st.On("GetVibeProfile", mock.Anything, "ven-001").Return(nil, nil)
	st.On("GetVenuePhotos", mock.Anything, "ven-001").Return(nil, nil)

	c := newTestClassifier(st, client, metrics)
	got, err := c.ClassifyVenue(context.Background(), "ven-001", false)

	require.NoError(t, err)
	assert.Nil(t, got)
	client.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
	assert.Equal(t, 1, metrics.results[ResultNoPhotos])
}

func TestClassifyVenue_ScenarioA_ConfidentSkipsStageB(t *testing.T) {
	st := new(mockStore)
	client := new(mockAnthropicClient)
	st.On("GetVibeProfile", mock.Anything, "ven-001").Return(nil, nil)
	expectEvidence(st, "ven-001")
	client.On("CreateMessage", mock.Anything, stageARequest()).Return(textResponse(confidentPayload), nil)

	var saved *model.VibeProfile
	st.On("SetVibeProfile", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		saved = args.Get(1).(*model.VibeProfile)
	}).Return(nil)

	c := newTestClassifier(st, client, nil)
	got, err := c.ClassifyVenue(context.Background(), "ven-001", false)

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Same(t, saved, got)
	assert.False(t, got.StageBTriggered)
	assert.Equal(t, []string{"model-a:stage_a"}, got.ClassificationTrace)
	client.AssertNumberOfCalls(t, "CreateMessage", 1)
}

func TestClassifyVenue_LowConfidenceTriggersStageB(t *testing.T) {
	st := new(mockStore)
	client := new(mockAnthropicClient)
	metrics := newRecordingMetrics()
	st.On("GetVibeProfile", mock.Anything, "ven-001").Return(nil, nil)
	expectEvidence(st, "ven-001")
	client.On("CreateMessage", mock.Anything, stageARequest()).Return(textResponse(uncertainPayload), nil)

	refinementPayload := `{
	  "refined_categories": {
	    "estilo_do_lugar": {"labels": ["Boteco raiz"], "confidence": 0.9}
	  },
	  "overall_confidence": 0.88
	}`
	client.On("CreateMessage", mock.Anything, stageBRequest()).Run(func(args mock.Arguments) {
		req := args.Get(1).(anthropic.MessageRequest)
		// stage B gets the top-relevance photo subset, best photo first
		require.Len(t, req.Messages, 1)
		assert.Equal(t, []string{"https://p/1.jpg", "https://p/0.jpg"}, req.Messages[0].ImageURLs)
	}).Return(textResponse(refinementPayload), nil)
	st.On("SetVibeProfile", mock.Anything, mock.Anything).Return(nil)

	c := newTestClassifier(st, client, metrics)
	got, err := c.ClassifyVenue(context.Background(), "ven-001", false)

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.StageBTriggered)
	assert.Equal(t, []string{"model-a:stage_a", "model-b:stage_b"}, got.ClassificationTrace)
	assert.Equal(t, []string{"Boteco raiz"}, got.Categories["estilo_do_lugar"].Labels)
	assert.Equal(t, 0.88, got.OverallConfidence)
	assert.Equal(t, []string{"low_confidence"}, got.UncertaintyReasons)
	assert.Equal(t, 1, metrics.triggers["low_confidence"])
	client.AssertNumberOfCalls(t, "CreateMessage", 2)
}

func TestClassifyVenue_ScenarioC_StageBFailureIsNonFatal(t *testing.T) {
	st := new(mockStore)
	client := new(mockAnthropicClient)
	st.On("GetVibeProfile", mock.Anything, "ven-001").Return(nil, nil)
	expectEvidence(st, "ven-001")
	client.On("CreateMessage", mock.Anything, stageARequest()).Return(textResponse(uncertainPayload), nil)
	client.On("CreateMessage", mock.Anything, stageBRequest()).Return(nil, errors.New("api unavailable"))
	st.On("SetVibeProfile", mock.Anything, mock.Anything).Return(nil)

	c := newTestClassifier(st, client, nil)
	got, err := c.ClassifyVenue(context.Background(), "ven-001", false)

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.StageBTriggered)
	assert.Equal(t, []string{"model-a:stage_a", "model-b:stage_b"}, got.ClassificationTrace)
	// categories are exactly Stage A's validated values
	assert.Equal(t, []string{"Balada"}, got.Categories["estilo_do_lugar"].Labels)
	assert.Equal(t, []string{"Agitado"}, got.Categories["clima_social"].Labels)
	assert.Equal(t, 0.40, got.OverallConfidence)
}

func TestClassifyVenue_StageAFailure(t *testing.T) {
	st := new(mockStore)
	client := new(mockAnthropicClient)
	metrics := newRecordingMetrics()
	st.On("GetVibeProfile", mock.Anything, "ven-001").Return(nil, nil)
	expectEvidence(st, "ven-001")
	client.On("CreateMessage", mock.Anything, stageARequest()).Return(nil, errors.New("boom"))

	c := newTestClassifier(st, client, metrics)
	got, err := c.ClassifyVenue(context.Background(), "ven-001", false)

	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, 1, metrics.results[ResultError])
	st.AssertNotCalled(t, "SetVibeProfile", mock.Anything, mock.Anything)
}

func TestClassifyVenue_ForceBypassesCache(t *testing.T) {
	st := new(mockStore)
	client := new(mockAnthropicClient)
	expectEvidence(st, "ven-001")
	client.On("CreateMessage", mock.Anything, stageARequest()).Return(textResponse(confidentPayload), nil)
	st.On("SetVibeProfile", mock.Anything, mock.Anything).Return(nil)

	c := newTestClassifier(st, client, nil)
	got, err := c.ClassifyVenue(context.Background(), "ven-001", true)

	require.NoError(t, err)
	require.NotNil(t, got)
	// the cache was never consulted
	st.AssertNotCalled(t, "GetVibeProfile", mock.Anything, mock.Anything)
	client.AssertNumberOfCalls(t, "CreateMessage", 1)
}

func TestClassifyAll_SelectsPendingAndCountsSuccesses(t *testing.T) {
	st := new(mockStore)
	client := new(mockAnthropicClient)
	st.On("ListVenueIDs", mock.Anything).Return([]string{"a", "b", "c", "d"}, nil)
	st.On("ListVenueIDsWithPhotos", mock.Anything).Return([]string{"a", "b", "d"}, nil)
	st.On("ListVenueIDsWithProfiles", mock.Anything).Return([]string{"b"}, nil)

	// a and d are pending: photos present, no profile
	for _, id := range []string{"a", "d"} {
		st.On("GetVibeProfile", mock.Anything, id).Return(nil, nil)
		expectEvidence(st, id)
	}
	client.On("CreateMessage", mock.Anything, stageARequest()).Return(textResponse(confidentPayload), nil)
	st.On("SetVibeProfile", mock.Anything, mock.Anything).Return(nil)

	c := newTestClassifier(st, client, nil)
	n, err := c.ClassifyAll(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	// c has no photos, b already has a profile
	st.AssertNotCalled(t, "GetVenuePhotos", mock.Anything, "b")
	st.AssertNotCalled(t, "GetVenuePhotos", mock.Anything, "c")
}

func TestClassifyAll_LimitApplied(t *testing.T) {
	st := new(mockStore)
	client := new(mockAnthropicClient)
	st.On("ListVenueIDs", mock.Anything).Return([]string{"a", "b", "c"}, nil)
	st.On("ListVenueIDsWithPhotos", mock.Anything).Return([]string{"a", "b", "c"}, nil)
	st.On("ListVenueIDsWithProfiles", mock.Anything).Return(nil, nil)

	st.On("GetVibeProfile", mock.Anything, "a").Return(nil, nil)
	expectEvidence(st, "a")
	client.On("CreateMessage", mock.Anything, stageARequest()).Return(textResponse(confidentPayload), nil)
	st.On("SetVibeProfile", mock.Anything, mock.Anything).Return(nil)

	cfg := vibeCfg()
	cfg.Limit = 1
	c := NewClassifier(st, client, taxonomy.Default(), aiCfg(), cfg, nil)
	n, err := c.ClassifyAll(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	st.AssertNotCalled(t, "GetVenuePhotos", mock.Anything, "b")
}

func TestClassifyAll_PriorityVenuesFirst(t *testing.T) {
	st := new(mockStore)
	client := new(mockAnthropicClient)
	st.On("ListVenueIDs", mock.Anything).Return([]string{"a", "b"}, nil)
	st.On("ListVenueIDsWithPhotos", mock.Anything).Return([]string{"a", "b"}, nil)
	st.On("ListVenueIDsWithProfiles", mock.Anything).Return(nil, nil)
	st.On("GetVenue", mock.Anything, "a").Return(&model.Venue{ID: "a", Name: "Bar Comum"}, nil)
	st.On("GetVenue", mock.Anything, "b").Return(&model.Venue{ID: "b", Name: "Clube VIP"}, nil)

	var order []string
	for _, id := range []string{"a", "b"} {
		id := id
		st.On("GetVibeProfile", mock.Anything, id).Run(func(mock.Arguments) {
			order = append(order, id)
		}).Return(nil, nil)
		st.On("GetVenuePhotos", mock.Anything, id).Return([]model.Photo{{URL: "https://p/0.jpg"}}, nil)
		st.On("GetVenueInstagram", mock.Anything, id).Return(nil, nil)
		st.On("GetVenueReviews", mock.Anything, id).Return(nil, nil)
	}
	client.On("CreateMessage", mock.Anything, stageARequest()).Return(textResponse(confidentPayload), nil)
	st.On("SetVibeProfile", mock.Anything, mock.Anything).Return(nil)

	cfg := vibeCfg()
	cfg.PriorityVenues = []string{"clube vip"}
	c := NewClassifier(st, client, taxonomy.Default(), aiCfg(), cfg, nil)
	n, err := c.ClassifyAll(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"b", "a"}, order)
}

func TestClassifyAll_VenueErrorDoesNotStopBatch(t *testing.T) {
	st := new(mockStore)
	client := new(mockAnthropicClient)
	metrics := newRecordingMetrics()
	st.On("ListVenueIDs", mock.Anything).Return([]string{"a", "b"}, nil)
	st.On("ListVenueIDsWithPhotos", mock.Anything).Return([]string{"a", "b"}, nil)
	st.On("ListVenueIDsWithProfiles", mock.Anything).Return(nil, nil)

	st.On("GetVibeProfile", mock.Anything, "a").Return(nil, errors.New("store down"))
	st.On("GetVibeProfile", mock.Anything, "b").Return(nil, nil)
	expectEvidence(st, "b")
	client.On("CreateMessage", mock.Anything, stageARequest()).Return(textResponse(confidentPayload), nil)
	st.On("SetVibeProfile", mock.Anything, mock.Anything).Return(nil)

	c := newTestClassifier(st, client, metrics)
	n, err := c.ClassifyAll(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, metrics.results[ResultError])
}
