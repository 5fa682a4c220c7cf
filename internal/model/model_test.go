package model

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumescore/internal/config"
	"resumescore/internal/errors"
)

func trainingSamples() []Sample {
	return []Sample{
		{Resume: "python flask sql developer built apis", JobDescription: "python flask backend engineer", Label: 1},
		{Resume: "java spring developer microservices", JobDescription: "java backend microservices engineer", Label: 1},
		{Resume: "graphic designer photoshop illustrator", JobDescription: "creative branding agency", Label: 0},
		{Resume: "nurse patient care hospital", JobDescription: "clinic nursing shift", Label: 0},
		{Resume: "machine learning python pandas models", JobDescription: "machine learning engineer python", Label: 1},
		{Resume: "chef kitchen menu cooking", JobDescription: "restaurant kitchen staff", Label: 0},
	}
}

func writeArtifacts(t *testing.T) (string, string) {
	t.Helper()
	arts, _, err := Train(context.Background(), trainingSamples(), DefaultTrainOptions())
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "models")
	vec := filepath.Join(dir, "vectorizer.json")
	clf := filepath.Join(dir, "classifier.json")
	require.NoError(t, SaveArtifacts(arts, vec, clf))
	return vec, clf
}

func TestTokenize(t *testing.T) {
	v := &Vectorizer{Lowercase: true, StopWords: StopWordsEnglish}

	assert.Equal(t, []string{"led", "python", "team", "c3"}, v.Tokenize("I led the Python team, a c3 x"))
	assert.Empty(t, v.Tokenize(""))

	raw := &Vectorizer{}
	assert.Equal(t, []string{"The", "API"}, raw.Tokenize("The API"))
}

func TestVectorizer_Similarity(t *testing.T) {
	v := FitVectorizer([]string{"python flask sql", "java spring sql", "cooking menu"}, 0)

	assert.InDelta(t, 1.0, v.Similarity("python sql", "python sql"), 1e-9)
	assert.Equal(t, 0.0, v.Similarity("python", "cooking"))
	assert.Equal(t, 0.0, v.Similarity("", "python"))
	assert.Equal(t, 0.0, v.Similarity("unknown words only", "python"))

	sim := v.Similarity("python flask", "python java")
	assert.Greater(t, sim, 0.0)
	assert.Less(t, sim, 1.0)
}

func TestFitVectorizer_MaxFeaturesAndIDF(t *testing.T) {
	docs := []string{"alpha alpha beta", "alpha gamma", "alpha beta delta"}

	v := FitVectorizer(docs, 2)
	require.Len(t, v.Vocabulary, 2)
	assert.Equal(t, 0, v.Vocabulary["alpha"])
	assert.Equal(t, 1, v.Vocabulary["beta"])

	// alpha appears in every document: ln(4/4)+1.
	assert.InDelta(t, 1.0, v.IDF[0], 1e-9)
	assert.InDelta(t, 1.2876820724517808, v.IDF[1], 1e-9)
}

func TestTransform_IsNormalized(t *testing.T) {
	v := FitVectorizer([]string{"python flask sql", "java sql"}, 0)

	vec := v.Transform("python python sql")
	var norm float64
	for _, w := range vec {
		norm += w * w
	}
	assert.InDelta(t, 1.0, norm, 1e-9)
}

func TestTrain_LearnsSeparableData(t *testing.T) {
	arts, report, err := Train(context.Background(), trainingSamples(), DefaultTrainOptions())
	require.NoError(t, err)

	assert.Equal(t, 6, report.Samples)
	assert.Equal(t, 3, report.Positives)
	assert.Equal(t, len(arts.Vectorizer.IDF), report.Features)
	assert.GreaterOrEqual(t, report.Accuracy, 0.8)
	require.NoError(t, arts.Check())
}

func TestTrain_RejectsSingleClass(t *testing.T) {
	samples := []Sample{{Resume: "a python", JobDescription: "python", Label: 1}}
	_, _, err := Train(context.Background(), samples, DefaultTrainOptions())
	assert.Error(t, err)
}

func TestReadDataset(t *testing.T) {
	csv := "Resume,Job Description,Best Match,Extra\n" +
		"\"python, sql\",backend,1,x\n" +
		"designer,java,0.0,y\n"

	samples, err := ReadDataset(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, "python, sql", samples[0].Resume)
	assert.Equal(t, 1, samples[0].Label)
	assert.Equal(t, 0, samples[1].Label)

	_, err = ReadDataset(strings.NewReader("Resume,Best Match\nx,1\n"))
	assert.ErrorContains(t, err, "Job Description")

	_, err = ReadDataset(strings.NewReader("Resume,Job Description,Best Match\nx,y,maybe\n"))
	assert.ErrorContains(t, err, "line 2")
}

func TestLoadArtifacts_RoundTrip(t *testing.T) {
	vec, clf := writeArtifacts(t)

	arts, err := LoadArtifacts(vec, clf)
	require.NoError(t, err)
	assert.Equal(t, StopWordsEnglish, arts.Vectorizer.StopWords)
	assert.Len(t, arts.Classifier.Coef, len(arts.Vectorizer.IDF))
}

func TestLoadArtifacts_SchemaViolation(t *testing.T) {
	vec, clf := writeArtifacts(t)
	require.NoError(t, os.WriteFile(clf, []byte(`{"version":1,"classes":[0],"coef":[],"intercept":0}`), 0600))

	_, err := LoadArtifacts(vec, clf)
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "classifier", schemaErr.Artifact)
	assert.NotEmpty(t, schemaErr.Problems)
}

func TestLoadArtifacts_Inconsistent(t *testing.T) {
	vec, clf := writeArtifacts(t)
	require.NoError(t, os.WriteFile(clf, []byte(`{"version":1,"classes":[0,1],"coef":[0.5],"intercept":0}`), 0600))

	_, err := LoadArtifacts(vec, clf)
	assert.ErrorContains(t, err, "coefficients")
}

func TestStore_MissingArtifacts(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(config.ModelConfig{
		VectorizerPath: filepath.Join(dir, "vectorizer.json"),
		ClassifierPath: filepath.Join(dir, "classifier.json"),
	}, nil)

	err := store.Ready()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeModelUnavailable))
	assert.Contains(t, err.Error(), "Model files missing or corrupted")

	_, err = store.Similarity("a", "b")
	assert.Error(t, err)
	assert.False(t, store.Status().Loaded)
	assert.NotEmpty(t, store.Status().Error)
}

func TestStore_ReloadKeepsPreviousOnFailure(t *testing.T) {
	vec, clf := writeArtifacts(t)

	var reloads []bool
	store := NewStore(config.ModelConfig{VectorizerPath: vec, ClassifierPath: clf}, errors.Discard(),
		WithReloadHook(func(ok bool) { reloads = append(reloads, ok) }))

	require.NoError(t, store.Ready())
	sim, err := store.Similarity("python flask", "python flask")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sim, 1e-9)

	require.NoError(t, os.WriteFile(vec, []byte("{broken"), 0600))
	assert.Error(t, store.Reload())

	// previous pair still serves
	require.NoError(t, store.Ready())
	st := store.Status()
	assert.True(t, st.Loaded)
	assert.NotEmpty(t, st.Error)
	assert.Equal(t, []bool{false}, reloads)
}

func TestStore_BreakerOpensOnRepeatedFailures(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(config.ModelConfig{
		VectorizerPath: filepath.Join(dir, "v.json"),
		ClassifierPath: filepath.Join(dir, "c.json"),
		CircuitBreaker: config.CircuitBreakerConfig{
			Enabled:          true,
			MaxRequests:      1,
			Timeout:          time.Minute,
			MinRequests:      2,
			FailureThreshold: 0.5,
		},
	}, nil)

	for range 3 {
		assert.Error(t, store.Ready())
	}
	assert.Equal(t, "open", store.Status().Breaker)
}

type countingReloader struct{ calls chan struct{} }

func (c *countingReloader) Reload() error {
	c.calls <- struct{}{}
	return nil
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	vec, clf := writeArtifacts(t)
	target := &countingReloader{calls: make(chan struct{}, 4)}

	w := NewWatcher([]string{vec, clf}, 20*time.Millisecond, target, nil)
	require.NoError(t, w.Start())
	defer func() { _ = w.Stop() }()
	assert.True(t, w.IsRunning())
	assert.Error(t, w.Start())

	// make sure the mtime differs from the one recorded at start
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.WriteFile(vec, []byte(`{}`), 0600))
	require.NoError(t, os.Chtimes(vec, future, future))

	select {
	case <-target.calls:
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not trigger a reload")
	}

	require.NoError(t, w.Stop())
	assert.False(t, w.IsRunning())
	assert.NoError(t, w.Stop())
}

func TestClassifier_Predict(t *testing.T) {
	c := &Classifier{Classes: []int{0, 1}, Coef: []float64{2, -2}, Intercept: 0}

	assert.Equal(t, 1, c.Predict(Vector{0: 1}))
	assert.Equal(t, 0, c.Predict(Vector{1: 1}))
	assert.InDelta(t, 0.5, c.Probability(Vector{}), 1e-9)
}

func TestCosine(t *testing.T) {
	assert.Zero(t, Cosine(Vector{}, Vector{0: 1}))
	assert.InDelta(t, 1.0, Cosine(Vector{0: 0.6, 1: 0.8}, Vector{0: 0.6, 1: 0.8}), 1e-12)
	assert.Zero(t, Cosine(Vector{0: 1}, Vector{1: 1}))
	assert.Zero(t, Cosine(Vector{0: math.Inf(1)}, Vector{0: math.Inf(1)}))
}
