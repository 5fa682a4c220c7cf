package model

import (
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"resumescore/internal/config"
	"resumescore/internal/errors"
)

// Store owns the artifact pair used by the scoring engine. It loads lazily on first use,
// caches the result and swaps it atomically on reload. Loads go through a circuit breaker
// so a missing model directory is not re-read on every request.
type Store struct {
	mu        sync.RWMutex
	artifacts *Artifacts
	loadedAt  time.Time
	lastErr   error

	vectorizerPath string
	classifierPath string

	breaker  *gobreaker.CircuitBreaker[*Artifacts]
	logger   *errors.Logger
	onReload func(success bool)
}

// Status describes the artifact cache for health endpoints.
type Status struct {
	Loaded         bool      `json:"loaded"`
	VectorizerPath string    `json:"vectorizerPath"`
	ClassifierPath string    `json:"classifierPath"`
	Features       int       `json:"features,omitempty"`
	LoadedAt       time.Time `json:"loadedAt,omitzero"`
	Breaker        string    `json:"breaker,omitempty"`
	Error          string    `json:"error,omitempty"`
}

// StoreOption customizes a Store.
type StoreOption func(*Store)

// WithReloadHook registers a callback invoked after every explicit reload.
func WithReloadHook(fn func(success bool)) StoreOption {
	return func(s *Store) {
		s.onReload = fn
	}
}

// NewStore creates a store for the configured artifact paths. Nothing is read until the
// first call to Ready, Similarity or Reload.
func NewStore(cfg config.ModelConfig, logger *errors.Logger, opts ...StoreOption) *Store {
	if logger == nil {
		logger = errors.Discard()
	}
	s := &Store{
		vectorizerPath: cfg.VectorizerPath,
		classifierPath: cfg.ClassifierPath,
		logger:         logger,
	}
	s.breaker = newLoadBreaker(cfg.CircuitBreaker, logger)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewStoreFromArtifacts wraps an already loaded pair. Used by training and tests.
func NewStoreFromArtifacts(a *Artifacts) *Store {
	return &Store{artifacts: a, loadedAt: time.Now(), logger: errors.Discard()}
}

func newLoadBreaker(cfg config.CircuitBreakerConfig, logger *errors.Logger) *gobreaker.CircuitBreaker[*Artifacts] {
	if !cfg.Enabled {
		return nil
	}
	settings := gobreaker.Settings{
		Name:        "model-artifacts",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.MinRequests && failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("Circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String())
		},
	}
	return gobreaker.NewCircuitBreaker[*Artifacts](settings)
}

func (s *Store) load() (*Artifacts, error) {
	fn := func() (*Artifacts, error) {
		return LoadArtifacts(s.vectorizerPath, s.classifierPath)
	}
	if s.breaker == nil {
		return fn()
	}
	return s.breaker.Execute(fn)
}

func unavailable(cause error) error {
	return errors.NewModelError(errors.ErrCodeModelUnavailable, "Model files missing or corrupted", cause)
}

// Artifacts returns the cached pair, loading it if needed.
func (s *Store) Artifacts() (*Artifacts, error) {
	s.mu.RLock()
	a := s.artifacts
	s.mu.RUnlock()
	if a != nil {
		return a, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.artifacts != nil {
		return s.artifacts, nil
	}

	a, err := s.load()
	if err != nil {
		s.lastErr = err
		return nil, unavailable(err)
	}
	s.artifacts = a
	s.loadedAt = time.Now()
	s.lastErr = nil
	s.logger.Info("Model artifacts loaded",
		"vectorizer", s.vectorizerPath,
		"classifier", s.classifierPath,
		"features", len(a.Vectorizer.IDF))
	return a, nil
}

// Ready reports whether a usable artifact pair is available.
func (s *Store) Ready() error {
	_, err := s.Artifacts()
	return err
}

// Similarity is the cosine similarity of two normalized texts under the loaded vectorizer.
func (s *Store) Similarity(a, b string) (float64, error) {
	arts, err := s.Artifacts()
	if err != nil {
		return 0, err
	}
	return arts.Vectorizer.Similarity(a, b), nil
}

// Reload re-reads both artifacts. On failure the previously loaded pair stays in use.
func (s *Store) Reload() error {
	a, err := s.load()

	s.mu.Lock()
	if err != nil {
		s.lastErr = err
	} else {
		s.artifacts = a
		s.loadedAt = time.Now()
		s.lastErr = nil
	}
	hook := s.onReload
	s.mu.Unlock()

	if hook != nil {
		hook(err == nil)
	}
	if err != nil {
		s.logger.LogError(err, "Model reload failed, keeping previous artifacts",
			"vectorizer", s.vectorizerPath,
			"classifier", s.classifierPath)
		return unavailable(err)
	}
	s.logger.Info("Model artifacts reloaded", "features", len(a.Vectorizer.IDF))
	return nil
}

// Paths returns the artifact files the store reads.
func (s *Store) Paths() []string {
	return []string{s.vectorizerPath, s.classifierPath}
}

// Status snapshots the cache state.
func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		Loaded:         s.artifacts != nil,
		VectorizerPath: s.vectorizerPath,
		ClassifierPath: s.classifierPath,
		LoadedAt:       s.loadedAt,
	}
	if s.artifacts != nil {
		st.Features = len(s.artifacts.Vectorizer.IDF)
	}
	if s.breaker != nil {
		st.Breaker = s.breaker.State().String()
	}
	if s.lastErr != nil {
		st.Error = fmt.Sprintf("%v", s.lastErr)
	}
	return st
}
