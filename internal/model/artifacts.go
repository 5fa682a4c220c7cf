package model

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Artifacts is a loaded vectorizer/classifier pair. It is read-only once loaded.
type Artifacts struct {
	Vectorizer *Vectorizer
	Classifier *Classifier
}

// SchemaError lists the fields of an artifact that violate its JSON Schema.
type SchemaError struct {
	Artifact string
	Problems []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s does not match its schema: %s", e.Artifact, strings.Join(e.Problems, "; "))
}

var (
	schemasOnce sync.Once
	schemas     map[string]*gojsonschema.Schema
	schemasErr  error
)

func compiledSchema(name string) (*gojsonschema.Schema, error) {
	schemasOnce.Do(func() {
		schemas = make(map[string]*gojsonschema.Schema)
		for _, n := range []string{"vectorizer", "classifier"} {
			raw, err := schemaFS.ReadFile("schemas/" + n + ".schema.json")
			if err != nil {
				schemasErr = fmt.Errorf("failed to read %s schema: %w", n, err)
				return
			}
			s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
			if err != nil {
				schemasErr = fmt.Errorf("failed to compile %s schema: %w", n, err)
				return
			}
			schemas[n] = s
		}
	})
	if schemasErr != nil {
		return nil, schemasErr
	}
	return schemas[name], nil
}

// validateDocument checks raw JSON against the named embedded schema.
func validateDocument(name string, raw []byte) error {
	schema, err := compiledSchema(name)
	if err != nil {
		return err
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%s is not valid JSON: %w", name, err)
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		problems = append(problems, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
	}
	return &SchemaError{Artifact: name, Problems: problems}
}

// LoadArtifacts reads, validates and cross-checks both artifact files.
func LoadArtifacts(vectorizerPath, classifierPath string) (*Artifacts, error) {
	var vec Vectorizer
	if err := readArtifact("vectorizer", vectorizerPath, &vec); err != nil {
		return nil, err
	}
	var clf Classifier
	if err := readArtifact("classifier", classifierPath, &clf); err != nil {
		return nil, err
	}

	a := &Artifacts{Vectorizer: &vec, Classifier: &clf}
	if err := a.Check(); err != nil {
		return nil, err
	}
	return a, nil
}

func readArtifact(name, path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s %s: %w", name, path, err)
	}
	if err := validateDocument(name, raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode %s %s: %w", name, path, err)
	}
	return nil
}

// Check verifies that the vectorizer and classifier agree on the feature space.
func (a *Artifacts) Check() error {
	v, c := a.Vectorizer, a.Classifier
	if len(v.IDF) != len(v.Vocabulary) {
		return fmt.Errorf("vectorizer has %d terms but %d idf weights", len(v.Vocabulary), len(v.IDF))
	}
	for term, idx := range v.Vocabulary {
		if idx < 0 || idx >= len(v.IDF) {
			return fmt.Errorf("vectorizer term %q has out-of-range index %d", term, idx)
		}
	}
	if len(c.Coef) != len(v.IDF) {
		return fmt.Errorf("classifier has %d coefficients for %d features", len(c.Coef), len(v.IDF))
	}
	if len(c.Classes) != 2 {
		return fmt.Errorf("classifier must have exactly 2 classes, got %d", len(c.Classes))
	}
	return nil
}

// SaveArtifacts writes both artifacts as JSON, creating parent directories.
func SaveArtifacts(a *Artifacts, vectorizerPath, classifierPath string) error {
	if err := a.Check(); err != nil {
		return fmt.Errorf("refusing to save inconsistent artifacts: %w", err)
	}
	if err := writeJSON(vectorizerPath, a.Vectorizer); err != nil {
		return err
	}
	return writeJSON(classifierPath, a.Classifier)
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	// Write to a temp file first so a watcher never observes a half-written artifact.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
