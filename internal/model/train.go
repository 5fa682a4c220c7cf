package model

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Dataset column headers.
const (
	ColumnResume         = "Resume"
	ColumnJobDescription = "Job Description"
	ColumnBestMatch      = "Best Match"
)

// Sample is one labelled resume/job description pair.
type Sample struct {
	Resume         string
	JobDescription string
	Label          int
}

// Text is the document the vectorizer is fitted on.
func (s Sample) Text() string {
	return s.Resume + " " + s.JobDescription
}

// TrainOptions controls fitting.
type TrainOptions struct {
	MaxFeatures  int
	Iterations   int
	LearningRate float64
	C            float64 // inverse L2 regularization strength
}

// DefaultTrainOptions returns the settings the shipped artifacts are trained with.
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		MaxFeatures:  5000,
		Iterations:   500,
		LearningRate: 1.0,
		C:            1.0,
	}
}

// TrainReport summarizes a training run.
type TrainReport struct {
	Samples   int     `json:"samples"`
	Positives int     `json:"positives"`
	Features  int     `json:"features"`
	Accuracy  float64 `json:"accuracy"`
}

// ReadDataset parses a CSV with Resume, Job Description and Best Match columns.
// Other columns are ignored.
func ReadDataset(r io.Reader) ([]Sample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, name := range []string{ColumnResume, ColumnJobDescription, ColumnBestMatch} {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("dataset is missing column %q", name)
		}
	}

	var samples []Sample
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read dataset line %d: %w", line, err)
		}
		field := func(name string) string {
			if i := cols[name]; i < len(rec) {
				return rec[i]
			}
			return ""
		}

		label, err := strconv.ParseFloat(strings.TrimSpace(field(ColumnBestMatch)), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid %s value %q", line, ColumnBestMatch, field(ColumnBestMatch))
		}
		s := Sample{Resume: field(ColumnResume), JobDescription: field(ColumnJobDescription)}
		if label >= 0.5 {
			s.Label = 1
		}
		samples = append(samples, s)
	}

	if len(samples) == 0 {
		return nil, fmt.Errorf("dataset has no rows")
	}
	return samples, nil
}

// FitVectorizer builds a vocabulary of the maxFeatures most frequent terms and their
// smoothed inverse document frequencies.
func FitVectorizer(docs []string, maxFeatures int) *Vectorizer {
	termFreq := make(map[string]int)
	docFreq := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{})
		for _, tok := range tokenize(doc, true, true) {
			termFreq[tok]++
			if _, ok := seen[tok]; !ok {
				seen[tok] = struct{}{}
				docFreq[tok]++
			}
		}
	}

	terms := make([]string, 0, len(termFreq))
	for t := range termFreq {
		terms = append(terms, t)
	}
	if maxFeatures > 0 && len(terms) > maxFeatures {
		slices.SortFunc(terms, func(a, b string) int {
			if termFreq[a] != termFreq[b] {
				return termFreq[b] - termFreq[a]
			}
			return strings.Compare(a, b)
		})
		terms = terms[:maxFeatures]
	}
	slices.Sort(terms)

	n := float64(len(docs))
	v := &Vectorizer{
		Version:    1,
		Lowercase:  true,
		StopWords:  StopWordsEnglish,
		Vocabulary: make(map[string]int, len(terms)),
		IDF:        make([]float64, len(terms)),
	}
	for i, t := range terms {
		v.Vocabulary[t] = i
		v.IDF[i] = math.Log((1+n)/(1+float64(docFreq[t]))) + 1
	}
	return v
}

// FitClassifier trains an L2-regularized logistic regression by batch gradient descent.
// The objective is C*sum(logloss) + ||w||²/2, the intercept is not regularized.
func FitClassifier(ctx context.Context, x []Vector, y []int, features int, opts TrainOptions) (*Classifier, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("have %d vectors but %d labels", len(x), len(y))
	}
	if opts.C <= 0 {
		opts.C = 1
	}

	clf := &Classifier{Version: 1, Classes: []int{0, 1}, Coef: make([]float64, features)}
	n := float64(len(x))
	grad := make([]float64, features)

	for iter := 0; iter < opts.Iterations; iter++ {
		if iter%50 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		clear(grad)
		var gradB float64
		for i, xi := range x {
			diff := clf.Probability(xi) - float64(y[i])
			for idx, v := range xi {
				grad[idx] += opts.C * diff * v
			}
			gradB += opts.C * diff
		}

		step := opts.LearningRate / n
		for j := range clf.Coef {
			clf.Coef[j] -= step * (grad[j] + clf.Coef[j])
		}
		clf.Intercept -= step * gradB
	}
	return clf, nil
}

// Train fits both artifacts on samples and reports training accuracy.
func Train(ctx context.Context, samples []Sample, opts TrainOptions) (*Artifacts, TrainReport, error) {
	var report TrainReport
	if len(samples) == 0 {
		return nil, report, fmt.Errorf("no training samples")
	}

	docs := make([]string, len(samples))
	labels := make([]int, len(samples))
	for i, s := range samples {
		docs[i] = s.Text()
		labels[i] = s.Label
		report.Positives += s.Label
	}
	if report.Positives == 0 || report.Positives == len(samples) {
		return nil, report, fmt.Errorf("dataset needs both matching and non-matching samples")
	}

	vec := FitVectorizer(docs, opts.MaxFeatures)
	if len(vec.IDF) == 0 {
		return nil, report, fmt.Errorf("dataset produced an empty vocabulary")
	}

	x := make([]Vector, len(docs))
	for i, d := range docs {
		x[i] = vec.Transform(d)
	}

	clf, err := FitClassifier(ctx, x, labels, len(vec.IDF), opts)
	if err != nil {
		return nil, report, err
	}

	correct := 0
	for i, xi := range x {
		if clf.Predict(xi) == labels[i] {
			correct++
		}
	}

	report.Samples = len(samples)
	report.Features = len(vec.IDF)
	report.Accuracy = float64(correct) / float64(len(samples))
	return &Artifacts{Vectorizer: vec, Classifier: clf}, report, nil
}
