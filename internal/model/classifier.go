package model

import "math"

// Classifier is a binary logistic regression over TF-IDF vectors.
// It is kept for training diagnostics; scoring never consults it.
type Classifier struct {
	Version   int       `json:"version"`
	Classes   []int     `json:"classes"`
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
}

// Decision returns the raw linear score of x.
func (c *Classifier) Decision(x Vector) float64 {
	z := c.Intercept
	for idx, v := range x {
		if idx < len(c.Coef) {
			z += c.Coef[idx] * v
		}
	}
	return z
}

// Probability returns the probability that x belongs to the positive class.
func (c *Classifier) Probability(x Vector) float64 {
	return sigmoid(c.Decision(x))
}

// Predict returns the most likely class label for x.
func (c *Classifier) Predict(x Vector) int {
	if c.Probability(x) >= 0.5 {
		return c.Classes[1]
	}
	return c.Classes[0]
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}
