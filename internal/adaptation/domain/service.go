package domain

import (
	"context"
	"errors"
)

// Learning differences with dedicated fallback layouts.
const (
	DifferenceDyslexia       = "dyslexia"
	DifferenceADHD           = "adhd"
	DifferenceAutismSpectrum = "autism_spectrum"
)

// AdaptRequest asks for one piece of content adapted to a learning
// difference.
type AdaptRequest struct {
	LearningDifference string `json:"learning_difference"`
	Title              string `json:"title,omitempty"`
	Text               string `json:"text"`
}

// AdaptResponse carries the adapted HTML. Fallback reports whether the
// deterministic template produced it instead of the AI engine.
type AdaptResponse struct {
	HTML     string `json:"html"`
	Fallback bool   `json:"fallback"`
}

// Service adapts curriculum content.
type Service interface {
	Adapt(ctx context.Context, req AdaptRequest) (AdaptResponse, error)
}

var (
	ErrInvalidContent = errors.New("invalid_content")
	ErrEngineRejected = errors.New("engine_rejected")
)
