package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrValidation          = errors.New("invalid request")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrAllProvidersFailed  = errors.New("all providers failed")
	ErrEmbeddingDimension  = errors.New("embedding dimension mismatch")
)
