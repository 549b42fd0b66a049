package binder

import "errors"

var (
	ErrFailedToParseQuery  = errors.New("failed to parse query parameters")
	ErrFailedToParsePath   = errors.New("failed to parse path parameters")
	ErrFailedToParseHeader = errors.New("failed to parse request headers")
	ErrNilExtractor        = errors.New("path extractor function is nil")
)
