package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidRange    = errors.New("invalid time range")
	ErrInvalidPair     = errors.New("invalid trading pair")
	ErrUnsupportedSpan = errors.New("unsupported span")
	ErrTransport       = errors.New("transport error")
	ErrResponseDecode  = errors.New("response decode error")
)
