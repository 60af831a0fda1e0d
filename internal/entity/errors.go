package entity

import (
	"errors"
	"fmt"
)

var (
	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrNoImage         = errors.New("session has no image")
	ErrSuperseded      = errors.New("image load superseded by a newer one")

	// Image errors
	ErrImageNotFound     = errors.New("image not found")
	ErrImageTooLarge     = errors.New("image dimensions exceed the limit")
	ErrUnsupportedUpload = errors.New("unsupported upload type")

	// Render errors
	ErrInvalidStyle   = errors.New("invalid text style")
	ErrInvalidQuality = errors.New("quality must be within [0, 1]")
	ErrInvalidSize    = errors.New("invalid export size")
	ErrFileTooLarge   = errors.New("encoded file exceeds the size limit")
)

// DecodeError reports unreadable or corrupt image bytes.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode image: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported export format %q", e.Format)
}

// EncodeError reports a failure to serialize a surface.
type EncodeError struct {
	Format Format
	Err    error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s: %v", e.Format, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }
