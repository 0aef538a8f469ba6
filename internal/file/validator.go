package file

import (
	"NYCU-SDC/survey-backend/internal"
	"bytes"
	"fmt"
	"io"
	"slices"
)

// ValidatorOption is a function that configures validation rules
type ValidatorOption func(*validatorConfig)

type validatorConfig struct {
	maxSize      int64
	allowedTypes []string
	checkFormat  func([]byte) error
}

// Validator checks uploaded blobs against size, declared MIME type and magic bytes
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// ValidateStream reads the stream and returns its bytes if every configured rule passes.
// The read is capped at maxSize+1 so oversized uploads are never fully buffered.
func (v *Validator) ValidateStream(stream io.Reader, contentType string, opts ...ValidatorOption) ([]byte, error) {
	config := &validatorConfig{}
	for _, opt := range opts {
		opt(config)
	}

	reader := stream
	if config.maxSize > 0 {
		reader = io.LimitReader(stream, config.maxSize+1)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read file stream: %w", err)
	}

	if config.maxSize > 0 && int64(len(data)) > config.maxSize {
		return nil, internal.ErrFileTooLarge
	}

	if len(config.allowedTypes) > 0 && !slices.Contains(config.allowedTypes, contentType) {
		return nil, internal.ErrInvalidFileType
	}

	if config.checkFormat != nil {
		if err := config.checkFormat(data); err != nil {
			return nil, err
		}
	}

	return data, nil
}

// WithMaxSize sets the maximum allowed file size in bytes
func WithMaxSize(size int64) ValidatorOption {
	return func(c *validatorConfig) {
		c.maxSize = size
	}
}

// WithContentType sets allowed MIME types without format validation
func WithContentType(contentTypes ...string) ValidatorOption {
	return func(c *validatorConfig) {
		c.allowedTypes = contentTypes
	}
}

// WithImageFormats accepts JPEG, PNG, GIF and WebP, checking both the declared type and the magic bytes
func WithImageFormats() ValidatorOption {
	return func(c *validatorConfig) {
		c.allowedTypes = make([]string, 0, len(imageSignatures))
		for _, sig := range imageSignatures {
			c.allowedTypes = append(c.allowedTypes, sig.contentType)
		}
		c.checkFormat = func(data []byte) error {
			if DetectImageType(data) == "" {
				return internal.ErrInvalidImageFormat
			}
			return nil
		}
	}
}

type imageSignature struct {
	contentType string
	match       func([]byte) bool
}

var imageSignatures = []imageSignature{
	{"image/jpeg", func(b []byte) bool { return bytes.HasPrefix(b, []byte{0xFF, 0xD8, 0xFF}) }},
	{"image/png", func(b []byte) bool { return bytes.HasPrefix(b, []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}) }},
	{"image/gif", func(b []byte) bool {
		return bytes.HasPrefix(b, []byte("GIF87a")) || bytes.HasPrefix(b, []byte("GIF89a"))
	}},
	{"image/webp", func(b []byte) bool {
		return len(b) >= 12 && string(b[0:4]) == "RIFF" && string(b[8:12]) == "WEBP"
	}},
}

// DetectImageType returns the MIME type matching the data's magic bytes, or "" for anything else
func DetectImageType(data []byte) string {
	for _, sig := range imageSignatures {
		if sig.match(data) {
			return sig.contentType
		}
	}
	return ""
}
