// Package image defines the image generation surface the supervisor's
// generate_image tool calls into: a prompt rewriter that turns conversation
// intent into a diffusion prompt, and a Generator backend that renders it.
package image

import (
	"context"
	"errors"

	"github.com/avachat/ava/core"
)

// ErrTimeout is returned when a generation job does not complete within the
// backend's polling deadline.
var ErrTimeout = errors.New("image generation timed out")

// ErrUnavailable is returned when the image backend cannot be reached.
var ErrUnavailable = errors.New("image backend unavailable")

// Result is one rendered image.
type Result struct {
	Bytes    []byte
	Filename string
}

// Generator renders images from a finished diffusion prompt. The profile is
// passed so backends can apply per-user reference material such as an avatar
// image.
type Generator interface {
	Generate(ctx context.Context, prompt string, profile *core.Profile) ([]Result, error)
}
