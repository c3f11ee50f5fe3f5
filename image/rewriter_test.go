package image

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/avachat/ava/model"
)

func TestRewriteUsesModelOutput(t *testing.T) {
	mock := model.NewMock("rewriter", model.MockStep{Text: "woman hiking, alpine lake, golden hour, photorealistic"})
	r := NewRewriter(mock, nil)

	prompt := r.Rewrite(context.Background(), "draw me hiking at the lake", []string{"user: I love the alps"})
	assert.Equal(t, "woman hiking, alpine lake, golden hour, photorealistic", prompt)
}

func TestRewriteFallsBackOnError(t *testing.T) {
	mock := model.NewMock("rewriter", model.MockStep{Err: errors.New("model down")})
	r := NewRewriter(mock, nil)

	prompt := r.Rewrite(context.Background(), "draw me hiking at the lake", nil)
	assert.Equal(t, "draw me hiking at the lake", prompt)
}

func TestRewriteFallsBackOnEmptyOutput(t *testing.T) {
	mock := model.NewMock("rewriter", model.MockStep{Text: "   "})
	r := NewRewriter(mock, nil)

	prompt := r.Rewrite(context.Background(), "original intent", nil)
	assert.Equal(t, "original intent", prompt)
}
