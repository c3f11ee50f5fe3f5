// Package comfyui implements image.Generator against a ComfyUI server:
// submit a workflow to POST /prompt, poll GET /history/{id} until the job
// finishes, then download the outputs from GET /view.
package comfyui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/avachat/ava/core"
	"github.com/avachat/ava/image"
	"github.com/avachat/ava/internal/util"
	"github.com/avachat/ava/logging"
)

// Workflow substitution tokens. Exact-match values keep their native JSON
// type; embedded occurrences are substituted as strings.
const (
	TokenPositivePrompt = "{{POSITIVE_PROMPT}}"
	TokenNegativePrompt = "{{NEGATIVE_PROMPT}}"
	TokenSeed           = "{{SEED}}"
	TokenSteps          = "{{STEPS}}"
	TokenCFG            = "{{CFG}}"
	TokenSamplerName    = "{{SAMPLER_NAME}}"
	TokenScheduler      = "{{SCHEDULER}}"
	TokenCheckpoint     = "{{CHECKPOINT}}"
	TokenWidth          = "{{WIDTH}}"
	TokenHeight         = "{{HEIGHT}}"
	TokenFilenamePrefix = "{{FILENAME_PREFIX}}"
	TokenAvatarRef      = "{{AVATAR_REF}}"
)

// Options configures a Client.
type Options struct {
	// Workflow is the templated workflow JSON. Empty selects a built-in
	// text-to-image workflow.
	Workflow string

	NegativePrompt string
	SamplerSteps   int
	CFGScale       float64
	SamplerName    string
	Scheduler      string
	Checkpoint     string
	Width          int
	Height         int
	FilenamePrefix string

	// PollInterval between history checks. Defaults to 2s.
	PollInterval time.Duration

	// PollTimeout is the overall deadline for one generation job.
	// Defaults to 120s.
	PollTimeout time.Duration

	HTTPClient *http.Client
	Logger     logging.Logger
}

// Client talks to one ComfyUI server.
type Client struct {
	baseURL string
	opts    Options
	http    *http.Client
	logger  logging.Logger
}

var _ image.Generator = (*Client)(nil)

// New creates a Client for the ComfyUI server at baseURL.
func New(baseURL string, opts Options) *Client {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 120 * time.Second
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: baseURL,
		opts:    opts,
		http:    httpClient,
		logger:  logging.OrNoOp(opts.Logger),
	}
}

// Generate implements image.Generator.
func (c *Client) Generate(ctx context.Context, prompt string, profile *core.Profile) ([]image.Result, error) {
	workflow, err := c.buildWorkflow(prompt, profile)
	if err != nil {
		return nil, err
	}

	promptID, err := c.submit(ctx, workflow)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("workflow queued", "prompt_id", promptID)

	outputs, err := c.poll(ctx, promptID)
	if err != nil {
		return nil, err
	}
	return c.download(ctx, outputs)
}

// buildWorkflow parses the workflow template and substitutes the tokens.
func (c *Client) buildWorkflow(prompt string, profile *core.Profile) (map[string]any, error) {
	raw := c.opts.Workflow
	if raw == "" {
		raw = defaultWorkflow
	}
	var template map[string]any
	if err := json.Unmarshal([]byte(raw), &template); err != nil {
		return nil, fmt.Errorf("parse workflow template: %w", err)
	}

	avatarRef := ""
	if profile != nil {
		avatarRef = profile.AvatarRef
	}
	replacements := map[string]any{
		TokenPositivePrompt: prompt,
		TokenNegativePrompt: c.opts.NegativePrompt,
		TokenSeed:           rand.Int63(),
		TokenSteps:          c.opts.SamplerSteps,
		TokenCFG:            c.opts.CFGScale,
		TokenSamplerName:    c.opts.SamplerName,
		TokenScheduler:      c.opts.Scheduler,
		TokenCheckpoint:     c.opts.Checkpoint,
		TokenWidth:          c.opts.Width,
		TokenHeight:         c.opts.Height,
		TokenFilenamePrefix: c.opts.FilenamePrefix,
		TokenAvatarRef:      avatarRef,
	}
	workflow, _ := util.ReplaceTokens(template, replacements).(map[string]any)
	return workflow, nil
}

func (c *Client) submit(ctx context.Context, workflow map[string]any) (string, error) {
	body, err := json.Marshal(map[string]any{
		"prompt":    workflow,
		"client_id": core.NewID(),
	})
	if err != nil {
		return "", fmt.Errorf("encode prompt request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/prompt", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", image.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("queue workflow: status %d: %s", resp.StatusCode, payload)
	}

	var queued struct {
		PromptID string `json:"prompt_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&queued); err != nil {
		return "", fmt.Errorf("decode queue response: %w", err)
	}
	if queued.PromptID == "" {
		return "", fmt.Errorf("queue workflow: empty prompt id")
	}
	return queued.PromptID, nil
}

type outputImage struct {
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
}

// poll blocks until the job's outputs appear in history or the deadline
// passes.
func (c *Client) poll(ctx context.Context, promptID string) ([]outputImage, error) {
	deadline := time.Now().Add(c.opts.PollTimeout)
	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	for {
		outputs, done, err := c.checkHistory(ctx, promptID)
		if err != nil {
			return nil, err
		}
		if done {
			return outputs, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w after %s", image.ErrTimeout, c.opts.PollTimeout)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) checkHistory(ctx context.Context, promptID string) ([]outputImage, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/history/"+promptID, nil)
	if err != nil {
		return nil, false, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", image.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("poll history: status %d", resp.StatusCode)
	}

	var history map[string]struct {
		Outputs map[string]struct {
			Images []outputImage `json:"images"`
		} `json:"outputs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
		return nil, false, fmt.Errorf("decode history: %w", err)
	}

	entry, ok := history[promptID]
	if !ok || len(entry.Outputs) == 0 {
		return nil, false, nil
	}
	var images []outputImage
	for _, node := range entry.Outputs {
		images = append(images, node.Images...)
	}
	return images, true, nil
}

// download fetches the rendered files concurrently, preserving output order.
func (c *Client) download(ctx context.Context, outputs []outputImage) ([]image.Result, error) {
	results := make([]image.Result, len(outputs))
	g, ctx := errgroup.WithContext(ctx)
	for i, out := range outputs {
		i, out := i, out
		g.Go(func() error {
			data, err := c.fetchView(ctx, out)
			if err != nil {
				return err
			}
			results[i] = image.Result{Bytes: data, Filename: out.Filename}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (c *Client) fetchView(ctx context.Context, out outputImage) ([]byte, error) {
	q := url.Values{}
	q.Set("filename", out.Filename)
	q.Set("subfolder", out.Subfolder)
	q.Set("type", out.Type)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/view?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", image.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %s: status %d", out.Filename, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
