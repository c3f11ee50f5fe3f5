// Package config loads the process-wide settings from the environment into
// an immutable Config. Values are read once at startup; components receive
// the fields they need rather than referencing ambient globals.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v6"
)

// Config holds every tunable of the orchestration engine. Parsed from the
// environment with caarlos0/env; defaults are safe for local development
// against an OpenAI-compatible endpoint (e.g. Ollama).
type Config struct {
	// Chat-completion backend (OpenAI-compatible).
	OpenAIBaseURL string `env:"OPENAI_BASE_URL" envDefault:"http://localhost:11434/v1"`
	OpenAIAPIKey  string `env:"OPENAI_API_KEY" envDefault:"ollama"`

	// Model selection per role.
	AssistantModel string `env:"ASSISTANT_MODEL" envDefault:"mistral"`
	CompanionModel string `env:"COMPANION_MODEL" envDefault:"dolphin-mistral"`
	SupervisorModel string `env:"SUPERVISOR_MODEL" envDefault:"qwen2.5:7b"`
	RewriterModel   string `env:"REWRITER_MODEL" envDefault:"qwen2.5:7b"`

	// Embeddings.
	EmbeddingModel string `env:"EMBEDDING_MODEL" envDefault:"nomic-embed-text"`
	EmbeddingDim   int    `env:"EMBEDDING_DIM" envDefault:"768"`

	// Safety gate.
	DenyList         []string `env:"DENY_LIST" envSeparator:","`
	SafeWordMaxWords int      `env:"SAFE_WORD_MAX_WORDS" envDefault:"5"`
	ExitKeywords     []string `env:"EXIT_KEYWORDS" envSeparator:"," envDefault:"exit her,back to jarvis,stop"`

	// History windows.
	ResponderContextTurns  int `env:"RESPONDER_CONTEXT_TURNS" envDefault:"20"`
	SupervisorContextTurns int `env:"SUPERVISOR_CONTEXT_TURNS" envDefault:"10"`
	ImageContextTurns      int `env:"IMAGE_CONTEXT_TURNS" envDefault:"6"`
	HistoryFetchLimit      int `env:"HISTORY_FETCH_LIMIT" envDefault:"50"`

	// Memory subsystem.
	MemoryMinFactLength int `env:"MEMORY_MIN_FACT_LENGTH" envDefault:"40"`
	MemoryRecallLimit   int `env:"MEMORY_RECALL_LIMIT" envDefault:"5"`

	// Supervisor tool loop.
	SupervisorMaxIterations int `env:"SUPERVISOR_MAX_ITERATIONS" envDefault:"3"`

	// Responder fallback when streaming fails.
	FallbackResponse string `env:"FALLBACK_RESPONSE" envDefault:"I'm having trouble responding right now. Please try again."`

	// ComfyUI image backend.
	ComfyUIURL           string  `env:"COMFYUI_URL" envDefault:"http://localhost:8188"`
	ImageWorkflow        string  `env:"IMAGE_WORKFLOW" envDefault:""`
	ImageNegativePrompt  string  `env:"IMAGE_NEGATIVE_PROMPT" envDefault:"lowres, bad anatomy, bad hands, blurry"`
	ImageSamplerSteps    int     `env:"IMAGE_SAMPLER_STEPS" envDefault:"25"`
	ImageCFGScale        float64 `env:"IMAGE_CFG_SCALE" envDefault:"7.0"`
	ImageSamplerName     string  `env:"IMAGE_SAMPLER_NAME" envDefault:"euler"`
	ImageScheduler       string  `env:"IMAGE_SCHEDULER" envDefault:"normal"`
	ImageCheckpoint      string  `env:"IMAGE_CHECKPOINT" envDefault:""`
	ImageWidth           int     `env:"IMAGE_WIDTH" envDefault:"1024"`
	ImageHeight          int     `env:"IMAGE_HEIGHT" envDefault:"1024"`
	ImageFilenamePrefix  string  `env:"IMAGE_FILENAME_PREFIX" envDefault:"ava"`
	ImagePollTimeoutSecs int     `env:"IMAGE_POLL_TIMEOUT_SECS" envDefault:"120"`

	// Persistence (sqlite stores; empty keeps the in-memory defaults).
	DatabasePath string `env:"DATABASE_PATH" envDefault:""`
}

// New parses the environment into a Config.
func New() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if len(cfg.DenyList) == 0 {
		cfg.DenyList = DefaultDenyList()
	}
	return cfg, nil
}

// DefaultDenyList returns the built-in content deny list. Intentionally
// minimal; operators extend it via the DENY_LIST environment variable.
func DefaultDenyList() []string {
	return []string{"child", "loli", "yiff", "guro", "scat", "bestiality", "incest"}
}
