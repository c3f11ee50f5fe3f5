// Package ava provides a high-level façade over the agent orchestration
// engine: the safety gate, persona state machine, supervisor tool phase,
// streaming responder and semantic memory. Most applications interact with
// this package by:
//  1. Creating an Ava via New() from a config.Config (optionally overriding
//     stores, models or the image backend)
//  2. Calling Chat() per inbound message and consuming the event stream
//
// All defaults are safe for local development against an Ollama server;
// production deployments supply sqlite-backed stores (set DatabasePath) and
// a structured logger.
package ava

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	_ "modernc.org/sqlite"

	"github.com/avachat/ava/agent"
	"github.com/avachat/ava/config"
	"github.com/avachat/ava/core"
	"github.com/avachat/ava/embedding"
	"github.com/avachat/ava/image"
	"github.com/avachat/ava/image/comfyui"
	"github.com/avachat/ava/logging"
	"github.com/avachat/ava/memory"
	"github.com/avachat/ava/model"
	openaimodel "github.com/avachat/ava/model/openai"
	"github.com/avachat/ava/persona"
	"github.com/avachat/ava/safety"
	"github.com/avachat/ava/session"
	sessionsqlite "github.com/avachat/ava/session/sqlite"
	"github.com/avachat/ava/tool"
	"github.com/avachat/ava/vectorstore"
	vectorsqlite "github.com/avachat/ava/vectorstore/sqlite"
)

// Options overrides parts of the default wiring.
type Options struct {
	// Stores. Defaults: sqlite when cfg.DatabasePath is set, otherwise
	// in-memory implementations.
	ProfileStore core.ProfileStore
	SessionStore core.SessionStore
	VectorStore  core.VectorStore

	// Embedder overrides the OpenAI-compatible embedding backend.
	Embedder embedding.Embedder

	// SupervisorModel and ResponderModels override the models built from
	// the shared OpenAI-compatible client; an Anthropic-backed model (see
	// model/anthropic) or a scripted mock can be swapped in per role.
	SupervisorModel model.Model
	RewriterModel   model.Model
	ResponderModels map[core.Persona]model.Model

	// ImageGenerator overrides the ComfyUI backend. Set to disable or to
	// swap in another diffusion engine.
	ImageGenerator image.Generator

	// Prompts overrides the built-in system prompts.
	Prompts agent.Prompts

	// ExtraTools registers additional supervisor tools beyond memory
	// recall and image generation.
	ExtraTools []tool.Tool

	// Logger defaults to a no-op logger.
	Logger logging.Logger
}

// Ava aggregates the wired orchestration pipeline.
type Ava struct {
	cfg      *config.Config
	loop     *agent.Loop
	guardian *safety.Guardian
	machine  *persona.Machine
	profiles core.ProfileStore
	sessions core.SessionStore
	memory   *memory.Service
}

// New wires an Ava from configuration. A single OpenAI-compatible client is
// shared by the supervisor, responders, rewriter and embedder.
func New(cfg *config.Config, optFns ...func(o *Options)) (*Ava, error) {
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}
	log := logging.OrNoOp(opts.Logger)

	if err := fillDefaultStores(cfg, &opts); err != nil {
		return nil, err
	}

	client := openaimodel.NewClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey)

	embedder := opts.Embedder
	if embedder == nil {
		embedder = embedding.NewOpenAI(client, cfg.EmbeddingModel, cfg.EmbeddingDim)
	}

	mem := memory.NewService(embedder, opts.VectorStore, memory.Options{
		MinFactLength: cfg.MemoryMinFactLength,
		RecallLimit:   cfg.MemoryRecallLimit,
		Logger:        log,
	})

	generator := opts.ImageGenerator
	if generator == nil && cfg.ComfyUIURL != "" {
		generator = comfyui.New(cfg.ComfyUIURL, comfyui.Options{
			Workflow:       cfg.ImageWorkflow,
			NegativePrompt: cfg.ImageNegativePrompt,
			SamplerSteps:   cfg.ImageSamplerSteps,
			CFGScale:       cfg.ImageCFGScale,
			SamplerName:    cfg.ImageSamplerName,
			Scheduler:      cfg.ImageScheduler,
			Checkpoint:     cfg.ImageCheckpoint,
			Width:          cfg.ImageWidth,
			Height:         cfg.ImageHeight,
			FilenamePrefix: cfg.ImageFilenamePrefix,
			PollTimeout:    time.Duration(cfg.ImagePollTimeoutSecs) * time.Second,
			Logger:         log,
		})
	}

	rewriterModel := opts.RewriterModel
	if rewriterModel == nil {
		rewriterModel = openaimodel.NewModelFromClient(client, func(o *openaimodel.Options) { o.Model = cfg.RewriterModel })
	}
	rewriter := image.NewRewriter(rewriterModel, log)

	guardian := safety.New(func(o *safety.Options) {
		o.DenyList = denyList(cfg)
		o.ExitKeywords = cfg.ExitKeywords
		o.SafeWordMaxWords = cfg.SafeWordMaxWords
		o.Logger = log
	})
	machine := persona.NewMachine(opts.ProfileStore, log)

	supervisorModel := opts.SupervisorModel
	if supervisorModel == nil {
		supervisorModel = openaimodel.NewModelFromClient(client, func(o *openaimodel.Options) { o.Model = cfg.SupervisorModel })
	}
	supervisor := agent.NewSupervisor(supervisorModel,
		mem, rewriter, generator, opts.Prompts,
		agent.SupervisorOptions{
			ContextTurns:      cfg.SupervisorContextTurns,
			ImageContextTurns: cfg.ImageContextTurns,
			MaxIterations:     cfg.SupervisorMaxIterations,
			ExtraTools:        opts.ExtraTools,
			Logger:            log,
		})

	models := opts.ResponderModels
	if models == nil {
		models = responderModels(cfg, client)
	}
	responder := agent.NewResponder(models, opts.Prompts, agent.ResponderOptions{
		ContextTurns: cfg.ResponderContextTurns,
		Fallback:     cfg.FallbackResponse,
		Logger:       log,
	})

	loop := agent.NewLoop(guardian, machine, opts.ProfileStore, opts.SessionStore,
		supervisor, responder, mem, agent.LoopOptions{
			HistoryLimit: cfg.HistoryFetchLimit,
			Logger:       log,
		})

	return &Ava{
		cfg:      cfg,
		loop:     loop,
		guardian: guardian,
		machine:  machine,
		profiles: opts.ProfileStore,
		sessions: opts.SessionStore,
		memory:   mem,
	}, nil
}

// Chat runs one conversational turn and returns its event stream.
func (a *Ava) Chat(ctx context.Context, userID, sessionID, message string) (<-chan core.Event, <-chan error) {
	return a.loop.Run(ctx, userID, sessionID, message)
}

// Profiles exposes the wired profile store.
func (a *Ava) Profiles() core.ProfileStore { return a.profiles }

// Sessions exposes the wired session store.
func (a *Ava) Sessions() core.SessionStore { return a.sessions }

// Memory exposes the wired memory service.
func (a *Ava) Memory() *memory.Service { return a.memory }

// CurrentPersona returns the user's active persona.
func (a *Ava) CurrentPersona(ctx context.Context, userID string) (core.Persona, error) {
	return a.machine.Current(ctx, userID)
}

func fillDefaultStores(cfg *config.Config, opts *Options) error {
	if cfg.DatabasePath != "" {
		db, err := sql.Open("sqlite", cfg.DatabasePath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		if opts.ProfileStore == nil || opts.SessionStore == nil {
			store, err := sessionsqlite.NewWithDB(db)
			if err != nil {
				return fmt.Errorf("session store: %w", err)
			}
			if opts.ProfileStore == nil {
				opts.ProfileStore = store.Profiles()
			}
			if opts.SessionStore == nil {
				opts.SessionStore = store.Sessions()
			}
		}
		if opts.VectorStore == nil {
			store, err := vectorsqlite.NewWithDB(db)
			if err != nil {
				return fmt.Errorf("vector store: %w", err)
			}
			opts.VectorStore = store
		}
		return nil
	}
	if opts.ProfileStore == nil {
		opts.ProfileStore = session.NewInMemoryProfileStore()
	}
	if opts.SessionStore == nil {
		opts.SessionStore = session.NewInMemorySessionStore()
	}
	if opts.VectorStore == nil {
		opts.VectorStore = vectorstore.NewInMemory()
	}
	return nil
}

// responderModels maps each persona to its configured response model over
// the shared client.
func responderModels(cfg *config.Config, client *openai.Client) map[core.Persona]model.Model {
	return map[core.Persona]model.Model{
		core.PersonaAssistant: openaimodel.NewModelFromClient(client, func(o *openaimodel.Options) {
			o.Model = cfg.AssistantModel
		}),
		core.PersonaCompanion: openaimodel.NewModelFromClient(client, func(o *openaimodel.Options) {
			o.Model = cfg.CompanionModel
		}),
	}
}

func denyList(cfg *config.Config) []string {
	if len(cfg.DenyList) > 0 {
		return cfg.DenyList
	}
	return config.DefaultDenyList()
}
