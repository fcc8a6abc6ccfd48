// Package setup implements the session-setup collaborator (§6.4): resolves
// configuration, constructs the provider(s) and tool registry, and opens a
// journaled Session ready for the agent loop. Consumed by the headless IPC
// adapter.
package setup

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xonecas/heddle/internal/config"
	"github.com/xonecas/heddle/internal/journal"
	"github.com/xonecas/heddle/internal/provider"
	"github.com/xonecas/heddle/internal/tools"
	"github.com/xonecas/heddle/internal/wire"
)

// HeddleVersion is stamped into each session's journal header.
const HeddleVersion = "0.1.0"

const defaultSystemPrompt = "You are Heddle, an agent harness mediating between a controller and tool-equipped remote models. Use the available tools to accomplish the user's request."

// Options parameterizes CreateSession.
type Options struct {
	Model        string
	SystemPrompt string
	Tools        []string
	Cwd          string
}

// Session is a live, journaled conversation (§3's Session record).
type Session struct {
	ID           string
	SessionFile  string
	CreatedAt    time.Time
	Model        string
	Cwd          string
	Conversation []wire.Message
	Provider     provider.Provider
	WeakProvider provider.Provider // nil unless config.weak_provider names a configured provider
	ToolRegistry *tools.Registry
	Journal      *journal.Journal
}

// CreateSession builds a new Session per spec.md §6.4.
func CreateSession(opts Options) (*Session, error) {
	cwd, err := resolveCwd(opts.Cwd)
	if err != nil {
		return nil, err
	}

	if _, err := config.EnsureHeddleHome(); err != nil {
		return nil, fmt.Errorf("ensure heddle home: %w", err)
	}

	cfg, err := config.Load(cwd)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	model := opts.Model
	if model == "" {
		model = cfg.Providers[cfg.DefaultProvider].Model
	}
	prov, err := buildProvider(cfg.DefaultProvider, cfg.Providers[cfg.DefaultProvider], model)
	if err != nil {
		return nil, err
	}

	var weak provider.Provider
	if cfg.WeakProvider != "" {
		wpc, ok := cfg.Providers[cfg.WeakProvider]
		if !ok {
			return nil, fmt.Errorf("weak_provider %q is not a configured provider", cfg.WeakProvider)
		}
		weak, err = buildProvider(cfg.WeakProvider, wpc, wpc.Model)
		if err != nil {
			return nil, fmt.Errorf("construct weak provider: %w", err)
		}
	}

	toolNames := opts.Tools
	if len(toolNames) == 0 {
		toolNames = cfg.Tools
	}
	registry := defaultRegistry(cwd).Filter(toolNames)

	sessionID := uuid.NewString()
	home, err := config.HeddleHome()
	if err != nil {
		return nil, err
	}
	sessionFile := filepath.Join(home, "projects", dashEncode(cwd), "sessions", sessionID+".jsonl")

	jr, err := journal.Open(sessionFile)
	if err != nil {
		return nil, fmt.Errorf("open session journal: %w", err)
	}

	createdAt := time.Now()
	if err := jr.WriteSessionMeta(journal.Meta{
		ID:            sessionID,
		Cwd:           cwd,
		Model:         model,
		Created:       createdAt,
		HeddleVersion: HeddleVersion,
	}); err != nil {
		return nil, fmt.Errorf("write session_meta: %w", err)
	}

	systemPrompt := composeSystemPrompt(opts.SystemPrompt, cfg.SystemPrompt)
	sysMsg := wire.NewTextMessage(wire.RoleSystem, systemPrompt)
	if err := jr.AppendMessage(sysMsg); err != nil {
		return nil, fmt.Errorf("journal system message: %w", err)
	}

	return &Session{
		ID:           sessionID,
		SessionFile:  sessionFile,
		CreatedAt:    createdAt,
		Model:        model,
		Cwd:          cwd,
		Conversation: []wire.Message{sysMsg},
		Provider:     prov,
		WeakProvider: weak,
		ToolRegistry: registry,
		Journal:      jr,
	}, nil
}

func resolveCwd(requested string) (string, error) {
	if requested == "" {
		return os.Getwd()
	}
	info, err := os.Stat(requested)
	if err != nil {
		return "", fmt.Errorf("cwd %q does not exist: %w", requested, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("cwd %q is not a directory", requested)
	}
	if err := os.Chdir(requested); err != nil {
		return "", fmt.Errorf("chdir %q: %w", requested, err)
	}
	return filepath.Abs(requested)
}

func buildProvider(name string, pc config.ProviderConfig, model string) (provider.Provider, error) {
	apiKey, err := config.ResolveAPIKey(name, pc)
	if err != nil {
		return nil, err
	}
	if pc.Kind == "zen" {
		return provider.NewZen(provider.ZenConfig{Name: name, APIKey: apiKey, BaseURL: pc.Endpoint, Model: model})
	}
	return provider.NewClient(provider.ClientConfig{APIKey: apiKey, Model: model, BaseURL: pc.Endpoint}), nil
}

// defaultRegistry builds a registry with the six built-in tools (§6.4),
// sharing one FileReadTracker so edit's "must Read first" discipline spans
// the whole session.
func defaultRegistry(cwd string) *tools.Registry {
	tracker := tools.NewFileReadTracker()
	r := tools.NewRegistry()
	_ = r.Register(tools.NewReadTool(cwd, tracker))
	_ = r.Register(tools.NewWriteTool(cwd))
	_ = r.Register(tools.NewEditTool(cwd, tracker))
	_ = r.Register(tools.NewGlobTool(cwd))
	_ = r.Register(tools.NewGrepTool(cwd))
	_ = r.Register(tools.NewBashTool(cwd))
	return r
}

// composeSystemPrompt returns the requested system prompt, else the
// configured one, else the default. No "agents context" preamble is
// prepended: discovery of that context from project Markdown files is out
// of scope (spec.md §1 non-goals), and nothing else supplies one.
func composeSystemPrompt(requested, configured string) string {
	base := requested
	if base == "" {
		base = configured
	}
	if base == "" {
		base = defaultSystemPrompt
	}
	return base
}

// dashEncode turns an absolute path into the dash-encoded project directory
// name used under <heddle_home>/projects/ (spec.md §6.5).
func dashEncode(path string) string {
	cleaned := strings.TrimPrefix(filepath.ToSlash(path), "/")
	return strings.ReplaceAll(cleaned, "/", "-")
}
