package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/averycrespi/codedoc-mcp/pkg/types"
)

// ErrNoLanguageServer is returned when no server is configured for a language
var ErrNoLanguageServer = errors.New("no language server configured")

// Manager manages one lazily started client per language id
type Manager struct {
	workspaceRoot  string
	servers        map[string]types.LanguageServerConfig
	requestTimeout time.Duration
	newClient      func(cfg types.LanguageServerConfig) types.Client

	clients map[string]types.Client
	mu      sync.Mutex
}

// NewManager creates a new client manager
func NewManager(workspaceRoot string, servers map[string]types.LanguageServerConfig, requestTimeout time.Duration) *Manager {
	m := &Manager{
		workspaceRoot:  workspaceRoot,
		servers:        servers,
		requestTimeout: requestTimeout,
		clients:        make(map[string]types.Client),
	}
	m.newClient = func(cfg types.LanguageServerConfig) types.Client {
		return NewLanguageServerClient(cfg.Command, cfg.Args, m.requestTimeout)
	}
	return m
}

// HasServer reports whether a server is configured for the language
func (m *Manager) HasServer(languageID string) bool {
	_, ok := m.servers[languageID]
	return ok
}

// ClientFor returns the started client for a language, starting it on first use
func (m *Manager) ClientFor(ctx context.Context, languageID string) (types.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.clients[languageID]; ok {
		return c, nil
	}

	cfg, ok := m.servers[languageID]
	if !ok {
		return nil, fmt.Errorf("%w for language %q", ErrNoLanguageServer, languageID)
	}

	slog.Info("Starting language server", "language_id", languageID, "command", cfg.Command)

	c := m.newClient(cfg)
	if err := c.Start(ctx, m.workspaceRoot); err != nil {
		// Best effort: tear down a half-started process
		_ = c.Stop(ctx)
		return nil, fmt.Errorf("failed to start language server for %q: %w", languageID, err)
	}

	m.clients[languageID] = c
	return c, nil
}

// Shutdown stops every started client
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for languageID, c := range m.clients {
		slog.Debug("Stopping language server", "language_id", languageID)
		if err := c.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop language server for %q: %w", languageID, err))
		}
		delete(m.clients, languageID)
	}

	return errors.Join(errs...)
}
