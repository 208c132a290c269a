package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/averycrespi/codedoc-mcp/internal/transport"
	"github.com/averycrespi/codedoc-mcp/internal/workspace"
	"github.com/averycrespi/codedoc-mcp/pkg/project"
	"github.com/averycrespi/codedoc-mcp/pkg/types"
)

// ErrRenameNotAllowed is returned when the server refuses to rename at a position
var ErrRenameNotAllowed = errors.New("rename not allowed at this position")

var _ types.Client = &LanguageServerClient{}

// LanguageServerClient implements the Client interface for any stdio language server
type LanguageServerClient struct {
	command        string
	args           []string
	requestTimeout time.Duration
	cmd            *exec.Cmd
	transport      types.Transport

	mu       sync.Mutex
	versions map[string]int
}

// NewLanguageServerClient creates a client that launches command with args
func NewLanguageServerClient(command string, args []string, requestTimeout time.Duration) *LanguageServerClient {
	slog.Debug("Creating new language server client", "command", command, "args", args)

	return &LanguageServerClient{
		command:        command,
		args:           args,
		requestTimeout: requestTimeout,
		versions:       make(map[string]int),
	}
}

// newClientWithTransport creates a client speaking over an existing transport
func newClientWithTransport(t types.Transport) *LanguageServerClient {
	return &LanguageServerClient{
		transport: t,
		versions:  make(map[string]int),
	}
}

// Start launches the language server (unless a transport was supplied) and initializes it
func (c *LanguageServerClient) Start(ctx context.Context, workspaceRoot string) error {
	if c.transport == nil {
		if err := c.launch(); err != nil {
			return err
		}
	}

	if err := c.transport.Start(); err != nil {
		return fmt.Errorf("failed to start transport: %w", err)
	}
	slog.Debug("JSON-RPC transport started successfully")

	rootURI := workspace.PathToUri(workspaceRoot, "")
	slog.Debug("Initializing language server", "command", c.command, "root_uri", rootURI)
	if err := c.initialize(ctx, rootURI); err != nil {
		return fmt.Errorf("failed to initialize language server: %w", err)
	}
	slog.Debug("Language server initialized successfully", "command", c.command)

	return nil
}

// launch starts the server process. The process outlives the request context that triggered it.
func (c *LanguageServerClient) launch() error {
	slog.Debug("Launching language server", "command", c.command, "args", c.args)

	c.cmd = exec.Command(c.command, c.args...)

	stdin, err := c.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdin pipe: %w", err)
	}

	stdout, err := c.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	stderr, err := c.cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	c.transport = transport.NewJsonRpcTransport(stdin, stdout, transport.WithReceiveTimeout(c.requestTimeout))

	if err := c.cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", c.command, err)
	}
	slog.Debug("Language server process started successfully", "command", c.command, "pid", c.cmd.Process.Pid)

	go drainStderr(c.command, stderr)
	return nil
}

func drainStderr(command string, stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		slog.Debug("Language server stderr", "command", command, "line", scanner.Text())
	}
}

func (c *LanguageServerClient) initialize(ctx context.Context, rootURI string) error {
	params := map[string]any{
		"processId": nil,
		"clientInfo": map[string]any{
			"name":    project.Name,
			"version": project.Version,
		},
		"rootUri": rootURI,
		"workspaceFolders": []map[string]any{
			{"uri": rootURI, "name": project.Name},
		},
		"capabilities": map[string]any{
			"textDocument": map[string]any{
				"documentSymbol": map[string]any{
					"hierarchicalDocumentSymbolSupport": true,
				},
				"rename": map[string]any{
					"prepareSupport": true,
				},
			},
			"workspace": map[string]any{
				"workspaceEdit": map[string]any{
					"documentChanges": true,
				},
				"configuration": true,
			},
		},
	}

	if _, err := c.transport.SendRequest(ctx, "initialize", params); err != nil {
		return fmt.Errorf("failed to send initialization request: %w", err)
	}

	if err := c.transport.SendNotification("initialized", map[string]any{}); err != nil {
		return fmt.Errorf("failed to send initialization notification: %w", err)
	}

	return nil
}

func (c *LanguageServerClient) Stop(ctx context.Context) error {
	if c.transport == nil {
		return nil
	}

	var errs []error

	if _, err := c.transport.SendRequest(ctx, "shutdown", nil); err != nil {
		errs = append(errs, fmt.Errorf("failed to send JSON-RPC shutdown request: %w", err))
	}

	if err := c.transport.SendNotification("exit", nil); err != nil {
		errs = append(errs, fmt.Errorf("failed to send JSON-RPC exit notification: %w", err))
	}

	if err := c.transport.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop transport: %w", err))
	}

	if c.cmd != nil && c.cmd.Process != nil {
		if err := c.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			errs = append(errs, fmt.Errorf("failed to kill %s process: %w", c.command, err))
		}
		_, _ = c.cmd.Process.Wait()
	}

	return errors.Join(errs...)
}

func (c *LanguageServerClient) OpenDocument(ctx context.Context, uri string, languageID string, text string) error {
	c.mu.Lock()
	c.versions[uri]++
	version := c.versions[uri]
	c.mu.Unlock()

	slog.Debug("Opening document", "uri", uri, "language_id", languageID, "version", version)

	params := map[string]any{
		"textDocument": map[string]any{
			"uri":        uri,
			"languageId": languageID,
			"version":    version,
			"text":       text,
		},
	}
	if err := c.transport.SendNotification("textDocument/didOpen", params); err != nil {
		return fmt.Errorf("failed to open document: %w", err)
	}
	return nil
}

func (c *LanguageServerClient) CloseDocument(ctx context.Context, uri string) error {
	slog.Debug("Closing document", "uri", uri)

	params := map[string]any{
		"textDocument": map[string]any{
			"uri": uri,
		},
	}
	if err := c.transport.SendNotification("textDocument/didClose", params); err != nil {
		return fmt.Errorf("failed to close document: %w", err)
	}
	return nil
}

func (c *LanguageServerClient) PrepareRename(ctx context.Context, uri string, position types.Position) (*types.PrepareRenameResult, error) {
	slog.Debug("Preparing rename", "uri", uri, "line", position.Line, "character", position.Character)

	params := map[string]any{
		"textDocument": map[string]any{
			"uri": uri,
		},
		"position": position,
	}

	response, err := c.transport.SendRequest(ctx, "textDocument/prepareRename", params)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rename: %w", err)
	}

	// LSP prepareRename response can be null, Range, {range, placeholder}, or {defaultBehavior}
	if isNull(response) {
		return nil, ErrRenameNotAllowed
	}

	var withRange struct {
		Range       *types.Range    `json:"range"`
		Placeholder string          `json:"placeholder"`
		Start       *types.Position `json:"start"`
		End         *types.Position `json:"end"`
	}
	if err := json.Unmarshal(response, &withRange); err != nil {
		return nil, fmt.Errorf("failed to unmarshal prepareRename response: %w", err)
	}

	var result types.PrepareRenameResult
	switch {
	case withRange.Range != nil:
		result = types.PrepareRenameResult{Range: *withRange.Range, Placeholder: withRange.Placeholder}
	case withRange.Start != nil && withRange.End != nil:
		result = types.PrepareRenameResult{Range: types.Range{Start: *withRange.Start, End: *withRange.End}}
	default:
		// defaultBehavior: the server accepts the position but leaves the range to the client
		result = types.PrepareRenameResult{Range: types.Range{Start: position, End: position}}
	}

	slog.Debug("Rename prepared", "uri", uri, "range", result.Range, "placeholder", result.Placeholder)
	return &result, nil
}

func (c *LanguageServerClient) RenameSymbol(ctx context.Context, uri string, position types.Position, newName string) (*types.WorkspaceEdit, error) {
	slog.Debug("Renaming symbol", "uri", uri, "line", position.Line, "character", position.Character, "new_name", newName)

	params := map[string]any{
		"textDocument": map[string]any{
			"uri": uri,
		},
		"position": position,
		"newName":  newName,
	}

	response, err := c.transport.SendRequest(ctx, "textDocument/rename", params)
	if err != nil {
		return nil, fmt.Errorf("failed to rename symbol: %w", err)
	}

	// LSP rename response can be null or WorkspaceEdit
	if isNull(response) {
		slog.Debug("No rename performed", "uri", uri)
		return &types.WorkspaceEdit{Changes: make(map[string][]types.TextEdit)}, nil
	}

	var workspaceEdit types.WorkspaceEdit
	if err := json.Unmarshal(response, &workspaceEdit); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rename response: %w", err)
	}

	changes := workspaceEdit.FileChanges()
	editCount := 0
	for _, edits := range changes {
		editCount += len(edits)
	}
	slog.Debug("Symbol renamed", "uri", uri, "file_count", len(changes), "edit_count", editCount)

	return &workspaceEdit, nil
}

func (c *LanguageServerClient) GetDocumentSymbols(ctx context.Context, uri string) ([]types.DocumentSymbol, error) {
	slog.Debug("Getting document symbols", "uri", uri)

	params := map[string]any{
		"textDocument": map[string]any{
			"uri": uri,
		},
	}

	response, err := c.transport.SendRequest(ctx, "textDocument/documentSymbol", params)
	if err != nil {
		return nil, fmt.Errorf("failed to get document symbols: %w", err)
	}

	// LSP documentSymbol response can be null, DocumentSymbol[], or SymbolInformation[]
	if isNull(response) {
		slog.Debug("No document symbols found", "uri", uri)
		return []types.DocumentSymbol{}, nil
	}

	var probe []map[string]json.RawMessage
	if err := json.Unmarshal(response, &probe); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document symbols response: %w", err)
	}

	// SymbolInformation carries a location instead of ranges
	if len(probe) > 0 && probe[0]["location"] != nil {
		var symbolInfos []types.SymbolInformation
		if err := json.Unmarshal(response, &symbolInfos); err != nil {
			return nil, fmt.Errorf("failed to unmarshal document symbols response: %w", err)
		}

		symbols := make([]types.DocumentSymbol, len(symbolInfos))
		for i, info := range symbolInfos {
			symbols[i] = types.DocumentSymbol{
				Name:           info.Name,
				Kind:           info.Kind,
				Range:          info.Location.Range,
				SelectionRange: info.Location.Range,
			}
		}
		slog.Debug("Found document symbols (flat format)", "count", len(symbols), "uri", uri)
		return symbols, nil
	}

	var symbols []types.DocumentSymbol
	if err := json.Unmarshal(response, &symbols); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document symbols response: %w", err)
	}
	slog.Debug("Found document symbols (hierarchical format)", "count", len(symbols), "uri", uri)
	return symbols, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
