package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/averycrespi/codedoc-mcp/pkg/types"
)

const (
	defaultReceiveTimeout = 10 * time.Second
)

var _ types.Transport = &JsonRpcTransport{}

// ErrClosed is returned when sending on a stopped transport
var ErrClosed = errors.New("transport is closed")

// ResponseError is a JSON-RPC error object returned by the peer
type ResponseError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("JSON-RPC error %d: %s", e.Code, e.Message)
}

type response struct {
	result json.RawMessage
	err    *ResponseError
}

// JsonRpcTransport handles low-level JSON-RPC communication
type JsonRpcTransport struct {
	writer         io.Writer
	reader         *bufio.Reader
	receiveTimeout time.Duration
	requestID      int64
	responses      map[int64]chan response
	mu             sync.RWMutex
	writeMu        sync.Mutex
	done           chan struct{}
	stopOnce       sync.Once
}

// Option configures a JsonRpcTransport
type Option func(*JsonRpcTransport)

// WithReceiveTimeout sets how long SendRequest waits for a response
func WithReceiveTimeout(timeout time.Duration) Option {
	return func(t *JsonRpcTransport) {
		if timeout > 0 {
			t.receiveTimeout = timeout
		}
	}
}

// NewJsonRpcTransport creates a new JSON-RPC transport
func NewJsonRpcTransport(writer io.Writer, reader io.Reader, opts ...Option) *JsonRpcTransport {
	t := &JsonRpcTransport{
		writer:         writer,
		reader:         bufio.NewReader(reader),
		receiveTimeout: defaultReceiveTimeout,
		responses:      make(map[int64]chan response),
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *JsonRpcTransport) Start() error {
	slog.Debug("Starting JSON-RPC transport", "receive_timeout", t.receiveTimeout)
	go t.readMessages()
	return nil
}

func (t *JsonRpcTransport) Stop() error {
	t.stopOnce.Do(func() {
		slog.Debug("Stopping JSON-RPC transport")
		close(t.done)
	})
	return nil
}

func (t *JsonRpcTransport) isClosed() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

func (t *JsonRpcTransport) readMessages() {
	slog.Debug("Reading JSON-RPC messages")

	defer func() {
		_ = t.Stop()
	}()

	for {
		if t.isClosed() {
			return
		}

		contentLength, err := t.readHeader()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				slog.Error("Failed to read JSON-RPC message header", "error", err)
			}
			return
		}

		body := make([]byte, contentLength)
		if _, err := io.ReadFull(t.reader, body); err != nil {
			slog.Error("Failed to read JSON-RPC message body", "error", err, "content_length", contentLength)
			return
		}
		t.handleMessage(body)
	}
}

// readHeader consumes header lines up to the blank separator and returns the Content-Length
func (t *JsonRpcTransport) readHeader() (int, error) {
	contentLength := -1
	for {
		line, err := t.reader.ReadString('\n')
		if err != nil {
			return 0, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if contentLength < 0 {
				return 0, fmt.Errorf("missing Content-Length header")
			}
			return contentLength, nil
		}

		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return 0, fmt.Errorf("malformed header line %q", line)
		}
		if strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil || n < 0 {
				return 0, fmt.Errorf("invalid Content-Length %q", value)
			}
			contentLength = n
		}
	}
}

func (t *JsonRpcTransport) handleMessage(content []byte) {
	var msg struct {
		ID     json.RawMessage `json:"id"`
		Method string          `json:"method"`
		Params json.RawMessage `json:"params"`
		Result json.RawMessage `json:"result"`
		Error  *ResponseError  `json:"error"`
	}
	if err := json.Unmarshal(content, &msg); err != nil {
		slog.Error("Failed to unmarshal JSON-RPC message", "error", err, "content", string(content))
		return
	}

	if msg.Method != "" {
		if msg.ID != nil {
			t.replyToServerRequest(msg.ID, msg.Method, msg.Params)
		}
		return // notifications from the server are ignored
	}

	if msg.ID == nil {
		return
	}

	var id int64
	if err := json.Unmarshal(msg.ID, &id); err != nil {
		slog.Error("Failed to unmarshal JSON-RPC response ID", "error", err, "raw_id", string(msg.ID))
		return
	}

	t.mu.RLock()
	ch, ok := t.responses[id]
	t.mu.RUnlock()

	if ok {
		ch <- response{result: msg.Result, err: msg.Error}
	}
}

// replyToServerRequest answers requests the server sends to the client.
// Servers block on some of these (workspace/configuration in particular), so every one gets a reply.
func (t *JsonRpcTransport) replyToServerRequest(id json.RawMessage, method string, params json.RawMessage) {
	slog.Debug("Answering server request", "method", method)

	var result any
	if method == "workspace/configuration" {
		var p struct {
			Items []json.RawMessage `json:"items"`
		}
		_ = json.Unmarshal(params, &p)
		result = make([]any, len(p.Items))
	}

	reply := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result":  result,
	}
	data, err := json.Marshal(reply)
	if err != nil {
		slog.Error("Failed to marshal reply to server request", "error", err, "method", method)
		return
	}
	if err := t.writeMessage(data); err != nil {
		slog.Error("Failed to reply to server request", "error", err, "method", method)
	}
}

// SendRequest sends a JSON-RPC request and waits for the response
func (t *JsonRpcTransport) SendRequest(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if t.isClosed() {
		return nil, fmt.Errorf("cannot send request %s: %w", method, ErrClosed)
	}

	id := atomic.AddInt64(&t.requestID, 1)
	startTime := time.Now()

	slog.Debug("Sending JSON-RPC request", "request_id", id, "method", method)

	request := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  method,
		"params":  params,
	}

	data, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON-RPC request: %w", err)
	}

	ch := make(chan response, 1)
	t.mu.Lock()
	t.responses[id] = ch
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		delete(t.responses, id)
		t.mu.Unlock()
	}()

	if err := t.writeMessage(data); err != nil {
		return nil, fmt.Errorf("failed to write JSON-RPC request: %w", err)
	}

	timer := time.NewTimer(t.receiveTimeout)
	defer timer.Stop()

	select {
	case resp := <-ch:
		slog.Debug("Received JSON-RPC response",
			"request_id", id,
			"method", method,
			"duration_ms", time.Since(startTime).Milliseconds())
		if resp.err != nil {
			return nil, fmt.Errorf("request %s failed: %w", method, resp.err)
		}
		return resp.result, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("request %s cancelled: %w", method, ctx.Err())
	case <-t.done:
		return nil, fmt.Errorf("request %s interrupted: %w", method, ErrClosed)
	case <-timer.C:
		slog.Error("Timeout waiting for JSON-RPC response",
			"request_id", id,
			"method", method,
			"timeout_ms", t.receiveTimeout.Milliseconds(),
			"duration_ms", time.Since(startTime).Milliseconds())
		return nil, fmt.Errorf("timeout waiting for response to method %s", method)
	}
}

// SendNotification sends a JSON-RPC notification (no response expected)
func (t *JsonRpcTransport) SendNotification(method string, params any) error {
	if t.isClosed() {
		return fmt.Errorf("cannot send notification %s: %w", method, ErrClosed)
	}

	slog.Debug("Sending JSON-RPC notification", "method", method)

	notification := map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
	}

	data, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON-RPC notification: %w", err)
	}

	if err := t.writeMessage(data); err != nil {
		return fmt.Errorf("failed to write JSON-RPC notification: %w", err)
	}

	return nil
}

func (t *JsonRpcTransport) writeMessage(data []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(data))
	if _, err := t.writer.Write([]byte(header)); err != nil {
		return fmt.Errorf("failed to write JSON-RPC message header: %w", err)
	}

	if _, err := t.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write JSON-RPC message data: %w", err)
	}

	return nil
}
