package rpcjson

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/amir0eveloper/rdmc-srshb/internal/application"
	"github.com/amir0eveloper/rdmc-srshb/internal/domain"
	"go.uber.org/zap"
)

// Error codes below -32000 are reserved by JSON-RPC; the application range
// mirrors the HTTP status classes.
const (
	codeParse          = -32700
	codeInvalidRequest = -32600
	codeNoMethod       = -32601
	codeInvalidParams  = -32602
	codeInternal       = -32603
	codeUnauthorized   = -32001
	codeForbidden      = -32003
	codeNotFound       = -32004
)

// Server answers newline-delimited JSON-RPC 2.0 requests on a unix socket.
// Every request may carry a "token" param holding an API token; without one
// the call runs anonymously.
type Server struct {
	service  *application.Service
	log      *zap.Logger
	listener net.Listener
	path     string
	methods  map[string]method

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      any             `json:"id"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
	ID      any             `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type method func(ctx context.Context, actor *domain.Identity, params json.RawMessage) (any, error)

var errInvalidParams = domain.ErrValidation.New("invalid params")

func Start(path string, service *application.Service, log *zap.Logger) (*Server, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("rpc socket path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(path, 0o600); err != nil {
		_ = ln.Close()
		_ = os.Remove(path)
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{service: service, log: log, listener: ln, path: path, ctx: ctx, cancel: cancel}
	s.methods = s.routes()
	s.wg.Add(1)
	go s.serve()
	return s, nil
}

func (s *Server) Path() string { return s.path }

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

// Close stops accepting, cancels in-flight calls and waits for open
// connections to finish.
func (s *Server) Close() error {
	s.cancel()
	err := s.listener.Close()
	_ = os.Remove(s.path)
	s.wg.Wait()
	return err
}

func (s *Server) handleConn(conn net.Conn) {
	defer func() { _ = conn.Close() }()
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-s.ctx.Done():
			_ = conn.SetReadDeadline(time.Now())
		case <-done:
		}
	}()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)

	for {
		var req request
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) || s.ctx.Err() != nil {
				return
			}
			_ = enc.Encode(response{JSONRPC: "2.0", Error: &rpcError{Code: codeParse, Message: "parse error"}, ID: nil})
			return
		}

		resp := s.dispatch(s.ctx, req)
		if err := enc.Encode(resp); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, req request) (resp response) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("rpc call panicked", zap.String("method", req.Method), zap.Any("panic", r), zap.Stack("stack"))
			resp = s.failure(req, domain.ErrInternal.New("panic in %s", req.Method))
		}
	}()
	if req.JSONRPC != "2.0" || strings.TrimSpace(req.Method) == "" {
		return response{JSONRPC: "2.0", Error: &rpcError{Code: codeInvalidRequest, Message: "invalid request"}, ID: req.ID}
	}
	call, ok := s.methods[req.Method]
	if !ok {
		return response{JSONRPC: "2.0", Error: &rpcError{Code: codeNoMethod, Message: "method not found"}, ID: req.ID}
	}

	actor, err := s.identify(ctx, req.Params)
	if err != nil {
		return s.failure(req, err)
	}
	started := time.Now()
	result, err := call(ctx, actor, req.Params)
	if err != nil {
		return s.failure(req, err)
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return s.failure(req, domain.ErrInternal.Wrap(err))
	}
	s.log.Debug("rpc call", zap.String("method", req.Method), zap.Duration("elapsed", time.Since(started)))
	return response{JSONRPC: "2.0", Result: encoded, ID: req.ID}
}

func (s *Server) identify(ctx context.Context, raw json.RawMessage) (*domain.Identity, error) {
	var p struct {
		Token string `json:"token"`
	}
	if err := decodeParams(raw, &p); err != nil {
		return nil, errInvalidParams
	}
	if strings.TrimSpace(p.Token) == "" {
		return nil, nil
	}
	identity, err := s.service.AuthenticateBearerToken(ctx, p.Token)
	if err != nil {
		return nil, err
	}
	return &identity, nil
}

func (s *Server) failure(req request, err error) response {
	code := codeOf(err)
	if code == codeInternal {
		s.log.Error("rpc call failed", zap.String("method", req.Method), zap.Error(err))
	}
	return response{JSONRPC: "2.0", Error: &rpcError{Code: code, Message: domain.Message(err)}, ID: req.ID}
}

func codeOf(err error) int {
	switch domain.Kind(err) {
	case &domain.ErrUnauthorized:
		return codeUnauthorized
	case &domain.ErrForbidden:
		return codeForbidden
	case &domain.ErrValidation:
		return codeInvalidParams
	case &domain.ErrNotFound:
		return codeNotFound
	}
	return codeInternal
}

// decodeParams accepts a missing params member as an empty object.
func decodeParams(raw json.RawMessage, out any) error {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// bind decodes the params into P before calling fn.
func bind[P any](fn func(ctx context.Context, actor *domain.Identity, p P) (any, error)) method {
	return func(ctx context.Context, actor *domain.Identity, raw json.RawMessage) (any, error) {
		var p P
		if err := decodeParams(raw, &p); err != nil {
			return nil, errInvalidParams
		}
		return fn(ctx, actor, p)
	}
}

func okResult() map[string]any { return map[string]any{"ok": true} }
