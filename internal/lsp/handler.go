package lsp

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"retcheck/internal/analysis"
	"retcheck/internal/report"
)

var log = commonlog.GetLogger("retcheck.lsp")

// SemanticTokenTypes is the legend advertised to clients
var SemanticTokenTypes = []string{
	"keyword",
	"function",
	"variable",
	"number",
	"string",
	"comment",
	"operator",
}

// SemanticTokenModifiers is the modifier legend advertised to clients
var SemanticTokenModifiers = []string{
	"declaration",
}

// Handler implements the language server for CFG listings. Every open or
// change reanalyzes the whole document and republishes its diagnostics.
type Handler struct {
	mu        sync.RWMutex
	content   map[string]string
	files     map[string]report.File
	opts      analysis.BatchOptions
	threshold analysis.Severity
}

// NewHandler creates a handler that analyzes with opts and reports findings at or above threshold
func NewHandler(opts analysis.BatchOptions, threshold analysis.Severity) *Handler {
	return &Handler{
		content:   make(map[string]string),
		files:     make(map[string]report.File),
		opts:      opts,
		threshold: threshold,
	}
}

// Initialize advertises the server's capabilities
func (h *Handler) Initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Info("initialize")

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: ptrBool(true),
				Change:    ptrSyncKind(protocol.TextDocumentSyncKindFull),
			},
			SemanticTokensProvider: &protocol.SemanticTokensOptions{
				Legend: protocol.SemanticTokensLegend{
					TokenTypes:     SemanticTokenTypes,
					TokenModifiers: SemanticTokenModifiers,
				},
				Full: ptrBool(true),
			},
		},
	}, nil
}

func (h *Handler) Initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	log.Info("initialized")
	return nil
}

func (h *Handler) Shutdown(ctx *glsp.Context) error {
	log.Info("shutdown")
	return nil
}

func (h *Handler) SetTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	log.Debugf("trace set to %s", params.Value)
	return nil
}

// TextDocumentDidOpen analyzes a newly opened listing
func (h *Handler) TextDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	log.Infof("opened %s", params.TextDocument.URI)
	return h.update(ctx, params.TextDocument.URI, params.TextDocument.Text)
}

// TextDocumentDidChange reanalyzes a listing after a full-document change
func (h *Handler) TextDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	log.Debugf("changed %s", params.TextDocument.URI)

	text, ok := lastFullText(params.ContentChanges)
	if !ok {
		return fmt.Errorf("no full-text change for %s", params.TextDocument.URI)
	}
	return h.update(ctx, params.TextDocument.URI, text)
}

// TextDocumentDidClose forgets a listing and clears its diagnostics
func (h *Handler) TextDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	log.Infof("closed %s", params.TextDocument.URI)

	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return err
	}

	h.mu.Lock()
	delete(h.content, path)
	delete(h.files, path)
	h.mu.Unlock()

	publish(ctx, params.TextDocument.URI, []protocol.Diagnostic{})
	return nil
}

// TextDocumentSemanticTokensFull highlights an open listing
func (h *Handler) TextDocumentSemanticTokensFull(ctx *glsp.Context, params *protocol.SemanticTokensParams) (*protocol.SemanticTokens, error) {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil, err
	}

	h.mu.RLock()
	source, ok := h.content[path]
	h.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("document %s is not open", params.TextDocument.URI)
	}

	return &protocol.SemanticTokens{Data: encodeTokens(collectSemanticTokens(path, source))}, nil
}

// Diagnostics returns the diagnostics last published for a document
func (h *Handler) Diagnostics(uri protocol.DocumentUri) ([]protocol.Diagnostic, error) {
	path, err := uriToPath(uri)
	if err != nil {
		return nil, err
	}
	h.mu.RLock()
	file, ok := h.files[path]
	h.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("document %s is not open", uri)
	}
	return ConvertDiagnostics(report.Diagnostics(file, h.threshold)), nil
}

func (h *Handler) update(ctx *glsp.Context, uri protocol.DocumentUri, text string) error {
	path, err := uriToPath(uri)
	if err != nil {
		return err
	}

	file, err := report.AnalyzeSource(context.Background(), path, text, h.opts)
	if err != nil {
		return fmt.Errorf("failed to analyze %s: %w", path, err)
	}

	h.mu.Lock()
	h.content[path] = text
	h.files[path] = file
	h.mu.Unlock()

	publish(ctx, uri, ConvertDiagnostics(report.Diagnostics(file, h.threshold)))
	return nil
}

func lastFullText(changes []any) (string, bool) {
	for i := len(changes) - 1; i >= 0; i-- {
		switch change := changes[i].(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			return change.Text, true
		case *protocol.TextDocumentContentChangeEventWhole:
			return change.Text, true
		}
	}
	return "", false
}

// uriToPath converts a file URI to a platform-local path
func uriToPath(rawURI string) (string, error) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return "", fmt.Errorf("invalid URI %s: %w", rawURI, err)
	}

	path := u.Path

	// On Windows, remove the leading slash of /C:/...
	if runtime.GOOS == "windows" && strings.HasPrefix(path, "/") && len(path) > 3 && path[2] == ':' {
		path = path[1:]
	}

	return filepath.FromSlash(path), nil
}

func publish(ctx *glsp.Context, uri protocol.DocumentUri, diagnostics []protocol.Diagnostic) {
	log.Debugf("publishing %d diagnostic(s) for %s", len(diagnostics), uri)

	if ctx == nil || ctx.Notify == nil {
		return
	}
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

func ptrBool(b bool) *bool {
	return &b
}

func ptrSyncKind(k protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind {
	return &k
}
