package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/nsouzaco/code-assistant/internal/conversation"
	"github.com/nsouzaco/code-assistant/internal/diff"
	"github.com/nsouzaco/code-assistant/internal/export"
	"github.com/nsouzaco/code-assistant/internal/language"
	"github.com/nsouzaco/code-assistant/internal/logging"
	"github.com/nsouzaco/code-assistant/internal/prompt"
	"github.com/nsouzaco/code-assistant/internal/state"
	"github.com/nsouzaco/code-assistant/internal/watch"
)

const maxLogPayload = 500

// server answers one JSON request per input line with JSON lines on out.
// It owns the session: the store, the engine and the document watcher.
type server struct {
	store  *state.Store
	engine *conversation.Engine
	out    io.Writer

	respondMu sync.Mutex

	watchMu sync.Mutex
	watcher *watch.Watcher
	docPath string

	ctx      context.Context
	cancel   context.CancelFunc
	inflight sync.WaitGroup
	done     bool
}

func newServer(store *state.Store, engine *conversation.Engine, out io.Writer) *server {
	ctx, cancel := context.WithCancel(context.Background())
	return &server{
		store:  store,
		engine: engine,
		out:    out,
		ctx:    ctx,
		cancel: cancel,
	}
}

// serve reads requests until EOF or shutdown, then waits for in-flight sends.
func (s *server) serve(in io.Reader) error {
	defer s.close()

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		s.handleRequest(scanner.Text())
		if s.done {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			s.respond("", map[string]any{
				"type":    "error",
				"message": "Request too large (max 16MB).",
			})
		}
		return fmt.Errorf("read requests: %w", err)
	}
	return nil
}

// close lets in-flight sends resolve, then cancels the session context and
// stops the watcher.
func (s *server) close() {
	s.inflight.Wait()
	s.cancel()
	s.watchMu.Lock()
	if s.watcher != nil {
		_ = s.watcher.Close()
		s.watcher = nil
	}
	s.watchMu.Unlock()
}

func (s *server) handleRequest(line string) {
	log := logging.Component("protocol")

	var req map[string]any
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		log.Error().Str("line", logging.Truncate(line, maxLogPayload)).Msg("invalid JSON request")
		s.respond("", map[string]any{"type": "error", "message": "Invalid JSON"})
		return
	}

	action, _ := req["action"].(string)
	reqID := requestID(req)
	log.Debug().Str("action", action).Str("request_id", reqID).Str("payload", logging.Truncate(line, maxLogPayload)).Msg("request")

	switch action {
	case "ping":
		s.respond(reqID, map[string]any{"type": "ok"})

	case "version":
		s.respond(reqID, map[string]any{"type": "version", "version": versionString()})

	case "shutdown":
		// In-flight sends finish before serve returns; see close.
		s.done = true
		s.respond(reqID, map[string]any{"type": "ok"})

	case "document_set":
		text, ok := req["text"].(string)
		if !ok {
			s.respond(reqID, missingField("text"))
			return
		}
		stale := s.store.SetDocument(text)
		s.respond(reqID, map[string]any{
			"type":        "ok",
			"language":    s.store.Language(),
			"stale":       nonNil(stale),
			"decorations": nonNil(s.store.Decorations()),
		})

	case "document_get":
		s.respond(reqID, s.documentResponse())

	case "document_open":
		s.handleDocumentOpen(reqID, req)

	case "document_save":
		s.handleDocumentSave(reqID, req)

	case "file_name_set":
		name, _ := req["name"].(string)
		lang := s.store.SetFileName(name)
		if override, _ := req["language"].(string); override != "" {
			s.store.SetLanguage(override)
			lang = override
		}
		s.respond(reqID, map[string]any{"type": "ok", "language": lang})

	case "language_detect":
		name, ok := req["file_name"].(string)
		if !ok {
			name = s.store.FileName()
		}
		content, ok := req["content"].(string)
		if !ok {
			content = s.store.Document()
		}
		lang := language.Detect(name, content)
		s.respond(reqID, map[string]any{
			"type":      "language",
			"language":  lang,
			"extension": language.ExtensionFor(lang),
		})

	case "language_auto":
		lang, name := s.store.AutoDetect()
		s.respond(reqID, map[string]any{
			"type":      "language",
			"language":  lang,
			"extension": language.ExtensionFor(lang),
			"file_name": name,
		})

	case "selection_set":
		s.store.SetSelection(selectionFrom(req))
		s.respond(reqID, map[string]any{"type": "ok"})

	case "thread_create":
		sel := s.store.Selection()
		if raw, ok := req["selection"].(map[string]any); ok {
			sel = selectionFrom(raw)
		}
		lang, _ := req["language"].(string)
		id, err := s.store.CreateThread(sel, lang)
		if err != nil {
			s.respond(reqID, errorResponse(err))
			return
		}
		t, _ := s.store.Thread(id)
		s.respond(reqID, map[string]any{"type": "thread_created", "id": id, "thread": t})

	case "thread_list":
		threads := s.store.Threads()
		if all, _ := req["archived"].(bool); all {
			threads = s.store.AllThreads()
		}
		s.respond(reqID, map[string]any{
			"type":        "thread_list",
			"threads":     nonNil(threads),
			"current":     s.store.CurrentID(),
			"decorations": nonNil(s.store.Decorations()),
		})

	case "thread_get":
		id, _ := req["id"].(string)
		t, ok := s.store.Thread(id)
		if !ok {
			s.respond(reqID, errorResponse(state.ErrThreadNotFound))
			return
		}
		s.respond(reqID, map[string]any{"type": "thread", "thread": t})

	case "thread_active":
		resp := map[string]any{"type": "thread", "thread": nil}
		if t, ok := s.store.Active(); ok {
			resp["thread"] = t
		}
		s.respond(reqID, resp)

	case "thread_switch":
		id, _ := req["id"].(string)
		s.respond(reqID, map[string]any{"type": "ok", "switched": s.store.SwitchActive(id)})

	case "thread_resolve":
		id, _ := req["id"].(string)
		s.respond(reqID, map[string]any{"type": "ok", "resolved": s.store.Resolve(id)})

	case "thread_archive":
		id, _ := req["id"].(string)
		s.respond(reqID, map[string]any{"type": "ok", "archived": s.store.Archive(id)})

	case "thread_send":
		s.handleSend(reqID, req)

	case "thread_apply":
		s.handleApply(reqID, req)

	case "thread_diff":
		s.handleDiff(reqID, req)

	case "thread_locate":
		id := s.threadID(req)
		matches, ok := s.store.Locate(id)
		if !ok {
			s.respond(reqID, errorResponse(state.ErrThreadNotFound))
			return
		}
		s.respond(reqID, map[string]any{
			"type":    "locate",
			"matches": nonNil(matches),
			"summary": diff.FormatMatches(matches),
		})

	case "thread_estimate":
		content, _ := req["content"].(string)
		est, err := s.engine.EstimateTokens(s.threadID(req), content)
		if err != nil {
			s.respond(reqID, errorResponse(err))
			return
		}
		s.respond(reqID, map[string]any{
			"type":          "token_estimate",
			"total":         est.Total,
			"system_prompt": est.SystemPrompt,
			"history":       est.History,
			"input":         est.Input,
			"first":         est.First,
		})

	case "export":
		s.handleExport(reqID, req)

	default:
		s.respond(reqID, map[string]any{"type": "error", "message": "Unknown action: " + action})
	}
}

// threadID returns the request's "id", defaulting to the current thread.
func (s *server) threadID(req map[string]any) string {
	if id, _ := req["id"].(string); id != "" {
		return id
	}
	return s.store.CurrentID()
}

func (s *server) documentResponse() map[string]any {
	lines := s.store.Lines()
	return map[string]any{
		"type":      "document",
		"text":      diff.JoinDocument(lines),
		"lines":     len(lines),
		"file_name": s.store.FileName(),
		"language":  s.store.Language(),
		"version":   s.store.Version(),
	}
}

func (s *server) handleDocumentOpen(reqID string, req map[string]any) {
	path, _ := req["path"].(string)
	if path == "" {
		s.respond(reqID, missingField("path"))
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		s.respond(reqID, errorResponse(err))
		return
	}
	s.store.Open(path, string(data))

	if noWatch, _ := req["no_watch"].(bool); !noWatch {
		if err := s.watch(path); err != nil {
			logger := logging.Component("protocol")
			logger.Warn().Err(err).Str("path", path).Msg("cannot watch document")
		}
	}
	s.respond(reqID, s.documentResponse())
}

// watch replaces the document watcher. Changes on disk are fed to the store
// like user edits and announced as document_changed events.
func (s *server) watch(path string) error {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	if s.watcher != nil {
		_ = s.watcher.Close()
		s.watcher = nil
	}
	w, err := watch.New(path, func(content string) {
		stale := s.store.SetDocument(content)
		resp := s.documentResponse()
		resp["type"] = "document_changed"
		resp["stale"] = nonNil(stale)
		resp["decorations"] = nonNil(s.store.Decorations())
		s.respond("", resp)
	})
	if err != nil {
		return err
	}
	s.watcher = w
	s.docPath = path
	return nil
}

func (s *server) handleDocumentSave(reqID string, req map[string]any) {
	path, _ := req["path"].(string)
	s.watchMu.Lock()
	if path == "" {
		path = s.docPath
	}
	w := s.watcher
	watched := s.docPath
	s.watchMu.Unlock()

	if path == "" {
		path = s.store.FileName()
	}
	if path == "" {
		s.respond(reqID, missingField("path"))
		return
	}

	text := s.store.Document()
	if w != nil && path == watched {
		w.Mark(text)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		s.respond(reqID, errorResponse(err))
		return
	}
	s.respond(reqID, map[string]any{"type": "ok", "path": path})
}

// handleSend appends the user message and placeholder, answers at once with
// their ids, and emits message_done when the model call resolves.
func (s *server) handleSend(reqID string, req map[string]any) {
	content, _ := req["content"].(string)
	call, err := s.engine.Begin(s.threadID(req), content)
	switch {
	case errors.Is(err, state.ErrThreadNotFound):
		s.respond(reqID, map[string]any{"type": "ok", "sent": false})
		return
	case err != nil:
		s.respond(reqID, errorResponse(err))
		return
	}

	s.respond(reqID, map[string]any{
		"type":            "message_pending",
		"thread_id":       call.ThreadID(),
		"user_message_id": call.UserMessageID(),
		"message_id":      call.PlaceholderID(),
	})

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		res := call.Run(s.ctx)
		resp := map[string]any{
			"type":        "message_done",
			"thread_id":   res.ThreadID,
			"message_id":  res.MessageID,
			"state":       res.State,
			"content":     res.Content,
			"duration_ms": res.Duration.Milliseconds(),
		}
		if res.SuggestedCode != "" {
			resp["suggested_code"] = res.SuggestedCode
		}
		if res.Error != "" {
			resp["error"] = res.Error
		}
		s.respond(reqID, resp)
	}()
}

// suggestionID returns the request's "message_id", defaulting to the
// thread's latest suggestion.
func (s *server) suggestionID(threadID string, req map[string]any) string {
	if id, _ := req["message_id"].(string); id != "" {
		return id
	}
	t, ok := s.store.Thread(threadID)
	if !ok {
		return ""
	}
	if m, ok := t.LastSuggestion(); ok {
		return m.ID
	}
	return ""
}

func (s *server) handleApply(reqID string, req map[string]any) {
	threadID := s.threadID(req)
	applied, ok := s.store.Apply(threadID, s.suggestionID(threadID, req))
	if !ok {
		s.respond(reqID, map[string]any{"type": "ok", "applied": false})
		return
	}
	s.respond(reqID, map[string]any{
		"type":        "applied",
		"applied":     applied,
		"text":        s.store.Document(),
		"decorations": nonNil(s.store.Decorations()),
	})
}

func (s *server) handleDiff(reqID string, req map[string]any) {
	threadID := s.threadID(req)
	t, ok := s.store.Thread(threadID)
	if !ok {
		s.respond(reqID, errorResponse(state.ErrThreadNotFound))
		return
	}
	m, ok := t.Message(s.suggestionID(threadID, req))
	if !ok || !m.HasSuggestion() {
		s.respond(reqID, map[string]any{"type": "diff", "lines": []diff.Line{}, "stats": diff.Stats{}})
		return
	}
	lines := diff.Compare(t.SelectedText, prompt.CleanSuggested(m.SuggestedCode))
	s.respond(reqID, map[string]any{
		"type":       "diff",
		"message_id": m.ID,
		"lines":      lines,
		"stats":      diff.Summarize(lines),
	})
}

func (s *server) handleExport(reqID string, req map[string]any) {
	format, _ := req["format"].(string)
	if format == "" {
		format = "markdown"
	}
	record := export.Build(s.store.AllThreads(), s.store.FileName(), s.store.Language(), s.store.Document(), time.Now())

	var (
		content []byte
		ext     string
		err     error
	)
	switch format {
	case "markdown", "md":
		content, ext = []byte(export.Markdown(record)), ".md"
	case "json":
		content, err = export.JSON(record)
		ext = ".json"
	case "yaml", "yml":
		content, err = export.YAML(record)
		ext = ".yaml"
	default:
		s.respond(reqID, map[string]any{"type": "error", "message": "Unknown export format: " + format})
		return
	}
	if err != nil {
		s.respond(reqID, errorResponse(err))
		return
	}

	resp := map[string]any{
		"type":      "export",
		"format":    format,
		"file_name": export.FileName(s.store.FileName(), ext),
		"content":   string(content),
	}
	if path, _ := req["path"].(string); path != "" {
		if err := os.WriteFile(path, content, 0o644); err != nil {
			s.respond(reqID, errorResponse(err))
			return
		}
		resp["path"] = path
	}
	s.respond(reqID, resp)
}

func selectionFrom(m map[string]any) state.Selection {
	text, _ := m["text"].(string)
	return state.Selection{
		StartLine:   intField(m, "start_line"),
		EndLine:     intField(m, "end_line"),
		StartColumn: intField(m, "start_column"),
		EndColumn:   intField(m, "end_column"),
		Text:        text,
	}
}

func intField(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

// nonNil keeps empty lists as [] rather than null on the wire.
func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}

func missingField(name string) map[string]any {
	return map[string]any{"type": "error", "message": "Missing required field: " + name}
}

func errorResponse(err error) map[string]any {
	var msg string
	switch {
	case errors.Is(err, state.ErrEmptySelection):
		msg = "Selection is empty"
	case errors.Is(err, state.ErrInvalidRange):
		msg = "Invalid line range"
	case errors.Is(err, state.ErrThreadNotFound):
		msg = "Thread not found"
	case errors.Is(err, conversation.ErrRequestPending):
		msg = "Another request is already in progress for this thread"
	case errors.Is(err, conversation.ErrEmptyMessage):
		msg = "Missing required field: content"
	default:
		msg = err.Error()
	}
	return map[string]any{"type": "error", "message": msg}
}

func (s *server) respond(reqID string, data map[string]any) {
	out, err := json.Marshal(addResponseID(reqID, data))
	if err != nil {
		out, _ = json.Marshal(addResponseID(reqID, map[string]any{"type": "error", "message": err.Error()}))
	}
	msgType, _ := data["type"].(string)

	s.respondMu.Lock()
	defer s.respondMu.Unlock()
	logger := logging.Component("protocol")
	logger.Debug().Str("type", msgType).Str("payload", logging.Truncate(string(out), maxLogPayload)).Msg("response")
	fmt.Fprintln(s.out, string(out))
}

func addResponseID(reqID string, data map[string]any) map[string]any {
	if reqID == "" {
		return data
	}
	data["request_id"] = reqID
	return data
}

func requestID(req map[string]any) string {
	switch v := req["request_id"].(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	case int:
		return fmt.Sprintf("%d", v)
	case int64:
		return fmt.Sprintf("%d", v)
	default:
		return ""
	}
}
