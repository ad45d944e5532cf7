// Package state holds the review session: the document, its threads and
// the current-thread pointer. Every mutation of the document and of thread
// ranges happens under one lock so readers never see one without the other.
package state

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nsouzaco/code-assistant/internal/diff"
	"github.com/nsouzaco/code-assistant/internal/language"
	"github.com/nsouzaco/code-assistant/internal/prompt"
)

// Sentinel errors for expected conditions.
var (
	ErrEmptySelection = errors.New("selection is empty")
	ErrInvalidRange   = errors.New("invalid line range")
	ErrThreadNotFound = errors.New("thread not found")
	ErrRequestPending = errors.New("a request is already pending for this thread")
)

// Store is the single owner of the document and the thread collection.
type Store struct {
	mu        sync.Mutex
	lines     []string
	fileName  string
	language  string
	selection Selection
	threads   []*Thread // creation order, archived included
	current   string

	now func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		language: language.Default,
		now:      time.Now,
	}
}

// Open replaces the document and file name together and re-detects the
// language.
func (s *Store) Open(fileName, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fileName = fileName
	s.lines = diff.SplitDocument(text)
	s.language = language.Detect(fileName, text)
	s.recompute()
}

// SetDocument replaces the document text, as a user edit does, and
// recomputes staleness. It returns the ids of threads that became stale.
// Code pasted into a nearly empty document re-detects the language.
func (s *Store) SetDocument(text string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if language.IsPaste(diff.JoinDocument(s.lines), text) {
		s.language = language.Detect(s.fileName, text)
	}
	s.lines = diff.SplitDocument(text)
	return s.recompute()
}

// Document returns the full document text.
func (s *Store) Document() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return diff.JoinDocument(s.lines)
}

// Lines returns a copy of the document lines.
func (s *Store) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

// Version returns a short id of the current document version.
func (s *Store) Version() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return DocumentVersion(s.fileName, diff.JoinDocument(s.lines))
}

// SetFileName renames the document and re-detects its language.
func (s *Store) SetFileName(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fileName = name
	s.language = language.Detect(name, diff.JoinDocument(s.lines))
	return s.language
}

func (s *Store) FileName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fileName
}

func (s *Store) Language() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language
}

// AutoDetect re-detects the language with content evidence first and renames
// the file's extension to match. It returns the new language and file name.
func (s *Store) AutoDetect() (lang, fileName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.language = language.AutoDetect(s.fileName, diff.JoinDocument(s.lines))
	s.fileName = language.WithExtension(s.fileName, s.language)
	return s.language, s.fileName
}

// SetLanguage overrides the detected language.
func (s *Store) SetLanguage(lang string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lang != "" {
		s.language = lang
	}
}

func (s *Store) SetSelection(sel Selection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = sel
}

func (s *Store) Selection() Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection
}

// CreateThread anchors a new thread to the whole lines of sel and makes it
// the current thread. An empty lang falls back to the document language.
func (s *Store) CreateThread(sel Selection, lang string) (string, error) {
	if sel.Text == "" {
		return "", ErrEmptySelection
	}
	start, end := sel.StartLine, sel.EndLine
	if end < start {
		start, end = end, start
	}
	if start < 1 {
		return "", ErrInvalidRange
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	text := sel.Text
	if end <= len(s.lines) {
		text = diff.Extract(s.lines, start, end)
	}
	if lang == "" {
		lang = s.language
	}

	snapshot := diff.JoinDocument(s.lines)
	t := &Thread{
		ID:           uuid.NewString(),
		StartLine:    start,
		EndLine:      end,
		SelectedText: text,
		Language:     lang,
		Snapshot:     snapshot,
		SnapshotHash: HashContent(snapshot),
		Status:       StatusActive,
		CreatedAt:    s.now(),
		Request:      Request{State: RequestIdle},
	}
	t.IsStale = diff.Extract(s.lines, t.StartLine, t.EndLine) != t.SelectedText

	s.threads = append(s.threads, t)
	s.current = t.ID
	return t.ID, nil
}

// RecomputeStaleness re-derives every live thread's stale flag from the
// current document. It returns the ids of threads that became stale.
func (s *Store) RecomputeStaleness() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recompute()
}

func (s *Store) recompute() []string {
	var newly []string
	for _, t := range s.threads {
		if !t.Live() {
			continue
		}
		stale := diff.Extract(s.lines, t.StartLine, t.EndLine) != t.SelectedText
		if stale && !t.IsStale {
			newly = append(newly, t.ID)
		}
		t.IsStale = stale
	}
	return newly
}

func (s *Store) find(id string) *Thread {
	for _, t := range s.threads {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// Resolve marks a thread resolved. Unknown ids are ignored.
func (s *Store) Resolve(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.find(id)
	if t == nil || t.Status != StatusActive {
		return false
	}
	t.Status = StatusResolved
	return true
}

// Archive takes a thread out of the live set. It stays viewable and
// exportable. Unknown ids are ignored.
func (s *Store) Archive(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.find(id)
	if t == nil || t.Status == StatusArchived {
		return false
	}
	t.Status = StatusArchived
	return true
}

// SwitchActive points the current-thread pointer at any known id,
// archived ones included.
func (s *Store) SwitchActive(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.find(id) == nil {
		return false
	}
	s.current = id
	return true
}

// Active returns a copy of the current thread.
func (s *Store) Active() (Thread, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.find(s.current)
	if t == nil {
		return Thread{}, false
	}
	return t.clone(), true
}

// CurrentID returns the current-thread pointer, "" when unset.
func (s *Store) CurrentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Thread returns a copy of the thread with the given id.
func (s *Store) Thread(id string) (Thread, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.find(id)
	if t == nil {
		return Thread{}, false
	}
	return t.clone(), true
}

// Threads returns copies of the live threads in creation order.
func (s *Store) Threads() []Thread {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Thread, 0, len(s.threads))
	for _, t := range s.threads {
		if t.Live() {
			out = append(out, t.clone())
		}
	}
	return out
}

// AllThreads returns copies of every thread, archived included.
func (s *Store) AllThreads() []Thread {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Thread, 0, len(s.threads))
	for _, t := range s.threads {
		out = append(out, t.clone())
	}
	return out
}

// Decorations returns the ranges the editor should mark, one per live thread.
func (s *Store) Decorations() []Decoration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Decoration
	for _, t := range s.threads {
		if !t.Live() {
			continue
		}
		kind := t.Status
		if t.IsStale {
			kind = "stale"
		}
		out = append(out, Decoration{
			ThreadID:  t.ID,
			StartLine: t.StartLine,
			EndLine:   t.EndLine,
			Kind:      kind,
			Current:   t.ID == s.current,
		})
	}
	return out
}

// Locate reports where the thread's anchored text occurs in the current
// document. It never moves the thread.
func (s *Store) Locate(id string) ([]diff.Match, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.find(id)
	if t == nil {
		return nil, false
	}
	return diff.Locate(s.lines, t.SelectedText), true
}

// Apply replaces the thread's current range with the message's cleaned
// suggestion. Missing threads, missing messages and messages without a
// suggestion are no-ops.
func (s *Store) Apply(threadID, messageID string) (Applied, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.find(threadID)
	if t == nil {
		return Applied{}, false
	}
	m, ok := t.Message(messageID)
	if !ok || !m.HasSuggestion() {
		return Applied{}, false
	}

	code := prompt.CleanSuggested(m.SuggestedCode)
	before := len(s.lines)
	lines, newStart, newEnd := diff.ReplaceRange(s.lines, t.StartLine, t.EndLine, code)

	res := Applied{
		ThreadID:   t.ID,
		MessageID:  m.ID,
		StartLine:  newStart,
		OldEndLine: t.EndLine,
		EndLine:    newEnd,
		LineDelta:  len(lines) - before,
	}

	s.lines = lines
	t.SelectedText = code
	t.StartLine = newStart
	t.EndLine = newEnd
	t.IsStale = false

	res.NewlyStale = s.recompute()
	res.DocumentHash = HashContent(diff.JoinDocument(s.lines))
	return res, true
}
