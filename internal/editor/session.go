package editor

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/keyforge/internal/input/keymap"
	"github.com/dshills/keyforge/internal/logging"
	"github.com/dshills/keyforge/internal/script"
)

// DefaultDebounce is the quiet period after the last script edit before
// the script is parsed.
const DefaultDebounce = 500 * time.Millisecond

var (
	// ErrClosed is returned by operations on a closed session.
	ErrClosed = errors.New("editor session closed")

	// ErrNoScriptStore is returned by Import and Export when the session
	// has no script store.
	ErrNoScriptStore = errors.New("no script store configured")
)

// ScriptStore loads and saves script sources by name.
type ScriptStore interface {
	Load(name string) (string, error)
	Save(name, src string) error
}

// Source identifies what produced an Update.
type Source uint8

const (
	SourceScript Source = iota
	SourceEdit
	SourceImport
	SourceReset
)

func (s Source) String() string {
	switch s {
	case SourceScript:
		return "script"
	case SourceEdit:
		return "edit"
	case SourceImport:
		return "import"
	case SourceReset:
		return "reset"
	default:
		return fmt.Sprintf("Source(%d)", s)
	}
}

// Update is delivered to listeners after the model or script changes.
type Update struct {
	Source      Source
	Config      *keymap.Configuration
	Script      string
	Diagnostics script.Diagnostics
}

// Session keeps a configuration and its script text in sync. Script edits
// are parsed after a quiet period. Model edits regenerate the script
// immediately.
type Session struct {
	mu sync.Mutex

	cfg     *keymap.Configuration
	src     string
	pending string
	diags   script.Diagnostics
	closed  bool

	parser    *script.Parser
	debounce  *Debouncer
	scripts   ScriptStore
	logger    *zap.Logger
	listeners []func(Update)
}

// Option configures a Session.
type Option func(*sessionConfig)

type sessionConfig struct {
	debounce  time.Duration
	parser    *script.Parser
	scripts   ScriptStore
	logger    *zap.Logger
	listeners []func(Update)
}

// WithDebounce sets the quiet period for script edits.
func WithDebounce(d time.Duration) Option {
	return func(c *sessionConfig) {
		if d >= 0 {
			c.debounce = d
		}
	}
}

// WithParser sets the parser used for script text.
func WithParser(p *script.Parser) Option {
	return func(c *sessionConfig) {
		if p != nil {
			c.parser = p
		}
	}
}

// WithScriptStore sets the store used by Import and Export.
func WithScriptStore(s ScriptStore) Option {
	return func(c *sessionConfig) {
		c.scripts = s
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *sessionConfig) {
		c.logger = l
	}
}

// OnUpdate registers a listener. Listeners run without the session lock
// held, so they may call back into the session.
func OnUpdate(fn func(Update)) Option {
	return func(c *sessionConfig) {
		if fn != nil {
			c.listeners = append(c.listeners, fn)
		}
	}
}

// NewSession creates a session holding an empty configuration.
func NewSession(opts ...Option) *Session {
	cfg := sessionConfig{
		debounce: DefaultDebounce,
		parser:   script.NewParser(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Session{
		cfg:       keymap.Empty(),
		parser:    cfg.parser,
		scripts:   cfg.scripts,
		logger:    logging.OrNop(cfg.logger).Named("editor"),
		listeners: cfg.listeners,
	}
	s.src = script.Generate(s.cfg)
	s.debounce = NewDebouncer(cfg.debounce, s.applyPending)
	return s
}

// Config returns a copy of the current configuration.
func (s *Session) Config() *keymap.Configuration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Clone()
}

// Script returns the script text the current configuration came from, or
// was generated as.
func (s *Session) Script() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src
}

// Diagnostics returns the diagnostics of the last parse or generation.
func (s *Session) Diagnostics() script.Diagnostics {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(script.Diagnostics, len(s.diags))
	copy(out, s.diags)
	return out
}

// Pending reports whether a script edit is waiting to be parsed.
func (s *Session) Pending() bool {
	return s.debounce.Pending()
}

// SetScript records new script text. The text is parsed once no further
// SetScript call arrives within the debounce period.
func (s *Session) SetScript(src string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.pending = src
	s.mu.Unlock()

	s.debounce.Trigger()
	return nil
}

// Flush parses pending script text immediately. It reports whether there
// was pending text.
func (s *Session) Flush() bool {
	return s.debounce.Flush()
}

func (s *Session) applyPending() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	src := s.pending
	cfg, diags := s.parser.Parse(src)
	s.cfg, s.src, s.diags = cfg, src, diags
	u := s.updateLocked(SourceScript)
	s.mu.Unlock()

	s.logger.Debug("script parsed",
		zap.Int("layers", len(cfg.Layers)),
		zap.Int("errors", len(diags.Errors())),
		zap.Int("warnings", len(diags.Warnings())))
	s.notify(u)
}

// Edit applies fn to a copy of the configuration. When fn succeeds the
// copy replaces the model and the script is regenerated. Pending script
// text is parsed first so fn sees it.
func (s *Session) Edit(fn func(c *keymap.Configuration) error) error {
	s.debounce.Flush()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	next := s.cfg.Clone()
	if err := fn(next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.cfg = next
	s.src, s.diags = script.GenerateWithDiagnostics(next)
	u := s.updateLocked(SourceEdit)
	s.mu.Unlock()

	s.notify(u)
	return nil
}

// Reset drops pending text and replaces the model with an empty
// configuration.
func (s *Session) Reset() error {
	s.debounce.Cancel()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	u := s.resetLocked(SourceReset)
	s.mu.Unlock()

	s.notify(u)
	return nil
}

func (s *Session) resetLocked(src Source) Update {
	s.cfg = keymap.Empty()
	s.src = script.Generate(s.cfg)
	s.pending = ""
	s.diags = nil
	return s.updateLocked(src)
}

// Import loads the named script from the store and parses it at once.
// When the script cannot be loaded the session is reset to an empty
// configuration and the load error is returned.
func (s *Session) Import(name string) error {
	if s.scripts == nil {
		return ErrNoScriptStore
	}
	s.debounce.Cancel()

	src, loadErr := s.scripts.Load(name)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	var u Update
	if loadErr != nil {
		u = s.resetLocked(SourceImport)
	} else {
		cfg, diags := s.parser.Parse(src)
		s.cfg, s.src, s.pending, s.diags = cfg, src, src, diags
		u = s.updateLocked(SourceImport)
	}
	s.mu.Unlock()

	s.notify(u)
	if loadErr != nil {
		s.logger.Warn("import failed", zap.String("script", name), zap.Error(loadErr))
		return fmt.Errorf("import %q: %w", name, loadErr)
	}
	s.logger.Info("script imported", zap.String("script", name))
	return nil
}

// Export saves the current script text under name. Pending text is
// parsed first.
func (s *Session) Export(name string) error {
	if s.scripts == nil {
		return ErrNoScriptStore
	}
	s.debounce.Flush()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	src := s.src
	s.mu.Unlock()

	if err := s.scripts.Save(name, src); err != nil {
		return fmt.Errorf("export %q: %w", name, err)
	}
	return nil
}

// Close stops the debounce timer. Pending text is discarded and no parse
// runs after Close returns.
func (s *Session) Close() {
	s.debounce.Close()

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *Session) updateLocked(src Source) Update {
	diags := make(script.Diagnostics, len(s.diags))
	copy(diags, s.diags)
	return Update{
		Source:      src,
		Config:      s.cfg.Clone(),
		Script:      s.src,
		Diagnostics: diags,
	}
}

func (s *Session) notify(u Update) {
	for _, fn := range s.listeners {
		fn(u)
	}
}
