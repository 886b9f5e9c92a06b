package editor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/dshills/keyforge/internal/input/key"
	"github.com/dshills/keyforge/internal/input/keymap"
	"github.com/dshills/keyforge/internal/script"
	"github.com/dshills/keyforge/internal/store"
)

// collector records updates delivered to a listener.
type collector struct {
	mu      sync.Mutex
	updates []Update
	ch      chan Update
}

func newCollector() *collector {
	return &collector{ch: make(chan Update, 16)}
}

func (c *collector) listen(u Update) {
	c.mu.Lock()
	c.updates = append(c.updates, u)
	c.mu.Unlock()
	c.ch <- u
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.updates)
}

func (c *collector) wait(t *testing.T) Update {
	t.Helper()
	select {
	case u := <-c.ch:
		return u
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for update")
		return Update{}
	}
}

func mappingOf(t *testing.T, c *keymap.Configuration, k string) keymap.Mapping {
	t.Helper()
	m, ok := c.MappingFor(keymap.BaseLayerID, key.ID(k))
	if !ok {
		t.Fatalf("no mapping for %s", k)
	}
	return m
}

func TestSessionSetScriptDebounced(t *testing.T) {
	col := newCollector()
	s := NewSession(WithDebounce(30*time.Millisecond), OnUpdate(col.listen))
	defer s.Close()

	s.SetScript(`map("VK_A", "VK_B");`)
	s.SetScript(`map("VK_A", "VK_C");`)
	s.SetScript(`map("VK_A", "VK_D");`)

	u := col.wait(t)
	if u.Source != SourceScript {
		t.Errorf("Source = %v, want script", u.Source)
	}
	if diff := cmp.Diff(keymap.Mapping(keymap.Simple{Tap: "VK_D"}), mappingOf(t, u.Config, "VK_A")); diff != "" {
		t.Errorf("mapping mismatch (-want +got):\n%s", diff)
	}

	time.Sleep(100 * time.Millisecond)
	if n := col.count(); n != 1 {
		t.Errorf("got %d updates, want 1", n)
	}
	if s.Script() != `map("VK_A", "VK_D");` {
		t.Errorf("Script() = %q", s.Script())
	}
}

func TestSessionFlush(t *testing.T) {
	s := NewSession(WithDebounce(time.Hour))
	defer s.Close()

	s.SetScript(`map("Ctrl", "CapsLock"); oops("VK_A");`)
	if !s.Pending() {
		t.Error("Pending() = false after SetScript")
	}
	if _, ok := s.Config().MappingFor(keymap.BaseLayerID, "VK_LCtrl"); ok {
		t.Error("script applied before the quiet period")
	}

	if !s.Flush() {
		t.Fatal("Flush() = false with pending text")
	}
	if got := mappingOf(t, s.Config(), "VK_LCtrl"); got != (keymap.Simple{Tap: "VK_CapsLock"}) {
		t.Errorf("mapping = %v", got)
	}

	diags := s.Diagnostics()
	if len(diags.OfKind(script.UnknownFunction)) != 1 {
		t.Errorf("Diagnostics() = %v, want one UnknownFunction", diags)
	}
}

func TestSessionEdit(t *testing.T) {
	col := newCollector()
	s := NewSession(WithDebounce(time.Hour), OnUpdate(col.listen))
	defer s.Close()

	s.SetScript(`map("VK_A", "VK_B");`)

	err := s.Edit(func(c *keymap.Configuration) error {
		_, err := c.SetMapping(keymap.BaseLayerID, "VK_C", keymap.Simple{Tap: "VK_D"}, "")
		return err
	})
	if err != nil {
		t.Fatalf("Edit() error = %v", err)
	}

	if u := col.wait(t); u.Source != SourceScript {
		t.Errorf("first update Source = %v, want script (flushed)", u.Source)
	}
	u := col.wait(t)
	if u.Source != SourceEdit {
		t.Errorf("second update Source = %v, want edit", u.Source)
	}

	src := s.Script()
	for _, want := range []string{`map("VK_A", "VK_B");`, `map("VK_C", "VK_D");`, script.Header} {
		if !strings.Contains(src, want) {
			t.Errorf("Script() missing %q:\n%s", want, src)
		}
	}
	if u.Script != src {
		t.Error("update script differs from Script()")
	}

	boom := errors.New("boom")
	err = s.Edit(func(c *keymap.Configuration) error {
		c.SetMapping(keymap.BaseLayerID, "VK_E", keymap.Simple{Tap: "VK_F"}, "")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("Edit() error = %v, want boom", err)
	}
	if _, ok := s.Config().MappingFor(keymap.BaseLayerID, "VK_E"); ok {
		t.Error("failed Edit must not change the model")
	}
}

func TestSessionConfigIsCopy(t *testing.T) {
	s := NewSession(WithDebounce(time.Hour))
	defer s.Close()

	c := s.Config()
	c.SetMapping(keymap.BaseLayerID, "VK_A", keymap.Simple{Tap: "VK_B"}, "")
	if _, ok := s.Config().MappingFor(keymap.BaseLayerID, "VK_A"); ok {
		t.Error("Config() exposes the session model")
	}
}

func TestSessionReset(t *testing.T) {
	col := newCollector()
	s := NewSession(WithDebounce(time.Hour), OnUpdate(col.listen))
	defer s.Close()

	s.SetScript(`map("VK_A", "VK_B");`)
	s.Flush()
	col.wait(t)

	s.SetScript(`map("VK_X", "VK_Y");`)
	if err := s.Reset(); err != nil {
		t.Fatal(err)
	}
	if s.Pending() {
		t.Error("Reset() should drop pending text")
	}
	if u := col.wait(t); u.Source != SourceReset {
		t.Errorf("Source = %v, want reset", u.Source)
	}
	if !s.Config().Equal(keymap.Empty()) {
		t.Error("Config() after Reset is not empty")
	}
	if s.Script() != script.Generate(keymap.Empty()) {
		t.Errorf("Script() after Reset = %q", s.Script())
	}
}

func TestSessionImportExport(t *testing.T) {
	scripts, err := store.NewScriptDir(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	scripts.Save("gaming", `map("VK_A", "VK_B");`)

	col := newCollector()
	s := NewSession(WithDebounce(time.Hour), WithScriptStore(scripts), OnUpdate(col.listen))
	defer s.Close()

	if err := s.Import("gaming"); err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if u := col.wait(t); u.Source != SourceImport {
		t.Errorf("Source = %v, want import", u.Source)
	}
	if got := mappingOf(t, s.Config(), "VK_A"); got != (keymap.Simple{Tap: "VK_B"}) {
		t.Errorf("imported mapping = %v", got)
	}

	s.Edit(func(c *keymap.Configuration) error {
		_, err := c.SetMapping(keymap.BaseLayerID, "VK_Q", keymap.Simple{Tap: "VK_W"}, "")
		return err
	})
	if err := s.Export("gaming-v2"); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	saved, err := scripts.Load("gaming-v2")
	if err != nil {
		t.Fatal(err)
	}
	if saved != s.Script() {
		t.Errorf("exported text differs from Script()")
	}

	err = s.Import("missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Import(missing) error = %v, want ErrNotFound", err)
	}
	if !s.Config().Equal(keymap.Empty()) {
		t.Error("failed Import should reset to an empty configuration")
	}
}

func TestSessionNoScriptStore(t *testing.T) {
	s := NewSession()
	defer s.Close()

	if err := s.Import("x"); !errors.Is(err, ErrNoScriptStore) {
		t.Errorf("Import() error = %v, want ErrNoScriptStore", err)
	}
	if err := s.Export("x"); !errors.Is(err, ErrNoScriptStore) {
		t.Errorf("Export() error = %v, want ErrNoScriptStore", err)
	}
}

func TestSessionClose(t *testing.T) {
	col := newCollector()
	s := NewSession(WithDebounce(20*time.Millisecond), OnUpdate(col.listen))

	s.SetScript(`map("VK_A", "VK_B");`)
	s.Close()
	time.Sleep(80 * time.Millisecond)

	if n := col.count(); n != 0 {
		t.Errorf("got %d updates after Close, want 0", n)
	}
	if err := s.SetScript("x"); !errors.Is(err, ErrClosed) {
		t.Errorf("SetScript() after Close error = %v, want ErrClosed", err)
	}
	if err := s.Edit(func(*keymap.Configuration) error { return nil }); !errors.Is(err, ErrClosed) {
		t.Errorf("Edit() after Close error = %v, want ErrClosed", err)
	}
	if err := s.Reset(); !errors.Is(err, ErrClosed) {
		t.Errorf("Reset() after Close error = %v, want ErrClosed", err)
	}
}

func TestSessionWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.kf")
	if err := os.WriteFile(path, []byte(`map("VK_A", "VK_B");`), 0o644); err != nil {
		t.Fatal(err)
	}

	col := newCollector()
	s := NewSession(WithDebounce(10*time.Millisecond), OnUpdate(col.listen))
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx, path) }()

	u := col.wait(t)
	if got := mappingOf(t, u.Config, "VK_A"); got != (keymap.Simple{Tap: "VK_B"}) {
		t.Errorf("initial mapping = %v", got)
	}

	if err := os.WriteFile(path, []byte(`map("VK_A", "VK_Z");`), 0o644); err != nil {
		t.Fatal(err)
	}
	deadline := time.After(2 * time.Second)
	for {
		var u Update
		select {
		case u = <-col.ch:
		case <-deadline:
			t.Fatal("timed out waiting for the rewritten script")
		}
		if m, ok := u.Config.MappingFor(keymap.BaseLayerID, "VK_A"); ok && m == (keymap.Simple{Tap: "VK_Z"}) {
			break
		}
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Watch() error = %v, want context.Canceled", err)
	}
}

func TestSessionWatchMissingFile(t *testing.T) {
	s := NewSession()
	defer s.Close()
	err := s.Watch(context.Background(), filepath.Join(t.TempDir(), "nope.kf"))
	if err == nil {
		t.Error("Watch() on a missing file should fail")
	}
}
