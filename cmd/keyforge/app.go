package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/dshills/keyforge/internal/config"
	"github.com/dshills/keyforge/internal/input/macro"
	"github.com/dshills/keyforge/internal/layout"
	"github.com/dshills/keyforge/internal/logging"
	"github.com/dshills/keyforge/internal/script"
	"github.com/dshills/keyforge/internal/store"
)

// app holds what every command needs.
type app struct {
	settings *config.Settings
	dir      string
	logger   *zap.Logger
	layout   *layout.Layout
	stdout   io.Writer
	stderr   io.Writer
}

func newApp(opts globalOptions, stdout, stderr io.Writer, environ []string) (*app, error) {
	copts := []config.Option{
		config.WithFiles(splitList(opts.configFiles)...),
		config.WithEnviron(environ),
	}
	dir := opts.configDir
	if dir == "" {
		dir = config.DefaultDir()
	}
	copts = append(copts, config.WithDir(dir))
	settings, err := config.Load(copts...)
	if err != nil {
		return nil, err
	}

	if opts.logLevel != "" {
		settings.Logging.Level = opts.logLevel
	}
	if opts.logFormat != "" {
		settings.Logging.Format = opts.logFormat
	}
	settings.Layout.Files = append(settings.Layout.Files, splitList(opts.layouts)...)
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Config{
		Level:  settings.Logging.Level,
		Format: settings.Logging.Format,
		Output: stderr,
	})
	if err != nil {
		return nil, err
	}
	logger.Debug("settings loaded", zap.Strings("sources", settings.Sources))

	a := &app{settings: settings, dir: dir, logger: logger, stdout: stdout, stderr: stderr}
	if a.layout, err = a.loadLayout(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) close() {
	_ = a.logger.Sync()
}

// loadLayout resolves the configured overlays. An entry is used as a path
// when the file exists and is looked up by name in the layout directories
// otherwise.
func (a *app) loadLayout() (*layout.Layout, error) {
	files := a.settings.Layout.Files
	if len(files) == 0 {
		return layout.Default(), nil
	}

	dirs := append([]string(nil), a.settings.Layout.Dirs...)
	dirs = append(dirs, filepath.Join(a.dir, "layouts"))
	if dir, err := layout.DefaultDir(); err == nil {
		dirs = append(dirs, dir)
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		if info, err := os.Stat(f); err == nil && !info.IsDir() {
			paths = append(paths, f)
			continue
		}
		p, err := layout.Find(f, dirs)
		if err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}

	l, err := layout.LoadAll(paths)
	if err != nil {
		return nil, fmt.Errorf("failed to load layouts: %w", err)
	}
	a.logger.Debug("layout loaded", zap.Strings("names", l.Names))
	return l, nil
}

func (a *app) parser(filename string) *script.Parser {
	return script.NewParser(
		script.WithNormalizer(a.layout.Normalizer),
		script.WithDefaultThreshold(a.settings.Parser.DefaultThresholdMS),
		script.WithFilename(filename),
	)
}

func (a *app) textConverter() *macro.TextConverter {
	return macro.NewTextConverter(
		macro.WithCharMap(a.layout.Chars),
		macro.WithTextNormalizer(a.layout.Normalizer),
		macro.WithKeystrokeDelay(uint64(a.settings.Macro.KeystrokeDelayMS)*1000),
	)
}

func (a *app) recordingsDir() (string, error) {
	if dir := a.settings.Macro.RecordingsDir; dir != "" {
		return dir, nil
	}
	return macro.DefaultRecordingsDir()
}

func (a *app) preferences() (*store.FileStore, error) {
	path := a.settings.Store.Preferences
	if path == "" {
		path = filepath.Join(a.dir, "preferences.json")
	}
	return store.OpenFile(path)
}
