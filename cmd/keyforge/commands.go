package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"github.com/dshills/keyforge/internal/capture"
	"github.com/dshills/keyforge/internal/editor"
	"github.com/dshills/keyforge/internal/input/key"
	"github.com/dshills/keyforge/internal/input/keysearch"
	"github.com/dshills/keyforge/internal/input/macro"
	"github.com/dshills/keyforge/internal/script"
)

// errDiagnostics is returned when a script has errors. The diagnostics
// have already been printed.
var errDiagnostics = errors.New("script has errors")

// newScreen opens the terminal used by record.
var newScreen = func() (tcell.Screen, error) {
	return tcell.NewScreen()
}

func readScript(a *app, path string) (string, script.Diagnostics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, err
	}
	cfg, diags := a.parser(path).Parse(string(data))
	return script.Generate(cfg), diags, nil
}

func printDiagnostics(a *app, path string, diags script.Diagnostics) {
	for _, d := range diags {
		fmt.Fprintf(a.stderr, "%s:%s\n", path, d)
	}
}

func runFmt(a *app, args []string) error {
	fs := newFlagSet(a, "fmt")
	if err := parseFlags(fs, args, 1); err != nil {
		return err
	}
	path := fs.Arg(0)

	out, diags, err := readScript(a, path)
	if err != nil {
		return err
	}
	printDiagnostics(a, path, diags)
	fmt.Fprint(a.stdout, out)
	return nil
}

func runCheck(a *app, args []string) error {
	fs := newFlagSet(a, "check")
	if err := parseFlags(fs, args, 1); err != nil {
		return err
	}
	path := fs.Arg(0)

	_, diags, err := readScript(a, path)
	if err != nil {
		return err
	}
	printDiagnostics(a, path, diags)
	if diags.HasErrors() {
		return errDiagnostics
	}
	fmt.Fprintf(a.stdout, "%s: ok (%d warnings)\n", path, len(diags.Warnings()))
	return nil
}

func runEncode(a *app, args []string) error {
	fs := newFlagSet(a, "encode")
	trigger := fs.String("trigger", "", "Trigger key (defaults to the recording's trigger)")
	name := fs.String("name", "", "Macro display name")
	comments := fs.Bool("comments", a.settings.Macro.Comments, "Annotate steps")
	device := fs.String("device", "", "Scope the macro to a device pattern")
	if err := parseFlags(fs, args, 1); err != nil {
		return err
	}

	tpl, err := macro.LoadTemplateFile(fs.Arg(0), a.layout.Normalizer)
	if err != nil {
		return err
	}
	trig := tpl.Trigger
	if *trigger != "" {
		trig = a.layout.Normalizer.Normalize(*trigger)
	}
	if trig == "" {
		return errors.New("no trigger key: pass -trigger")
	}
	label := *name
	if label == "" {
		label = tpl.Name
	}

	fmt.Fprint(a.stdout, macro.Encode(tpl.Events, trig, macro.EncodeOptions{
		Name:            label,
		IncludeComments: *comments,
		Device:          *device,
	}))
	return nil
}

func runText(a *app, args []string) error {
	fs := newFlagSet(a, "text")
	trigger := fs.String("trigger", "", "Trigger key")
	name := fs.String("name", "", "Macro display name (defaults to the text)")
	comments := fs.Bool("comments", a.settings.Macro.Comments, "Annotate steps")
	if err := parseFlags(fs, args, -1); err != nil {
		return err
	}
	if *trigger == "" || fs.NArg() == 0 {
		fs.Usage()
		return errUsage
	}
	text := strings.Join(fs.Args(), " ")

	events, stats := a.textConverter().Convert(text)
	label := *name
	if label == "" {
		label = text
	}
	fmt.Fprint(a.stdout, macro.Encode(events, a.layout.Normalizer.Normalize(*trigger), macro.EncodeOptions{
		Name:            label,
		IncludeComments: *comments,
	}))
	fmt.Fprintf(a.stderr, "%d characters, %d unsupported, %d steps, ~%d ms\n",
		stats.Characters, stats.UnsupportedCharacters, stats.Steps, stats.EstimatedDurationMS)
	return nil
}

func runRecord(a *app, args []string) error {
	fs := newFlagSet(a, "record")
	trigger := fs.String("trigger", "", "Trigger key")
	name := fs.String("name", "", "Recording name")
	out := fs.String("o", "", "Output file (defaults to the recordings directory)")
	if err := parseFlags(fs, args, 0); err != nil {
		return err
	}
	if *trigger == "" {
		fs.Usage()
		return errUsage
	}
	trig := a.layout.Normalizer.Normalize(*trigger)

	screen, err := newScreen()
	if err != nil {
		return fmt.Errorf("failed to create terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize terminal: %w", err)
	}

	rec := macro.NewRecorder(macro.WithRecorderNormalizer(a.layout.Normalizer))
	c := capture.New(screen, rec, capture.WithCharMap(a.layout.Chars), capture.WithLogger(a.logger))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	_, err = c.Run(ctx)
	screen.Fini()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	doc, err := rec.Document(*name, trig)
	if err != nil {
		return err
	}
	path := *out
	if path == "" {
		dir, err := a.recordingsDir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, rec.Session()+".json")
	}
	if err := doc.Save(path); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%s: %d events, %d ms\n", path, doc.Stats.Steps, doc.Stats.EstimatedDurationMS)
	return nil
}

func runWatch(a *app, args []string) error {
	fs := newFlagSet(a, "watch")
	debounce := fs.Duration("debounce", a.settings.Editor.Debounce(), "Quiet period before re-parsing")
	if err := parseFlags(fs, args, 1); err != nil {
		return err
	}
	path := fs.Arg(0)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return watch(ctx, a, path, *debounce)
}

func watch(ctx context.Context, a *app, path string, debounce time.Duration) error {
	s := editor.NewSession(
		editor.WithDebounce(debounce),
		editor.WithParser(a.parser(path)),
		editor.WithLogger(a.logger),
		editor.OnUpdate(func(u editor.Update) {
			a.logger.Info("script parsed",
				zap.String("path", path),
				zap.Int("layers", len(u.Config.Layers)),
				zap.Int("errors", len(u.Diagnostics.Errors())),
				zap.Int("warnings", len(u.Diagnostics.Warnings())))
			printDiagnostics(a, path, u.Diagnostics)
		}),
	)
	defer s.Close()

	err := s.Watch(ctx, path)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runFavorite(a *app, args []string) error {
	fs := newFlagSet(a, "favorite")
	if err := parseFlags(fs, args, -1); err != nil {
		return err
	}

	kv, err := a.preferences()
	if err != nil {
		return err
	}
	prefs := editor.NewPreferences(kv)
	for _, arg := range fs.Args() {
		k := a.layout.Normalizer.Normalize(arg)
		if !key.Known(k) {
			a.logger.Warn("unknown key", zap.String("key", string(k)))
		}
		if _, err := prefs.ToggleFavorite(k); err != nil {
			return err
		}
		if err := prefs.Touch(k); err != nil {
			return err
		}
	}

	favs, err := prefs.Favorites()
	if err != nil {
		return err
	}
	for _, f := range favs {
		fmt.Fprintln(a.stdout, f)
	}
	return nil
}

func runKeys(a *app, args []string) error {
	fs := newFlagSet(a, "keys")
	limit := fs.Int("n", 10, "Maximum number of results (0 for all)")
	if err := parseFlags(fs, args, -1); err != nil {
		return err
	}

	favorite := make(map[key.ID]bool)
	if kv, err := a.preferences(); err == nil {
		favs, _ := editor.NewPreferences(kv).Favorites()
		for _, f := range favs {
			favorite[f] = true
		}
	} else {
		a.logger.Debug("preferences unavailable", zap.Error(err))
	}

	s := keysearch.New(a.layout.Normalizer)
	for _, m := range s.Search(strings.Join(fs.Args(), " "), *limit) {
		mark := " "
		if favorite[m.ID] {
			mark = "*"
		}
		line := fmt.Sprintf("%s %s", mark, m.ID)
		if m.Text != m.ID.Name() {
			line += fmt.Sprintf(" (%s)", m.Text)
		}
		switch {
		case m.ID.IsModifier():
			line += " [modifier]"
		case m.ID.IsNumpad():
			line += " [numpad]"
		}
		fmt.Fprintln(a.stdout, line)
	}
	return nil
}
