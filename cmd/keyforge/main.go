// Package main is the entry point for the keyforge command.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// errUsage reports a command line that could not be understood. The
// message has already been printed.
var errUsage = errors.New("usage")

type command struct {
	name    string
	args    string
	summary string
	run     func(a *app, args []string) error
}

// commands is filled in init because the command functions print usage
// from it.
var commands []command

func init() {
	commands = []command{
		{"fmt", "FILE", "Print the canonical form of a script", runFmt},
		{"check", "FILE", "Report script diagnostics", runCheck},
		{"encode", "[-trigger KEY] [-name N] [-comments] [-device P] FILE.json", "Convert a recording to a macro script", runEncode},
		{"text", "-trigger KEY [-comments] TEXT", "Convert literal text to a macro script", runText},
		{"record", "-trigger KEY [-name N] [-o FILE]", "Record terminal keystrokes until Ctrl+D", runRecord},
		{"watch", "FILE", "Re-parse a script whenever it changes", runWatch},
		{"keys", "[-n N] [QUERY]", "Search key names and aliases", runKeys},
		{"favorite", "[KEY...]", "Toggle and list favorite keys", runFavorite},
	}
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, os.Environ()))
}

// globalOptions are accepted before the command name.
type globalOptions struct {
	configFiles string
	configDir   string
	logLevel    string
	logFormat   string
	layouts     string
}

func run(args []string, stdout, stderr io.Writer, environ []string) int {
	fs := flag.NewFlagSet("keyforge", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts globalOptions
	var showVersion bool
	fs.StringVar(&opts.configFiles, "config", "", "Comma-separated settings files")
	fs.StringVar(&opts.configFiles, "c", "", "Comma-separated settings files (shorthand)")
	fs.StringVar(&opts.configDir, "config-dir", "", "Settings directory")
	fs.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&opts.logFormat, "log-format", "", "Log format (console, json)")
	fs.StringVar(&opts.layouts, "layout", "", "Comma-separated layout overlays")
	fs.BoolVar(&showVersion, "version", false, "Show version information")
	fs.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	fs.Usage = func() { usage(fs, stderr) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if showVersion {
		fmt.Fprintf(stdout, "keyforge %s\n", version)
		fmt.Fprintf(stdout, "Commit: %s\n", commit)
		fmt.Fprintf(stdout, "Built: %s\n", date)
		return 0
	}

	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	name := fs.Arg(0)
	var cmd *command
	for i := range commands {
		if commands[i].name == name {
			cmd = &commands[i]
			break
		}
	}
	if cmd == nil {
		fmt.Fprintf(stderr, "Error: unknown command %q\n\n", name)
		fs.Usage()
		return 2
	}

	a, err := newApp(opts, stdout, stderr, environ)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer a.close()

	if err := cmd.run(a, fs.Args()[1:]); err != nil {
		switch {
		case errors.Is(err, errUsage):
			return 2
		case errors.Is(err, errDiagnostics):
			return 1
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func usage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintf(w, "keyforge - keyboard remap script tool\n\n")
	fmt.Fprintf(w, "Usage: keyforge [options] COMMAND [arguments]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-9s %s\n", c.name, c.summary)
	}
	fmt.Fprintf(w, "\nOptions:\n")
	fs.PrintDefaults()
	fmt.Fprintf(w, "\nExamples:\n")
	fmt.Fprintf(w, "  keyforge check layout.kf\n")
	fmt.Fprintf(w, "  keyforge text -trigger F13 \"Hello\"\n")
	fmt.Fprintf(w, "  keyforge -layout de record -trigger F14 -o hello.json\n")
}

// newFlagSet creates the flag set of a command.
func newFlagSet(a *app, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	fs.Usage = func() {
		for _, c := range commands {
			if c.name == name {
				fmt.Fprintf(a.stderr, "Usage: keyforge %s %s\n", c.name, c.args)
			}
		}
		fs.PrintDefaults()
	}
	return fs
}

// parseFlags parses a command's flags and checks the argument count.
func parseFlags(fs *flag.FlagSet, args []string, nargs int) error {
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if nargs >= 0 && fs.NArg() != nargs {
		fmt.Fprintf(fs.Output(), "Error: %s takes %d argument(s), got %d\n", fs.Name(), nargs, fs.NArg())
		fs.Usage()
		return errUsage
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
