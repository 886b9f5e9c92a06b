package script

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"

	"github.com/dshills/keyforge/internal/input/key"
	"github.com/dshills/keyforge/internal/input/keymap"
)

// Header is the comment written at the top of generated scripts.
const Header = "// Generated by keyforge. Comments and formatting are not preserved."

const indentUnit = "    "

// Generate renders c as script text. The output is byte-identical for
// equal configurations.
func Generate(c *keymap.Configuration) string {
	out, _ := GenerateWithDiagnostics(c)
	return out
}

// GenerateWithDiagnostics renders c and reports layer switches that target
// layers missing from c. Line numbers refer to the generated text.
func GenerateWithDiagnostics(c *keymap.Configuration) (string, Diagnostics) {
	g := &generator{cfg: c, line: 1}
	g.configuration()
	return g.b.String(), g.diags
}

type generator struct {
	cfg   *keymap.Configuration
	b     strings.Builder
	line  int
	depth int
	diags Diagnostics
}

func (g *generator) writeln(s string) {
	if s != "" {
		g.b.WriteString(strings.Repeat(indentUnit, g.depth))
		g.b.WriteString(s)
	}
	g.b.WriteByte('\n')
	g.line++
}

// call writes name(args...); with each argument already rendered.
func (g *generator) call(name string, args ...string) {
	g.writeln(callText(name, args...) + ";")
}

func callText(name string, args ...string) string {
	return name + "(" + strings.Join(args, ", ") + ")"
}

// Quote renders s as a script string literal.
func Quote(s string) string {
	return string(hclwrite.TokensForValue(cty.StringVal(s)).Bytes())
}

func num(n uint64) string {
	return string(hclwrite.TokensForValue(cty.NumberUIntVal(n)).Bytes())
}

func keyStr(k key.ID) string {
	return Quote(string(k))
}

func (g *generator) configuration() {
	g.writeln(Header)

	if mods := g.cfg.SortedModifiers(); len(mods) > 0 {
		g.writeln("")
		for _, d := range mods {
			g.call("define_modifier", Quote(d.ID), Quote(d.Label), keyStr(d.Source))
		}
	}
	if locks := g.cfg.SortedLocks(); len(locks) > 0 {
		g.writeln("")
		for _, d := range locks {
			g.call("define_lock", Quote(d.ID), Quote(d.Label), keyStr(d.Source))
		}
	}

	for _, l := range g.cfg.Layers {
		g.writeln("")
		g.layer(l)
	}
}

func (g *generator) layer(l *keymap.Layer) {
	g.call("layer_start", Quote(l.Name))
	g.depth++

	scoped := make(map[string][]key.ID)
	for _, k := range l.Keys() {
		if dev, ok := l.Devices[k]; ok && dev != "" {
			scoped[dev] = append(scoped[dev], k)
			continue
		}
		g.mapping(k, l.Mappings[k])
	}

	devices := make([]string, 0, len(scoped))
	for dev := range scoped {
		devices = append(devices, dev)
	}
	sort.Strings(devices)
	for _, dev := range devices {
		g.call("device_start", Quote(dev))
		g.depth++
		for _, k := range scoped[dev] {
			g.mapping(k, l.Mappings[k])
		}
		g.depth--
		g.call("device_end")
	}

	g.depth--
	g.call("layer_end")
}

func (g *generator) mapping(k key.ID, m keymap.Mapping) {
	switch v := m.(type) {
	case keymap.Simple:
		g.checkDefinition(k, v.Tap)
		g.call("map", keyStr(k), keyStr(v.Tap))
	case keymap.TapHold:
		g.checkDefinition(k, v.Hold)
		g.call("tap_hold", keyStr(k), keyStr(v.Tap), keyStr(v.Hold), num(uint64(v.ThresholdMS)))
	case keymap.LayerSwitch:
		name := string(v.Target)
		if target := g.cfg.LayerByID(v.Target); target != nil {
			name = target.Name
		} else {
			g.diags = append(g.diags, Diagnostic{
				Kind:     DanglingLayerReference,
				Severity: SeverityWarning,
				Line:     g.line,
				Column:   len(g.indent()) + 1,
				Message:  fmt.Sprintf("%s switches to layer %q, which does not exist", k, v.Target),
			})
		}
		g.call("map", keyStr(k), callText("layer_switch", Quote(name)))
	case keymap.Macro:
		if target, ok := chordText(v); ok {
			g.call("map", keyStr(k), target)
			return
		}
		g.macro(k, v)
	}
}

// checkDefinition warns when target is a modifier or lock id that nothing
// defines.
func (g *generator) checkDefinition(k, target key.ID) {
	id := string(target)
	if !keymap.IsDefinitionID(id) || g.cfg.Defined(id) {
		return
	}
	g.diags = append(g.diags, Diagnostic{
		Kind:     DanglingLayerReference,
		Severity: SeverityWarning,
		Line:     g.line,
		Column:   len(g.indent()) + 1,
		Message:  fmt.Sprintf("%s targets %s, which is not a defined modifier, lock or layer", k, id),
	})
}

func (g *generator) indent() string {
	return strings.Repeat(indentUnit, g.depth)
}

func (g *generator) macro(trigger key.ID, m keymap.Macro) {
	for _, line := range strings.Split(MacroBlock(trigger, "", m.Steps, nil), "\n") {
		g.writeln(line)
	}
}

// MacroBlock renders a macro_start ... macro_end block for steps. A
// non-empty name is written as the second macro_start argument. comment,
// when non-nil, may return a trailing comment for the step at index i.
// Delays come from millisecond-rounded absolute offsets, so rounding error
// never accumulates across steps.
func MacroBlock(trigger key.ID, name string, steps []keymap.MacroStep, comment func(i int) string) string {
	var b strings.Builder
	args := []string{keyStr(trigger)}
	if name != "" {
		args = append(args, Quote(name))
	}
	b.WriteString(callText("macro_start", args...) + ";\n")

	var lastMS uint64
	for i, s := range steps {
		ms := RoundMS(s.TimestampUS)
		if ms > lastMS {
			b.WriteString(indentUnit + callText("delay", num(ms-lastMS)) + ";\n")
			lastMS = ms
		}

		fn := "release"
		if s.Value == keymap.Press {
			fn = "press"
		}
		line := indentUnit + callText(fn, keyStr(s.Code)) + ";"
		if comment != nil {
			if c := comment(i); c != "" {
				line += " // " + CommentText(c)
			}
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("macro_end();")
	return b.String()
}

// CommentText makes s safe to write after "//" by turning control
// characters, line breaks included, into spaces.
func CommentText(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || r == '\u2028' || r == '\u2029' {
			return ' '
		}
		return r
	}, s)
}

// RoundMS converts a microsecond offset to the nearest millisecond.
func RoundMS(us uint64) uint64 {
	return (us + 500) / 1000
}

// chordText recognizes the shape produced by keymap.Chord and renders the
// nested with_* form.
func chordText(m keymap.Macro) (string, bool) {
	n := len(m.Steps)
	if n < 4 || n%2 != 0 {
		return "", false
	}
	for _, s := range m.Steps {
		if s.TimestampUS != 0 {
			return "", false
		}
	}

	mods := (n - 2) / 2
	code := m.Steps[mods].Code
	if m.Steps[mods].Value != keymap.Press || m.Steps[mods+1].Value != keymap.Release || m.Steps[mods+1].Code != code {
		return "", false
	}
	for i := 0; i < mods; i++ {
		press, release := m.Steps[i], m.Steps[n-1-i]
		if press.Value != keymap.Press || release.Value != keymap.Release || press.Code != release.Code {
			return "", false
		}
		if _, ok := wrapperFor(press.Code); !ok {
			return "", false
		}
	}

	text := keyStr(code)
	for i := mods - 1; i >= 0; i-- {
		fn, _ := wrapperFor(m.Steps[i].Code)
		text = callText(fn, text)
	}
	return text, true
}

func wrapperFor(mod key.ID) (string, bool) {
	for fn, id := range modifierFuncs {
		if id == mod {
			return fn, true
		}
	}
	return "", false
}
