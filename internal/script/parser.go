package script

import (
	"fmt"
	"math"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/dshills/keyforge/internal/input/key"
	"github.com/dshills/keyforge/internal/input/keymap"
)

// Parser converts script source into a keymap configuration.
// A Parser holds no per-parse state and may be shared.
type Parser struct {
	normalizer       *key.Normalizer
	defaultThreshold uint32
	filename         string
}

// Option configures a Parser.
type Option func(*Parser)

// WithNormalizer sets the normalizer applied to every key literal.
func WithNormalizer(n *key.Normalizer) Option {
	return func(p *Parser) {
		if n != nil {
			p.normalizer = n
		}
	}
}

// WithDefaultThreshold sets the tap/hold threshold used when a script
// omits one or gives a non-positive value.
func WithDefaultThreshold(ms uint32) Option {
	return func(p *Parser) {
		if ms > 0 {
			p.defaultThreshold = ms
		}
	}
}

// WithFilename sets the file name recorded in positions.
func WithFilename(name string) Option {
	return func(p *Parser) {
		p.filename = name
	}
}

// NewParser creates a parser with the given options.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		normalizer:       key.Default(),
		defaultThreshold: keymap.DefaultThresholdMS,
		filename:         "script",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse parses src with a default parser.
func Parse(src string) (*keymap.Configuration, Diagnostics) {
	return NewParser().Parse(src)
}

// Parse converts src into a configuration. It always returns a usable
// configuration; problems are reported as diagnostics.
func (p *Parser) Parse(src string) (*keymap.Configuration, Diagnostics) {
	st := &parseState{Parser: p, cfg: keymap.Empty()}
	st.layer = st.cfg.Base()

	for _, s := range splitStatements(src) {
		st.statement(s)
	}
	st.finish()

	st.cfg.MarkClean()
	return st.cfg, st.diags
}

type handler func(st *parseState, call *hclsyntax.FunctionCallExpr)

// statements are the calls allowed at statement level. It is filled in
// init because the handlers refer back to it.
var statements map[string]handler

func init() {
	statements = map[string]handler{
		"define_modifier":   (*parseState).defineModifier,
		"define_lock":       (*parseState).defineLock,
		"layer_start":       (*parseState).layerStart,
		"layer_end":         (*parseState).layerEnd,
		"device_start":      (*parseState).deviceStart,
		"when_device_start": (*parseState).deviceStart,
		"device_end":        (*parseState).deviceEnd,
		"map":               (*parseState).mapKey,
		"tap_hold":          (*parseState).tapHoldStmt,
		"macro_start":       (*parseState).macroStart,
		"macro_end":         (*parseState).macroEnd,
	}
}

// stepFuncs are only valid inside a macro.
var stepFuncs = map[string]bool{
	"press":   true,
	"release": true,
	"delay":   true,
}

// modifierFuncs wrap an output key in a held modifier.
var modifierFuncs = map[string]key.ID{
	"with_shift": key.LShift,
	"with_ctrl":  key.LCtrl,
	"with_alt":   key.LAlt,
	"with_win":   key.LMeta,
}

type parseState struct {
	*Parser
	cfg   *keymap.Configuration
	diags Diagnostics

	layer      *keymap.Layer
	layerOpen  *hcl.Pos
	device     string
	deviceOpen *hcl.Pos
	macro      *macroBlock

	switches []switchRef
	defRefs  []switchRef
}

type macroBlock struct {
	trigger key.ID
	start   hcl.Pos
	steps   []keymap.MacroStep
	clockUS uint64
}

type switchRef struct {
	name string
	pos  hcl.Pos
}

func (st *parseState) report(kind Kind, sev Severity, pos hcl.Pos, format string, args ...any) {
	st.diags = append(st.diags, Diagnostic{
		Kind:     kind,
		Severity: sev,
		Line:     pos.Line,
		Column:   pos.Column,
		Message:  fmt.Sprintf(format, args...),
	})
}

func (st *parseState) errorf(kind Kind, pos hcl.Pos, format string, args ...any) {
	st.report(kind, SeverityError, pos, format, args...)
}

func (st *parseState) warnf(kind Kind, pos hcl.Pos, format string, args ...any) {
	st.report(kind, SeverityWarning, pos, format, args...)
}

// syntax collapses the diagnostics HCL produced for one statement into one.
func (st *parseState) syntax(s statement, hd hcl.Diagnostics) {
	for _, d := range hd {
		if d.Severity != hcl.DiagError {
			continue
		}
		pos := s.start
		if d.Subject != nil {
			pos = d.Subject.Start
		}
		msg := d.Summary
		if d.Detail != "" {
			msg += ": " + d.Detail
		}
		st.errorf(SyntaxError, pos, "%s", msg)
		return
	}
}

func (st *parseState) statement(s statement) {
	expr, hd := hclsyntax.ParseExpression([]byte(s.text), st.filename, s.start)
	if hd.HasErrors() {
		st.syntax(s, hd)
		return
	}

	call, ok := expr.(*hclsyntax.FunctionCallExpr)
	if !ok {
		st.errorf(SyntaxError, s.start, "expected a function call statement")
		return
	}
	if call.ExpandFinal {
		st.errorf(InvalidArgument, call.NameRange.Start, "%s: argument expansion is not supported", call.Name)
		return
	}

	if st.macro != nil {
		if stepFuncs[call.Name] {
			st.step(call, &st.macro.clockUS, &st.macro.steps)
			return
		}
		if call.Name != "macro_end" {
			if _, known := statements[call.Name]; known {
				st.errorf(SyntaxError, st.macro.start, "macro_start is not closed before %s", call.Name)
				st.commitMacro()
			}
		}
	}

	h, ok := statements[call.Name]
	switch {
	case ok:
		h(st, call)
	case stepFuncs[call.Name]:
		st.errorf(SyntaxError, call.NameRange.Start, "%s is only valid inside a macro block", call.Name)
	case isValueFunc(call.Name):
		st.errorf(SyntaxError, call.NameRange.Start, "%s must be used as the target of map", call.Name)
	default:
		st.errorf(UnknownFunction, call.NameRange.Start, "unknown function %q", call.Name)
	}
}

func isValueFunc(name string) bool {
	if _, ok := modifierFuncs[name]; ok {
		return true
	}
	return name == "layer_switch" || name == "macro"
}

func (st *parseState) arity(call *hclsyntax.FunctionCallExpr, lo, hi int) bool {
	n := len(call.Args)
	if n >= lo && n <= hi {
		return true
	}
	switch {
	case lo == hi && lo == 1:
		st.errorf(InvalidArgument, call.NameRange.Start, "%s expects 1 argument, got %d", call.Name, n)
	case lo == hi:
		st.errorf(InvalidArgument, call.NameRange.Start, "%s expects %d arguments, got %d", call.Name, lo, n)
	default:
		st.errorf(InvalidArgument, call.NameRange.Start, "%s expects %d to %d arguments, got %d", call.Name, lo, hi, n)
	}
	return false
}

func literal(e hclsyntax.Expression) (cty.Value, bool) {
	v, hd := e.Value(nil)
	if hd.HasErrors() || v.IsNull() || !v.IsWhollyKnown() {
		return cty.NilVal, false
	}
	return v, true
}

// text evaluates a string argument. Bare identifiers are accepted as their name.
func (st *parseState) text(fn, what string, e hclsyntax.Expression) (string, bool) {
	if tr, ok := e.(*hclsyntax.ScopeTraversalExpr); ok && len(tr.Traversal) == 1 {
		return tr.Traversal.RootName(), true
	}
	v, ok := literal(e)
	if !ok || v.Type() != cty.String {
		st.errorf(InvalidArgument, e.Range().Start, "%s: %s must be a string", fn, what)
		return "", false
	}
	return v.AsString(), true
}

func (st *parseState) name(fn, what string, e hclsyntax.Expression) (string, bool) {
	s, ok := st.text(fn, what, e)
	if !ok {
		return "", false
	}
	if strings.TrimSpace(s) == "" {
		st.errorf(InvalidArgument, e.Range().Start, "%s: %s must not be empty", fn, what)
		return "", false
	}
	return s, true
}

func (st *parseState) keyArg(fn, what string, e hclsyntax.Expression) (key.ID, bool) {
	s, ok := st.name(fn, what, e)
	if !ok {
		return "", false
	}
	if keymap.IsDefinitionID(strings.TrimSpace(s)) {
		st.errorf(InvalidArgument, e.Range().Start, "%s: %s %q is a modifier or lock id, not a key", fn, what, s)
		return "", false
	}
	return st.normalizer.Normalize(s), true
}

// targetArg is keyArg for positions that may also name a modifier or lock
// ("MD_00", "LK_01"). Those ids are checked against the definitions and
// layers once the whole source is read.
func (st *parseState) targetArg(fn, what string, e hclsyntax.Expression) (key.ID, bool) {
	s, ok := st.name(fn, what, e)
	if !ok {
		return "", false
	}
	if id := strings.ToUpper(strings.TrimSpace(s)); keymap.IsDefinitionID(id) {
		st.defRefs = append(st.defRefs, switchRef{name: id, pos: e.Range().Start})
		return key.ID(id), true
	}
	return st.normalizer.Normalize(s), true
}

func (st *parseState) intArg(fn, what string, e hclsyntax.Expression) (int64, bool) {
	v, ok := literal(e)
	if !ok || v.Type() != cty.Number {
		st.errorf(InvalidArgument, e.Range().Start, "%s: %s must be a number", fn, what)
		return 0, false
	}
	var n int64
	if err := gocty.FromCtyValue(v, &n); err != nil {
		st.errorf(InvalidArgument, e.Range().Start, "%s: %s must be a whole number", fn, what)
		return 0, false
	}
	return n, true
}

func (st *parseState) defineModifier(call *hclsyntax.FunctionCallExpr) {
	st.define(call, "modifier", st.cfg.SetModifier)
}

func (st *parseState) defineLock(call *hclsyntax.FunctionCallExpr) {
	st.define(call, "lock", st.cfg.SetLock)
}

func (st *parseState) define(call *hclsyntax.FunctionCallExpr, what string, set func(keymap.Definition) (bool, error)) {
	if !st.arity(call, 3, 3) {
		return
	}
	id, ok := st.name(call.Name, "id", call.Args[0])
	if !ok {
		return
	}
	label, ok := st.text(call.Name, "label", call.Args[1])
	if !ok {
		return
	}
	src, ok := st.keyArg(call.Name, "source key", call.Args[2])
	if !ok {
		return
	}

	replaced, err := set(keymap.Definition{ID: id, Label: label, Source: src})
	if err != nil {
		st.errorf(InvalidArgument, call.Args[0].Range().Start, "%s: %v", call.Name, err)
		return
	}
	if replaced {
		st.warnf(DuplicateMapping, call.NameRange.Start, "%s %s redefined, the later definition wins", what, strings.ToUpper(id))
	}
}

func (st *parseState) layerStart(call *hclsyntax.FunctionCallExpr) {
	if !st.arity(call, 1, 1) {
		return
	}
	name, ok := st.name(call.Name, "layer name", call.Args[0])
	if !ok {
		return
	}

	pos := call.NameRange.Start
	switch {
	case st.layerOpen != nil:
		st.errorf(SyntaxError, pos, "layer_start inside layer %q, missing layer_end", st.layer.Name)
	case st.deviceOpen != nil:
		st.errorf(SyntaxError, pos, "layer_start inside device block %q, missing device_end", st.device)
	}
	st.closeDevice()

	st.layer, _ = st.cfg.EnsureLayer(name)
	st.layerOpen = &pos
}

func (st *parseState) layerEnd(call *hclsyntax.FunctionCallExpr) {
	pos := call.NameRange.Start
	if st.layerOpen == nil {
		st.errorf(SyntaxError, pos, "layer_end without layer_start")
		return
	}
	if len(call.Args) != 0 {
		st.arity(call, 0, 0)
	} else if st.deviceOpen != nil {
		st.errorf(SyntaxError, *st.deviceOpen, "device block %q is not closed before layer_end", st.device)
	}
	st.closeDevice()
	st.layer = st.cfg.Base()
	st.layerOpen = nil
}

func (st *parseState) deviceStart(call *hclsyntax.FunctionCallExpr) {
	if !st.arity(call, 1, 1) {
		return
	}
	pattern, ok := st.name(call.Name, "device pattern", call.Args[0])
	if !ok {
		return
	}
	pos := call.NameRange.Start
	if st.deviceOpen != nil {
		st.errorf(SyntaxError, pos, "device_start inside device block %q, missing device_end", st.device)
	}
	st.device = pattern
	st.deviceOpen = &pos
}

func (st *parseState) deviceEnd(call *hclsyntax.FunctionCallExpr) {
	if st.deviceOpen == nil {
		st.errorf(SyntaxError, call.NameRange.Start, "device_end without device_start")
		return
	}
	if len(call.Args) != 0 {
		st.arity(call, 0, 0)
	}
	st.closeDevice()
}

func (st *parseState) closeDevice() {
	st.device = ""
	st.deviceOpen = nil
}

func (st *parseState) set(k key.ID, m keymap.Mapping, pos hcl.Pos) {
	replaced, err := st.cfg.SetMapping(st.layer.ID, k, m, st.device)
	if err != nil {
		st.errorf(InvalidArgument, pos, "%v", err)
		return
	}
	if replaced {
		st.warnf(DuplicateMapping, pos, "%s on layer %q is mapped again, the later mapping wins", k, st.layer.Name)
	}
}

func (st *parseState) mapKey(call *hclsyntax.FunctionCallExpr) {
	if !st.arity(call, 2, 2) {
		return
	}
	from, ok := st.keyArg(call.Name, "source key", call.Args[0])
	if !ok {
		return
	}
	m, ok := st.mapping(call.Args[1])
	if !ok {
		return
	}
	st.set(from, m, call.NameRange.Start)
}

func (st *parseState) tapHoldStmt(call *hclsyntax.FunctionCallExpr) {
	if !st.arity(call, 3, 4) {
		return
	}
	from, ok := st.keyArg(call.Name, "source key", call.Args[0])
	if !ok {
		return
	}
	m, ok := st.tapHold(call, call.Args[1:])
	if !ok {
		return
	}
	st.set(from, m, call.NameRange.Start)
}

// tapHold builds a TapHold from (tap, hold[, threshold]).
func (st *parseState) tapHold(call *hclsyntax.FunctionCallExpr, args []hclsyntax.Expression) (keymap.Mapping, bool) {
	tap, ok := st.keyArg(call.Name, "tap key", args[0])
	if !ok {
		return nil, false
	}
	hold, ok := st.targetArg(call.Name, "hold key", args[1])
	if !ok {
		return nil, false
	}

	threshold := st.defaultThreshold
	if len(args) < 3 {
		st.warnf(InvalidArgument, call.CloseParenRange.Start, "%s: threshold missing, using %d ms", call.Name, threshold)
		return keymap.TapHold{Tap: tap, Hold: hold, ThresholdMS: threshold}, true
	}

	if n, ok := st.intArg(call.Name, "threshold", args[2]); ok {
		switch {
		case n <= 0:
			st.warnf(InvalidArgument, args[2].Range().Start, "%s: threshold %d is not positive, using %d ms", call.Name, n, threshold)
		case n > math.MaxUint32:
			st.errorf(InvalidArgument, args[2].Range().Start, "%s: threshold %d is too large, using %d ms", call.Name, n, threshold)
		default:
			threshold = uint32(n)
		}
	}
	return keymap.TapHold{Tap: tap, Hold: hold, ThresholdMS: threshold}, true
}

// mapping evaluates the target argument of map.
func (st *parseState) mapping(e hclsyntax.Expression) (keymap.Mapping, bool) {
	call, ok := e.(*hclsyntax.FunctionCallExpr)
	if !ok {
		to, ok := st.targetArg("map", "target key", e)
		if !ok {
			return nil, false
		}
		return keymap.Simple{Tap: to}, true
	}
	if call.ExpandFinal {
		st.errorf(InvalidArgument, call.NameRange.Start, "%s: argument expansion is not supported", call.Name)
		return nil, false
	}

	if _, ok := modifierFuncs[call.Name]; ok {
		return st.chord(call)
	}

	switch call.Name {
	case "layer_switch":
		if !st.arity(call, 1, 1) {
			return nil, false
		}
		name, ok := st.name(call.Name, "layer name", call.Args[0])
		if !ok {
			return nil, false
		}
		st.switches = append(st.switches, switchRef{name: name, pos: call.NameRange.Start})
		return keymap.LayerSwitch{Target: keymap.Slug(name)}, true

	case "tap_hold":
		if !st.arity(call, 2, 3) {
			return nil, false
		}
		return st.tapHold(call, call.Args)

	case "macro":
		return st.inlineMacro(call)
	}

	if _, ok := statements[call.Name]; ok || stepFuncs[call.Name] {
		st.errorf(InvalidArgument, call.NameRange.Start, "%s cannot be used as a mapping target", call.Name)
		return nil, false
	}
	st.errorf(UnknownFunction, call.NameRange.Start, "unknown function %q", call.Name)
	return nil, false
}

// chord unwraps nested with_* calls into a modifier chord.
func (st *parseState) chord(call *hclsyntax.FunctionCallExpr) (keymap.Mapping, bool) {
	var mods []key.ID
	for {
		mod, ok := modifierFuncs[call.Name]
		if !ok {
			st.errorf(InvalidArgument, call.NameRange.Start, "%s cannot be wrapped in a modifier", call.Name)
			return nil, false
		}
		if !st.arity(call, 1, 1) {
			return nil, false
		}
		mods = append(mods, mod)

		inner, ok := call.Args[0].(*hclsyntax.FunctionCallExpr)
		if !ok {
			to, ok := st.keyArg(call.Name, "key", call.Args[0])
			if !ok {
				return nil, false
			}
			return keymap.Chord(to, mods...), true
		}
		call = inner
	}
}

func (st *parseState) inlineMacro(call *hclsyntax.FunctionCallExpr) (keymap.Mapping, bool) {
	if !st.arity(call, 1, 1) {
		return nil, false
	}
	list, ok := call.Args[0].(*hclsyntax.TupleConsExpr)
	if !ok {
		st.errorf(InvalidArgument, call.Args[0].Range().Start, "macro: argument must be a list of press, release and delay calls")
		return nil, false
	}

	var (
		clock uint64
		steps = make([]keymap.MacroStep, 0, len(list.Exprs))
	)
	for _, e := range list.Exprs {
		sc, ok := e.(*hclsyntax.FunctionCallExpr)
		if !ok || !stepFuncs[sc.Name] {
			st.errorf(InvalidArgument, e.Range().Start, "macro: expected press, release or delay")
			return nil, false
		}
		if !st.step(sc, &clock, &steps) {
			return nil, false
		}
	}
	return keymap.Macro{Steps: steps}, true
}

// step applies one press, release or delay call to a macro timeline.
func (st *parseState) step(call *hclsyntax.FunctionCallExpr, clock *uint64, steps *[]keymap.MacroStep) bool {
	if !st.arity(call, 1, 1) {
		return false
	}
	switch call.Name {
	case "delay":
		ms, ok := st.intArg(call.Name, "duration", call.Args[0])
		if !ok {
			return false
		}
		if ms < 0 {
			st.errorf(InvalidArgument, call.Args[0].Range().Start, "delay: duration %d is negative", ms)
			return false
		}
		if uint64(ms) > (math.MaxUint64-*clock)/1000 {
			st.errorf(InvalidArgument, call.Args[0].Range().Start, "delay: duration %d ms overflows the macro timeline", ms)
			return false
		}
		*clock += uint64(ms) * 1000
	default:
		k, ok := st.keyArg(call.Name, "key", call.Args[0])
		if !ok {
			return false
		}
		v := keymap.Press
		if call.Name == "release" {
			v = keymap.Release
		}
		*steps = append(*steps, keymap.MacroStep{Code: k, Value: v, TimestampUS: *clock})
	}
	return true
}

func (st *parseState) macroStart(call *hclsyntax.FunctionCallExpr) {
	if !st.arity(call, 1, 2) {
		return
	}
	trigger, ok := st.keyArg(call.Name, "trigger key", call.Args[0])
	if !ok {
		return
	}
	if len(call.Args) == 2 {
		if _, ok := st.text(call.Name, "name", call.Args[1]); !ok {
			return
		}
	}
	st.macro = &macroBlock{trigger: trigger, start: call.NameRange.Start}
}

func (st *parseState) macroEnd(call *hclsyntax.FunctionCallExpr) {
	if st.macro == nil {
		st.errorf(SyntaxError, call.NameRange.Start, "macro_end without macro_start")
		return
	}
	if len(call.Args) != 0 {
		st.arity(call, 0, 0)
	}
	st.commitMacro()
}

func (st *parseState) commitMacro() {
	m := st.macro
	st.macro = nil
	steps := m.steps
	if steps == nil {
		steps = []keymap.MacroStep{}
	}
	st.set(m.trigger, keymap.Macro{Steps: steps}, m.start)
}

// finish reports blocks left open at the end of the source, layer
// switches to layers that were never declared and modifier or lock ids
// that nothing defines.
func (st *parseState) finish() {
	if st.macro != nil {
		st.errorf(SyntaxError, st.macro.start, "macro_start is never closed by macro_end")
		st.commitMacro()
	}
	if st.deviceOpen != nil {
		st.errorf(SyntaxError, *st.deviceOpen, "device_start %q is never closed by device_end", st.device)
		st.closeDevice()
	}
	if st.layerOpen != nil {
		st.errorf(SyntaxError, *st.layerOpen, "layer_start %q is never closed by layer_end", st.layer.Name)
		st.layerOpen = nil
	}

	for _, ref := range st.switches {
		if st.cfg.LayerByName(ref.name) == nil {
			st.warnf(DanglingLayerReference, ref.pos, "layer_switch targets undeclared layer %q", ref.name)
		}
	}
	for _, ref := range st.defRefs {
		if !st.cfg.Defined(ref.name) {
			st.warnf(DanglingLayerReference, ref.pos, "%s is not a defined modifier, lock or layer", ref.name)
		}
	}
}
