package key

// Char describes how a printable character is typed.
type Char struct {
	// Key is the key that produces the character.
	Key ID
	// Shift is true when the character needs a held Shift.
	Shift bool
}

// CharMap maps characters to the keys that type them.
type CharMap map[rune]Char

// Lookup returns the key for r and whether it is supported.
func (m CharMap) Lookup(r rune) (Char, bool) {
	c, ok := m[r]
	return c, ok
}

// With returns a copy of m with the entries of overlay applied.
func (m CharMap) With(overlay CharMap) CharMap {
	out := make(CharMap, len(m)+len(overlay))
	for r, c := range m {
		out[r] = c
	}
	for r, c := range overlay {
		out[r] = c
	}
	return out
}

// USChars returns the character table for a US ANSI layout.
func USChars() CharMap {
	m := make(CharMap, 100)
	for c := 'a'; c <= 'z'; c++ {
		id := ID(Prefix + string(c-'a'+'A'))
		m[c] = Char{Key: id}
		m[c-'a'+'A'] = Char{Key: id, Shift: true}
	}

	digits := ")!@#$%^&*("
	for d := 0; d <= 9; d++ {
		id := ID(Prefix + "Num" + string(rune('0'+d)))
		m[rune('0'+d)] = Char{Key: id}
		m[rune(digits[d])] = Char{Key: id, Shift: true}
	}

	punct := []struct {
		plain, shifted rune
		name           string
	}{
		{'-', '_', "Minus"},
		{'=', '+', "Equal"},
		{'[', '{', "LeftBracket"},
		{']', '}', "RightBracket"},
		{'\\', '|', "Backslash"},
		{';', ':', "Semicolon"},
		{'\'', '"', "Quote"},
		{',', '<', "Comma"},
		{'.', '>', "Period"},
		{'/', '?', "Slash"},
		{'`', '~', "Grave"},
	}
	for _, p := range punct {
		id := ID(Prefix + p.name)
		m[p.plain] = Char{Key: id}
		m[p.shifted] = Char{Key: id, Shift: true}
	}

	m[' '] = Char{Key: Space}
	m['\t'] = Char{Key: Tab}
	m['\n'] = Char{Key: Enter}
	return m
}
