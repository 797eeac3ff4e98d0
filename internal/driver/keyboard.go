package driver

import (
	"time"
	"unicode"

	"github.com/rs/zerolog"

	"relax3d/internal/desktop"
)

// DefaultCharDelay is the pause after each injected character.
const DefaultCharDelay = 50 * time.Millisecond

// Keyboard injects synthetic key events into the foreground window. Calls
// block until the whole burst is sent and are never interrupted.
type Keyboard struct {
	desk      desktop.Desktop
	clock     Clock
	charDelay time.Duration
	log       zerolog.Logger
}

func NewKeyboard(desk desktop.Desktop, clock Clock, charDelay time.Duration, log zerolog.Logger) *Keyboard {
	if charDelay <= 0 {
		charDelay = DefaultCharDelay
	}
	if clock == nil {
		clock = RealClock()
	}
	return &Keyboard{desk: desk, clock: clock, charDelay: charDelay, log: log}
}

// NumpadCode maps a command character onto the virtual key the legacy tools
// expect: digits, '.' and '-' on the numeric keypad, letters as upper case.
func NumpadCode(r rune) (uint8, bool) {
	switch {
	case r == '-':
		return desktop.VKSubtract, true
	case r == '.':
		return desktop.VKDecimal, true
	case r >= '0' && r <= '9':
		return desktop.VKNumpad0 + uint8(r-'0'), true
	}
	return asciiCode(r)
}

// MainRowCode maps a file name character for dialog typing: '-' and '.'
// use the main-row OEM keys, everything else as NumpadCode.
func MainRowCode(r rune) (uint8, bool) {
	switch r {
	case '-':
		return desktop.VKOEMMinus, true
	case '.':
		return desktop.VKOEMPeriod, true
	}
	return NumpadCode(r)
}

func asciiCode(r rune) (uint8, bool) {
	u := unicode.ToUpper(r)
	if u < 0x20 || u > 0x7e {
		return 0, false
	}
	return uint8(u), true
}

// Send types each command followed by Enter, pausing settle after each one.
// An empty list sends nothing.
func (k *Keyboard) Send(commands []string, settle time.Duration) {
	for _, cmd := range commands {
		k.typeWith(cmd, NumpadCode)
		k.desk.KeyDown(desktop.VKReturn)
		k.clock.Sleep(settle)
	}
}

// Type types text with main-row codes and no trailing Enter.
func (k *Keyboard) Type(text string) {
	k.typeWith(text, MainRowCode)
}

// Press sends a single key down and up.
func (k *Keyboard) Press(vk uint8) {
	k.desk.KeyDown(vk)
	k.desk.KeyUp(vk)
}

// Combo holds mod while pressing key: mod down, key down, key up, mod up.
func (k *Keyboard) Combo(mod, key uint8) {
	k.desk.KeyDown(mod)
	k.desk.KeyDown(key)
	k.desk.KeyUp(key)
	k.desk.KeyUp(mod)
}

func (k *Keyboard) typeWith(text string, code func(rune) (uint8, bool)) {
	for _, r := range text {
		vk, ok := code(r)
		if !ok {
			k.log.Warn().Str("char", string(r)).Str("text", text).Msg("skipping unmappable character")
			continue
		}
		k.desk.KeyDown(vk)
		k.clock.Sleep(k.charDelay)
	}
}
