package cdpaction

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp/kb"
)

var namedKeys = map[string]string{
	"enter":      kb.Enter,
	"tab":        kb.Tab,
	"escape":     kb.Escape,
	"esc":        kb.Escape,
	"backspace":  kb.Backspace,
	"delete":     kb.Delete,
	"arrowup":    kb.ArrowUp,
	"arrowdown":  kb.ArrowDown,
	"arrowleft":  kb.ArrowLeft,
	"arrowright": kb.ArrowRight,
	"home":       kb.Home,
	"end":        kb.End,
	"pageup":     kb.PageUp,
	"pagedown":   kb.PageDown,
	"space":      " ",
}

var modifierKeys = map[string]input.Modifier{
	"control": input.ModifierCtrl,
	"ctrl":    input.ModifierCtrl,
	"shift":   input.ModifierShift,
	"alt":     input.ModifierAlt,
	"meta":    input.ModifierMeta,
	"command": input.ModifierMeta,
}

// parseKey converts a key description such as "Enter" or "Control+A" into the
// key sequence and modifier mask chromedp expects.
func parseKey(desc string) (string, input.Modifier, error) {
	if desc == "" {
		return "", 0, fmt.Errorf("empty key")
	}
	// A lone "+" is a key, not a separator.
	if desc == "+" {
		return "+", 0, nil
	}

	parts := strings.Split(desc, "+")
	key := parts[len(parts)-1]

	var mods input.Modifier
	for _, p := range parts[:len(parts)-1] {
		m, ok := modifierKeys[strings.ToLower(p)]
		if !ok {
			return "", 0, fmt.Errorf("unknown modifier %q in %q", p, desc)
		}
		mods |= m
	}

	if utf8.RuneCountInString(key) == 1 {
		return key, mods, nil
	}
	if k, ok := namedKeys[strings.ToLower(key)]; ok {
		return k, mods, nil
	}
	return "", 0, fmt.Errorf("unknown key %q", key)
}
