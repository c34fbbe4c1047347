package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/v2"
)

// Warning flags a loaded key that nothing registered.
type Warning struct {
	Key         string
	Suggestions []string
}

func (w Warning) String() string {
	msg := fmt.Sprintf("'%s' is not a known config key", w.Key)
	switch len(w.Suggestions) {
	case 0:
	case 1:
		msg += fmt.Sprintf(". Did you mean '%s'?", w.Suggestions[0])
	default:
		msg += ". Did you mean one of these?\n"
		for _, s := range w.Suggestions {
			msg += fmt.Sprintf("    - %s\n", s)
		}
	}
	return msg
}

// Validate returns a warning for every key loaded into k that is not
// registered, with suggestions for likely typos.
func Validate(k *koanf.Koanf) []Warning {
	var warnings []Warning
	for _, key := range k.Keys() {
		if _, ok := Lookup(key); ok {
			continue
		}
		if underRegistered(key) {
			continue
		}
		warnings = append(warnings, Warning{
			Key:         key,
			Suggestions: Suggest(key, 3),
		})
	}
	return warnings
}

// FormatWarnings renders warnings as a block suitable for a log line.
func FormatWarnings(warnings []Warning) string {
	if len(warnings) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("config warnings:\n")
	for _, w := range warnings {
		for i, line := range strings.Split(w.String(), "\n") {
			if line == "" {
				continue
			}
			if i == 0 {
				sb.WriteString("  - " + line + "\n")
			} else {
				sb.WriteString("    " + line + "\n")
			}
		}
	}
	return sb.String()
}
