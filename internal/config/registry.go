package config

import (
	"sort"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"
)

// KeyInfo describes a known configuration key.
type KeyInfo struct {
	Key         string // Full path, e.g. "store.tablePrefix"
	Description string
	Type        string // "string", "int", "bool", "duration"
	Default     any
}

var (
	registry   = make(map[string]KeyInfo)
	registryMu sync.RWMutex
)

// Register records known configuration keys.
func Register(infos ...KeyInfo) {
	registryMu.Lock()
	defer registryMu.Unlock()
	for _, info := range infos {
		registry[info.Key] = info
	}
}

// Lookup returns the metadata for a registered key.
func Lookup(key string) (KeyInfo, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	info, ok := registry[key]
	return info, ok
}

// Keys returns all registered keys in sorted order.
func Keys() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	keys := make([]string, 0, len(registry))
	for k := range registry {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Defaults returns the registered keys that carry a default value.
func Defaults() map[string]any {
	registryMu.RLock()
	defer registryMu.RUnlock()

	defaults := make(map[string]any)
	for key, info := range registry {
		if info.Default != nil {
			defaults[key] = info.Default
		}
	}
	return defaults
}

// Suggest returns up to max registered keys close to key, nearest first.
// Keys in the same namespace get a one point bonus, anything further than
// three edits away is ignored.
func Suggest(key string, max int) []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	type scored struct {
		key   string
		score int
	}

	var candidates []scored
	prefix := namespace(key)
	for registered := range registry {
		if registered == key {
			continue
		}
		score := levenshtein.ComputeDistance(key, registered)
		if prefix != "" && prefix == namespace(registered) && score > 0 {
			score--
		}
		if score <= 3 {
			candidates = append(candidates, scored{registered, score})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score == candidates[j].score {
			return candidates[i].key < candidates[j].key
		}
		return candidates[i].score < candidates[j].score
	})

	out := make([]string, 0, max)
	for i := 0; i < len(candidates) && i < max; i++ {
		out = append(out, candidates[i].key)
	}
	return out
}

// namespace returns "store" for "store.tablePrefix".
func namespace(key string) string {
	i := strings.LastIndex(key, ".")
	if i == -1 {
		return ""
	}
	return key[:i]
}

// underRegistered reports whether some parent of key is itself registered,
// which lets a namespace be registered without listing every child.
func underRegistered(key string) bool {
	parts := strings.Split(key, ".")
	for i := len(parts) - 1; i > 0; i-- {
		if _, ok := Lookup(strings.Join(parts[:i], ".")); ok {
			return true
		}
	}
	return false
}
