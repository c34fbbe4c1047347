package config

import (
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/v2"
)

// LoadDefaults loads the default of every registered key into k. Call it
// before loading files or the environment so they take precedence.
func LoadDefaults(k *koanf.Koanf) error {
	return k.Load(confmap.Provider(Defaults(), "."), nil)
}
