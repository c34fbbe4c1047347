package permit

import (
	"strings"
	"time"

	"github.com/tripdesk/permit/internal/config"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Filename of the standard configuration file.
const ConfigFile = "permit.yaml"

// ConfigKeyInfo describes a known configuration key.
type ConfigKeyInfo = config.KeyInfo

// Config is a global koanf instance used to access configuration options.
//
// Sources are loaded in this order, later ones overriding earlier ones:
//  1. Defaults of the registered keys
//  2. The nearest permit.yaml, searching up from the working directory
//  3. Environment variables prefixed with PERMIT__
//  4. Anything passed to LoadConfigFile or LoadConfigDefaults
//
// Environment variables map to keys like so:
//
//	PERMIT__SERVER__PORT         -> server.port
//	PERMIT__STORE__TABLE_PREFIX  -> store.tablePrefix
var Config = koanf.New(".")

func init() {
	registerConfigKeys()

	if err := config.LoadDefaults(Config); err != nil {
		panic("error loading config defaults: " + err.Error())
	}

	if cfg := config.SearchForConfig(ConfigFile, "."); cfg != "" {
		if err := Config.Load(file.Provider(cfg), yaml.Parser()); err != nil {
			panic("error loading config: " + err.Error())
		}
	}

	if err := Config.Load(env.Provider(config.EnvPrefix, ".", config.TransformEnv), nil); err != nil {
		panic("error loading env config: " + err.Error())
	}
}

// RegisterConfigKeys documents additional configuration keys, typically
// ones belonging to an embedding application, so they are not reported by
// ConfigWarnings.
func RegisterConfigKeys(infos ...ConfigKeyInfo) {
	config.Register(infos...)
}

// LoadConfigFile loads additional configuration from a YAML file.
func LoadConfigFile(path string) error {
	return Config.Load(file.Provider(path), yaml.Parser())
}

// LoadConfigDefaults loads values into Config, overriding what is already
// there. Mostly useful in tests.
func LoadConfigDefaults(values map[string]any) error {
	return Config.Load(confmap.Provider(values, "."), nil)
}

// ConfigString returns the string value for the given key.
func ConfigString(key string) string {
	return Config.String(key)
}

// ConfigStrings returns the list value for the given key. A plain string, as
// set through the environment, is split on commas.
func ConfigStrings(key string) []string {
	if v, ok := Config.Get(key).(string); ok {
		var out []string
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return Config.Strings(key)
}

// ConfigInt returns the int value for the given key.
func ConfigInt(key string) int {
	return Config.Int(key)
}

// ConfigBool returns the bool value for the given key.
func ConfigBool(key string) bool {
	return Config.Bool(key)
}

// ConfigDuration returns the duration value for the given key.
func ConfigDuration(key string) time.Duration {
	return Config.Duration(key)
}

// ConfigExists checks if the given key exists in the configuration.
func ConfigExists(key string) bool {
	return Config.Exists(key)
}

// ConfigWarnings describes loaded keys that are not registered, with
// suggestions for likely typos. Empty when everything is known.
func ConfigWarnings() string {
	return config.FormatWarnings(config.Validate(Config))
}

func registerConfigKeys() {
	config.Register(
		ConfigKeyInfo{
			Key:         "name",
			Description: "User-facing name that identifies the service",
			Type:        "string",
			Default:     "Permit",
		},

		ConfigKeyInfo{
			Key:         "server.host",
			Description: "Host to bind the server to",
			Type:        "string",
			Default:     "localhost",
		},
		ConfigKeyInfo{
			Key:         "server.port",
			Description: "Port to bind the server to",
			Type:        "int",
			Default:     8000,
		},
		ConfigKeyInfo{
			Key:         "server.corsOrigins",
			Description: "Origins allowed to call the HTTP API from a browser",
			Type:        "[]string",
		},
		ConfigKeyInfo{
			Key:         "server.tls.certFile",
			Description: "Path to TLS certificate file",
			Type:        "string",
		},
		ConfigKeyInfo{
			Key:         "server.tls.keyFile",
			Description: "Path to TLS key file",
			Type:        "string",
		},

		ConfigKeyInfo{
			Key:         "logging.format",
			Description: "Log output format, dev or prod",
			Type:        "string",
			Default:     "dev",
		},

		ConfigKeyInfo{
			Key:         "auth.signingKey",
			Description: "HMAC key used to sign and verify role tokens",
			Type:        "string",
		},
		ConfigKeyInfo{
			Key:         "auth.issuer",
			Description: "Issuer claim required on role tokens",
			Type:        "string",
			Default:     "permit",
		},
		ConfigKeyInfo{
			Key:         "auth.tokenTTL",
			Description: "Lifetime of tokens issued by permitd",
			Type:        "duration",
			Default:     "24h",
		},
		ConfigKeyInfo{
			Key:         "auth.header",
			Description: "Request header carrying the bearer token",
			Type:        "string",
			Default:     "Authorization",
		},

		ConfigKeyInfo{
			Key:         "store.driver",
			Description: "Profile store: memory, sqlite or postgres",
			Type:        "string",
			Default:     "memory",
		},
		ConfigKeyInfo{
			Key:         "store.dsn",
			Description: "Data source name for the sqlite or postgres store",
			Type:        "string",
			Default:     ":memory:",
		},
		ConfigKeyInfo{
			Key:         "store.tablePrefix",
			Description: "Prefix for profile store tables",
			Type:        "string",
			Default:     "permit_",
		},

		ConfigKeyInfo{
			Key:         "guard.auditDecisions",
			Description: "Log every authorization decision, not just denials",
			Type:        "bool",
			Default:     true,
		},
	)
}
