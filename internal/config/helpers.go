package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/iancoleman/strcase"
)

// EnvPrefix marks environment variables that are read into the config.
const EnvPrefix = "PERMIT__"

// SearchForConfig looks for filename in startDir and then each parent
// directory in turn. It returns the absolute path of the first match, or an
// empty string.
func SearchForConfig(filename string, startDir string) string {
	d, err := filepath.Abs(startDir)
	if err != nil {
		return ""
	}

	p := filepath.Join(d, filename)
	if _, err = os.Stat(p); err == nil {
		return p
	}

	parentDir := filepath.Dir(d)
	if parentDir == d {
		return ""
	}
	return SearchForConfig(filename, parentDir)
}

// TransformEnv maps an environment variable name to a config key.
//
//	PERMIT__SERVER__PORT         -> server.port
//	PERMIT__STORE__TABLE_PREFIX  -> store.tablePrefix
//	PERMIT__AUTH__SIGNING_KEY    -> auth.signingKey
func TransformEnv(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	segments := strings.Split(s, "__")
	for i, segment := range segments {
		segments[i] = strcase.ToLowerCamel(segment)
	}
	return strings.Join(segments, ".")
}
