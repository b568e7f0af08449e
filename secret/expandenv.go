package secret

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// ExpandEnvStrict substitutes $VAR and ${VAR} from the environment.
// Every referenced variable must be set; the error names all missing ones
// in sorted order. $$ yields a literal $. Anything after $ that is not a
// variable name is left as written.
func ExpandEnvStrict(s string) (string, error) {
	missing := map[string]bool{}
	out := os.Expand(s, func(name string) string {
		switch {
		case name == "$":
			return "$"
		case !isEnvName(name):
			if len(name) == 1 {
				return "$" + name
			}
			return "${" + name + "}"
		}
		v, ok := os.LookupEnv(name)
		if !ok {
			missing[name] = true
		}
		return v
	})
	if len(missing) == 0 {
		return out, nil
	}

	names := make([]string, 0, len(missing))
	for name := range missing {
		names = append(names, name)
	}
	sort.Strings(names)
	return "", fmt.Errorf("%w: %s", ErrMissingEnv, strings.Join(names, ", "))
}

func isEnvName(s string) bool {
	for i, c := range s {
		switch {
		case c == '_', c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z':
		case i > 0 && c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return s != ""
}
