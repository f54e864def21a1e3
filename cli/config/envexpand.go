// Package config loads depthstream.yaml, the defaults file for depthstream stream.
package config

import (
	"os"
	"regexp"
	"strings"
)

// envRef matches ${NAME} and ${NAME:-fallback}. A bare $NAME is left alone.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// ExpandEnv substitutes environment references in a config document.
// A set, non-empty variable wins; otherwise the fallback is used, and a
// reference with neither becomes "". Required values are caught later by
// Validate or by the component that needs them.
func ExpandEnv(doc string) string {
	refs := envRef.FindAllStringSubmatchIndex(doc, -1)
	if len(refs) == 0 {
		return doc
	}

	var b strings.Builder
	b.Grow(len(doc))
	last := 0
	for _, m := range refs {
		b.WriteString(doc[last:m[0]])
		last = m[1]

		if v := os.Getenv(doc[m[2]:m[3]]); v != "" {
			b.WriteString(v)
		} else if m[4] >= 0 {
			b.WriteString(doc[m[4]:m[5]])
		}
	}
	b.WriteString(doc[last:])
	return b.String()
}
