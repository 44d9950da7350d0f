package logging

import (
	"fmt"
	"os"
	"strings"
)

const envVar = "LOGLEVEL"

type tagLevel struct {
	tag   string
	level Level
}

var tagLevels []tagLevel

func init() {
	tagLevels = parseDirectives(os.Getenv(envVar), func(d string, err error) {
		fmt.Fprintf(os.Stderr, "Invalid %s directive '%s': %s\n", envVar, d, err)
	})
	DefaultLogger.Level = defaultLevel
}

// parseDirectives parses comma-separated "tag=level" directives. A directive
// without "tag=" sets the default level.
func parseDirectives(s string, onError func(directive string, err error)) []tagLevel {
	var levels []tagLevel
	for _, d := range strings.Split(s, ",") {
		if d == "" {
			continue
		}
		v := strings.SplitN(d, "=", 2)
		level, err := ParseLevel(v[len(v)-1])
		if err != nil {
			onError(d, err)
			continue
		}
		if len(v) == 1 {
			defaultLevel = level
		} else {
			levels = append(levels, tagLevel{v[0], level})
		}
	}
	return levels
}

func determineLevel(tag string, fallback Level) Level {
	for _, e := range tagLevels {
		if e.tag == tag {
			return e.level
		}
	}
	return fallback
}
