package logging

import (
	"fmt"
	"os"
	"strings"
	"sync"

	errors "golang.org/x/xerrors"
)

const envVar = "LOGLEVEL"

var (
	directivesMu sync.RWMutex

	// Level per tag. Later directives for a tag replace earlier ones.
	tagLevels = map[string]Level{}

	// Level for loggers without a tag directive or their own default.
	baseLevel = Info
)

func init() {
	if err := Configure(os.Getenv(envVar)); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid %s: %v\n", envVar, err)
	}
}

// Configure parses comma-separated "tag=level" directives, e.g.
// "rtcp=debug,srtp=3,warn". A directive without "tag=" sets the default level.
// Existing loggers pick up the new levels immediately. All valid directives
// are applied even if some are rejected.
func Configure(directives string) error {
	var bad []string

	directivesMu.Lock()
	for _, d := range strings.Split(directives, ",") {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		tag, value := "", d
		if i := strings.IndexByte(d, '='); i >= 0 {
			tag, value = d[:i], d[i+1:]
		}
		level, err := parseLevel(value)
		if err != nil {
			bad = append(bad, fmt.Sprintf("'%s': %v", d, err))
			continue
		}
		if tag == "" {
			baseLevel = level
		} else {
			tagLevels[tag] = level
		}
	}
	directivesMu.Unlock()

	relevel()

	if len(bad) > 0 {
		return errors.Errorf("invalid directives: %s", strings.Join(bad, ", "))
	}
	return nil
}

func (log *Logger) determineLevel() Level {
	directivesMu.RLock()
	defer directivesMu.RUnlock()
	if level, ok := tagLevels[log.tag]; ok && log.tag != "" {
		return level
	}
	if log.hasFallback {
		return log.fallback
	}
	return baseLevel
}
