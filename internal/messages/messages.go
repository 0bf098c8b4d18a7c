// Package messages holds the reminder-comment and email-greeting pools.
// Pools are loaded once at startup and passed around as plain values;
// nothing here caches at package level, so tests can build whatever
// pools they need without cross-test leakage.
package messages

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/Re4zOon/repo-maintainer/internal/log"
)

// ErrNoMessages is returned when a pool file exists but contains no
// usable messages.
var ErrNoMessages = errors.New("no valid messages found")

// Pools bundles the two message pools a run needs.
type Pools struct {
	// Comments are reminder texts cycled through when nudging an
	// inactive merge/pull request.
	Comments []string
	// Greetings are email opening lines; each may reference
	// {{.StaleDays}}.
	Greetings []string
}

// LoadFile reads a message pool from a text file. Messages are
// separated by blank lines, lines starting with '#' are comments, and
// the lines of one message are joined with single spaces.
func LoadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var (
		messages []string
		current  []string
	)
	flush := func() {
		if len(current) > 0 {
			messages = append(messages, strings.Join(current, " "))
			current = nil
		}
	}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "#"):
			continue
		case line == "":
			flush()
		default:
			current = append(current, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()

	if len(messages) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoMessages, path)
	}
	return messages, nil
}

// Load builds the pools for a run. Empty paths or unreadable files fall
// back to the compiled-in defaults with a warning, matching how the
// predecessor tool behaved when its data files were missing.
func Load(commentsPath, greetingsPath string) Pools {
	return Pools{
		Comments:  loadOrFallback(commentsPath, fallbackComments, "reminder comments"),
		Greetings: loadOrFallback(greetingsPath, fallbackGreetings, "email greetings"),
	}
}

func loadOrFallback(path string, fallback []string, what string) []string {
	if path == "" {
		return fallback
	}
	msgs, err := LoadFile(path)
	if err != nil {
		log.Warn().Str("path", path).Err(err).Msgf("could not load %s, using built-in pool", what)
		return fallback
	}
	log.Debug().Str("path", path).Int("count", len(msgs)).Msgf("loaded %s", what)
	return msgs
}

// RenderGreeting expands the {{.StaleDays}} slot in a greeting.
func RenderGreeting(greeting string, staleDays int) (string, error) {
	tmpl, err := template.New("greeting").Parse(greeting)
	if err != nil {
		return "", fmt.Errorf("invalid greeting template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct{ StaleDays int }{StaleDays: staleDays}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
