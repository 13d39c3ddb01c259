package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"
)

// Error reports an unusable configuration source. It is fatal at startup:
// the caller must not perform any network activity after receiving one.
type Error struct {
	Source string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("configuration %s: %v", e.Source, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// LoadEnvFile parses a KEY=VALUE file into a map.
//
// Grammar: one entry per line; blank lines and lines starting with '#' are
// ignored; the first '=' separates key and value; surrounding whitespace is
// trimmed from both; a value wrapped in matching single or double quotes is
// unquoted. Keys must be non-empty and contain no whitespace. On duplicate
// keys the last entry wins.
func LoadEnvFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &Error{Source: path, Err: err}
	}
	defer file.Close()

	values := map[string]string{}

	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		idx := strings.Index(line, "=")
		if idx < 0 {
			return nil, &Error{Source: path, Err: fmt.Errorf("line %d: missing '=' separator", lineNo)}
		}

		key := strings.TrimSpace(line[:idx])
		if key == "" || strings.ContainsFunc(key, unicode.IsSpace) {
			return nil, &Error{Source: path, Err: fmt.Errorf("line %d: invalid key %q", lineNo, key)}
		}

		values[key] = unquote(strings.TrimSpace(line[idx+1:]))
	}

	if err := scanner.Err(); err != nil {
		return nil, &Error{Source: path, Err: err}
	}

	return values, nil
}

func unquote(value string) string {
	if len(value) < 2 {
		return value
	}
	first, last := value[0], value[len(value)-1]
	if first == last && (first == '"' || first == '\'') {
		return value[1 : len(value)-1]
	}
	return value
}
