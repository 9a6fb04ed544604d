package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bawdo/screenq/managers"
	"github.com/bawdo/screenq/nodes"
)

// tokenize splits a REPL line on whitespace. Single-quoted strings are one
// token with the quotes kept; '' inside quotes is an escaped quote.
func tokenize(input string) []string {
	var tokens []string
	var cur strings.Builder
	inQuote := false

	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}

	for i := 0; i < len(input); i++ {
		ch := input[i]

		if inQuote {
			cur.WriteByte(ch)
			if ch == '\'' {
				if i+1 < len(input) && input[i+1] == '\'' {
					cur.WriteByte('\'')
					i++
				} else {
					inQuote = false
					flush()
				}
			}
			continue
		}

		switch {
		case ch == '\'':
			flush()
			cur.WriteByte(ch)
			inQuote = true
		case ch == ' ' || ch == '\t' || ch == ',':
			flush()
		default:
			cur.WriteByte(ch)
		}
	}
	flush()
	return tokens
}

// parseValue turns a token into a literal: quoted tokens are strings,
// integers become int64, other numbers float64, anything else a bare string.
func parseValue(token string) any {
	if len(token) >= 2 && strings.HasPrefix(token, "'") && strings.HasSuffix(token, "'") {
		inner := token[1 : len(token)-1]
		return strings.ReplaceAll(inner, "''", "'")
	}
	if i, err := strconv.ParseInt(token, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(token, 64); err == nil {
		return f
	}
	return token
}

func parseValues(tokens []string) []any {
	out := make([]any, len(tokens))
	for i, tok := range tokens {
		out[i] = parseValue(tok)
	}
	return out
}

// unquote strips the quotes parseValue would strip, for field names.
func unquote(token string) string {
	if s, ok := parseValue(token).(string); ok {
		return s
	}
	return token
}

// decodeQuery reads a wire map from JSON or YAML. JSON is a subset of YAML,
// so one decoder serves both.
func decodeQuery(data []byte) (*nodes.Expression, error) {
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", nodes.ErrMalformedQuery, err)
	}
	return nodes.Parse(m)
}

// loadQueryFile reads a query from a .json, .yaml or .yml file.
func loadQueryFile(path string) (*managers.Query, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	root, err := decodeQuery(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return managers.NewQuery(root), nil
}
