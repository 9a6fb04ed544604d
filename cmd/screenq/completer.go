package main

import (
	"slices"
	"strings"

	"github.com/bawdo/screenq/nodes"
	"github.com/bawdo/screenq/screener"
)

// completionContext describes what kind of completion is appropriate.
type completionContext int

const (
	contextCommand    completionContext = iota // start of line or partial command
	contextNone                                // free-form argument
	contextField                               // a screener field name
	contextOperator                            // operator of a numeric shortcut
	contextFormat                              // after show
	contextDialect                             // after dialect/connect
	contextQuoteType                           // after quote
	contextUniverse                            // after universe
	contextPlugin                              // after plugin
	contextPluginOff                           // after plugin off
	contextRegion                              // after plugin region
	contextPredefined                          // after predefined
)

var formatNames = []string{"dot", "json", "pretty", "sql", "tree"}
var quoteTypeNames = []string{"EQUITY", "ETF", "MUTUALFUND"}
var universeNames = []string{"equity", "etf", "fund", "off"}
var rangeOperators = []string{"btwn", "gt", "gte", "lt", "lte"}

// replCompleter implements readline's AutoCompleter interface.
type replCompleter struct {
	sess *Session
}

// Do returns completion candidates for the current line/cursor position.
// length is the number of chars from end of line[:pos] that form the prefix being completed.
// newLine contains the suffixes to append for each candidate.
func (c *replCompleter) Do(line []rune, pos int) (newLine [][]rune, length int) {
	lineStr := string(line[:pos])
	ctx, prefix := c.parseContext(lineStr)

	var candidates []string
	switch ctx {
	case contextCommand:
		candidates = filterPrefix(c.sess.commandNames(), prefix)
	case contextField:
		candidates = filterPrefix(c.fieldNames(), prefix)
	case contextOperator:
		candidates = filterPrefix(rangeOperators, prefix)
	case contextFormat:
		candidates = filterPrefix(formatNames, prefix)
	case contextDialect:
		candidates = filterPrefix(dialectNames, prefix)
	case contextQuoteType:
		candidates = filterPrefix(quoteTypeNames, prefix)
	case contextUniverse:
		candidates = filterPrefix(universeNames, prefix)
	case contextPlugin:
		candidates = filterPrefix(append([]string{"off"}, pluginNames()...), prefix)
	case contextPluginOff:
		candidates = filterPrefix(c.sess.plugins.names(), prefix)
	case contextRegion:
		candidates = filterPrefix(nodes.RegionCodes(), prefix)
	case contextPredefined:
		candidates = filterPrefix(screener.PredefinedScreens(), prefix)
	}

	for _, cand := range candidates {
		suffix := cand[len(prefix):]
		// Add trailing space for convenience.
		newLine = append(newLine, []rune(suffix+" "))
	}
	length = len([]rune(prefix))
	return
}

// parseContext examines the line up to cursor and determines what kind of
// completion is needed and the current prefix being typed.
func (c *replCompleter) parseContext(line string) (completionContext, string) {
	lower := strings.ToLower(line)

	for _, cmd := range c.sess.commands {
		if !strings.HasSuffix(cmd.prefix, " ") {
			continue // exact-match commands have no arg completion
		}
		if strings.HasPrefix(lower, cmd.prefix) {
			if cmd.completer == nil {
				return contextNone, ""
			}
			return cmd.completer(line[len(cmd.prefix):])
		}
	}

	// Default: command completion.
	return contextCommand, strings.TrimSpace(line)
}

// fieldNames returns the fields of the session's universe, or of every
// universe when construction is unchecked.
func (c *replCompleter) fieldNames() []string {
	universes := []nodes.Universe{nodes.Equity, nodes.ETF, nodes.Fund}
	if c.sess.universe != nil {
		universes = []nodes.Universe{*c.sess.universe}
	}
	var names []string
	for _, u := range universes {
		names = append(names, u.CategoricalFields()...)
		names = append(names, u.NumericFields()...)
	}
	slices.Sort(names)
	return slices.Compact(names)
}

// filterPrefix returns items that start with prefix (case-insensitive).
func filterPrefix(items []string, prefix string) []string {
	if prefix == "" {
		return slices.Clone(items)
	}
	lowerPrefix := strings.ToLower(prefix)
	var result []string
	for _, item := range items {
		if strings.HasPrefix(strings.ToLower(item), lowerPrefix) {
			result = append(result, item)
		}
	}
	return result
}

// lastToken returns the last whitespace-separated token, handling commas.
func lastToken(s string) string {
	lastSep := strings.LastIndexAny(s, " ,\t")
	if lastSep >= 0 {
		return s[lastSep+1:]
	}
	return s
}
