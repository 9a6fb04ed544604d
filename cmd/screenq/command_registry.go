package main

import (
	"sort"
	"strings"

	"github.com/bawdo/screenq/nodes"
)

// commandEntry maps a REPL prefix to its handler and optional tab-completer.
type commandEntry struct {
	prefix    string
	handler   func(args string) error
	completer func(args string) (completionContext, string) // nil = no arg completion
	hidden    bool                                          // excluded from commandNames()
}

// initCommands builds the command registry and sorts by prefix length descending.
func (s *Session) initCommands() {
	s.commands = []commandEntry{
		// --- stack ---
		{prefix: "stack", handler: func(_ string) error { return s.cmdStack() }},
		{prefix: "pop", handler: func(_ string) error { return s.cmdPop() }},
		{prefix: "clear", handler: func(_ string) error { return s.cmdClear() }},
		{prefix: "help", handler: func(_ string) error { s.cmdHelp(); return nil }},

		// --- building ---
		{prefix: "field ", handler: s.cmdField, completer: completeFieldArgs},
		{prefix: "universe ", handler: s.cmdUniverse, completer: completeUniverseArgs},
		{prefix: "fields", handler: func(_ string) error { return s.cmdFields() }},
		{prefix: "parse ", handler: s.cmdParse},
		{prefix: "load ", handler: s.cmdLoad},
		{prefix: "save ", handler: s.cmdSave},

		// --- editing ---
		{prefix: "set ", handler: s.cmdSet, completer: completeFieldArgs},
		{prefix: "check ", handler: s.cmdCheck},

		// --- display ---
		{prefix: "show ", handler: s.cmdShow, completer: completeFormatArgs},
		{prefix: "show", handler: func(_ string) error { return s.cmdShow("tree") }},
		{prefix: "sql", handler: func(_ string) error { return s.cmdShow("sql") }, hidden: true},
		{prefix: "json", handler: func(_ string) error { return s.cmdShow("json") }, hidden: true},
		{prefix: "dot ", handler: s.cmdDot},
		{prefix: "dialect ", handler: s.cmdDialect, completer: completeDialectArgs},
		{prefix: "params", handler: func(_ string) error { return s.cmdParameterize() }},
		{prefix: "parameterize", handler: func(_ string) error { return s.cmdParameterize() }, hidden: true},

		// --- request body ---
		{prefix: "size ", handler: s.cmdSize},
		{prefix: "offset ", handler: s.cmdOffset},
		{prefix: "sort ", handler: s.cmdSort},
		{prefix: "quote ", handler: s.cmdQuote, completer: completeQuoteArgs},
		{prefix: "body", handler: func(_ string) error { return s.cmdBody() }},
		{prefix: "request", handler: func(_ string) error { return s.cmdRequest() }},

		// --- plugins ---
		{prefix: "plugin ", handler: s.cmdPlugin, completer: completePluginArgs},
		{prefix: "plugins", handler: func(_ string) error { s.cmdPlugins(); return nil }},

		// --- remote ---
		{prefix: "fetch", handler: func(_ string) error { return s.cmdFetch() }},
		{prefix: "predefined ", handler: s.cmdPredefined, completer: completePredefinedArgs},
		{prefix: "predefined", handler: func(_ string) error { return s.cmdPredefined("") }},

		// --- database ---
		{prefix: "connect ", handler: s.cmdConnect, completer: completeEngineArgs},
		{prefix: "disconnect", handler: func(_ string) error { return s.cmdDisconnect() }},
		{prefix: "screen ", handler: s.cmdScreen},
		{prefix: "tz ", handler: s.cmdTimezone},
	}

	// Every combinator except "field" gets a command of its own name.
	for _, name := range nodes.Names() {
		c, _ := nodes.Lookup(name)
		entry := commandEntry{prefix: name + " "}
		switch {
		case c.Operator().IsLogical():
			entry.handler = func(a string) error { return s.cmdLogical(c, a) }
		case c.BoundField() == "" && c.Operator() != nodes.OpUnset:
			entry.handler = func(a string) error { return s.cmdCompare(c, a) }
			entry.completer = completeFieldArgs
		case c.BoundField() != "":
			entry.handler = func(a string) error { return s.cmdShortcut(c, a) }
			if c.Operator() == nodes.OpUnset {
				entry.completer = completeOperatorArgs
			}
		default:
			continue
		}
		s.commands = append(s.commands, entry)
		if c.Operator().IsLogical() {
			s.commands = append(s.commands, commandEntry{prefix: name, handler: entry.handler})
		}
	}

	// Sort by prefix length descending so longest prefixes match first.
	sort.SliceStable(s.commands, func(i, j int) bool {
		return len(s.commands[i].prefix) > len(s.commands[j].prefix)
	})
}

// commandNames derives the command name list from the registry for tab completion.
func (s *Session) commandNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, cmd := range s.commands {
		if cmd.hidden {
			continue
		}
		name := strings.TrimRight(cmd.prefix, " ")
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	// exit/quit are handled by the REPL loop, not Execute().
	for _, extra := range []string{"exit", "quit"} {
		if !seen[extra] {
			names = append(names, extra)
		}
	}
	sort.Strings(names)
	return names
}

// --- Shared completion helpers ---

// completeFieldArgs completes the first argument with a field name.
func completeFieldArgs(args string) (completionContext, string) {
	if strings.Contains(args, " ") {
		return contextNone, ""
	}
	return contextField, args
}

// completeOperatorArgs completes the operator of a numeric shortcut.
func completeOperatorArgs(args string) (completionContext, string) {
	if strings.Contains(args, " ") {
		return contextNone, ""
	}
	return contextOperator, args
}

func completeFormatArgs(args string) (completionContext, string) {
	return contextFormat, strings.TrimSpace(args)
}

func completeDialectArgs(args string) (completionContext, string) {
	return contextDialect, strings.TrimSpace(args)
}

func completeQuoteArgs(args string) (completionContext, string) {
	return contextQuoteType, strings.TrimSpace(args)
}

func completeUniverseArgs(args string) (completionContext, string) {
	return contextUniverse, strings.TrimSpace(args)
}

// completeEngineArgs completes the engine of connect; the DSN is free-form.
func completeEngineArgs(args string) (completionContext, string) {
	if strings.Contains(args, " ") {
		return contextNone, ""
	}
	return contextDialect, args
}

// completePluginArgs handles completion for the plugin command:
// plugin names, or region codes after "region".
func completePluginArgs(args string) (completionContext, string) {
	lower := strings.ToLower(args)
	if strings.HasPrefix(lower, "region ") {
		return contextRegion, lastToken(args)
	}
	if strings.HasPrefix(lower, "off ") {
		return contextPluginOff, strings.TrimSpace(args[4:])
	}
	arg := strings.TrimSpace(args)
	if !strings.Contains(arg, " ") {
		return contextPlugin, arg
	}
	return contextNone, ""
}

// completePredefinedArgs completes every argument with a screen name.
func completePredefinedArgs(args string) (completionContext, string) {
	return contextPredefined, lastToken(args)
}
