package main

import "github.com/bawdo/screenq/plugins"

// pluginEntry is an enabled plugin.
type pluginEntry struct {
	name    string
	factory func() plugins.Transformer // fresh instance per query
	status  func() string
}

// pluginRegistry holds the enabled plugins in registration order, which is
// the order they transform a query.
type pluginRegistry struct {
	entries []pluginEntry
}

// register adds or replaces a plugin by name.
func (r *pluginRegistry) register(entry pluginEntry) {
	for i, e := range r.entries {
		if e.name == entry.name {
			r.entries[i] = entry
			return
		}
	}
	r.entries = append(r.entries, entry)
}

// deregister removes a plugin by name. Returns false if it was not enabled.
func (r *pluginRegistry) deregister(name string) bool {
	for i, e := range r.entries {
		if e.name == name {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return true
		}
	}
	return false
}

func (r *pluginRegistry) deregisterAll() {
	r.entries = nil
}

func (r *pluginRegistry) get(name string) (pluginEntry, bool) {
	for _, e := range r.entries {
		if e.name == name {
			return e, true
		}
	}
	return pluginEntry{}, false
}

// names returns the enabled plugin names.
func (r *pluginRegistry) names() []string {
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.name
	}
	return out
}

// applyTo hands a fresh instance of each plugin to use.
func (r *pluginRegistry) applyTo(use func(plugins.Transformer)) {
	for _, entry := range r.entries {
		use(entry.factory())
	}
}

// pluginConfigurer is a known plugin the plugin command can enable.
type pluginConfigurer struct {
	name      string
	configure func(s *Session, args string) error
}

var pluginConfigurers = []pluginConfigurer{
	{name: "region", configure: configureRegion},
}

func pluginNames() []string {
	out := make([]string, len(pluginConfigurers))
	for i, c := range pluginConfigurers {
		out[i] = c.name
	}
	return out
}
