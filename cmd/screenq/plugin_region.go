package main

import (
	"fmt"
	"strings"

	"github.com/bawdo/screenq/plugins"
	"github.com/bawdo/screenq/plugins/region"
)

// configureRegion enables the region plugin. Codes come from args, or
// from the configured default regions when args is empty.
func configureRegion(s *Session, args string) error {
	codes := strings.Fields(strings.ToLower(strings.ReplaceAll(args, ",", " ")))
	if len(codes) == 0 {
		codes = s.regions
	}
	r := region.New(region.WithRegions(codes...))
	if err := r.Validate(); err != nil {
		return err
	}
	regions, field := r.Regions, r.Field
	s.plugins.register(pluginEntry{
		name: "region",
		factory: func() plugins.Transformer {
			return region.New(region.WithRegions(regions...), region.WithField(field))
		},
		status: func() string {
			return fmt.Sprintf("%s on %q", strings.Join(regions, ", "), field)
		},
	})
	s.printf("  Region plugin enabled (%s)\n", strings.Join(regions, ", "))
	return nil
}
