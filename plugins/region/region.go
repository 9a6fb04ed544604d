// Package region provides a Transformer that restricts a screen to one or
// more regions by AND-ing a region constraint into the tree.
//
// By default it adds EQ(region, "us") unless the tree already compares the
// region field. Both the field and the set of regions can be customised via
// options.
//
// # Basic usage
//
//	q := managers.NewQuery(nodes.Must(nodes.Gt.Of("eodprice", 5)))
//	q.Use(region.New())
//	// {"operator":"AND","operands":[{"operator":"GT",...},{"operator":"EQ","operands":["region","us"]}]}
//
// # Several regions
//
//	region.New(region.WithRegions("us", "gb"))
//	// AND(root, OR(EQ(region, us), EQ(region, gb)))
//
// # REPL usage
//
//	screenq> plugin region us gb
//	screenq> plugin off region
package region

import (
	"fmt"
	"slices"
	"strings"

	"github.com/bawdo/screenq/nodes"
	"github.com/bawdo/screenq/plugins"
)

// Region is a Transformer that adds a region constraint to the root.
type Region struct {
	Field   string
	Regions []string
}

var _ plugins.Transformer = (*Region)(nil)

// Option configures a Region transformer.
type Option func(*Region)

// WithRegions sets the region codes. Codes are lower-cased.
func WithRegions(codes ...string) Option {
	return func(r *Region) {
		r.Regions = r.Regions[:0]
		for _, c := range codes {
			r.Regions = append(r.Regions, strings.ToLower(strings.TrimSpace(c)))
		}
	}
}

// WithField sets the field compared against the region codes. Default is "region".
func WithField(name string) Option {
	return func(r *Region) { r.Field = name }
}

// New creates a Region transformer with the given options.
func New(opts ...Option) *Region {
	r := &Region{Field: "region", Regions: []string{"us"}}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Validate checks the configured codes against the known region table.
func (r *Region) Validate() error {
	if len(r.Regions) == 0 {
		return fmt.Errorf("region: no regions configured")
	}
	known := nodes.RegionCodes()
	for _, c := range r.Regions {
		if !slices.Contains(known, c) {
			return fmt.Errorf("region: unknown region %q", c)
		}
	}
	return nil
}

// Transform returns root unchanged when it already references the field;
// otherwise it returns AND(root, constraint).
func (r *Region) Transform(root *nodes.Expression) (*nodes.Expression, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if plugins.References(root, r.Field) {
		return root, nil
	}
	constraint, err := r.constraint()
	if err != nil {
		return nil, err
	}
	return nodes.And.Of(root, constraint)
}

func (r *Region) constraint() (*nodes.Expression, error) {
	eqs := make([]any, len(r.Regions))
	for i, code := range r.Regions {
		eq, err := nodes.Eq.Of(r.Field, code)
		if err != nil {
			return nil, err
		}
		eqs[i] = eq
	}
	if len(eqs) == 1 {
		return eqs[0].(*nodes.Expression), nil
	}
	return nodes.Or.Of(eqs...)
}
