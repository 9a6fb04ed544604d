package screener

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ErrUnknownScreen wraps predefined screen names outside the allow-list.
var ErrUnknownScreen = errors.New("screener: unknown predefined screen")

var predefinedScreens = []string{
	"aggressive_small_caps",
	"conservative_foreign_funds",
	"day_gainers",
	"day_losers",
	"growth_technology_stocks",
	"high_yield_bond",
	"most_actives",
	"most_shorted_stocks",
	"portfolio_anchors",
	"small_cap_gainers",
	"solid_large_growth_funds",
	"solid_midcap_growth_funds",
	"top_mutual_funds",
	"undervalued_growth_stocks",
	"undervalued_large_caps",
}

// PredefinedScreens returns the names accepted by FetchPredefined, sorted.
func PredefinedScreens() []string {
	return slices.Clone(predefinedScreens)
}

func checkScreen(name string) error {
	if !slices.Contains(predefinedScreens, name) {
		return fmt.Errorf("%w: %q", ErrUnknownScreen, name)
	}
	return nil
}

// FetchPredefined fetches a server-curated screen by name. The query tree
// is not involved.
func (s *Screener) FetchPredefined(ctx context.Context, name string, count int) (map[string]any, error) {
	if err := checkScreen(name); err != nil {
		return nil, err
	}
	if err := validateCount("count", count); err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("scrIds", name)
	params.Set("count", strconv.Itoa(count))

	s.logger.Debug("fetching predefined screen", "name", name, "count", count)
	resp, err := s.transport.Get(ctx, s.endpoints.Predefined, params)
	if err != nil {
		return nil, fmt.Errorf("screener: fetch %s: %w", name, err)
	}
	s.record(ctx, "predefined:"+name, resp)
	return resp, nil
}

// FetchPredefinedAll fetches several predefined screens concurrently and
// returns the responses keyed by name. All names are checked before any
// request is made; the first failure cancels the remaining requests.
func (s *Screener) FetchPredefinedAll(ctx context.Context, count int, names ...string) (map[string]map[string]any, error) {
	for _, name := range names {
		if err := checkScreen(name); err != nil {
			return nil, err
		}
	}
	if err := validateCount("count", count); err != nil {
		return nil, err
	}

	var mu sync.Mutex
	results := make(map[string]map[string]any, len(names))
	eg, egctx := errgroup.WithContext(ctx)
	for _, name := range names {
		eg.Go(func() error {
			resp, err := s.FetchPredefined(egctx, name, count)
			if err != nil {
				return err
			}
			mu.Lock()
			results[name] = resp
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
