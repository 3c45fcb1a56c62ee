package processing

import (
	"context"
	"fmt"
	"math/rand"

	"adspower_sync/internal/adspower"
	"adspower_sync/internal/config"
	"adspower_sync/internal/groups"
	"adspower_sync/internal/naming"
	"adspower_sync/internal/quota"
	"adspower_sync/internal/sheets"

	"github.com/rs/zerolog/log"
)

// BalanceResult reports one quota balancing pass.
type BalanceResult struct {
	Counts  map[string]int
	Needed  map[string]int
	Created int
	Failed  int
}

// Balancer tops every group up to its share of the global profile cap.
type Balancer struct {
	api      ProfileAPI
	store    SheetStore
	settings *config.Settings
	groups   *groups.Directory
	rng      *rand.Rand
}

func NewBalancer(api ProfileAPI, store SheetStore, settings *config.Settings, dir *groups.Directory, rng *rand.Rand) *Balancer {
	return &Balancer{api: api, store: store, settings: settings, groups: dir, rng: rng}
}

// Run counts, computes the shortfall and creates the missing profiles. A
// failed creation is logged and the pass continues.
func (b *Balancer) Run(ctx context.Context) (BalanceResult, error) {
	logger := log.Ctx(ctx)
	result := BalanceResult{Counts: b.currentCounts(ctx)}

	needed, err := quota.ComputeNeeded(result.Counts, b.settings.MaxBrowsers, b.groups.Names())
	if err != nil {
		return result, err
	}
	result.Needed = needed

	total := quota.Total(needed)
	logger.Info().
		Interface("counts", result.Counts).
		Interface("needed", needed).
		Int("total_needed", total).
		Msg("Computed profile quota")
	if total == 0 {
		logger.Info().Msg("No additional profiles needed")
		return result, nil
	}

	names, err := b.profileNames(ctx, total)
	if err != nil {
		return result, fmt.Errorf("failed to prepare profile names: %w", err)
	}

	for _, g := range b.groups.All() {
		for i := 0; i < needed[g.Name]; i++ {
			if len(names) == 0 {
				break
			}
			name := names[0]
			names = names[1:]

			id, err := b.api.CreateProfile(ctx, adspower.CreateRequest{
				Name:        name,
				GroupID:     g.ID,
				ProxyConfig: b.settings.ProxyFor(g.Name),
				OS:          b.settings.Profile.OS,
				Browser:     b.settings.Profile.Browser,
			})
			if err != nil {
				result.Failed++
				logger.Error().Err(err).Str("group", g.Name).Str("name", name).Msg("Failed to create profile")
				continue
			}
			result.Created++
			logger.Info().Str("group", g.Name).Str("name", name).Str("user_id", id).Msg("Created profile")
		}
	}

	return result, nil
}

// currentCounts lists each group. A group that cannot be counted is given
// the whole cap so it receives nothing this run and sorts last.
func (b *Balancer) currentCounts(ctx context.Context) map[string]int {
	counts := make(map[string]int, len(b.groups.All()))
	for _, g := range b.groups.All() {
		n, err := b.api.CountProfiles(ctx, g.ID)
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Str("group", g.Name).Msg("Failed to count profiles, skipping group this run")
			counts[g.Name] = b.settings.MaxBrowsers
			continue
		}
		counts[g.Name] = n
		log.Ctx(ctx).Debug().Str("group", g.Name).Int("count", n).Msg("Counted profiles")
	}
	return counts
}

func (b *Balancer) profileNames(ctx context.Context, count int) ([]string, error) {
	src := b.settings.GoogleSheets.Names
	columns := make([][]string, 3)
	for i := range columns {
		col, err := b.store.ReadColumn(ctx, src.SpreadsheetID, sheets.ColumnsRange(src.Sheet, i, i))
		if err != nil {
			return nil, err
		}
		columns[i] = col
	}
	pool := naming.NewPool(columns[0], columns[1], columns[2])
	return naming.Generate(pool, count, b.rng)
}
