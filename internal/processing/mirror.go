package processing

import (
	"context"
	"time"

	"adspower_sync/internal/adspower"
	"adspower_sync/internal/config"
	"adspower_sync/internal/groups"
	"adspower_sync/internal/remark"
	"adspower_sync/internal/sheets"

	"github.com/rs/zerolog/log"
)

// OutputWidth is the number of columns written per output row: user id,
// group, remark summary, last open and sync time.
const OutputWidth = 5

// SyncedAtLayout formats the sync time column.
const SyncedAtLayout = "02/01 15:04"

// MirrorResult reports one mirror pass.
type MirrorResult struct {
	// Valid holds every user id listed during the pass.
	Valid map[string]struct{}
	// Complete is false when any group failed to list; Valid is then a
	// subset of the live ids and must not drive cleanup.
	Complete bool
	Written  int
	Failed   int
}

// Mirror copies profile metadata into every output sheet.
type Mirror struct {
	api      ProfileAPI
	store    SheetStore
	settings *config.Settings
	groups   *groups.Directory
	now      func() time.Time
	loc      *time.Location
}

func NewMirror(api ProfileAPI, store SheetStore, settings *config.Settings, dir *groups.Directory) *Mirror {
	return &Mirror{api: api, store: store, settings: settings, groups: dir, now: time.Now, loc: time.Local}
}

// WithClock overrides the sync time source and the zone last open times are
// rendered in.
func (m *Mirror) WithClock(now func() time.Time, loc *time.Location) *Mirror {
	m.now = now
	m.loc = loc
	return m
}

// OutputRow builds the row mirrored for one profile.
func OutputRow(p adspower.Profile, group string, syncedAt time.Time, loc *time.Location) sheets.Row {
	return sheets.Row{
		p.UserID,
		group,
		remark.FirstLine(p.Remark),
		remark.FormatLastOpen(p.LastOpenTime.String(), loc),
		syncedAt.Format(SyncedAtLayout),
	}
}

// Run lists each group once and upserts every profile into every output
// sheet. An output sheet that cannot be read is skipped for the pass.
func (m *Mirror) Run(ctx context.Context) MirrorResult {
	logger := log.Ctx(ctx)
	result := MirrorResult{Valid: make(map[string]struct{}), Complete: true}
	id := m.settings.GoogleSheets.SpreadsheetID

	tables := make([]*sheets.Table, 0, len(m.settings.GoogleSheets.OutputSheets))
	for _, sheet := range m.settings.GoogleSheets.OutputSheets {
		values, err := m.store.ReadSheet(ctx, id, sheets.ColumnsRange(sheet, 0, OutputWidth-1))
		if err != nil {
			logger.Error().Err(err).Str("sheet", sheet).Msg("Failed to read output sheet, skipping it this run")
			continue
		}
		t := sheets.NewTable(sheet, values)
		t.Reserve(OutputFirstRow - 1)
		tables = append(tables, t)
	}

	for _, g := range m.groups.All() {
		profiles, err := m.api.ListProfiles(ctx, g.ID)
		if err != nil {
			result.Complete = false
			logger.Error().Err(err).Str("group", g.Name).Int("listed", len(profiles)).Msg("Failed to list group profiles")
		}
		logger.Info().Str("group", g.Name).Int("profiles", len(profiles)).Msg("Mirroring group")

		for _, p := range profiles {
			if p.UserID == "" {
				continue
			}
			result.Valid[p.UserID] = struct{}{}
			values := OutputRow(p, g.Name, m.now(), m.loc)
			for _, t := range tables {
				if err := m.write(ctx, id, t, values); err != nil {
					result.Failed++
					logger.Error().Err(err).Str("sheet", t.Sheet).Str("user_id", p.UserID).Msg("Failed to write output row")
					continue
				}
				result.Written++
			}
		}
	}
	return result
}

func (m *Mirror) write(ctx context.Context, spreadsheetID string, t *sheets.Table, values sheets.Row) error {
	key := values.Key()
	row, wasUpdate := t.Locate(key)
	if err := m.store.UpdateRange(ctx, spreadsheetID, sheets.RowRange(t.Sheet, row, 0, OutputWidth), [][]interface{}{values}); err != nil {
		return err
	}
	t.Put(row, values)
	log.Ctx(ctx).Debug().
		Str("sheet", t.Sheet).
		Str("user_id", key).
		Int("row", row).
		Bool("updated", wasUpdate).
		Msg("Wrote output row")
	return nil
}
