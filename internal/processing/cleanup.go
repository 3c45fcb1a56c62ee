package processing

import (
	"context"

	"adspower_sync/internal/config"
	"adspower_sync/internal/sheets"

	"github.com/rs/zerolog/log"
)

// OutputFirstRow is the first data row of an output sheet; row 1 is the header.
const OutputFirstRow = 2

// CleanupResult reports one cleanup pass.
type CleanupResult struct {
	Deleted int
	Failed  int
	Skipped bool
}

// Cleaner removes duplicate and orphaned rows from the output sheets.
type Cleaner struct {
	store    SheetStore
	settings *config.Settings
}

func NewCleaner(store SheetStore, settings *config.Settings) *Cleaner {
	return &Cleaner{store: store, settings: settings}
}

// Run deletes, per output sheet and in one batch, every row whose key is a
// repeat or is missing from valid. An empty valid set deletes nothing.
func (c *Cleaner) Run(ctx context.Context, valid map[string]struct{}) CleanupResult {
	logger := log.Ctx(ctx)
	var result CleanupResult
	if len(valid) == 0 {
		logger.Warn().Msg("No valid profile ids, skipping cleanup")
		result.Skipped = true
		return result
	}

	id := c.settings.GoogleSheets.SpreadsheetID
	for _, sheet := range c.settings.GoogleSheets.OutputSheets {
		n, err := c.cleanSheet(ctx, id, sheet, valid)
		if err != nil {
			result.Failed++
			logger.Error().Err(err).Str("sheet", sheet).Msg("Failed to clean output sheet")
			continue
		}
		result.Deleted += n
	}
	return result
}

func (c *Cleaner) cleanSheet(ctx context.Context, spreadsheetID, sheet string, valid map[string]struct{}) (int, error) {
	props, err := c.store.SheetProperties(ctx, spreadsheetID, sheet)
	if err != nil {
		return 0, err
	}
	values, err := c.store.ReadSheet(ctx, spreadsheetID, sheets.OpenRange(sheet, OutputFirstRow, 0, 0))
	if err != nil {
		return 0, err
	}

	rows := sheets.Classify(sheets.ToRows(values), valid, OutputFirstRow)
	if len(rows) == 0 {
		log.Ctx(ctx).Info().Str("sheet", sheet).Msg("Output sheet is clean")
		return 0, nil
	}
	if err := c.store.DeleteRows(ctx, spreadsheetID, props.SheetID, rows); err != nil {
		return 0, err
	}
	log.Ctx(ctx).Info().Str("sheet", sheet).Ints("rows", rows).Msg("Deleted stale output rows")
	return len(rows), nil
}
