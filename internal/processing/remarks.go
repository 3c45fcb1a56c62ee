package processing

import (
	"context"
	"errors"
	"math/rand"

	"adspower_sync/internal/adspower"
	"adspower_sync/internal/config"
	"adspower_sync/internal/geocode"
	"adspower_sync/internal/remark"
	"adspower_sync/internal/sheets"

	"github.com/rs/zerolog/log"
)

// Source sheet layout.
const (
	SourceFirstRow = 4
	SourceLastCol  = 26 // AA
	MaxEmptyRows   = 5
)

const (
	colUsername = 0  // A
	colPassword = 1  // B
	colAddress  = 3  // D
	colTwoFAKey = 7  // H
	colUserID   = 14 // O
	colStatus   = 25 // Z
)

// Update payload constants.
const (
	GoogleDomain = "accounts.google.com"
	MinAccuracy  = 10
	MaxAccuracy  = 5000
)

// RemarkResult counts the outcome of one remarks pass.
type RemarkResult struct {
	Updated int
	Failed  int
	Skipped int
}

// RemarkUpdater pushes the source sheets' row facts to their profiles.
type RemarkUpdater struct {
	api      ProfileAPI
	store    SheetStore
	geocoder Geocoder
	settings *config.Settings
	rng      *rand.Rand
}

func NewRemarkUpdater(api ProfileAPI, store SheetStore, geocoder Geocoder, settings *config.Settings, rng *rand.Rand) *RemarkUpdater {
	return &RemarkUpdater{api: api, store: store, geocoder: geocoder, settings: settings, rng: rng}
}

// SourceRow is one data row of a source sheet.
type SourceRow struct {
	Number   int
	Username string
	Password string
	Address  string
	TwoFAKey string
	UserID   string
	Status   string
}

func parseSourceRow(number int, r sheets.Row) SourceRow {
	return SourceRow{
		Number:   number,
		Username: r.Cell(colUsername),
		Password: r.Cell(colPassword),
		Address:  r.Cell(colAddress),
		TwoFAKey: r.Cell(colTwoFAKey),
		UserID:   r.Cell(colUserID),
		Status:   r.Cell(colStatus),
	}
}

// SourceRows returns the rows worth processing. Scanning stops after
// MaxEmptyRows consecutive rows without a user id; rows missing the user id
// or the status are left out.
func SourceRows(values [][]interface{}, firstRow int) (rows []SourceRow, skipped int) {
	empty := 0
	for i, raw := range sheets.ToRows(values) {
		row := parseSourceRow(firstRow+i, raw)
		if row.UserID == "" {
			empty++
			if empty >= MaxEmptyRows {
				break
			}
			continue
		}
		empty = 0
		if row.Status == "" {
			skipped++
			continue
		}
		rows = append(rows, row)
	}
	return rows, skipped
}

// Run processes every configured source sheet. A sheet that cannot be read
// is logged and skipped; a row that fails never aborts its sheet.
func (u *RemarkUpdater) Run(ctx context.Context) RemarkResult {
	var result RemarkResult
	id := u.settings.GoogleSheets.SpreadsheetID
	for _, sheet := range u.settings.GoogleSheets.SourceSheets {
		logger := log.Ctx(ctx).With().Str("sheet", sheet).Logger()

		props, err := u.store.SheetProperties(ctx, id, sheet)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to read sheet metadata, skipping sheet")
			continue
		}
		if props.RowCount < SourceFirstRow {
			logger.Info().Int64("row_count", props.RowCount).Msg("Sheet has no data rows")
			continue
		}

		values, err := u.store.ReadSheet(ctx, id, sheets.BlockRange(sheet, SourceFirstRow, int(props.RowCount), 0, SourceLastCol))
		if err != nil {
			logger.Error().Err(err).Msg("Failed to read sheet, skipping sheet")
			continue
		}

		rows, skipped := SourceRows(values, SourceFirstRow)
		result.Skipped += skipped
		logger.Info().Int("rows", len(rows)).Int("skipped", skipped).Msg("Processing source sheet")

		for _, row := range rows {
			if err := u.updateRow(logger.WithContext(ctx), row); err != nil {
				result.Failed++
				continue
			}
			result.Updated++
		}
		logger.Info().Msg("Finished processing sheet")
	}
	return result
}

func (u *RemarkUpdater) updateRow(ctx context.Context, row SourceRow) error {
	logger := log.Ctx(ctx).With().Int("row", row.Number).Str("user_id", row.UserID).Logger()

	coords, geocoded := u.locate(ctx, row.Address)
	text := remark.Assemble(row.Status, remark.Inputs{
		Address:  row.Address,
		Geocoded: geocoded,
		TwoFAKey: row.TwoFAKey,
		Username: row.Username,
		Password: row.Password,
	})

	req := adspower.UpdateRequest{
		UserID:      row.UserID,
		Remark:      text,
		Username:    row.Username,
		Password:    row.Password,
		Fakey:       row.TwoFAKey,
		Fingerprint: adspower.NoLocationFingerprint(),
	}
	if remark.HasAccount(row.Username, row.Password) {
		req.DomainName = GoogleDomain
	}
	if geocoded {
		req.Fingerprint = adspower.LocationFingerprint(coords.Lat, coords.Lon, u.accuracy())
	}

	if err := u.api.UpdateProfile(ctx, req); err != nil {
		var apiErr *adspower.APIError
		if errors.As(err, &apiErr) {
			logger.Warn().Int("code", apiErr.Code).Str("msg", apiErr.Msg).Msg("Profile update rejected")
		} else {
			logger.Error().Err(err).Msg("Failed to update profile")
		}
		return err
	}
	logger.Info().Bool("location", geocoded).Msg("Updated profile remark")
	return nil
}

func (u *RemarkUpdater) locate(ctx context.Context, address string) (geocode.Coordinates, bool) {
	if u.geocoder == nil || address == "" {
		return geocode.Coordinates{}, false
	}
	coords, found, err := u.geocoder.Lookup(ctx, address)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("address", address).Msg("Geocoding failed")
		return geocode.Coordinates{}, false
	}
	return coords, found
}

// accuracy is a random radius in meters within [MinAccuracy, MaxAccuracy].
func (u *RemarkUpdater) accuracy() int {
	return MinAccuracy + u.rng.Intn(MaxAccuracy-MinAccuracy+1)
}
