// Package processing holds the flows of a sync run: quota balancing, remark
// updates, output sheet mirroring and output sheet cleanup.
package processing

import (
	"context"

	"adspower_sync/internal/adspower"
	"adspower_sync/internal/geocode"
	"adspower_sync/internal/sheets"
)

// ProfileAPI is the part of the AdsPower client the flows use.
type ProfileAPI interface {
	Status(ctx context.Context) error
	ListProfiles(ctx context.Context, groupID string) ([]adspower.Profile, error)
	CountProfiles(ctx context.Context, groupID string) (int, error)
	CreateProfile(ctx context.Context, req adspower.CreateRequest) (string, error)
	UpdateProfile(ctx context.Context, req adspower.UpdateRequest) error
}

// SheetStore is the spreadsheet contract: rectangular reads and writes,
// tab metadata and batched row deletion.
type SheetStore interface {
	ReadSheet(ctx context.Context, spreadsheetID, range_ string) ([][]interface{}, error)
	ReadColumn(ctx context.Context, spreadsheetID, range_ string) ([]string, error)
	UpdateRange(ctx context.Context, spreadsheetID, range_ string, values [][]interface{}) error
	SheetProperties(ctx context.Context, spreadsheetID, title string) (sheets.Properties, error)
	DeleteRows(ctx context.Context, spreadsheetID string, sheetID int64, rows []int) error
}

// Geocoder resolves an address to coordinates.
type Geocoder interface {
	Lookup(ctx context.Context, address string) (geocode.Coordinates, bool, error)
}
