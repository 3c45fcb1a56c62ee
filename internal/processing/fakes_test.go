package processing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"adspower_sync/internal/adspower"
	"adspower_sync/internal/config"
	"adspower_sync/internal/geocode"
	"adspower_sync/internal/groups"
	"adspower_sync/internal/sheets"
)

var errBoom = errors.New("boom")

type fakeAPI struct {
	statusErr  error
	profiles   map[string][]adspower.Profile
	listErr    map[string]error
	createErr  map[int]error
	updateErr  map[string]error
	created    []adspower.CreateRequest
	updated    []adspower.UpdateRequest
	createCall int
}

func (f *fakeAPI) Status(context.Context) error { return f.statusErr }

func (f *fakeAPI) ListProfiles(_ context.Context, groupID string) ([]adspower.Profile, error) {
	return f.profiles[groupID], f.listErr[groupID]
}

func (f *fakeAPI) CountProfiles(ctx context.Context, groupID string) (int, error) {
	p, err := f.ListProfiles(ctx, groupID)
	return len(p), err
}

func (f *fakeAPI) CreateProfile(_ context.Context, req adspower.CreateRequest) (string, error) {
	f.createCall++
	if err := f.createErr[f.createCall]; err != nil {
		return "", err
	}
	f.created = append(f.created, req)
	return fmt.Sprintf("new%d", f.createCall), nil
}

func (f *fakeAPI) UpdateProfile(_ context.Context, req adspower.UpdateRequest) error {
	if err := f.updateErr[req.UserID]; err != nil {
		return err
	}
	f.updated = append(f.updated, req)
	return nil
}

type write struct {
	Range  string
	Values [][]interface{}
}

type deletion struct {
	SheetID int64
	Rows    []int
}

// fakeStore serves reads by exact A1 range. Update errors fire once.
type fakeStore struct {
	ranges    map[string][][]interface{}
	readErr   map[string]error
	updateErr map[string]error
	props     map[string]sheets.Properties
	writes    []write
	deletes   []deletion
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		ranges:    map[string][][]interface{}{},
		readErr:   map[string]error{},
		updateErr: map[string]error{},
		props:     map[string]sheets.Properties{},
	}
}

func (f *fakeStore) ReadSheet(_ context.Context, _ string, rng string) ([][]interface{}, error) {
	if err := f.readErr[rng]; err != nil {
		return nil, err
	}
	return f.ranges[rng], nil
}

func (f *fakeStore) ReadColumn(ctx context.Context, id, rng string) ([]string, error) {
	values, err := f.ReadSheet(ctx, id, rng)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, r := range sheets.ToRows(values) {
		out = append(out, r.Cell(0))
	}
	return out, nil
}

func (f *fakeStore) UpdateRange(_ context.Context, _ string, rng string, values [][]interface{}) error {
	if err := f.updateErr[rng]; err != nil {
		delete(f.updateErr, rng)
		return err
	}
	f.writes = append(f.writes, write{Range: rng, Values: values})
	return nil
}

func (f *fakeStore) SheetProperties(_ context.Context, _ string, title string) (sheets.Properties, error) {
	p, ok := f.props[title]
	if !ok {
		return sheets.Properties{}, sheets.ErrSheetNotFound
	}
	return p, nil
}

func (f *fakeStore) DeleteRows(_ context.Context, _ string, sheetID int64, rows []int) error {
	f.deletes = append(f.deletes, deletion{SheetID: sheetID, Rows: rows})
	return nil
}

func (f *fakeStore) writtenRanges() []string {
	out := make([]string, len(f.writes))
	for i, w := range f.writes {
		out[i] = w.Range
	}
	return out
}

type fakeGeocoder struct {
	known   map[string]geocode.Coordinates
	failing map[string]bool
	lookups []string
}

func (f *fakeGeocoder) Lookup(_ context.Context, address string) (geocode.Coordinates, bool, error) {
	f.lookups = append(f.lookups, address)
	if f.failing[address] {
		return geocode.Coordinates{}, false, errBoom
	}
	c, ok := f.known[strings.TrimSpace(address)]
	return c, ok, nil
}

func column(cells ...string) [][]interface{} {
	out := make([][]interface{}, len(cells))
	for i, c := range cells {
		out[i] = []interface{}{c}
	}
	return out
}

func testSettings() *config.Settings {
	s := &config.Settings{
		Groups: []string{"Alpha", "Beta"},
		ProxyGroups: map[string]map[string]any{
			"alpha": {"proxy_soft": "no_proxy"},
			"Beta":  {"proxy_soft": "other", "proxy_host": "10.0.0.1"},
		},
		Profile:     config.ProfileDefaults{OS: "windows", Browser: "chrome"},
		MaxBrowsers: 6,
	}
	s.GoogleSheets.SpreadsheetID = "main"
	s.GoogleSheets.SourceSheets = []string{"Accounts"}
	s.GoogleSheets.OutputSheets = []string{"Output", "Archive"}
	s.GoogleSheets.Names.SpreadsheetID = "names"
	s.GoogleSheets.Names.Sheet = "Names"
	return s
}

func testDirectory() *groups.Directory {
	return groups.NewDirectory(groups.Group{Name: "Alpha", ID: "g1"}, groups.Group{Name: "Beta", ID: "g2"})
}

func profiles(ids ...string) []adspower.Profile {
	out := make([]adspower.Profile, len(ids))
	for i, id := range ids {
		out[i] = adspower.Profile{UserID: id, Remark: id + " status\nLocation Added", LastOpenTime: "0"}
	}
	return out
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
