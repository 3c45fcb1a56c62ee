package processing

import (
	"context"
	"math/rand"
	"strconv"
	"testing"

	"adspower_sync/internal/adspower"
	"adspower_sync/internal/geocode"
	"adspower_sync/internal/sheets"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sourceRow(username, password, address, fakey, userID, status string) []interface{} {
	row := make([]interface{}, 26)
	for i := range row {
		row[i] = ""
	}
	row[0], row[1], row[3], row[7], row[14], row[25] = username, password, address, fakey, userID, status
	return row
}

func blankRows(n int) [][]interface{} {
	out := make([][]interface{}, n)
	for i := range out {
		out[i] = []interface{}{}
	}
	return out
}

func sourceStore(rows [][]interface{}) *fakeStore {
	store := newFakeStore()
	store.props["Accounts"] = sheets.Properties{SheetID: 11, Title: "Accounts", RowCount: 40}
	store.ranges["Accounts!A4:AA40"] = rows
	return store
}

func newTestRemarkUpdater(api *fakeAPI, store *fakeStore, geo *fakeGeocoder) *RemarkUpdater {
	return NewRemarkUpdater(api, store, geo, testSettings(), rand.New(rand.NewSource(7)))
}

func updatesByID(reqs []adspower.UpdateRequest) map[string]adspower.UpdateRequest {
	out := make(map[string]adspower.UpdateRequest, len(reqs))
	for _, r := range reqs {
		out[r.UserID] = r
	}
	return out
}

func TestSourceRowsStopsAfterFiveEmptyRows(t *testing.T) {
	values := [][]interface{}{sourceRow("", "", "", "", "p1", "Active")}
	values = append(values, blankRows(4)...)
	values = append(values, sourceRow("", "", "", "", "p2", "Active"))
	values = append(values, blankRows(5)...)
	values = append(values, sourceRow("", "", "", "", "p3", "Active"))

	rows, skipped := SourceRows(values, 4)
	require.Len(t, rows, 2)
	assert.Zero(t, skipped)
	assert.Equal(t, "p1", rows[0].UserID)
	assert.Equal(t, 4, rows[0].Number)
	assert.Equal(t, "p2", rows[1].UserID)
	assert.Equal(t, 9, rows[1].Number)
}

func TestSourceRowsSkipsMissingStatus(t *testing.T) {
	values := [][]interface{}{
		{"user", "pass", "", "", "", "", "", "", "", "", "", "", "", "", "p1"},
		sourceRow("", "", "", "", "p2", " Active "),
	}
	rows, skipped := SourceRows(values, 4)
	assert.Equal(t, 1, skipped)
	require.Len(t, rows, 1)
	assert.Equal(t, "p2", rows[0].UserID)
	assert.Equal(t, "Active", rows[0].Status)
}

func TestRemarkUpdaterBuildsPayloads(t *testing.T) {
	store := sourceStore([][]interface{}{
		sourceRow("user@example.com", "secret", "10 Downing St", "KEY2FA", "p1", "Active"),
		sourceRow("", "", "", "", "p2", "New"),
		sourceRow("user", "", "", "", "p5", ""),
		sourceRow("", "pw", "Nowhere", "", "p3", "Hold"),
		sourceRow("", "", "Flaky Rd", "", "p4", "Hold"),
	})
	geo := &fakeGeocoder{
		known:   map[string]geocode.Coordinates{"10 Downing St": {Lat: 51.5033641, Lon: -0.1276248}},
		failing: map[string]bool{"Flaky Rd": true},
	}
	api := &fakeAPI{}

	res := newTestRemarkUpdater(api, store, geo).Run(context.Background())
	assert.Equal(t, RemarkResult{Updated: 4, Skipped: 1}, res)
	assert.Equal(t, []string{"10 Downing St", "Nowhere", "Flaky Rd"}, geo.lookups)

	got := updatesByID(api.updated)
	require.Len(t, got, 4)

	p1 := got["p1"]
	assert.Equal(t, "Active\nLocation Added\n2FA Added\nAccount Added", p1.Remark)
	assert.Equal(t, "user@example.com", p1.Username)
	assert.Equal(t, "secret", p1.Password)
	assert.Equal(t, "KEY2FA", p1.Fakey)
	assert.Equal(t, GoogleDomain, p1.DomainName)
	assert.Equal(t, "0", p1.Fingerprint.LocationSwitch)
	assert.Equal(t, "51.503364", p1.Fingerprint.Latitude)
	assert.Equal(t, "-0.127625", p1.Fingerprint.Longitude)
	acc, err := strconv.Atoi(p1.Fingerprint.Accuracy)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, acc, MinAccuracy)
	assert.LessOrEqual(t, acc, MaxAccuracy)

	p2 := got["p2"]
	assert.Equal(t, "New\nLocation Info Missing\n2FA Info Missing\nAccount Info Missing", p2.Remark)
	assert.Empty(t, p2.DomainName)
	assert.Equal(t, adspower.NoLocationFingerprint(), p2.Fingerprint)

	p3 := got["p3"]
	assert.Equal(t, "Hold\nError Processing Location\n2FA Info Missing\nAccount Info Missing", p3.Remark)
	assert.Empty(t, p3.DomainName)
	assert.Equal(t, "1", p3.Fingerprint.LocationSwitch)

	assert.Equal(t, "Hold\nError Processing Location\n2FA Info Missing\nAccount Info Missing", got["p4"].Remark)
}

func TestRemarkUpdaterRowFailureDoesNotAbortSheet(t *testing.T) {
	store := sourceStore([][]interface{}{
		sourceRow("", "", "", "", "p1", "Active"),
		sourceRow("", "", "", "", "p2", "Active"),
		sourceRow("", "", "", "", "p3", "Active"),
	})
	api := &fakeAPI{updateErr: map[string]error{
		"p1": &adspower.APIError{Endpoint: "/api/v1/user/update", Code: 9, Msg: "user not found"},
		"p2": errBoom,
	}}

	res := newTestRemarkUpdater(api, store, &fakeGeocoder{}).Run(context.Background())
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 2, res.Failed)
	require.Len(t, api.updated, 1)
	assert.Equal(t, "p3", api.updated[0].UserID)
}

func TestRemarkUpdaterSkipsUnreadableSheets(t *testing.T) {
	settings := testSettings()
	settings.GoogleSheets.SourceSheets = []string{"Missing", "Short", "Accounts"}
	store := sourceStore([][]interface{}{sourceRow("", "", "", "", "p1", "Active")})
	store.props["Short"] = sheets.Properties{Title: "Short", RowCount: 3}
	api := &fakeAPI{}

	u := NewRemarkUpdater(api, store, &fakeGeocoder{}, settings, rand.New(rand.NewSource(1)))
	res := u.Run(context.Background())
	assert.Equal(t, 1, res.Updated)
	require.Len(t, api.updated, 1)
	assert.Equal(t, "p1", api.updated[0].UserID)
}

func TestRemarkUpdaterWithoutGeocoder(t *testing.T) {
	store := sourceStore([][]interface{}{sourceRow("", "", "Somewhere", "", "p1", "Active")})
	api := &fakeAPI{}

	u := NewRemarkUpdater(api, store, nil, testSettings(), rand.New(rand.NewSource(1)))
	u.Run(context.Background())
	require.Len(t, api.updated, 1)
	assert.Equal(t, "Active\nError Processing Location\n2FA Info Missing\nAccount Info Missing", api.updated[0].Remark)
}
