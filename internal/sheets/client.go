package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"adspower_sync/internal/retry"

	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// ErrSheetNotFound is returned when no tab carries the requested title.
var ErrSheetNotFound = errors.New("sheet not found")

type Client struct {
	service *sheets.Service
	limiter *rate.Limiter
	retry   retry.Config
}

// Properties describes one tab of a spreadsheet.
type Properties struct {
	SheetID  int64
	Title    string
	RowCount int64
}

// NewClient builds a Sheets client. cooldown is the minimum spacing between
// two API calls; policy governs retries of transient failures.
func NewClient(ctx context.Context, cooldown time.Duration, policy retry.Config, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}, opts...)
	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Client{
		service: service,
		limiter: newLimiter(cooldown),
		retry:   policy,
	}, nil
}

func newLimiter(cooldown time.Duration) *rate.Limiter {
	if cooldown <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(cooldown), 1)
}

// call throttles and retries one API operation. Client errors other than
// rate limiting are not retried.
func call[T any](ctx context.Context, c *Client, op func(context.Context) (T, error)) (T, error) {
	return retry.WithRetry(ctx, c.retry, func(ctx context.Context) (T, error) {
		var zero T
		if err := c.limiter.Wait(ctx); err != nil {
			return zero, err
		}
		result, err := op(ctx)
		if err != nil && !isTransient(err) {
			return zero, retry.Permanent(err)
		}
		return result, err
	})
}

func isTransient(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusTooManyRequests || gerr.Code >= 500
	}
	return true
}

func (c *Client) ReadSheet(ctx context.Context, spreadsheetID, range_ string) ([][]interface{}, error) {
	resp, err := call(ctx, c, func(ctx context.Context) (*sheets.ValueRange, error) {
		return c.service.Spreadsheets.Values.Get(spreadsheetID, range_).Context(ctx).Do()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}

	return resp.Values, nil
}

// ReadColumn flattens a single-column range into its non-nil cell strings.
func (c *Client) ReadColumn(ctx context.Context, spreadsheetID, range_ string) ([]string, error) {
	values, err := c.ReadSheet(ctx, spreadsheetID, range_)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, row := range values {
		for i := range row {
			out = append(out, Row(row).Cell(i))
		}
	}
	return out, nil
}

func (c *Client) UpdateRange(ctx context.Context, spreadsheetID, range_ string, values [][]interface{}) error {
	valueRange := &sheets.ValueRange{
		Values: values,
	}

	_, err := call(ctx, c, func(ctx context.Context) (*sheets.UpdateValuesResponse, error) {
		return c.service.Spreadsheets.Values.Update(spreadsheetID, range_, valueRange).
			ValueInputOption("USER_ENTERED").
			Context(ctx).
			Do()
	})
	if err != nil {
		return fmt.Errorf("failed to update range: %w", err)
	}

	return nil
}

// SheetProperties looks a tab up by title.
func (c *Client) SheetProperties(ctx context.Context, spreadsheetID, title string) (Properties, error) {
	resp, err := call(ctx, c, func(ctx context.Context) (*sheets.Spreadsheet, error) {
		return c.service.Spreadsheets.Get(spreadsheetID).
			Fields("sheets.properties").
			Context(ctx).
			Do()
	})
	if err != nil {
		return Properties{}, fmt.Errorf("failed to read spreadsheet metadata: %w", err)
	}
	return findProperties(resp.Sheets, title)
}

func findProperties(tabs []*sheets.Sheet, title string) (Properties, error) {
	for _, s := range tabs {
		if s == nil || s.Properties == nil || s.Properties.Title != title {
			continue
		}
		p := Properties{SheetID: s.Properties.SheetId, Title: s.Properties.Title}
		if s.Properties.GridProperties != nil {
			p.RowCount = s.Properties.GridProperties.RowCount
		}
		return p, nil
	}
	return Properties{}, fmt.Errorf("%w: %q", ErrSheetNotFound, title)
}

// DeleteRows removes the given 1-based rows of a tab in a single batch update.
func (c *Client) DeleteRows(ctx context.Context, spreadsheetID string, sheetID int64, rows []int) error {
	requests := DeleteRowsRequests(sheetID, rows)
	if len(requests) == 0 {
		return nil
	}
	batch := &sheets.BatchUpdateSpreadsheetRequest{Requests: requests}

	_, err := call(ctx, c, func(ctx context.Context) (*sheets.BatchUpdateSpreadsheetResponse, error) {
		return c.service.Spreadsheets.BatchUpdate(spreadsheetID, batch).Context(ctx).Do()
	})
	if err != nil {
		return fmt.Errorf("failed to delete rows: %w", err)
	}
	return nil
}

// DeleteRowsRequests builds one DeleteDimension request per row, bottom row
// first. Requests in a batch apply in order, so each deletion leaves the
// indices of the rows still to be deleted untouched.
func DeleteRowsRequests(sheetID int64, rows []int) []*sheets.Request {
	ordered := SortDescending(rows)
	requests := make([]*sheets.Request, 0, len(ordered))
	for _, row := range ordered {
		if row < 1 {
			continue
		}
		requests = append(requests, &sheets.Request{
			DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:         sheetID,
					Dimension:       "ROWS",
					StartIndex:      int64(row - 1),
					EndIndex:        int64(row),
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		})
	}
	return requests
}
