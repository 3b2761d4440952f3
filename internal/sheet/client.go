package sheet

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"tabkeeper/internal/logger"
)

// Client wraps the Sheets API for one spreadsheet document. Row indexes in
// this API are 0-based data indexes (row 0 is the header), matching the
// snapshot the planner works on.
type Client struct {
	svc           *sheets.Service
	spreadsheetID string
}

// Tab is one month sheet within the document.
type Tab struct {
	ID    int64
	Title string
}

// NewClient creates a Sheets client authenticated with service account JSON.
func NewClient(ctx context.Context, spreadsheetID string, credentialsJSON []byte) (*Client, error) {
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsJSON(credentialsJSON),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("sheet: create service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID}, nil
}

// Tabs lists the sheets of the document with their stable IDs.
func (c *Client) Tabs(ctx context.Context) ([]Tab, error) {
	doc, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sheet: get spreadsheet: %w", err)
	}
	tabs := make([]Tab, 0, len(doc.Sheets))
	for _, s := range doc.Sheets {
		if s.Properties == nil {
			continue
		}
		tabs = append(tabs, Tab{ID: s.Properties.SheetId, Title: s.Properties.Title})
	}
	return tabs, nil
}

// Read returns the full data region of a tab as string cells.
func (c *Client) Read(ctx context.Context, tab string) ([][]string, error) {
	rng := fmt.Sprintf("'%s'!A1:Z", tab)
	vr, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sheet: read %q: %w", tab, err)
	}
	rows := make([][]string, len(vr.Values))
	for i, raw := range vr.Values {
		row := make([]string, len(raw))
		for j, v := range raw {
			if s, ok := v.(string); ok {
				row[j] = s
			} else {
				row[j] = fmt.Sprint(v)
			}
		}
		rows[i] = row
	}
	return rows, nil
}

// Update overwrites one row starting at column A.
func (c *Client) Update(ctx context.Context, tab string, rowIndex int, values []string) error {
	rng := fmt.Sprintf("'%s'!A%d", tab, rowIndex+1)
	vr := &sheets.ValueRange{Values: [][]interface{}{toInterfaces(values)}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheet: update %q row %d: %w", tab, rowIndex, err)
	}
	log := logger.FromContext(ctx)
	log.Debug().Str("tab", tab).Int("row", rowIndex).Msg("row updated")
	return nil
}

// InsertBlankRow shifts rows down by one, opening a blank row at rowIndex.
func (c *Client) InsertBlankRow(ctx context.Context, tab string, rowIndex int) error {
	sheetID, err := c.sheetID(ctx, tab)
	if err != nil {
		return err
	}
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			InsertDimension: &sheets.InsertDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(rowIndex),
					EndIndex:   int64(rowIndex + 1),
				},
				InheritFromBefore: true,
			},
		}},
	}
	_, err = c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheet: insert row in %q at %d: %w", tab, rowIndex, err)
	}
	return nil
}

// Append places a row below the last data row of the tab, starting at A2
// when the tab holds only its header.
func (c *Client) Append(ctx context.Context, tab string, values []string) error {
	rng := fmt.Sprintf("'%s'!A1", tab)
	vr := &sheets.ValueRange{Values: [][]interface{}{toInterfaces(values)}}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheet: append to %q: %w", tab, err)
	}
	return nil
}

// sheetID resolves a tab title to its stable sheet ID.
func (c *Client) sheetID(ctx context.Context, tab string) (int64, error) {
	tabs, err := c.Tabs(ctx)
	if err != nil {
		return 0, err
	}
	for _, t := range tabs {
		if t.Title == tab {
			return t.ID, nil
		}
	}
	return 0, fmt.Errorf("sheet: no tab named %q", tab)
}

func toInterfaces(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
