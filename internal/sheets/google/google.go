package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	ports "tesoreria/internal/sheets"

	"tesoreria/internal/report"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client mirrors report grids into a Google spreadsheet. Each grid is
// written to its own tab, named "<year> <owner> <sheet>" so consecutive
// years and distinct ledger owners coexist in the same document.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
}

var _ ports.ReportPublisher = (*Client)(nil)

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID plus service account credentials via
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{svc: svc, spreadsheetID: spreadsheetID}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// Publish clears each destination tab and rewrites it with the grid rows.
// Missing tabs must be created by hand in the spreadsheet first; the
// Sheets API rejects writes to unknown ranges and we surface that error.
func (c *Client) Publish(ctx context.Context, owner, year string, grids []report.Sheet) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	for _, grid := range grids {
		tab := tabName(year, owner, grid.Name)
		if err := c.writeGrid(ctx, tab, grid); err != nil {
			return fmt.Errorf("publish tab %s: %w", tab, err)
		}
		slog.InfoContext(ctx, "Published report tab", "tab", tab, "rows", len(grid.Rows))
	}
	return nil
}

func (c *Client) writeGrid(ctx context.Context, tab string, grid report.Sheet) error {
	clearRange := fmt.Sprintf("%s!A:Z", tab)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", clearRange, err)
	}

	vr := &gsheet.ValueRange{Values: gridValues(grid)}
	writeRange := fmt.Sprintf("%s!A1", tab)
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, writeRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
		return fmt.Errorf("update %s: %w", writeRange, err)
	}
	return nil
}

// gridValues converts a report grid into the API value matrix. Numeric
// cells become real numbers so the spreadsheet can sum them.
func gridValues(grid report.Sheet) [][]any {
	values := make([][]any, 0, len(grid.Rows))
	for _, row := range grid.Rows {
		cells := make([]any, 0, len(row))
		for _, cell := range row {
			if cell.Number {
				if f, err := strconv.ParseFloat(cell.Value, 64); err == nil {
					cells = append(cells, f)
					continue
				}
			}
			cells = append(cells, cell.Value)
		}
		values = append(values, cells)
	}
	return values
}

// tabName prefixes the grid name with the year and the owner, e.g.
// "2025 editor-1 Ingresos". Owner-distinct tabs keep one ledger's sync
// from overwriting another's in the shared document.
func tabName(year, owner, name string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{year, owner, name} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}
