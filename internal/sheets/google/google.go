package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"lanchonete/internal/core"
	ports "lanchonete/internal/sheets"

	"github.com/sony/gobreaker"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultSheet is the tab read when no sheet name is configured.
const DefaultSheet = "Página3"

// valuesFetcher returns the raw cell matrix for an A1 range.
type valuesFetcher func(ctx context.Context, rng string) ([][]interface{}, error)

type Client struct {
	fetch         valuesFetcher
	spreadsheetID string
	sheet         string
	loc           *time.Location
	cb            *gobreaker.CircuitBreaker
	maxRetries    int
	backoff       time.Duration
}

// Ensure interface conformance
var _ ports.LedgerReader = (*Client)(nil)

// Options configures a Sheets ledger client.
type Options struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
	Location           *time.Location
	MaxRetries         int
	InitialBackoff     time.Duration
}

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Optional: GOOGLE_SHEET_NAME (default "Página3"),
// GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE for auth.
func NewFromEnv(ctx context.Context) (*Client, error) {
	return New(ctx, Options{
		SpreadsheetID:      strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID")),
		SheetName:          strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME")),
		ServiceAccountJSON: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")),
		ServiceAccountFile: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE")),
	})
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, opts Options) (*Client, error) {
	if opts.SpreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, opts.ServiceAccountJSON, opts.ServiceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	spreadsheetID := opts.SpreadsheetID
	fetch := func(ctx context.Context, rng string) ([][]interface{}, error) {
		resp, err := svc.Spreadsheets.Values.Get(spreadsheetID, rng).
			ValueRenderOption("UNFORMATTED_VALUE").
			DateTimeRenderOption("SERIAL_NUMBER").
			Context(ctx).
			Do()
		if err != nil {
			return nil, err
		}
		return resp.Values, nil
	}
	return newClient(fetch, opts), nil
}

func newClient(fetch valuesFetcher, opts Options) *Client {
	sheet := opts.SheetName
	if sheet == "" {
		sheet = DefaultSheet
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	backoff := opts.InitialBackoff
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	return &Client{
		fetch:         fetch,
		spreadsheetID: opts.SpreadsheetID,
		sheet:         sheet,
		loc:           loc,
		cb:            newCircuitBreaker("google-sheets"),
		maxRetries:    opts.MaxRetries,
		backoff:       backoff,
	}
}

// newCircuitBreaker trips after a majority of failed reads so a broken
// credential or quota error does not hammer the API.
func newCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})
}

// newSheetsService initializes a read-only Sheets Service using Service Account credentials.
// Falls back to GOOGLE_APPLICATION_CREDENTIALS when neither inline JSON nor a file is given.
func newSheetsService(ctx context.Context, serviceAccountJSON, serviceAccountFile string) (*gsheet.Service, error) {
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func (c *Client) source() string {
	return fmt.Sprintf("sheets:%s/%s", c.spreadsheetID, c.sheet)
}

// ReadLedger reads columns A:Z of the ledger tab and cleans them.
func (c *Client) ReadLedger(ctx context.Context) (core.Ledger, ports.LoadStats, error) {
	rng := fmt.Sprintf("%s!A:Z", c.sheet)
	values, err := c.readValues(ctx, rng)
	if err != nil {
		return core.Ledger{}, ports.LoadStats{}, &ports.LoadError{Source: c.source(), Op: "read", Err: err}
	}
	rows := make([][]string, len(values))
	for i, row := range values {
		rows[i] = toStrings(row)
	}
	ledger, stats, err := ports.ParseTable(rows, c.loc)
	if err != nil {
		return core.Ledger{}, stats, &ports.LoadError{Source: c.source(), Op: "parse", Err: err}
	}
	slog.InfoContext(ctx, "Ledger loaded from Google Sheets",
		"range", rng,
		"rows", stats.Rows,
		"kept", stats.Kept,
		"dropped_dates", stats.DroppedDates,
		"dropped_values", stats.DroppedValues)
	return ledger, stats, nil
}

func (c *Client) readValues(ctx context.Context, rng string) ([][]interface{}, error) {
	result, err := c.cb.Execute(func() (interface{}, error) {
		var values [][]interface{}
		err := retryWithBackoff(ctx, c.maxRetries, c.backoff, func() error {
			var ferr error
			values, ferr = c.fetch(ctx, rng)
			return ferr
		})
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", rng, err)
		}
		return values, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([][]interface{}), nil
}

// retryWithBackoff runs fn up to maxRetries+1 times, doubling the wait
// between attempts. It stops early when ctx is done.
func retryWithBackoff(ctx context.Context, maxRetries int, initial time.Duration, fn func() error) error {
	var lastErr error
	wait := initial
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt < maxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			wait *= 2
		}
	}
	return lastErr
}
