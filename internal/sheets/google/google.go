// Package google exports the ledger journal to a Google Sheets spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"gastos/internal/core"
	"gastos/internal/ledger"
	"gastos/internal/log"
	ports "gastos/internal/sheets"
)

const requestTimeout = 30 * time.Second

var _ ports.JournalWriter = (*Client)(nil)

// Config selects the spreadsheet and the service account used to reach it.
// Exactly one of CredentialsJSON and CredentialsFile is needed.
type Config struct {
	SpreadsheetID   string
	SheetName       string // base name; the current year is prefixed
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	journalSheet  string
	logger        *log.Logger
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentSheets)

	credentialsJSON, err := readCredentials(cfg)
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return newClient(svc, cfg, time.Now().Year(), logger), nil
}

func newClient(svc *gsheet.Service, cfg Config, year int, logger *log.Logger) *Client {
	base := strings.TrimSpace(cfg.SheetName)
	if base == "" {
		base = "Diario"
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		journalSheet:  yearPrefixedName(base, year),
		logger:        logger,
	}
}

func readCredentials(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return []byte(cfg.CredentialsJSON), nil
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	}
	return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
}

// SheetName is the tab the journal is written to.
func (c *Client) SheetName() string { return c.journalSheet }

// AppendEvents appends one row per event below the existing journal.
func (c *Client) AppendEvents(ctx context.Context, events []ledger.Event) error {
	if len(events) == 0 {
		return nil
	}
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	rng := fmt.Sprintf("%s!A:K", c.journalSheet)
	vr := &gsheet.ValueRange{Values: rows(events)}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to sheet %s: %w", c.journalSheet, err)
	}

	ref := ""
	if resp.Updates != nil {
		ref = resp.Updates.UpdatedRange
	}
	c.logger.InfoContext(ctx, "Journal rows appended",
		log.FieldCount, len(events),
		"sheets_ref", ref)
	return nil
}

// rows lays out the journal columns: date and time, session, action,
// expense id, name, category, amount, expense date, budget, remaining, event id.
func rows(events []ledger.Event) [][]any {
	out := make([][]any, 0, len(events))
	for _, ev := range events {
		category := ""
		if ev.Category != "" {
			category = core.CategoryName(ev.Category)
		}
		amount := ""
		if ev.ExpenseID != "" {
			amount = cellAmount(ev.AmountCents)
		}
		out = append(out, []any{
			ev.OccurredAt.UTC().Format("2006-01-02 15:04:05"),
			ev.SessionID,
			string(ev.Action),
			ev.ExpenseID,
			ev.ExpenseName,
			category,
			amount,
			ev.ExpenseDate,
			cellAmount(ev.BudgetCents),
			cellAmount(ev.RemainingCents),
			ev.ID,
		})
	}
	return out
}

// cellAmount renders cents with a dot separator, which USER_ENTERED parses
// as a number.
func cellAmount(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
