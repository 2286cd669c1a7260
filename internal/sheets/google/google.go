// Package google writes account summaries to a Google Sheets spreadsheet,
// one worksheet per account and period.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"roomfund/internal/core"
	"roomfund/internal/sheets"
)

var _ sheets.SummaryWriter = (*Client)(nil)

// Credentials selects how the client authenticates. A service account wins
// over an OAuth client when both are set.
type Credentials struct {
	ServiceAccountJSON string
	ServiceAccountFile string
	OAuthClientJSON    string
	OAuthClientFile    string
	OAuthTokenJSON     string
	OAuthTokenFile     string
}

// CredentialsFromEnv reads the service account variables; OAuth fields come
// from the caller's configuration.
func CredentialsFromEnv() Credentials {
	creds := Credentials{
		ServiceAccountJSON: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")),
		ServiceAccountFile: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE")),
	}
	if creds.ServiceAccountJSON == "" && creds.ServiceAccountFile == "" {
		creds.ServiceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	return creds
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string

	mu           sync.Mutex
	tabs         map[string]struct{}
	tabsExpireAt time.Time
	tabsTTL      time.Duration
}

func New(svc *gsheet.Service, spreadsheetID string) *Client {
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		tabsTTL:       10 * time.Minute,
	}
}

// NewFromCredentials builds the Sheets service and returns a client.
func NewFromCredentials(ctx context.Context, spreadsheetID string, creds Credentials) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return New(svc, spreadsheetID), nil
}

func newSheetsService(ctx context.Context, creds Credentials) (*gsheet.Service, error) {
	if creds.ServiceAccountJSON != "" || creds.ServiceAccountFile != "" {
		credentialsJSON, err := readInlineOrFile(creds.ServiceAccountJSON, creds.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account: %w", err)
		}
		slog.InfoContext(ctx, "Creating Google Sheets service with service account",
			"credentials_size", len(credentialsJSON))
		return gsheet.NewService(ctx,
			goption.WithCredentialsJSON(credentialsJSON),
			goption.WithScopes(gsheet.SpreadsheetsScope))
	}

	if creds.OAuthClientJSON == "" && creds.OAuthClientFile == "" {
		return nil, errors.New("missing oauth client (set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE)")
	}
	if creds.OAuthTokenJSON == "" && creds.OAuthTokenFile == "" {
		return nil, errors.New("missing oauth token (set GOOGLE_OAUTH_TOKEN_JSON or GOOGLE_OAUTH_TOKEN_FILE)")
	}

	clientJSON, err := readInlineOrFile(creds.OAuthClientJSON, creds.OAuthClientFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth client: %w", err)
	}
	cfg, err := goauth.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}

	tokenJSON, err := readInlineOrFile(creds.OAuthTokenJSON, creds.OAuthTokenFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth token: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(tokenJSON, &token); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}

	// Token refreshes go through the pooled client too.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, newHTTPClientWithPooling())
	httpClient := cfg.Client(ctx, &token)
	slog.InfoContext(ctx, "Creating Google Sheets service with OAuth token")
	return gsheet.NewService(ctx, goption.WithHTTPClient(httpClient))
}

func readInlineOrFile(inline, path string) ([]byte, error) {
	if inline != "" {
		return []byte(inline), nil
	}
	return os.ReadFile(path)
}

// newHTTPClientWithPooling keeps connections to the Sheets API warm between
// the worker's periodic writes.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: 60 * time.Second}
}

// WriteSummary replaces the contents of the account's period tab, creating
// the tab when it does not exist yet.
func (c *Client) WriteSummary(ctx context.Context, account string, d core.Dashboard, expenses []core.Expense) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	tab := sheets.TabName(account, d.Period)
	if err := c.ensureTab(ctx, tab); err != nil {
		return err
	}

	quoted := quoteTab(tab)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, quoted+"!A:Z", &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", tab, err)
	}

	vr := &gsheet.ValueRange{Values: sheets.SummaryRows(d, expenses)}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, quoted+"!A1", vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("write %s: %w", tab, err)
	}

	slog.InfoContext(ctx, "Summary written to spreadsheet",
		"account", account,
		"tab", tab,
		"expenses", len(expenses))
	return nil
}

func (c *Client) ensureTab(ctx context.Context, tab string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tabs == nil || time.Now().After(c.tabsExpireAt) {
		ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("read spreadsheet tabs: %w", err)
		}
		c.tabs = make(map[string]struct{}, len(ss.Sheets))
		for _, sh := range ss.Sheets {
			if sh.Properties != nil {
				c.tabs[sh.Properties.Title] = struct{}{}
			}
		}
		c.tabsExpireAt = time.Now().Add(c.tabsTTL)
	}
	if _, ok := c.tabs[tab]; ok {
		return nil
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: tab}},
	}}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add tab %s: %w", tab, err)
	}
	c.tabs[tab] = struct{}{}
	return nil
}

// InvalidateTabs forces the next write to re-read the tab list.
func (c *Client) InvalidateTabs() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tabsExpireAt = time.Time{}
}

// quoteTab wraps a tab name for A1 notation.
func quoteTab(tab string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'"
}
