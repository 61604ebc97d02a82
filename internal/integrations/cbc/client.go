package cbc

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/Dan9191/loan-service/internal/config"
	"github.com/Dan9191/loan-service/internal/models"
	"github.com/sirupsen/logrus"
)

// Response paths the service depends on
const (
	PathStatusCode    = "XML_INTERFACE/STATUS/CODE"
	PathStatusMessage = "XML_INTERFACE/STATUS/MESSAGE"
	PathScore         = "XML_INTERFACE/CREDITREPORT/SCORES/SCORE/VALUE"
	PathMonthlyDebt   = "XML_INTERFACE/CREDITREPORT/SUMMARY/TOTAL_MONTHLY_PAYMENT"
	PathTotalDebt     = "XML_INTERFACE/CREDITREPORT/SUMMARY/TOTAL_BALANCE"
)

// CredentialStore persists rotated gateway passwords
type CredentialStore interface {
	SaveCBCCredentials(ctx context.Context, creds Credentials) error
}

// Client handles integration with the credit bureau XML gateway
type Client struct {
	url    string
	client *http.Client
	log    *logrus.Logger

	mu    sync.RWMutex
	creds Credentials
}

// NewClient initializes a new credit bureau client
func NewClient(cfg *config.Config, log *logrus.Logger) *Client {
	return &Client{
		url: cfg.CBCURL,
		client: &http.Client{
			Timeout: cfg.CBCTimeout,
		},
		log:   log,
		creds: Credentials{UserID: cfg.CBCUser, Password: cfg.CBCPassword},
	}
}

// SetCredentials replaces the credentials, e.g. with the last rotated ones loaded at startup
func (c *Client) SetCredentials(creds Credentials) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.creds = creds
}

func (c *Client) credentials() Credentials {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.creds
}

// Applicant is the subject of a credit report request
type Applicant struct {
	FirstName   string
	LastName    string
	SSN         string
	DateOfBirth string
	Street      string
	City        string
	State       string
	Zip         string
}

// Report carries the leaves of a credit report the service uses
type Report struct {
	Score       *int
	MonthlyDebt *float64
	TotalDebt   *float64
	Raw         []byte
}

// Send posts a request built from body and returns the parsed tree and raw response.
// A non-zero gateway status code is reported as ErrRemoteUnavailable.
func (c *Client) Send(ctx context.Context, body []Prop) (map[string]any, []byte, error) {
	payload, err := BuildRequest(c.credentials(), body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: credit bureau request failed: %v", models.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("%w: unexpected status code: %d", models.ErrRemoteUnavailable, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to read response: %v", models.ErrRemoteUnavailable, err)
	}
	c.log.Debugf("Credit bureau response: %d bytes", len(raw))

	tree, err := ParseResponse(raw)
	if err != nil {
		return nil, raw, fmt.Errorf("%w: %v", models.ErrRemoteUnavailable, err)
	}
	if code, ok := Lookup(tree, PathStatusCode); ok && code != "0" {
		msg, _ := Lookup(tree, PathStatusMessage)
		return tree, raw, fmt.Errorf("%w: gateway status %s: %s", models.ErrRemoteUnavailable, code, msg)
	}
	return tree, raw, nil
}

// PullReport requests a credit report and extracts score and debt figures
func (c *Client) PullReport(ctx context.Context, a Applicant) (*Report, error) {
	body := []Prop{
		{Name: "IF_TYPE", Value: "CREDITREPORT"},
		{Name: "CREDITREPORT", Value: []Prop{
			{Name: "BUREAU", Value: "XPN"},
			{Name: "APPLICANT", Value: []Prop{
				{Name: "FIRST_NAME", Value: a.FirstName},
				{Name: "LAST_NAME", Value: a.LastName},
				{Name: "SSN", Value: a.SSN},
				{Name: "DOB", Value: a.DateOfBirth},
				{Name: "ADDRESS", Value: []Prop{
					{Name: "STREET", Value: a.Street},
					{Name: "CITY", Value: a.City},
					{Name: "STATE", Value: a.State},
					{Name: "ZIP", Value: a.Zip},
				}},
			}},
		}},
	}

	tree, raw, err := c.Send(ctx, body)
	if err != nil {
		return nil, err
	}

	report := &Report{Raw: raw}
	if v, ok := Lookup(tree, PathScore); ok {
		score, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%w: score %q: %v", models.ErrRemoteUnavailable, v, err)
		}
		report.Score = &score
	}
	if report.MonthlyDebt, err = lookupFloat(tree, PathMonthlyDebt); err != nil {
		return nil, err
	}
	if report.TotalDebt, err = lookupFloat(tree, PathTotalDebt); err != nil {
		return nil, err
	}

	c.log.WithFields(logrus.Fields{
		"has_score": report.Score != nil,
		"bytes":     len(raw),
	}).Info("Credit report retrieved")
	return report, nil
}

// RotatePassword sets a freshly generated password on the gateway account and,
// once accepted, switches the client to it.
func (c *Client) RotatePassword(ctx context.Context, store CredentialStore) error {
	newPassword, err := generatePassword()
	if err != nil {
		return err
	}

	body := []Prop{
		{Name: "IF_TYPE", Value: "PASSWORD_CHANGE"},
		{Name: "NEW_PASSWORD", Value: newPassword},
	}
	if _, _, err := c.Send(ctx, body); err != nil {
		return fmt.Errorf("password change rejected: %w", err)
	}

	creds := Credentials{UserID: c.credentials().UserID, Password: newPassword}
	c.SetCredentials(creds)
	if store != nil {
		if err := store.SaveCBCCredentials(ctx, creds); err != nil {
			// the gateway already has the new password; keep using it in memory
			c.log.WithError(err).Error("Failed to persist rotated credit bureau password")
			return fmt.Errorf("failed to persist credentials: %w", err)
		}
	}
	c.log.Info("Credit bureau password rotated")
	return nil
}

func lookupFloat(tree map[string]any, path string) (*float64, error) {
	v, ok := Lookup(tree, path)
	if !ok || v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %q: %v", models.ErrRemoteUnavailable, path, v, err)
	}
	return &f, nil
}

func generatePassword() (string, error) {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate password: %w", err)
	}
	return hex.EncodeToString(b), nil
}
