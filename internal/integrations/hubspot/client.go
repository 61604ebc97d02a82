package hubspot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Dan9191/loan-service/internal/config"
	"github.com/Dan9191/loan-service/internal/models"
	"github.com/sirupsen/logrus"
)

// CRM object types used by the service
const (
	ObjectContacts  = "contacts"
	ObjectDeals     = "deals"
	ObjectCompanies = "companies"
)

// Client talks to the CRM v3 objects API
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	log     *logrus.Logger
}

// NewClient initializes a CRM client. Per-call deadlines come from the caller's context.
func NewClient(cfg *config.Config, log *logrus.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.HubspotURL, "/"),
		token:   cfg.HubspotToken,
		client: &http.Client{
			Timeout: cfg.CRMTimeout,
		},
		log: log,
	}
}

// Objects scopes the client to one object type
func (c *Client) Objects(objectType string) *Objects {
	return &Objects{c: c, objectType: objectType}
}

// Object is a CRM record with its string properties
type Object struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
}

// SearchResult is the answer of a property search
type SearchResult struct {
	Results []Object
	Total   int
}

// Objects exposes get/search/create/update/archive for one object type
type Objects struct {
	c          *Client
	objectType string
}

type wireObject struct {
	ID         string             `json:"id"`
	Properties map[string]*string `json:"properties"`
}

func (w wireObject) flatten() Object {
	props := make(map[string]string, len(w.Properties))
	for k, v := range w.Properties {
		if v != nil {
			props[k] = *v
		}
	}
	return Object{ID: w.ID, Properties: props}
}

type propertiesBody struct {
	Properties map[string]string `json:"properties"`
}

// Get reads the named properties of one record
func (o *Objects) Get(ctx context.Context, id string, properties []string) (map[string]string, error) {
	q := url.Values{}
	if len(properties) > 0 {
		q.Set("properties", strings.Join(properties, ","))
	}
	path := fmt.Sprintf("/crm/v3/objects/%s/%s?%s", o.objectType, url.PathEscape(id), q.Encode())

	var out wireObject
	if err := o.c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.flatten().Properties, nil
}

// Search finds records where propertyName <operator> value, e.g. ("email", "EQ", "a@b.c")
func (o *Objects) Search(ctx context.Context, propertyName, operator, value string, properties []string) (*SearchResult, error) {
	body := map[string]any{
		"filterGroups": []any{
			map[string]any{
				"filters": []any{
					map[string]string{"propertyName": propertyName, "operator": operator, "value": value},
				},
			},
		},
		"properties": properties,
		"limit":      10,
	}

	var out struct {
		Total   int          `json:"total"`
		Results []wireObject `json:"results"`
	}
	path := fmt.Sprintf("/crm/v3/objects/%s/search", o.objectType)
	if err := o.c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return nil, err
	}

	res := &SearchResult{Total: out.Total, Results: make([]Object, 0, len(out.Results))}
	for _, r := range out.Results {
		res.Results = append(res.Results, r.flatten())
	}
	return res, nil
}

// Create stores a new record and returns its id
func (o *Objects) Create(ctx context.Context, properties map[string]string) (string, error) {
	var out wireObject
	path := fmt.Sprintf("/crm/v3/objects/%s", o.objectType)
	if err := o.c.do(ctx, http.MethodPost, path, propertiesBody{Properties: properties}, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// Update patches the given properties and returns the record id
func (o *Objects) Update(ctx context.Context, id string, properties map[string]string) (string, error) {
	var out wireObject
	path := fmt.Sprintf("/crm/v3/objects/%s/%s", o.objectType, url.PathEscape(id))
	if err := o.c.do(ctx, http.MethodPatch, path, propertiesBody{Properties: properties}, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// Archive moves the record to the CRM recycle bin
func (o *Objects) Archive(ctx context.Context, id string) error {
	path := fmt.Sprintf("/crm/v3/objects/%s/%s", o.objectType, url.PathEscape(id))
	return o.c.do(ctx, http.MethodDelete, path, nil, nil)
}

// do sends one request; 404 maps to ErrRemoteNotFound, every other failure to ErrRemoteUnavailable
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", models.ErrRemoteUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	c.log.WithFields(logrus.Fields{
		"method":   method,
		"path":     path,
		"status":   resp.StatusCode,
		"duration": time.Since(started).String(),
	}).Debug("CRM request")

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s %s", models.ErrRemoteNotFound, method, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: %s %s: status %d: %s", models.ErrRemoteUnavailable, method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", models.ErrRemoteUnavailable, err)
	}
	return nil
}
