package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Meghavibansod/HealthLedger/pkg/types"
)

// Client calls the ledger service API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates an API client for the given server.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is the error payload the service returns.
type APIError struct {
	Status int    `json:"-"`
	Type   string `json:"type"`
	Code   string `json:"code"`
	Msg    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

type errorEnvelope struct {
	Error  APIError `json:"error"`
	Status int      `json:"status"`
}

// AddDoctor registers a doctor identity.
func (c *Client) AddDoctor(doctor string) error {
	return c.do("POST", "/api/v1/doctors", map[string]string{"doctor": doctor}, nil)
}

// CreateRecord creates a record under the given name or raw identifier.
func (c *Client) CreateRecord(name, patient, cid, meta string) (*types.Record, error) {
	var rec types.Record
	err := c.do("POST", "/api/v1/records", map[string]string{
		"name":    name,
		"patient": patient,
		"cid":     cid,
		"meta":    meta,
	}, &rec)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetRecord reads a record by name or raw identifier.
func (c *Client) GetRecord(id string) (*types.Record, error) {
	var rec types.Record
	if err := c.do("GET", "/api/v1/records/"+id, nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpdateRecord replaces a record's content pointer and metadata.
func (c *Client) UpdateRecord(id, cid, meta string) (*types.Record, error) {
	var rec types.Record
	err := c.do("PUT", "/api/v1/records/"+id, map[string]string{
		"cid":  cid,
		"meta": meta,
	}, &rec)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// GrantAccess grants a third party read access to a record.
func (c *Client) GrantAccess(id, grantee string) error {
	return c.do("POST", "/api/v1/records/"+id+"/grants", map[string]string{"grantee": grantee}, nil)
}

// Audit fetches audit events, optionally filtered to one record.
func (c *Client) Audit(recordID string, limit int) ([]types.AuditEvent, error) {
	path := fmt.Sprintf("/api/v1/audit?limit=%d", limit)
	if recordID != "" {
		path += "&record_id=" + recordID
	}
	var out struct {
		Events []types.AuditEvent `json:"events"`
	}
	if err := c.do("GET", path, nil, &out); err != nil {
		return nil, err
	}
	return out.Events, nil
}

func (c *Client) do(method, path string, payload interface{}, out interface{}) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var envelope errorEnvelope
		if json.Unmarshal(raw, &envelope) == nil && envelope.Error.Code != "" {
			envelope.Error.Status = resp.StatusCode
			return &envelope.Error
		}
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(raw))
	}

	if out != nil {
		return json.Unmarshal(raw, out)
	}
	return nil
}
