// Package apic implements the controller session client for APIC-style
// fabric controllers: one login per collection pass, cookie-scoped class
// queries, and a concurrent fetch across all registered dataset classes.
package apic

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrAuthentication covers bad credentials and unexpected login
	// response shapes.
	ErrAuthentication = errors.New("apic: authentication failed")
	// ErrMalformedResponse covers a missing expected JSON path.
	ErrMalformedResponse = errors.New("apic: malformed response")
)

// Client holds one authenticated controller session. It is scoped to a
// single collection pass; the token is never reused across passes.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
	log     zerolog.Logger
}

// NewClient builds an unauthenticated client for the given base URL.
func NewClient(baseURL string, verifyTLS bool, logger zerolog.Logger) *Client {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: !verifyTLS},
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Transport: transport, Timeout: 60 * time.Second},
		log:     logger,
	}
}

// loginEnvelope mirrors the aaaLogin request body.
type loginEnvelope struct {
	AaaUser struct {
		Attributes struct {
			Name string `json:"name"`
			Pwd  string `json:"pwd"`
		} `json:"attributes"`
	} `json:"aaaUser"`
}

// imdataEnvelope is the generic class-query response wrapper. Each imdata
// record is keyed by its class name and carries an attributes sub-object.
type imdataEnvelope struct {
	Imdata []map[string]struct {
		Attributes json.RawMessage `json:"attributes"`
	} `json:"imdata"`
}

// Login posts credentials and extracts the session token from
// imdata[0].aaaLogin.attributes.token. The token is attached as the
// APIC-cookie on all subsequent requests from this client.
func (c *Client) Login(ctx context.Context, username, password string) error {
	var payload loginEnvelope
	payload.AaaUser.Attributes.Name = username
	payload.AaaUser.Attributes.Pwd = password

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("apic: encoding login payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/aaaLogin.json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("apic: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("apic: login request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: controller returned %d", ErrAuthentication, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("apic: login returned %d", resp.StatusCode)
	}

	var envelope imdataEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("%w: decoding login response: %v", ErrAuthentication, err)
	}
	if len(envelope.Imdata) == 0 {
		return fmt.Errorf("%w: empty login response", ErrAuthentication)
	}
	login, ok := envelope.Imdata[0]["aaaLogin"]
	if !ok {
		return fmt.Errorf("%w: unexpected login response shape", ErrAuthentication)
	}
	var attrs struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(login.Attributes, &attrs); err != nil || attrs.Token == "" {
		return fmt.Errorf("%w: token missing from login response", ErrAuthentication)
	}
	c.token = attrs.Token
	return nil
}

// ClassQuery fetches one dataset class and returns the raw attributes
// object of every record. Records missing the attributes sub-object are
// skipped, not treated as an error.
func (c *Client) ClassQuery(ctx context.Context, class string) ([]json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/api/class/%s.json", c.baseURL, class), nil)
	if err != nil {
		return nil, fmt.Errorf("apic: %w", err)
	}
	req.AddCookie(&http.Cookie{Name: "APIC-cookie", Value: c.token})

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("apic: query %s: %w", class, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("apic: query %s returned %d", class, resp.StatusCode)
	}

	var envelope imdataEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", ErrMalformedResponse, class, err)
	}

	records := make([]json.RawMessage, 0, len(envelope.Imdata))
	for _, item := range envelope.Imdata {
		record, ok := item[class]
		if !ok || len(record.Attributes) == 0 {
			continue
		}
		records = append(records, record.Attributes)
	}
	return records, nil
}
