// Package nautobot reads device location metadata from an external
// asset-location directory. Lookups try an exact name match first, then a
// case-insensitive fallback.
package nautobot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Location is the derived (site, rack) pair for one device.
type Location struct {
	Site string
	Rack string
}

// Index holds the fetched name → location mapping.
type Index struct {
	exact map[string]Location
	lower map[string]Location
}

// Lookup resolves a device name, exact match first.
func (i *Index) Lookup(name string) (Location, bool) {
	if name == "" {
		return Location{}, false
	}
	if loc, ok := i.exact[name]; ok {
		return loc, true
	}
	loc, ok := i.lower[strings.ToLower(name)]
	return loc, ok
}

// Len reports the number of indexed devices.
func (i *Index) Len() int { return len(i.exact) }

type namedRef struct {
	Name string `json:"name"`
}

// Device is one entry of the paginated device listing.
type Device struct {
	Name     string    `json:"name"`
	Display  string    `json:"display"`
	Tenant   *namedRef `json:"tenant"`
	Site     *namedRef `json:"site"`
	Rack     *namedRef `json:"rack"`
	Position any       `json:"position"`
}

// ComputeLocation derives the site (tenant name, else site name) and the
// rack-location string ("<rack>-U<position>", "<rack>", or "U<position>").
func ComputeLocation(device Device) Location {
	var loc Location
	if device.Tenant != nil && device.Tenant.Name != "" {
		loc.Site = device.Tenant.Name
	} else if device.Site != nil {
		loc.Site = device.Site.Name
	}

	var rack string
	if device.Rack != nil {
		rack = device.Rack.Name
	}
	position := normalizePosition(device.Position)
	switch {
	case rack != "" && position != "":
		loc.Rack = rack + "-U" + position
	case rack != "":
		loc.Rack = rack
	case position != "":
		loc.Rack = "U" + position
	}
	return loc
}

func normalizePosition(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		return strings.TrimSpace(v)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// Client fetches the paginated device listing.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     zerolog.Logger
}

// NewClient builds a directory client; baseURL points at the API root
// (e.g. "https://nautobot.example/api").
func NewClient(baseURL, token string, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     logger,
	}
}

type devicePage struct {
	Results []Device `json:"results"`
	Next    *string  `json:"next"`
}

// FetchLocations walks /dcim/devices/ page by page and builds the
// name → location index.
func (c *Client) FetchLocations(ctx context.Context) (*Index, error) {
	index := &Index{
		exact: make(map[string]Location),
		lower: make(map[string]Location),
	}

	url := c.baseURL + "/dcim/devices/?limit=100"
	for url != "" {
		page, err := c.fetchPage(ctx, url)
		if err != nil {
			return nil, err
		}
		for _, device := range page.Results {
			name := device.Name
			if name == "" {
				name = device.Display
			}
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			loc := ComputeLocation(device)
			index.exact[name] = loc
			index.lower[strings.ToLower(name)] = loc
		}
		if page.Next == nil {
			break
		}
		url = *page.Next
	}

	c.log.Debug().Int("devices", index.Len()).Msg("fetched device locations")
	return index, nil
}

func (c *Client) fetchPage(ctx context.Context, url string) (*devicePage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("nautobot: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("User-Agent", "FabricMon-Collector/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nautobot: fetching devices: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("nautobot: device listing returned %d", resp.StatusCode)
	}

	var page devicePage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("nautobot: decoding device listing: %w", err)
	}
	return &page, nil
}
