package collector

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/infrapulse/fabricmon/internal/models"
)

// NX-OS variant: a single authenticated NX-API request carrying a
// CLI-style inventory command. No correlation machinery; the result is a
// flat module list.

type nxosCommand struct {
	InsAPI struct {
		Version      string `json:"version"`
		Type         string `json:"type"`
		Chunk        string `json:"chunk"`
		SID          string `json:"sid"`
		Input        string `json:"input"`
		OutputFormat string `json:"output_format"`
	} `json:"ins_api"`
}

type nxosResponse struct {
	InsAPI struct {
		Outputs struct {
			// A single output arrives as an object, multiple as a
			// list; normalized below.
			Output json.RawMessage `json:"output"`
		} `json:"outputs"`
	} `json:"ins_api"`
}

type nxosOutput struct {
	Body struct {
		Table struct {
			Rows json.RawMessage `json:"ROW_inv"`
		} `json:"TABLE_inv"`
	} `json:"body"`
}

type nxosInventoryRow struct {
	Name        string `json:"name"`
	Descr       string `json:"descr"`
	Description string `json:"description"`
	SerialNum   string `json:"serialnum"`
	ProductID   string `json:"productid"`
	PID         string `json:"pid"`
}

func (r *Runner) collectNXOS(ctx context.Context, job *models.FabricJob, password string) (*models.SnapshotSummary, error) {
	if job.Username == "" {
		return nil, fmt.Errorf("%w: username is required for NX-OS fabrics", ErrUnsupportedConfig)
	}

	transport := strings.ToLower(job.ConnectionParams["transport"])
	if transport == "" {
		transport = "nxapi-https"
	}
	if transport == "ssh" {
		return nil, fmt.Errorf("%w: SSH transport is not supported; enable NX-API and select nxapi-http or nxapi-https", ErrUnsupportedConfig)
	}

	scheme := "http"
	if strings.HasSuffix(transport, "https") {
		scheme = "https"
	}

	var payload nxosCommand
	payload.InsAPI.Version = "1.0"
	payload.InsAPI.Type = "cli_show"
	payload.InsAPI.Chunk = "0"
	payload.InsAPI.SID = "1"
	payload.InsAPI.Input = "show inventory"
	payload.InsAPI.OutputFormat = "json"

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("nxos: encoding command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL(scheme, job.TargetHost, job.Port)+"/ins", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("nxos: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(job.Username, password)

	httpClient := &http.Client{
		Timeout: 40 * time.Second,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: scheme != "https" || !job.VerifyTLS},
		},
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nxos: request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("nxos: device returned %d", resp.StatusCode)
	}

	var decoded nxosResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("nxos: decoding response: %w", err)
	}

	modules := parseNXOSInventory(decoded)
	summary := &models.SnapshotSummary{ModuleCount: len(modules)}
	if len(modules) > 10 {
		modules = modules[:10]
	}
	summary.Modules = modules
	return summary, nil
}

// parseNXOSInventory extracts module rows, normalizing the single-row
// (bare object) and multi-row (list) response shapes to one list.
func parseNXOSInventory(resp nxosResponse) []models.InventoryEntry {
	var modules []models.InventoryEntry
	for _, rawOutput := range normalizeRawList(resp.InsAPI.Outputs.Output) {
		var output nxosOutput
		if err := json.Unmarshal(rawOutput, &output); err != nil {
			continue
		}
		for _, rawRow := range normalizeRawList(output.Body.Table.Rows) {
			var row nxosInventoryRow
			if err := json.Unmarshal(rawRow, &row); err != nil {
				continue
			}
			entry := models.InventoryEntry{
				Name:        row.Name,
				Description: row.Descr,
				Serial:      row.SerialNum,
				ProductID:   row.ProductID,
			}
			if entry.Description == "" {
				entry.Description = row.Description
			}
			if entry.ProductID == "" {
				entry.ProductID = row.PID
			}
			modules = append(modules, entry)
		}
	}
	return modules
}

// normalizeRawList yields the elements of a JSON value that may be a
// list, a bare object, or absent.
func normalizeRawList(raw json.RawMessage) []json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil
	}
	if trimmed[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil
		}
		return list
	}
	return []json.RawMessage{trimmed}
}
