package collector

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infrapulse/fabricmon/internal/models"
)

func decodeNXOSResponse(t *testing.T, body string) nxosResponse {
	t.Helper()
	var resp nxosResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	return resp
}

func TestParseNXOSInventoryListShape(t *testing.T) {
	resp := decodeNXOSResponse(t, `{
		"ins_api": {
			"outputs": {
				"output": {
					"body": {
						"TABLE_inv": {
							"ROW_inv": [
								{"name": "Chassis", "descr": "Nexus9000 C9336C-FX2 Chassis", "serialnum": "FDO111", "productid": "N9K-C9336C-FX2"},
								{"name": "Slot 1", "descr": "36x40/100G Ethernet Module", "serialnum": "FDO222", "productid": "N9K-C9336C-FX2"}
							]
						}
					}
				}
			}
		}
	}`)

	modules := parseNXOSInventory(resp)
	require.Len(t, modules, 2)
	assert.Equal(t, "Chassis", modules[0].Name)
	assert.Equal(t, "FDO111", modules[0].Serial)
	assert.Equal(t, "N9K-C9336C-FX2", modules[1].ProductID)
}

func TestParseNXOSInventorySingleRowShape(t *testing.T) {
	// A single row arrives as a bare object, not a one-element list.
	resp := decodeNXOSResponse(t, `{
		"ins_api": {
			"outputs": {
				"output": {
					"body": {
						"TABLE_inv": {
							"ROW_inv": {"name": "Chassis", "description": "Nexus9000 Chassis", "serialnum": "FDO333", "pid": "N9K-C93180YC-EX"}
						}
					}
				}
			}
		}
	}`)

	modules := parseNXOSInventory(resp)
	require.Len(t, modules, 1)
	assert.Equal(t, "Nexus9000 Chassis", modules[0].Description)
	assert.Equal(t, "N9K-C93180YC-EX", modules[0].ProductID)
}

func TestParseNXOSInventoryEmpty(t *testing.T) {
	resp := decodeNXOSResponse(t, `{"ins_api":{"outputs":{"output":{"body":{"TABLE_inv":{}}}}}}`)
	assert.Empty(t, parseNXOSInventory(resp))
}

func TestCollectNXOSRejectsSSHTransport(t *testing.T) {
	r := NewRunner(nil, nil, nil, zerolog.Nop())
	job := &models.FabricJob{
		FabricKind:       models.FabricKindNXOS,
		TargetHost:       "10.1.1.1",
		Username:         "admin",
		ConnectionParams: map[string]string{"transport": "ssh"},
	}

	_, err := r.collectNXOS(context.Background(), job, "secret")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedConfig)
}

func TestCollectNXOSRequiresUsername(t *testing.T) {
	r := NewRunner(nil, nil, nil, zerolog.Nop())
	job := &models.FabricJob{FabricKind: models.FabricKindNXOS, TargetHost: "10.1.1.1"}

	_, err := r.collectNXOS(context.Background(), job, "secret")
	assert.ErrorIs(t, err, ErrUnsupportedConfig)
}
