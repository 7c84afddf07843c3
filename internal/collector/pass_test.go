package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infrapulse/fabricmon/internal/models"
	"github.com/infrapulse/fabricmon/internal/secrets"
)

// fakeController serves a minimal controller API: a login endpoint, a
// one-node inventory, one physical interface, and empty sets for everything
// else.
func fakeController(t *testing.T) (host string, port int, cleanup func()) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/aaaLogin.json":
			fmt.Fprint(w, `{"imdata":[{"aaaLogin":{"attributes":{"token":"tok"}}}]}`)
		case "/api/class/fabricNode.json":
			fmt.Fprint(w, `{"imdata":[{"fabricNode":{"attributes":{"dn":"topology/pod-1/node-101","name":"leaf-101","id":"101","role":"leaf","serial":"FDO1"}}}]}`)
		case "/api/class/l1PhysIf.json":
			fmt.Fprint(w, `{"imdata":[{"l1PhysIf":{"attributes":{"dn":"topology/pod-1/node-101/sys/phys-[eth1/1]","id":"eth1/1","adminSt":"up"}}}]}`)
		default:
			fmt.Fprint(w, `{"imdata":[]}`)
		}
	}))

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	p, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return u.Hostname(), p, srv.Close
}

func TestRunCollectsACIFabric(t *testing.T) {
	host, port, cleanup := fakeController(t)
	defer cleanup()

	db := openTestDB(t)
	job := &models.FabricJob{
		Name:             "lab",
		FabricKind:       models.FabricKindACI,
		TargetHost:       host,
		Port:             port,
		Username:         "admin",
		ConnectionParams: map[string]string{"protocol": "http"},
	}
	require.NoError(t, db.Create(job).Error)

	r := NewRunner(db, secrets.NewBox("k"), nil, zerolog.Nop())
	result := r.Run(context.Background(), job, "pw")

	require.True(t, result.Success, "message: %s", result.Message)
	require.NotNil(t, result.Snapshot)
	assert.Equal(t, 1, result.Snapshot.FabricNodeCount)
	assert.Equal(t, 1, result.Snapshot.DetailCount)
	assert.Equal(t, 1, result.Snapshot.InterfaceCount)

	var node models.FabricNode
	require.NoError(t, db.Where("job_id = ?", job.ID).First(&node).Error)
	assert.Equal(t, "leaf-101", node.Name)
	assert.Equal(t, models.RoleLeaf, node.Role)

	var iface models.FabricNodeInterface
	require.NoError(t, db.Where("node_id = ?", node.ID).First(&iface).Error)
	assert.Equal(t, "eth1/1", iface.Name)
}

func TestRunUsesStoredCredentials(t *testing.T) {
	host, port, cleanup := fakeController(t)
	defer cleanup()

	db := openTestDB(t)
	box := secrets.NewBox("k")
	sealed, err := box.Seal("pw")
	require.NoError(t, err)

	job := &models.FabricJob{
		Name:             "lab",
		FabricKind:       models.FabricKindACI,
		TargetHost:       host,
		Port:             port,
		Username:         "admin",
		PasswordSecret:   sealed,
		ConnectionParams: map[string]string{"protocol": "http"},
	}
	require.NoError(t, db.Create(job).Error)

	r := NewRunner(db, box, nil, zerolog.Nop())
	result := r.Run(context.Background(), job, "")
	assert.True(t, result.Success, "message: %s", result.Message)
}

func TestRunWithoutCredentials(t *testing.T) {
	db := openTestDB(t)
	job := createTestJob(t, db)

	r := NewRunner(db, secrets.NewBox("k"), nil, zerolog.Nop())
	result := r.Run(context.Background(), job, "")
	assert.False(t, result.Success)
	assert.Equal(t, ErrMissingCredentials.Error(), result.Message)
}

func TestRunUnknownFabricKind(t *testing.T) {
	db := openTestDB(t)
	job := &models.FabricJob{Name: "x", FabricKind: "frr", TargetHost: "h"}
	require.NoError(t, db.Create(job).Error)

	r := NewRunner(db, secrets.NewBox("k"), nil, zerolog.Nop())
	result := r.Run(context.Background(), job, "pw")
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "unknown fabric kind")
}

func TestBaseURL(t *testing.T) {
	assert.Equal(t, "https://apic.lab", baseURL("https", "apic.lab", 443))
	assert.Equal(t, "http://apic.lab", baseURL("http", "apic.lab", 80))
	assert.Equal(t, "https://apic.lab:8443", baseURL("https", "apic.lab", 8443))
	assert.Equal(t, "https://apic.lab", baseURL("https", "apic.lab", 0))
}
