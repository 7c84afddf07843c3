package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/infrapulse/fabricmon/internal/collector"
	"github.com/infrapulse/fabricmon/internal/models"
	"github.com/infrapulse/fabricmon/internal/secrets"
)

func setupAPI(t *testing.T) *gin.Engine {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.FabricJob{},
		&models.FabricNode{},
		&models.FabricNodeDetail{},
		&models.FabricNodeInterface{},
	))
	DB = db

	box := secrets.NewBox("test-secret")
	SetJWTSecret("test-signing-key")
	SetAdminCredentials("admin", "admin")
	SetCollector(collector.NewRunner(db, box, nil, zerolog.Nop()), box, zerolog.Nop())

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	RegisterRoutes(engine)
	return engine
}

func authToken(t *testing.T, engine *gin.Engine) string {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/login",
		bytes.NewBufferString(`{"username":"admin","password":"admin"}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Token
}

func doJSON(engine *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	engine.ServeHTTP(w, req)
	return w
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	engine := setupAPI(t)
	w := doJSON(engine, http.MethodPost, "/api/login", "", `{"username":"admin","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJobRoutesRequireAuth(t *testing.T) {
	engine := setupAPI(t)
	w := doJSON(engine, http.MethodGet, "/api/jobs", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJobLifecycle(t *testing.T) {
	engine := setupAPI(t)
	token := authToken(t, engine)

	// create
	w := doJSON(engine, http.MethodPost, "/api/jobs", token, `{
		"name": "lab-fabric",
		"fabric_kind": "aci",
		"target_host": "10.0.0.1",
		"username": "admin",
		"password": "switch-pw",
		"poll_interval_seconds": 600
	}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Data models.FabricJob `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	job := created.Data
	assert.NotEmpty(t, job.UUID)
	assert.Equal(t, models.StatusPending, job.Status)
	assert.Equal(t, 443, job.Port)
	assert.Equal(t, 600, job.PollIntervalSeconds)
	assert.NotContains(t, w.Body.String(), "switch-pw")

	// the password was stored sealed, not in clear
	var stored models.FabricJob
	require.NoError(t, DB.Where("uuid = ?", job.UUID).First(&stored).Error)
	assert.True(t, stored.HasCredentials())
	assert.NotContains(t, string(stored.PasswordSecret), "switch-pw")

	// list and get
	w = doJSON(engine, http.MethodGet, "/api/jobs", token, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), job.UUID)

	w = doJSON(engine, http.MethodGet, "/api/jobs/"+job.UUID, token, "")
	assert.Equal(t, http.StatusOK, w.Code)

	// node listing is empty before any pass
	w = doJSON(engine, http.MethodGet, fmt.Sprintf("/api/jobs/%s/nodes", job.UUID), token, "")
	assert.Equal(t, http.StatusOK, w.Code)

	// delete
	w = doJSON(engine, http.MethodDelete, "/api/jobs/"+job.UUID, token, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(engine, http.MethodGet, "/api/jobs/"+job.UUID, token, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestJobCreateRejectsUnknownKind(t *testing.T) {
	engine := setupAPI(t)
	token := authToken(t, engine)

	w := doJSON(engine, http.MethodPost, "/api/jobs", token,
		`{"name":"x","fabric_kind":"junos","target_host":"10.0.0.1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestJobValidateConflictsWhileRunning(t *testing.T) {
	engine := setupAPI(t)
	token := authToken(t, engine)

	job := models.FabricJob{
		Name:       "busy",
		FabricKind: models.FabricKindACI,
		TargetHost: "10.0.0.1",
		Status:     models.StatusValidating,
	}
	require.NoError(t, DB.Create(&job).Error)

	w := doJSON(engine, http.MethodPost, "/api/jobs/"+job.UUID+"/validate", token, "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHealthEndpoints(t *testing.T) {
	engine := setupAPI(t)

	w := doJSON(engine, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(engine, http.MethodGet, "/api/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(engine, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDeleteJobCascade(t *testing.T) {
	setupAPI(t)

	job := models.FabricJob{Name: "c", FabricKind: models.FabricKindACI, TargetHost: "h"}
	require.NoError(t, DB.Create(&job).Error)

	node := models.FabricNode{JobID: &job.ID, DistinguishedName: "topology/pod-1/node-101", Name: "leaf-101", NodeID: "101"}
	require.NoError(t, DB.Create(&node).Error)
	require.NoError(t, DB.Create(&models.FabricNodeDetail{NodeID: node.ID}).Error)
	require.NoError(t, DB.Create(&models.FabricNodeInterface{NodeID: node.ID, Name: "eth1/1", DistinguishedName: "x"}).Error)

	require.NoError(t, DeleteJobCascade(DB, &job))

	var count int64
	DB.Model(&models.FabricNode{}).Count(&count)
	assert.Zero(t, count)
	DB.Model(&models.FabricNodeDetail{}).Count(&count)
	assert.Zero(t, count)
	DB.Model(&models.FabricNodeInterface{}).Count(&count)
	assert.Zero(t, count)
	DB.Model(&models.FabricJob{}).Count(&count)
	assert.Zero(t, count)
}
