// Package server provides the FabricMon Gin-based REST API.
// Routes are split into two groups:
//   - Public:    POST /api/login, GET /api/health, GET /metrics
//   - Protected: JWT-guarded fabric job and node routes under /api
package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/infrapulse/fabricmon/internal/collector"
	"github.com/infrapulse/fabricmon/internal/models"
	"github.com/infrapulse/fabricmon/internal/secrets"
)

// adminCredentials are set at startup from config.
// DB-backed user management is a later milestone.
var adminUser, adminPass string

// SetAdminCredentials stores credentials for /api/login.
func SetAdminCredentials(user, pass string) {
	adminUser = user
	adminPass = pass
}

var (
	runner    *collector.Runner
	secretBox *secrets.Box
	apiLog    zerolog.Logger
)

// SetCollector injects the pass runner, the secret box and the API logger;
// call this before registering routes.
func SetCollector(r *collector.Runner, box *secrets.Box, logger zerolog.Logger) {
	runner = r
	secretBox = box
	apiLog = logger
}

// RegisterRoutes wires up the REST API on the given engine.
func RegisterRoutes(r *gin.Engine) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	// ── Public endpoints ──────────────────────────────────────────────────────
	api.POST("/login", handleLogin)
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
	})

	// ── JWT-protected endpoints ───────────────────────────────────────────────
	auth := api.Group("/", JWTMiddleware())
	{
		auth.POST("/jobs", handleJobCreate)
		auth.GET("/jobs", handleJobList)
		auth.GET("/jobs/:uuid", handleJobGet)
		auth.DELETE("/jobs/:uuid", handleJobDelete)
		auth.POST("/jobs/:uuid/validate", handleJobValidate)

		auth.GET("/jobs/:uuid/nodes", handleNodeList)
		auth.GET("/nodes/:id", handleNodeGet)
		auth.GET("/nodes/:id/detail", handleNodeDetail)
		auth.GET("/nodes/:id/interfaces", handleNodeInterfaces)
	}
}

// ── Handlers ──────────────────────────────────────────────────────────────────

// handleLogin accepts username + password and returns a signed JWT.
//
//	POST /api/login
//	Body: { "username": "admin", "password": "admin" }
func handleLogin(c *gin.Context) {
	var body struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password required"})
		return
	}

	if body.Username != adminUser || body.Password != adminPass {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := GenerateJWT(body.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_in": 86400, // seconds
		"type":       "Bearer",
	})
}

// jobPayload is the create-job request body.
type jobPayload struct {
	Name                string            `json:"name" binding:"required"`
	FabricKind          models.FabricKind `json:"fabric_kind" binding:"required"`
	TargetHost          string            `json:"target_host" binding:"required"`
	Port                int               `json:"port"`
	Username            string            `json:"username"`
	Password            string            `json:"password"`
	Description         string            `json:"description"`
	ConnectionParams    map[string]string `json:"connection_params"`
	VerifyTLS           bool              `json:"verify_tls"`
	PollIntervalSeconds int               `json:"poll_interval_seconds"`
	AutoValidate        bool              `json:"auto_validate"`
}

// handleJobCreate registers a new fabric job. The password is encrypted at
// rest; when auto_validate is set the first collection pass starts in the
// background and the job is returned in the validating state.
func handleJobCreate(c *gin.Context) {
	var payload jobPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if payload.FabricKind != models.FabricKindACI && payload.FabricKind != models.FabricKindNXOS {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fabric_kind must be 'aci' or 'nxos'"})
		return
	}

	job := models.FabricJob{
		Name:             payload.Name,
		FabricKind:       payload.FabricKind,
		TargetHost:       payload.TargetHost,
		Port:             payload.Port,
		Username:         payload.Username,
		Description:      payload.Description,
		ConnectionParams: payload.ConnectionParams,
		VerifyTLS:        payload.VerifyTLS,
		Status:           models.StatusPending,
	}
	if job.Port == 0 {
		job.Port = 443
	}
	if payload.PollIntervalSeconds > 0 {
		job.PollIntervalSeconds = payload.PollIntervalSeconds
	}
	if payload.Password != "" {
		sealed, err := secretBox.Seal(payload.Password)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encrypt credentials"})
			return
		}
		job.PasswordSecret = sealed
	}

	if err := DB.Create(&job).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if payload.AutoValidate {
		startValidation(&job, "")
	}

	c.JSON(http.StatusCreated, gin.H{"data": job})
}

// handleJobList returns all fabric jobs.
func handleJobList(c *gin.Context) {
	var jobs []models.FabricJob
	if err := DB.Order("created_at desc").Find(&jobs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": jobs})
}

// handleJobGet returns a single job by its external UUID.
func handleJobGet(c *gin.Context) {
	job, ok := loadJob(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": job})
}

// handleJobDelete removes a job and everything collected under it.
func handleJobDelete(c *gin.Context) {
	job, ok := loadJob(c)
	if !ok {
		return
	}
	if err := DeleteJobCascade(DB, job); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": job.UUID})
}

// handleJobValidate triggers a collection pass on demand.
//
//	POST /api/jobs/:uuid/validate
//	Body (optional): { "password": "..." }
//
// A supplied password is used for this pass and re-encrypted as the stored
// credential. Returns 409 while a validation is already running.
func handleJobValidate(c *gin.Context) {
	job, ok := loadJob(c)
	if !ok {
		return
	}
	if job.Status == models.StatusValidating {
		c.JSON(http.StatusConflict, gin.H{"error": "validation already in progress"})
		return
	}

	var body struct {
		Password string `json:"password"`
	}
	_ = c.ShouldBindJSON(&body)

	if body.Password != "" {
		sealed, err := secretBox.Seal(body.Password)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encrypt credentials"})
			return
		}
		job.PasswordSecret = sealed
	}

	startValidation(job, body.Password)
	c.JSON(http.StatusAccepted, gin.H{"data": job})
}

// startValidation flips the job to validating, persists it, and runs the
// collection pass in the background.
func startValidation(job *models.FabricJob, passwordOverride string) {
	job.StartValidation()
	if err := DB.Save(job).Error; err != nil {
		apiLog.Error().Str("job", job.UUID).Err(err).Msg("marking job validating")
		return
	}

	go func(j models.FabricJob, override string) {
		result := runner.Run(context.Background(), &j, override)
		if result.Success {
			j.MarkSuccess()
			j.LastSnapshot = result.Snapshot
		} else {
			j.MarkFailure(result.Message)
			j.LastSnapshot = nil
		}
		if err := DB.Save(&j).Error; err != nil {
			apiLog.Error().Str("job", j.UUID).Err(err).Msg("saving validation result")
		}
	}(*job, passwordOverride)
}

// handleNodeList returns the fabric nodes collected under a job.
func handleNodeList(c *gin.Context) {
	job, ok := loadJob(c)
	if !ok {
		return
	}
	var nodes []models.FabricNode
	if err := DB.Where("job_id = ?", job.ID).Order("node_id").Find(&nodes).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": nodes})
}

// handleNodeGet returns one fabric node by record ID.
func handleNodeGet(c *gin.Context) {
	node, ok := loadNode(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": node})
}

// handleNodeDetail returns the correlated detail snapshot for a node.
func handleNodeDetail(c *gin.Context) {
	node, ok := loadNode(c)
	if !ok {
		return
	}
	var detail models.FabricNodeDetail
	if err := DB.Where("node_id = ?", node.ID).First(&detail).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no detail collected for this node"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": detail})
}

// handleNodeInterfaces returns the interface rows for a node.
func handleNodeInterfaces(c *gin.Context) {
	node, ok := loadNode(c)
	if !ok {
		return
	}
	var interfaces []models.FabricNodeInterface
	if err := DB.Where("node_id = ?", node.ID).Order("name").Find(&interfaces).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": interfaces})
}

// loadJob fetches the job addressed by the :uuid route parameter, writing
// the error response itself on failure.
func loadJob(c *gin.Context) (*models.FabricJob, bool) {
	var job models.FabricJob
	if err := DB.Where("uuid = ?", c.Param("uuid")).First(&job).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return nil, false
	}
	return &job, true
}

// loadNode fetches the node addressed by the :id route parameter.
func loadNode(c *gin.Context) (*models.FabricNode, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return nil, false
	}
	var node models.FabricNode
	if err := DB.First(&node, uint(id)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "node not found"})
		return nil, false
	}
	return &node, true
}
