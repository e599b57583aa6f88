package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"tvcms/models"
)

// DatabaseChecker reports per-connection health, keyed by store name
type DatabaseChecker interface {
	HealthCheck(ctx context.Context) map[string]error
}

// StorageChecker reports whether the object store is reachable
type StorageChecker interface {
	HealthCheck(ctx context.Context) error
}

// AppInfo identifies the running build
type AppInfo struct {
	Name        string
	Version     string
	Environment string
}

type HealthController struct {
	databases DatabaseChecker
	storage   StorageChecker
	info      AppInfo
	log       *logrus.Logger
}

func NewHealthController(databases DatabaseChecker, storage StorageChecker, info AppInfo, log *logrus.Logger) *HealthController {
	return &HealthController{databases: databases, storage: storage, info: info, log: log}
}

// Health pings the database, the optional activity store and the object store.
// Any failing check degrades the status and answers 503.
func (hc *HealthController) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	results := hc.databases.HealthCheck(ctx)
	results["storage"] = hc.storage.HealthCheck(ctx)

	status := models.HealthStatus{
		Status:    "ok",
		Service:   hc.info.Name,
		Version:   hc.info.Version,
		Checks:    make(map[string]string, len(results)),
		Timestamp: time.Now().Unix(),
	}
	for name, err := range results {
		if err != nil {
			hc.log.WithError(err).WithField("check", name).Warn("Health check failed")
			status.Status = "degraded"
			status.Checks[name] = "unhealthy"
			continue
		}
		status.Checks[name] = "healthy"
	}

	code := http.StatusOK
	if status.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}

func (hc *HealthController) Version(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        hc.info.Name,
		"version":     hc.info.Version,
		"environment": hc.info.Environment,
	})
}
