package api

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"arxiv_digest/internal/arxiv"
	"arxiv_digest/internal/auth"
	apperrors "arxiv_digest/internal/errors"
	"arxiv_digest/internal/models"
	"arxiv_digest/internal/services"
	"arxiv_digest/internal/utils/broker"
	"arxiv_digest/internal/wsocket"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DigestRunner starts one digest run.
type DigestRunner interface {
	Run(ctx context.Context, req services.RunRequest) (*services.DigestResult, error)
}

type ReportsAPI struct {
	ctx          context.Context
	runner       DigestRunner
	reportDB     services.ReportServiceDB
	cloudStorage services.CloudStorageManager
	bucketName   string
	broker       *broker.Broker
	outputDir    string
	runTimeout   time.Duration
	logger       zerolog.Logger
}

// NewReportsAPI wires the HTTP handlers. Runs started over HTTP are cancelled
// when ctx is done. reportDB and cloudStorage may be nil.
func NewReportsAPI(
	ctx context.Context,
	runner DigestRunner,
	reportDB services.ReportServiceDB,
	cloudStorage services.CloudStorageManager,
	bucketName string,
	messageBroker *broker.Broker,
	outputDir string,
	runTimeout time.Duration,
	logger zerolog.Logger,
) *ReportsAPI {
	return &ReportsAPI{
		ctx:          ctx,
		runner:       runner,
		reportDB:     reportDB,
		cloudStorage: cloudStorage,
		bucketName:   bucketName,
		broker:       messageBroker,
		outputDir:    outputDir,
		runTimeout:   runTimeout,
		logger:       logger,
	}
}

func SetupRoutes(r *gin.Engine, reports *ReportsAPI, wsHandler *wsocket.Handler, jwtSecret string) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api", auth.AuthMiddleware(jwtSecret))
	{
		api.POST("/reports", reports.createReportHandler)
		api.GET("/reports", reports.listReportsHandler)
		api.GET("/reports/:id", reports.getReportHandler)
		api.GET("/reports/:id/html", reports.getReportHTMLHandler)
		api.DELETE("/reports/:id", reports.deleteReportHandler)
		api.GET("/runs/:id", reports.getRunHandler)
		api.GET("/published", reports.listPublishedHandler)
	}

	r.GET("/ws/runs/:id", auth.AuthMiddleware(jwtSecret), func(c *gin.Context) {
		wsHandler.HandleRunEvents(c.Writer, c.Request, c.Param("id"))
	})
}

type createReportRequest struct {
	Date       string   `json:"date" binding:"required"`
	Categories []string `json:"categories"`
	Top        int      `json:"top"`
	Renderer   string   `json:"renderer"`
}

func (a *ReportsAPI) createReportHandler(c *gin.Context) {
	var request createReportRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		apperrors.HandleError(c, apperrors.New400Error(err.Error()))
		return
	}
	if _, err := arxiv.ParseDate(request.Date); err != nil {
		apperrors.HandleError(c, apperrors.New400Error(err.Error()))
		return
	}
	if request.Top < 0 {
		apperrors.HandleError(c, apperrors.New400Error("top must be positive"))
		return
	}
	switch request.Renderer {
	case "", services.RendererLLM, services.RendererTemplate:
	default:
		apperrors.HandleError(c, apperrors.New400Error(fmt.Sprintf("unknown renderer %q", request.Renderer)))
		return
	}

	runID := uuid.New()
	req := services.RunRequest{
		RunID: runID,
		Date:  request.Date,
		DigestOptions: services.DigestOptions{
			Categories: request.Categories,
			TopN:       request.Top,
			Renderer:   request.Renderer,
			OutputFile: filepath.Join(a.outputDir, request.Date, runID.String()+".html"),
		},
	}

	// The first event is published before responding so a status lookup
	// right after the 202 finds the run.
	a.broker.Publish(models.RunTopic(runID.String()), models.RunEvent{
		RunID:   runID.String(),
		Stage:   models.StageStarted,
		Message: "Run queued",
		Time:    time.Now().UTC(),
	})

	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, a.runTimeout)
		defer cancel()
		if _, err := a.runner.Run(ctx, req); err != nil {
			a.logger.Warn().Err(err).Str("run_id", runID.String()).Msg("Run started over HTTP failed")
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"run_id":     runID,
		"events_url": "/ws/runs/" + runID.String(),
		"status_url": "/api/runs/" + runID.String(),
	})
}

func (a *ReportsAPI) getRunHandler(c *gin.Context) {
	last, ok := a.broker.Last(models.RunTopic(c.Param("id")))
	if !ok {
		apperrors.HandleError(c, apperrors.New404Error("Run not found"))
		return
	}
	c.JSON(http.StatusOK, last)
}

func (a *ReportsAPI) listReportsHandler(c *gin.Context) {
	if a.reportDB == nil {
		apperrors.HandleError(c, apperrors.New503Error("Report storage is not configured"))
		return
	}
	date := c.Query("date")
	if date != "" {
		if _, err := arxiv.ParseDate(date); err != nil {
			apperrors.HandleError(c, apperrors.New400Error(err.Error()))
			return
		}
	}
	reports, err := a.reportDB.ListReportsDB(date)
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

func (a *ReportsAPI) getReportHandler(c *gin.Context) {
	report, ok := a.loadReport(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, report)
}

func (a *ReportsAPI) getReportHTMLHandler(c *gin.Context) {
	report, ok := a.loadReport(c)
	if !ok {
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(report.HTML))
}

func (a *ReportsAPI) deleteReportHandler(c *gin.Context) {
	if a.reportDB == nil {
		apperrors.HandleError(c, apperrors.New503Error("Report storage is not configured"))
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apperrors.HandleError(c, apperrors.New400Error("Invalid report ID"))
		return
	}
	if err := a.reportDB.DeleteReportDB(id); err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Report deleted successfully"})
}

func (a *ReportsAPI) listPublishedHandler(c *gin.Context) {
	if a.cloudStorage == nil || a.bucketName == "" {
		apperrors.HandleError(c, apperrors.New503Error("Report publishing is not configured"))
		return
	}
	prefix := "reports/"
	if date := c.Query("date"); date != "" {
		if _, err := arxiv.ParseDate(date); err != nil {
			apperrors.HandleError(c, apperrors.New400Error(err.Error()))
			return
		}
		prefix += date + "/"
	}
	files, err := a.cloudStorage.ListFiles(c.Request.Context(), a.bucketName, prefix)
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bucket": a.bucketName, "files": files})
}

func (a *ReportsAPI) loadReport(c *gin.Context) (*models.Report, bool) {
	if a.reportDB == nil {
		apperrors.HandleError(c, apperrors.New503Error("Report storage is not configured"))
		return nil, false
	}
	id, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		apperrors.HandleError(c, apperrors.New400Error("Invalid report ID"))
		return nil, false
	}
	report, err := a.reportDB.GetReportDB(id)
	if err != nil {
		apperrors.HandleError(c, err)
		return nil, false
	}
	return report, true
}
