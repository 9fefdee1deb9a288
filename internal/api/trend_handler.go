package api

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"breachtrend/adapters/excel"
	"breachtrend/app"
	"breachtrend/domain/breach"
	"breachtrend/domain/core"
	"breachtrend/domain/trend"
	"breachtrend/internal"
	"breachtrend/internal/analysis/estimation"
	"breachtrend/internal/errors"
	"breachtrend/ports"
)

// TrendHandler serves trend estimation runs and stored reports
type TrendHandler struct {
	service    *app.TrendService
	reader     ports.RecordReader
	defaults   estimation.Options
	maxUpload  int64
	runTimeout time.Duration
	persistent bool
	logger     *internal.Logger
}

// TrendHandlerConfig holds request limits and option defaults
type TrendHandlerConfig struct {
	Defaults    estimation.Options
	MaxUploadMB int
	RunTimeout  time.Duration
	Persistent  bool
}

// NewTrendHandler creates a new trend handler
func NewTrendHandler(service *app.TrendService, reader ports.RecordReader, cfg TrendHandlerConfig, logger *internal.Logger) *TrendHandler {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	maxUpload := int64(cfg.MaxUploadMB) << 20
	if maxUpload <= 0 {
		maxUpload = 64 << 20
	}
	return &TrendHandler{
		service:    service,
		reader:     reader,
		defaults:   cfg.Defaults,
		maxUpload:  maxUpload,
		runTimeout: cfg.RunTimeout,
		persistent: cfg.Persistent,
		logger:     logger,
	}
}

// trendQuery overrides the configured estimation defaults per request
type trendQuery struct {
	Quantiles  string   `form:"quantiles"`
	Iterations *int     `form:"iterations" binding:"omitempty,min=1,max=100000"`
	Seed       *int64   `form:"seed"`
	Reference  string   `form:"reference"`
	Workers    *int     `form:"workers" binding:"omitempty,min=1,max=256"`
	MinSamples *int     `form:"min_samples" binding:"omitempty,min=2"`
	Confidence *float64 `form:"confidence" binding:"omitempty,gt=0,lt=1"`
	Save       bool     `form:"save"`
	Format     string   `form:"format" binding:"omitempty,oneof=json text"`
}

func (q trendQuery) options(defaults estimation.Options) (estimation.Options, error) {
	opts := defaults
	if q.Quantiles != "" {
		qs, err := trend.ParseQuantiles(q.Quantiles)
		if err != nil {
			return opts, errors.InvalidInput(err.Error())
		}
		opts.Quantiles = qs
	}
	if q.Reference != "" {
		rule, err := breach.ParseReferenceRule(q.Reference)
		if err != nil {
			return opts, errors.InvalidInput(err.Error())
		}
		opts.Reference = rule
	}
	if q.Iterations != nil {
		opts.Iterations = *q.Iterations
	}
	if q.Seed != nil {
		opts.Seed = *q.Seed
	}
	if q.Workers != nil {
		opts.Workers = *q.Workers
	}
	if q.MinSamples != nil {
		opts.MinSamples = *q.MinSamples
	}
	if q.Confidence != nil {
		opts.Confidence = *q.Confidence
	}
	return opts, nil
}

// CreateTrend runs a full estimation on an uploaded CSV or XLSX file
func (h *TrendHandler) CreateTrend(c *gin.Context) {
	var q trendQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.fail(c, errors.InvalidInput(err.Error()))
		return
	}
	opts, err := q.options(h.defaults)
	if err != nil {
		h.fail(c, err)
		return
	}
	if q.Save && !h.persistent {
		h.fail(c, errors.ConfigInvalid("report persistence is not configured"))
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	file, err := c.FormFile("file")
	if err != nil {
		h.fail(c, errors.InvalidInput("multipart field \"file\" is required: "+err.Error()))
		return
	}
	format, err := excel.FormatFromPath(file.Filename)
	if err != nil {
		h.fail(c, errors.InvalidInput(err.Error()))
		return
	}
	src, err := file.Open()
	if err != nil {
		h.fail(c, errors.Wrap(err, "failed to open upload"))
		return
	}
	defer src.Close()

	ctx := c.Request.Context()
	if h.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.runTimeout)
		defer cancel()
	}

	records, err := h.reader.Read(ctx, src, format)
	if err != nil {
		h.fail(c, errors.Wrap(err, "failed to read breach records"))
		return
	}
	h.logger.Info("[TrendHandler] %s: %d records, %d iterations, quantiles %v",
		file.Filename, records.Len(), opts.Iterations, opts.Quantiles)

	report, err := h.service.Run(ctx, app.TrendRequest{Records: records, Options: opts, Save: q.Save})
	if err != nil {
		h.fail(c, err)
		return
	}

	status := http.StatusOK
	if q.Save {
		status = http.StatusCreated
	}
	if q.Format == "text" {
		var buf bytes.Buffer
		if err := estimation.WriteText(&buf, report); err != nil {
			h.fail(c, errors.Wrap(err, "failed to render report"))
			return
		}
		c.Data(status, "text/plain; charset=utf-8", buf.Bytes())
		return
	}
	c.JSON(status, report)
}

// GetTrend returns one stored report
func (h *TrendHandler) GetTrend(c *gin.Context) {
	id, err := core.ParseReportID(c.Param("id"))
	if err != nil {
		h.fail(c, errors.InvalidInput(err.Error()))
		return
	}
	report, err := h.service.GetReport(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ListTrends returns the most recent report headers
func (h *TrendHandler) ListTrends(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			h.fail(c, errors.InvalidInput("limit must be an integer between 1 and 500"))
			return
		}
		limit = n
	}
	reports, err := h.service.ListReports(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports, "count": len(reports)})
}

// Health reports liveness and whether reports are persisted
func (h *TrendHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "persistence": h.persistent})
}

func (h *TrendHandler) fail(c *gin.Context, err error) {
	status := errors.HTTPStatus(err)
	appErr := errors.FromDomain(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("[TrendHandler] %s %s: %v", c.Request.Method, c.FullPath(), err)
	} else {
		h.logger.Debug("[TrendHandler] %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error": appErr.Error(),
		"code":  errors.GetCode(appErr),
	})
}
