package handler

import (
	"bytes"
	"context"
	"errors"
	"log"
	"time"

	"hospital-jobs/internal/delivery/http/middleware"
	"hospital-jobs/internal/pipeline"
	"hospital-jobs/internal/pkg/response"
	"hospital-jobs/internal/usecase"

	"github.com/gofiber/fiber/v3"
)

type triggerRequest struct {
	BatchSize *int `json:"batchSize"`
}

type discoveryResponse struct {
	Success bool `json:"success"`
	pipeline.DiscoverySummary
}

type scrapeResponse struct {
	Success bool `json:"success"`
	pipeline.ScrapeSummary
}

// PipelineHandler exposes the two scheduler entry points.
type PipelineHandler struct {
	uc  usecase.PipelineUsecase
	log *log.Logger
}

func NewPipelineHandler(uc usecase.PipelineUsecase, logger *log.Logger) *PipelineHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &PipelineHandler{uc: uc, log: logger}
}

func (h *PipelineHandler) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	if r == nil {
		return
	}
	r.Post("/discover-career-pages", auth, h.DiscoverCareerPages)
	r.Post("/scrape-hospital-jobs", auth, h.ScrapeHospitalJobs)
}

func (h *PipelineHandler) DiscoverCareerPages(c fiber.Ctx) error {
	req, err := parseTrigger(c)
	if err != nil {
		return err
	}

	start := time.Now()
	sum, err := h.uc.RunDiscovery(requestContext(c), req.BatchSize)
	if err != nil {
		return h.batchError(c, err, start)
	}

	h.log.Printf("http_request method=%s path=%s status=ok processed=%d found=%d duration=%s",
		c.Method(), c.Path(), sum.Processed, sum.Found, time.Since(start))
	return response.JSON(c, fiber.StatusOK, discoveryResponse{Success: true, DiscoverySummary: sum})
}

func (h *PipelineHandler) ScrapeHospitalJobs(c fiber.Ctx) error {
	req, err := parseTrigger(c)
	if err != nil {
		return err
	}

	start := time.Now()
	sum, err := h.uc.RunScrape(requestContext(c), req.BatchSize)
	if err != nil {
		return h.batchError(c, err, start)
	}

	h.log.Printf("http_request method=%s path=%s status=ok processed=%d jobs_added=%d duration=%s",
		c.Method(), c.Path(), sum.Processed, sum.TotalJobsAdded, time.Since(start))
	return response.JSON(c, fiber.StatusOK, scrapeResponse{Success: true, ScrapeSummary: sum})
}

func (h *PipelineHandler) batchError(c fiber.Ctx, err error, start time.Time) error {
	switch {
	case errors.Is(err, usecase.ErrInvalidBatchSize):
		return middleware.NewAppError(fiber.StatusBadRequest, err.Error(), err)
	case errors.Is(err, usecase.ErrBatchRunning):
		return middleware.NewAppError(fiber.StatusConflict, err.Error(), err)
	}
	h.log.Printf("http_request method=%s path=%s status=error duration=%s err=%v", c.Method(), c.Path(), time.Since(start), err)
	return middleware.NewAppError(fiber.StatusInternalServerError, "", err)
}

// parseTrigger accepts an empty body. Unknown fields are ignored.
func parseTrigger(c fiber.Ctx) (triggerRequest, error) {
	var req triggerRequest
	if len(bytes.TrimSpace(c.Body())) == 0 {
		return req, nil
	}
	if err := c.Bind().JSON(&req); err != nil {
		return req, middleware.NewAppError(fiber.StatusBadRequest, "malformed request body", err)
	}
	if req.BatchSize != nil && *req.BatchSize < 1 {
		return req, middleware.NewAppError(fiber.StatusBadRequest, usecase.ErrInvalidBatchSize.Error(), nil)
	}
	return req, nil
}

// requestContext keeps a batch running when the scheduler hangs up; the
// batch deadline bounds it instead.
func requestContext(c fiber.Ctx) context.Context {
	return context.WithoutCancel(c.Context())
}
