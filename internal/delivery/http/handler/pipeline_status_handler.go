package handler

import (
	"log"
	"time"

	"hospital-jobs/internal/delivery/http/middleware"
	"hospital-jobs/internal/domain"
	"hospital-jobs/internal/pkg/response"
	"hospital-jobs/internal/usecase"

	"github.com/gofiber/fiber/v3"
)

type statusResponse struct {
	Success bool `json:"success"`
	domain.PipelineStatus
}

type PipelineStatusHandler struct {
	uc  usecase.PipelineStatusUsecase
	log *log.Logger
}

func NewPipelineStatusHandler(uc usecase.PipelineStatusUsecase, logger *log.Logger) *PipelineStatusHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &PipelineStatusHandler{uc: uc, log: logger}
}

func (h *PipelineStatusHandler) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	if r == nil {
		return
	}
	r.Get("/pipeline/status", auth, h.GetStatus)
}

func (h *PipelineStatusHandler) GetStatus(c fiber.Ctx) error {
	start := time.Now()

	data, err := h.uc.GetStatus(c.Context())
	if err != nil {
		h.log.Printf("http_request method=%s path=%s status=error duration=%s err=%v", c.Method(), c.Path(), time.Since(start), err)
		return middleware.NewAppError(fiber.StatusInternalServerError, "", err)
	}

	h.log.Printf("http_request method=%s path=%s status=ok duration=%s", c.Method(), c.Path(), time.Since(start))
	return response.JSON(c, fiber.StatusOK, statusResponse{Success: true, PipelineStatus: data})
}
