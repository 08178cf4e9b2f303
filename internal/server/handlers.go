package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/xtding233/arkgrid-toolkit/internal/service"
)

type Handler struct {
	svc *service.Service
}

func NewHandler(svc *service.Service) *Handler { return &Handler{svc: svc} }

// POST /v1/optimize
func (h *Handler) Optimize(c *gin.Context) {
	var req service.OptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_json", err)
		return
	}
	resp, err := h.svc.Optimize(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, resp)
}

// POST /v1/refine/evaluate
func (h *Handler) Evaluate(c *gin.Context) {
	var req service.EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_json", err)
		return
	}
	resp, err := h.svc.Evaluate(c.Request.Context(), req, nil)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, resp)
}

// POST /v1/refine/advise
func (h *Handler) Advise(c *gin.Context) {
	var req service.AdviseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_json", err)
		return
	}
	resp, err := h.svc.Advise(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, resp)
}

// GET /v1/tables
func (h *Handler) Tables(c *gin.Context) {
	RespondOK(c, h.svc.Tables())
}

// GET /v1/jobs
func (h *Handler) ListJobs(c *gin.Context) {
	jobs := h.svc.Jobs()
	RespondOK(c, gin.H{"active": jobs.Active(), "recent": jobs.Recent()})
}

// GET /v1/jobs/:id
func (h *Handler) GetJob(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	st, ok := h.svc.Jobs().Get(id.String())
	if !ok {
		RespondError(c, http.StatusNotFound, "job_not_found", nil)
		return
	}
	RespondOK(c, gin.H{"job": st})
}

// GET /healthz
func (h *Handler) Health(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}
