package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/faultdesk/incident-service-api/internal/domain/incident"
	"github.com/faultdesk/incident-service-api/internal/handler/dto"
	"github.com/faultdesk/incident-service-api/internal/handler/middleware"
	"github.com/faultdesk/incident-service-api/internal/ierr"
	"github.com/faultdesk/incident-service-api/internal/service"
)

type IncidentHandler struct {
	service *service.IncidentService
	logger  *zap.Logger
}

func NewIncidentHandler(service *service.IncidentService, logger *zap.Logger) *IncidentHandler {
	return &IncidentHandler{
		service: service,
		logger:  logger.Named("IncidentHandler"),
	}
}

// Report ingests an error event from an API-key-authenticated client.
func (h *IncidentHandler) Report(c *gin.Context) {
	var req dto.ReportIncidentRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Failed to bind or validate report request body", zap.Error(err))
		_ = c.Error(err)
		return
	}

	// An ingest key reports only for the service it was minted for.
	if keyService := middleware.GetKeyService(c); keyService != "" && keyService != req.Service {
		h.logger.Warn("API key attempted to report for a foreign service",
			zap.String("key_service", keyService),
			zap.String("report_service", req.Service),
		)
		_ = c.Error(fmt.Errorf("%w: api key is not scoped to service '%s'", ierr.ErrForbidden, req.Service))
		return
	}

	inc, err := h.service.Report(c.Request.Context(), &req)
	if err != nil {
		h.logger.Error("Service failed to ingest incident report", zap.Error(err))
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusAccepted, dto.NewIncidentResponse(inc))
}

func (h *IncidentHandler) Create(c *gin.Context) {
	h.logger.Debug("Received request to create incident")
	var req dto.CreateIncidentRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Failed to bind or validate request body", zap.Error(err))
		_ = c.Error(err)
		return
	}

	createdIncident, err := h.service.CreateIncident(c.Request.Context(), &req)
	if err != nil {
		h.logger.Error("Service failed to create incident", zap.Error(err))
		_ = c.Error(err)
		return
	}

	h.logger.Info("Incident created successfully via handler", zap.String("id", createdIncident.ID.String()))
	c.JSON(http.StatusCreated, dto.NewIncidentResponse(createdIncident))
}

func (h *IncidentHandler) List(c *gin.Context) {
	h.logger.Debug("Received request to list incidents")
	var req dto.ListIncidentsRequest

	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Warn("Failed to bind or validate query parameters", zap.Error(err))
		_ = c.Error(err)
		return
	}

	incidents, totalCount, err := h.service.ListIncidents(c.Request.Context(), &req)
	if err != nil {
		h.logger.Error("Service failed to list incidents", zap.Error(err))
		_ = c.Error(err)
		return
	}

	incidentResponses := make([]*dto.IncidentResponse, len(incidents))
	for i, inc := range incidents {
		incidentResponses[i] = dto.NewIncidentResponse(inc)
	}

	c.JSON(http.StatusOK, dto.PaginatedIncidentResponse{
		Incidents:  incidentResponses,
		TotalCount: totalCount,
		Limit:      req.Limit,
		Offset:     req.Offset,
	})
}

func (h *IncidentHandler) GetByID(c *gin.Context) {
	idStr := c.Param("id")
	h.logger.Debug("Received request to get incident by ID", zap.String("id_param", idStr))

	id, err := uuid.Parse(idStr)
	if err != nil {
		h.logger.Warn("Invalid UUID format received", zap.String("id_param", idStr), zap.Error(err))
		_ = c.Error(fmt.Errorf("%w: invalid incident id format", ierr.ErrValidation))
		return
	}

	inc, err := h.service.GetIncidentByID(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.NewIncidentResponse(inc))
}

func (h *IncidentHandler) UpdateStatus(c *gin.Context) {
	idStr := c.Param("id")
	h.logger.Debug("Received request to update incident status", zap.String("id_param", idStr))

	id, err := uuid.Parse(idStr)
	if err != nil {
		h.logger.Warn("Invalid UUID format for status update", zap.String("id_param", idStr), zap.Error(err))
		_ = c.Error(fmt.Errorf("%w: invalid incident id format", ierr.ErrValidation))
		return
	}

	var req dto.UpdateIncidentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Failed to bind or validate status update request body", zap.String("id", idStr), zap.Error(err))
		_ = c.Error(err)
		return
	}

	updated, err := h.service.UpdateStatus(c.Request.Context(), id, incident.Status(*req.Status))
	if err != nil {
		h.logger.Error("Service failed to update incident status", zap.String("id", idStr), zap.Error(err))
		_ = c.Error(err)
		return
	}

	h.logger.Info("Incident status updated successfully via handler",
		zap.String("id", idStr),
		zap.String("new_status", *req.Status),
	)
	c.JSON(http.StatusOK, dto.NewIncidentResponse(updated))
}

func (h *IncidentHandler) Summary(c *gin.Context) {
	summary, err := h.service.Summarize(c.Request.Context())
	if err != nil {
		h.logger.Error("Service failed to summarize incidents", zap.Error(err))
		_ = c.Error(err)
		return
	}

	resp := dto.IncidentSummaryResponse{
		Total:      summary.Total,
		ByStatus:   make(map[string]int64, len(summary.ByStatus)),
		BySeverity: make(map[string]int64, len(summary.BySeverity)),
	}
	for status, count := range summary.ByStatus {
		resp.ByStatus[string(status)] = count
	}
	for severity, count := range summary.BySeverity {
		resp.BySeverity[string(severity)] = count
	}

	c.JSON(http.StatusOK, resp)
}
