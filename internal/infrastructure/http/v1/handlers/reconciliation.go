package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"stocktake/internal/core/apperror"
	"stocktake/internal/core/id"
	"stocktake/internal/domain"
	"stocktake/internal/domain/counting"
	"stocktake/internal/domain/reconciliation"
	"stocktake/internal/infrastructure/http/v1/dto"
)

// ReconciliationHandler serves the reconciliation record lifecycle:
// create from a count, correct while pending, confirm once.
type ReconciliationHandler struct {
	*BaseHandler
	service  *reconciliation.Service
	sessions *counting.Manager
}

// NewReconciliationHandler creates a reconciliation handler.
func NewReconciliationHandler(base *BaseHandler, service *reconciliation.Service, sessions *counting.Manager) *ReconciliationHandler {
	return &ReconciliationHandler{
		BaseHandler: base,
		service:     service,
		sessions:    sessions,
	}
}

// List handles GET /reconciliations.
func (h *ReconciliationHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	filter := reconciliation.ListFilter{
		ListFilter: domain.ListFilter{
			Search:         c.Query("search"),
			Limit:          h.ParseIntQuery(c, "limit", 50),
			Offset:         h.ParseIntQuery(c, "offset", 0),
			OrderBy:        c.DefaultQuery("orderBy", "-date"),
			IncludeDeleted: c.Query("includeDeleted") == "true",
		},
	}

	if locStr := c.Query("locationId"); locStr != "" {
		locationID, err := id.Parse(locStr)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid locationId format"))
			return
		}
		filter.LocationID = &locationID
	}

	if countedBy := c.Query("countedBy"); countedBy != "" {
		filter.CountedBy = &countedBy
	}

	if statusStr := c.Query("status"); statusStr != "" {
		status := reconciliation.Status(statusStr)
		filter.Status = &status
	}

	if policyStr := c.Query("policy"); policyStr != "" {
		policy, err := reconciliation.ParsePolicy(policyStr)
		if err != nil {
			h.Error(c, err)
			return
		}
		filter.Policy = &policy
	}

	if fromStr := c.Query("dateFrom"); fromStr != "" {
		from, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid dateFrom format, RFC3339 expected"))
			return
		}
		filter.DateFrom = &from
	}

	if toStr := c.Query("dateTo"); toStr != "" {
		to, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid dateTo format, RFC3339 expected"))
			return
		}
		filter.DateTo = &to
	}

	result, err := h.service.List(ctx, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]any, len(result.Items))
	for i, item := range result.Items {
		items[i] = dto.FromReconciliation(item)
	}

	c.JSON(http.StatusOK, dto.ListResponse{
		Items:      items,
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// Get handles GET /reconciliations/:id.
func (h *ReconciliationHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	recordID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	record, err := h.service.GetByID(ctx, recordID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromReconciliation(record))
}

// Create handles POST /reconciliations.
// The book snapshot for every counted product is taken here.
func (h *ReconciliationHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateReconciliationRequest
	if !h.BindJSON(c, &req) {
		return
	}

	locationID, err := id.Parse(req.LocationID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid locationId format"))
		return
	}

	policy, err := reconciliation.ParsePolicy(req.Policy)
	if err != nil {
		h.Error(c, err)
		return
	}

	record, err := h.service.Create(ctx, locationID, h.GetUserID(c), policy, dto.ToCountInputs(req.Counts))
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromReconciliation(record))
}

// Update handles PUT /reconciliations/:id - replaces counts on a pending
// record. Book snapshots of surviving lines are kept.
func (h *ReconciliationHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	recordID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.UpdateReconciliationRequest
	if !h.BindJSON(c, &req) {
		return
	}

	record, err := h.service.UpdateCounts(ctx, recordID, dto.ToCountInputs(req.Counts))
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromReconciliation(record))
}

// Delete handles DELETE /reconciliations/:id.
func (h *ReconciliationHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()

	recordID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	if err := h.service.Delete(ctx, recordID); err != nil {
		h.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Confirm handles POST /reconciliations/:id/confirm - the one-way move
// to the terminal state, applying the record to the stock register.
func (h *ReconciliationHandler) Confirm(c *gin.Context) {
	ctx := c.Request.Context()

	recordID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	record, err := h.service.Confirm(ctx, recordID, h.GetUserID(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	// A draft for this record can only replay a count that is now
	// terminal; drop it together with any live edit session.
	if h.sessions != nil {
		h.sessions.RecordConfirmed(ctx, record.CountedBy, record.ID)
	}

	c.JSON(http.StatusOK, dto.FromReconciliation(record))
}
