package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stocktake/internal/core/apperror"
	"stocktake/internal/core/id"
	"stocktake/internal/domain/counting"
	"stocktake/internal/domain/reconciliation"
	"stocktake/internal/infrastructure/http/v1/dto"
)

// CountingHandler serves live counting sessions: the scan/type flow that
// accumulates quantities before they become a reconciliation record.
type CountingHandler struct {
	*BaseHandler
	manager *counting.Manager
}

// NewCountingHandler creates a counting handler.
func NewCountingHandler(base *BaseHandler, manager *counting.Manager) *CountingHandler {
	return &CountingHandler{
		BaseHandler: base,
		manager:     manager,
	}
}

// session resolves the :key path param into a live session.
func (h *CountingHandler) session(c *gin.Context) (*counting.Session, bool) {
	key := c.Param("key")
	session, ok := h.manager.Get(key)
	if !ok {
		h.Error(c, apperror.NewNotFound("counting session", key))
		return nil, false
	}
	return session, true
}

func (h *CountingHandler) state(session *counting.Session, key string, restored bool) dto.SessionResponse {
	return dto.SessionResponse{
		Key:          key,
		LocationID:   session.LocationID().String(),
		Restored:     restored,
		Observations: dto.FromObservations(session.Observations()),
	}
}

// Open handles POST /counting/sessions.
// Opening the same count twice returns the same session; a saved draft
// younger than a day is restored into it.
func (h *CountingHandler) Open(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.OpenSessionRequest
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

	var editingRecordID *id.ID
	if req.EditingRecordID != nil {
		recordID, err := id.Parse(*req.EditingRecordID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid editingRecordId format"))
			return
		}
		editingRecordID = &recordID
	}

	session, restored, err := h.manager.Open(ctx, h.GetUserID(c), locationID, editingRecordID, policy)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, h.state(session, session.DraftKey(), restored))
}

// Get handles GET /counting/sessions/:key - current session state.
func (h *CountingHandler) Get(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, h.state(session, c.Param("key"), false))
}

// Scan handles POST /counting/sessions/:key/scan.
// An unknown barcode fails just this scan; the session keeps its state.
func (h *CountingHandler) Scan(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req dto.ScanRequest
	if !h.BindJSON(c, &req) {
		return
	}

	kind, err := counting.ParseUnitKind(req.UnitKind)
	if err != nil {
		h.Error(c, err)
		return
	}

	qty := req.Quantity
	if qty == 0 {
		qty = 1
	}

	prod, err := session.ScanBarcode(c.Request.Context(), req.Barcode, kind, qty)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ScanResponse{
		Product:      dto.FromProduct(prod),
		Observations: dto.FromObservations(session.Observations()),
	})
}

// SetQuantity handles PUT /counting/sessions/:key/quantity.
// Count list flow: the typed value overwrites the bucket, explicit zeros
// are kept.
func (h *CountingHandler) SetQuantity(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req dto.SetQuantityRequest
	if !h.BindJSON(c, &req) {
		return
	}

	productID, err := id.Parse(req.ProductID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid productId format"))
		return
	}

	kind, err := counting.ParseUnitKind(req.UnitKind)
	if err != nil {
		h.Error(c, err)
		return
	}

	session.SetQuantity(productID, kind, req.Quantity)

	c.JSON(http.StatusOK, h.state(session, c.Param("key"), false))
}

// RemoveProduct handles DELETE /counting/sessions/:key/products/:productId.
func (h *CountingHandler) RemoveProduct(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	productID, err := id.Parse(c.Param("productId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid productId format"))
		return
	}

	session.RemoveProduct(productID)

	c.JSON(http.StatusOK, h.state(session, c.Param("key"), false))
}

// SaveDraft handles POST /counting/sessions/:key/draft - immediate
// snapshot, bypassing the debounce.
func (h *CountingHandler) SaveDraft(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	if err := session.SaveDraftNow(c.Request.Context()); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "draft saved")
}

// DiscardDraft handles DELETE /counting/sessions/:key/draft - clears the
// session and deletes its saved draft.
func (h *CountingHandler) DiscardDraft(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	if err := session.DiscardDraft(c.Request.Context()); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "draft discarded")
}

// Submit handles POST /counting/sessions/:key/submit - turns the count
// into a reconciliation record. Double-taps fail fast with CONFLICT.
func (h *CountingHandler) Submit(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	record, err := session.Submit(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromReconciliation(record))
}

// Close handles DELETE /counting/sessions/:key - removes the session
// from the registry, flushing or discarding its draft.
func (h *CountingHandler) Close(c *gin.Context) {
	key := c.Param("key")
	discard := c.Query("discard") == "true"

	if err := h.manager.Close(c.Request.Context(), key, discard); err != nil {
		h.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
