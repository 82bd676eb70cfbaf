package http

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"stagetime/backend/internal/domain"
	"stagetime/backend/internal/service/availability"
	"stagetime/backend/internal/store"
)

// AvailabilityService is the artist-side surface consumed by the HTTP layer.
type AvailabilityService interface {
	GetCalendar(ctx context.Context, artistID uuid.UUID, from, to string) ([]domain.AvailabilitySlot, error)
	UpsertSlot(ctx context.Context, in availability.UpsertSlotInput) (domain.AvailabilitySlot, error)
	BulkUpsert(ctx context.Context, artistID uuid.UUID, dates []string, in availability.SlotInput) (store.BulkResult, error)
	MoveSlot(ctx context.Context, artistID, slotID uuid.UUID, newDate string) (domain.AvailabilitySlot, error)
	CreatePattern(ctx context.Context, in availability.CreatePatternInput) (domain.RecurringPattern, error)
	ListPatterns(ctx context.Context, artistID uuid.UUID) ([]domain.RecurringPattern, error)
	DeactivatePattern(ctx context.Context, artistID, patternID uuid.UUID) error
	Materialize(ctx context.Context, artistID, patternID uuid.UUID, date string) (domain.AvailabilitySlot, error)
	CreateTemplate(ctx context.Context, in availability.CreateTemplateInput) (domain.TimeSlotTemplate, error)
	ListTemplates(ctx context.Context, artistID uuid.UUID) ([]domain.TimeSlotTemplate, error)
	DeleteTemplate(ctx context.Context, artistID, templateID uuid.UUID) error
	ApplyTemplate(ctx context.Context, artistID, templateID uuid.UUID, dates []string) (store.BulkResult, error)
}

type AvailabilityHandler struct {
	svc AvailabilityService
}

func NewAvailabilityHandler(svc AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{svc: svc}
}

func (h *AvailabilityHandler) Register(g *echo.Group) {
	a := g.Group("/artists/:artistId")
	a.GET("/availability", h.getCalendar)
	a.PUT("/availability", h.upsertSlot)
	a.POST("/availability/bulk", h.bulkUpsert)
	a.POST("/availability/:slotId/move", h.moveSlot)

	a.POST("/patterns", h.createPattern)
	a.GET("/patterns", h.listPatterns)
	a.DELETE("/patterns/:patternId", h.deactivatePattern)
	a.POST("/patterns/:patternId/materialize", h.materialize)

	a.POST("/templates", h.createTemplate)
	a.GET("/templates", h.listTemplates)
	a.DELETE("/templates/:templateId", h.deleteTemplate)
	a.POST("/templates/:templateId/apply", h.applyTemplate)
}

// artistParam parses the artist id from the path and enforces the ownership
// rule for artist-role callers. On failure the response is already written and
// ok is false.
func artistParam(c echo.Context, mutating bool) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("artistId"))
	if err != nil {
		_ = c.JSON(http.StatusBadRequest, errorBody{Error: "invalid artist id", Field: "artistId"})
		return uuid.Nil, false
	}
	if mutating && !actorFrom(c).mayManageArtist(id) {
		_ = forbidden(c)
		return uuid.Nil, false
	}
	return id, true
}

func (h *AvailabilityHandler) getCalendar(c echo.Context) error {
	artistID, ok := artistParam(c, false)
	if !ok {
		return nil
	}
	slots, err := h.svc.GetCalendar(c.Request().Context(), artistID, c.QueryParam("from"), c.QueryParam("to"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, slots)
}

type slotRequest struct {
	SlotID             uuid.UUID  `json:"slotId"`
	StartTime          string     `json:"startTime"`
	EndTime            string     `json:"endTime"`
	Status             string     `json:"status"`
	PriceMultiplier    float64    `json:"priceMultiplier"`
	BufferBefore       int        `json:"bufferBefore"`
	BufferAfter        int        `json:"bufferAfter"`
	Notes              string     `json:"notes"`
	Requirements       string     `json:"requirements"`
	RecurringPatternID *uuid.UUID `json:"recurringPatternId"`
}

func (r slotRequest) input() availability.SlotInput {
	return availability.SlotInput{
		SlotID:             r.SlotID,
		StartTime:          r.StartTime,
		EndTime:            r.EndTime,
		Status:             r.Status,
		PriceMultiplier:    r.PriceMultiplier,
		BufferBefore:       r.BufferBefore,
		BufferAfter:        r.BufferAfter,
		Notes:              r.Notes,
		Requirements:       r.Requirements,
		RecurringPatternID: r.RecurringPatternID,
	}
}

type upsertSlotRequest struct {
	Date string `json:"date"`
	slotRequest
}

func (h *AvailabilityHandler) upsertSlot(c echo.Context) error {
	artistID, ok := artistParam(c, true)
	if !ok {
		return nil
	}
	var req upsertSlotRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "malformed request body"})
	}
	slot, err := h.svc.UpsertSlot(c.Request().Context(), availability.UpsertSlotInput{
		ArtistID: artistID,
		Date:     req.Date,
		Slot:     req.input(),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, slot)
}

type bulkUpsertRequest struct {
	Dates []string `json:"dates"`
	slotRequest
}

func (h *AvailabilityHandler) bulkUpsert(c echo.Context) error {
	artistID, ok := artistParam(c, true)
	if !ok {
		return nil
	}
	var req bulkUpsertRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "malformed request body"})
	}
	res, err := h.svc.BulkUpsert(c.Request().Context(), artistID, req.Dates, req.input())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

type moveSlotRequest struct {
	NewDate string `json:"newDate"`
}

func (h *AvailabilityHandler) moveSlot(c echo.Context) error {
	artistID, ok := artistParam(c, true)
	if !ok {
		return nil
	}
	slotID, err := uuid.Parse(c.Param("slotId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid slot id", Field: "slotId"})
	}
	var req moveSlotRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "malformed request body"})
	}
	slot, err := h.svc.MoveSlot(c.Request().Context(), artistID, slotID, req.NewDate)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, slot)
}

type createPatternRequest struct {
	Frequency       string  `json:"frequency"`
	DayOfWeek       int     `json:"dayOfWeek"`
	StartTime       string  `json:"startTime"`
	EndTime         string  `json:"endTime"`
	PriceMultiplier float64 `json:"priceMultiplier"`
	ValidFrom       string  `json:"validFrom"`
	ValidUntil      string  `json:"validUntil"`
}

func (h *AvailabilityHandler) createPattern(c echo.Context) error {
	artistID, ok := artistParam(c, true)
	if !ok {
		return nil
	}
	var req createPatternRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "malformed request body"})
	}
	p, err := h.svc.CreatePattern(c.Request().Context(), availability.CreatePatternInput{
		ArtistID:        artistID,
		Frequency:       req.Frequency,
		DayOfWeek:       req.DayOfWeek,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		PriceMultiplier: req.PriceMultiplier,
		ValidFrom:       req.ValidFrom,
		ValidUntil:      req.ValidUntil,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *AvailabilityHandler) listPatterns(c echo.Context) error {
	artistID, ok := artistParam(c, false)
	if !ok {
		return nil
	}
	out, err := h.svc.ListPatterns(c.Request().Context(), artistID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AvailabilityHandler) deactivatePattern(c echo.Context) error {
	artistID, ok := artistParam(c, true)
	if !ok {
		return nil
	}
	patternID, err := uuid.Parse(c.Param("patternId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid pattern id", Field: "patternId"})
	}
	if err := h.svc.DeactivatePattern(c.Request().Context(), artistID, patternID); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type materializeRequest struct {
	Date string `json:"date"`
}

func (h *AvailabilityHandler) materialize(c echo.Context) error {
	artistID, ok := artistParam(c, true)
	if !ok {
		return nil
	}
	patternID, err := uuid.Parse(c.Param("patternId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid pattern id", Field: "patternId"})
	}
	var req materializeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "malformed request body"})
	}
	slot, err := h.svc.Materialize(c.Request().Context(), artistID, patternID, req.Date)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, slot)
}

type createTemplateRequest struct {
	Name            string  `json:"name"`
	DurationMinutes int     `json:"durationMinutes"`
	StartTime       string  `json:"startTime"`
	PriceMultiplier float64 `json:"priceMultiplier"`
	BufferBefore    int     `json:"bufferBefore"`
	BufferAfter     int     `json:"bufferAfter"`
	IsDefault       bool    `json:"isDefault"`
}

func (h *AvailabilityHandler) createTemplate(c echo.Context) error {
	artistID, ok := artistParam(c, true)
	if !ok {
		return nil
	}
	var req createTemplateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "malformed request body"})
	}
	t, err := h.svc.CreateTemplate(c.Request().Context(), availability.CreateTemplateInput{
		ArtistID:        artistID,
		Name:            req.Name,
		DurationMinutes: req.DurationMinutes,
		StartTime:       req.StartTime,
		PriceMultiplier: req.PriceMultiplier,
		BufferBefore:    req.BufferBefore,
		BufferAfter:     req.BufferAfter,
		IsDefault:       req.IsDefault,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *AvailabilityHandler) listTemplates(c echo.Context) error {
	artistID, ok := artistParam(c, false)
	if !ok {
		return nil
	}
	out, err := h.svc.ListTemplates(c.Request().Context(), artistID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AvailabilityHandler) deleteTemplate(c echo.Context) error {
	artistID, ok := artistParam(c, true)
	if !ok {
		return nil
	}
	templateID, err := uuid.Parse(c.Param("templateId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid template id", Field: "templateId"})
	}
	if err := h.svc.DeleteTemplate(c.Request().Context(), artistID, templateID); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type applyTemplateRequest struct {
	Dates []string `json:"dates"`
}

func (h *AvailabilityHandler) applyTemplate(c echo.Context) error {
	artistID, ok := artistParam(c, true)
	if !ok {
		return nil
	}
	templateID, err := uuid.Parse(c.Param("templateId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid template id", Field: "templateId"})
	}
	var req applyTemplateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "malformed request body"})
	}
	res, err := h.svc.ApplyTemplate(c.Request().Context(), artistID, templateID, req.Dates)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
