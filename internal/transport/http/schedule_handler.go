package http

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"stagetime/backend/internal/domain"
	"stagetime/backend/internal/service/schedule"
)

// ScheduleService is the venue-side surface consumed by the HTTP layer.
type ScheduleService interface {
	CreateAssignment(ctx context.Context, in schedule.CreateAssignmentInput) (schedule.AssignmentResult, error)
	UpdateAssignment(ctx context.Context, assignmentID uuid.UUID, in schedule.UpdateAssignmentInput) (schedule.AssignmentResult, error)
	DeleteAssignment(ctx context.Context, assignmentID uuid.UUID) (domain.Assignment, error)
	GetAssignment(ctx context.Context, assignmentID uuid.UUID) (domain.Assignment, error)
	ListAssignments(ctx context.Context, venueIDs []uuid.UUID, from, to string) ([]domain.Assignment, error)
	BuildCalendar(ctx context.Context, in schedule.BuildCalendarInput) (domain.CalendarView, error)
	CreateVenue(ctx context.Context, in schedule.CreateVenueInput) (domain.Venue, error)
	GetVenue(ctx context.Context, venueID uuid.UUID) (domain.Venue, error)
	ListVenues(ctx context.Context) ([]domain.Venue, error)
	UpsertArtist(ctx context.Context, in schedule.UpsertArtistInput) (domain.Artist, error)
	ListArtists(ctx context.Context) ([]domain.Artist, error)
}

type ScheduleHandler struct {
	svc ScheduleService
}

func NewScheduleHandler(svc ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{svc: svc}
}

func (h *ScheduleHandler) Register(g *echo.Group) {
	g.POST("/assignments", h.createAssignment)
	g.GET("/assignments", h.listAssignments)
	g.GET("/assignments/:id", h.getAssignment)
	g.PATCH("/assignments/:id", h.updateAssignment)
	g.DELETE("/assignments/:id", h.deleteAssignment)

	g.GET("/calendar", h.calendar)

	g.POST("/venues", h.createVenue)
	g.GET("/venues", h.listVenues)
	g.GET("/venues/:id", h.getVenue)

	g.PUT("/artists/:id", h.upsertArtist)
	g.GET("/artists", h.listArtists)
}

type createAssignmentRequest struct {
	VenueID      uuid.UUID  `json:"venueId"`
	ArtistID     *uuid.UUID `json:"artistId"`
	Date         string     `json:"date"`
	StartTime    string     `json:"startTime"`
	EndTime      string     `json:"endTime"`
	Slot         string     `json:"slot"`
	Status       string     `json:"status"`
	Notes        string     `json:"notes"`
	SpecialEvent string     `json:"specialEvent"`
}

func (h *ScheduleHandler) createAssignment(c echo.Context) error {
	if !actorFrom(c).mayManageSchedule() {
		return forbidden(c)
	}
	var req createAssignmentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "malformed request body"})
	}

	res, err := h.svc.CreateAssignment(c.Request().Context(), schedule.CreateAssignmentInput{
		VenueID:      req.VenueID,
		ArtistID:     req.ArtistID,
		Date:         req.Date,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		Slot:         req.Slot,
		Status:       req.Status,
		Notes:        req.Notes,
		SpecialEvent: req.SpecialEvent,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

type updateAssignmentRequest struct {
	ArtistID  *uuid.UUID `json:"artistId"`
	Date      *string    `json:"date"`
	StartTime *string    `json:"startTime"`
	EndTime   *string    `json:"endTime"`
	Slot      *string    `json:"slot"`
	Status    *string    `json:"status"`
	Notes     *string    `json:"notes"`
}

func (h *ScheduleHandler) updateAssignment(c echo.Context) error {
	if !actorFrom(c).mayManageSchedule() {
		return forbidden(c)
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid assignment id", Field: "id"})
	}
	var req updateAssignmentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "malformed request body"})
	}

	res, err := h.svc.UpdateAssignment(c.Request().Context(), id, schedule.UpdateAssignmentInput{
		ArtistID:  req.ArtistID,
		Date:      req.Date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Slot:      req.Slot,
		Status:    req.Status,
		Notes:     req.Notes,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *ScheduleHandler) deleteAssignment(c echo.Context) error {
	if !actorFrom(c).mayManageSchedule() {
		return forbidden(c)
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid assignment id", Field: "id"})
	}
	deleted, err := h.svc.DeleteAssignment(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, deleted)
}

func (h *ScheduleHandler) getAssignment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid assignment id", Field: "id"})
	}
	a, err := h.svc.GetAssignment(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *ScheduleHandler) listAssignments(c echo.Context) error {
	var venueIDs []uuid.UUID
	for _, raw := range c.QueryParams()["venueId"] {
		id, err := uuid.Parse(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid venue id", Field: "venueId"})
		}
		venueIDs = append(venueIDs, id)
	}
	out, err := h.svc.ListAssignments(c.Request().Context(), venueIDs, c.QueryParam("from"), c.QueryParam("to"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ScheduleHandler) calendar(c echo.Context) error {
	in := schedule.BuildCalendarInput{
		ViewMode: c.QueryParam("view"),
		Anchor:   c.QueryParam("anchor"),
	}
	if raw := c.QueryParam("year"); raw != "" {
		var year int
		if err := echo.QueryParamsBinder(c).Int("year", &year).BindError(); err != nil {
			return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid year", Field: "year"})
		}
		in.Year = year
	}
	if raw := c.QueryParam("month"); raw != "" {
		var month int
		if err := echo.QueryParamsBinder(c).Int("month", &month).BindError(); err != nil {
			return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid month", Field: "month"})
		}
		in.Month = time.Month(month)
	}
	for _, raw := range c.QueryParams()["venueId"] {
		id, err := uuid.Parse(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid venue id", Field: "venueId"})
		}
		in.VenueIDs = append(in.VenueIDs, id)
	}
	if raw := c.QueryParam("artistId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid artist id", Field: "artistId"})
		}
		in.ArtistID = &id
	}

	view, err := h.svc.BuildCalendar(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

type createVenueRequest struct {
	Name      string                      `json:"name"`
	StartTime string                      `json:"startTime"`
	EndTime   string                      `json:"endTime"`
	Slots     []string                    `json:"slots"`
	SlotHours map[string]domain.SlotHours `json:"slotHours"`
}

func (h *ScheduleHandler) createVenue(c echo.Context) error {
	if actorFrom(c).Role != roleAdmin {
		return forbidden(c)
	}
	var req createVenueRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "malformed request body"})
	}
	v, err := h.svc.CreateVenue(c.Request().Context(), schedule.CreateVenueInput{
		Name:      req.Name,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Slots:     req.Slots,
		SlotHours: req.SlotHours,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, v)
}

func (h *ScheduleHandler) getVenue(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid venue id", Field: "id"})
	}
	v, err := h.svc.GetVenue(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *ScheduleHandler) listVenues(c echo.Context) error {
	out, err := h.svc.ListVenues(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

type upsertArtistRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	ImageURL string `json:"imageUrl"`
}

func (h *ScheduleHandler) upsertArtist(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid artist id", Field: "id"})
	}
	if actorFrom(c).Role != roleAdmin {
		return forbidden(c)
	}
	var req upsertArtistRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "malformed request body"})
	}
	a, err := h.svc.UpsertArtist(c.Request().Context(), schedule.UpsertArtistInput{
		ID:       id,
		Name:     req.Name,
		Category: req.Category,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *ScheduleHandler) listArtists(c echo.Context) error {
	out, err := h.svc.ListArtists(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
