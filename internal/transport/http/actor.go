package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// The API gateway authenticates callers and forwards identity in trusted
// headers. Roles: admin, venue, artist.
const (
	headerActorID   = "X-Actor-Id"
	headerActorRole = "X-Actor-Role"

	roleAdmin  = "admin"
	roleVenue  = "venue"
	roleArtist = "artist"
)

type actor struct {
	ID   uuid.UUID
	Role string
}

func actorFrom(c echo.Context) actor {
	a := actor{Role: c.Request().Header.Get(headerActorRole)}
	if id, err := uuid.Parse(c.Request().Header.Get(headerActorID)); err == nil {
		a.ID = id
	}
	return a
}

// mayManageArtist reports whether the caller may mutate the given artist's
// calendar. Artists are confined to their own; venue staff and admins may act
// on behalf of any artist.
func (a actor) mayManageArtist(artistID uuid.UUID) bool {
	if a.Role == roleArtist {
		return a.ID == artistID
	}
	return true
}

// mayManageSchedule reports whether the caller may mutate venue schedules.
func (a actor) mayManageSchedule() bool {
	return a.Role == roleAdmin || a.Role == roleVenue
}

func forbidden(c echo.Context) error {
	return c.JSON(http.StatusForbidden, errorBody{Error: "forbidden"})
}
