package handler

import (
	"context"
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/landport/freight-api/internal/model"
	"github.com/landport/freight-api/internal/repository"
)

// TeamHandler exposes the caller's fleet and its roster.
type TeamHandler struct {
	Fleets *repository.FleetRepo
}

func NewTeamHandler(fleets *repository.FleetRepo) *TeamHandler {
	return &TeamHandler{Fleets: fleets}
}

type teamResp struct {
	Fleet   *model.Fleet        `json:"fleet"`
	MyRole  string              `json:"myRole"`
	Members []model.FleetMember `json:"members"`
}

// Team returns the fleet the driver belongs to with its member list.  A
// driver outside any fleet gets a null fleet, not an error: the console
// shows an empty state instead of failing.
func (h *TeamHandler) Team(c echo.Context) error {
	p, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	fleet, role, err := h.Fleets.GetForUser(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrFleetNotFound) {
			return ok(c, teamResp{Members: []model.FleetMember{}})
		}
		return internalError(c, "load fleet", err)
	}
	members, err := h.Fleets.Roster(ctx, fleet.ID)
	if err != nil {
		return internalError(c, "load fleet roster", err)
	}
	if members == nil {
		members = []model.FleetMember{}
	}
	return ok(c, teamResp{Fleet: fleet, MyRole: role, Members: members})
}
