package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/landport/freight-api/internal/model"
	"github.com/landport/freight-api/internal/repository"
)

// shareTTL is the fixed lifetime of a certificate share link.
const shareTTL = 7 * 24 * time.Hour

// ShareHandler implements certificate sharing: a driver mints a random
// token for one vehicle, sends the link to a dispatcher, and the dispatcher
// views the certificate images with no account at all.  The view endpoint
// is the only authenticated-tree route that is public by design.
type ShareHandler struct {
	Tokens   *repository.ShareTokenRepo
	Vehicles *repository.VehicleRepo
}

func NewShareHandler(tokens *repository.ShareTokenRepo, vehicles *repository.VehicleRepo) *ShareHandler {
	return &ShareHandler{Tokens: tokens, Vehicles: vehicles}
}

type shareResp struct {
	Token    string `json:"token"`
	ExpireAt string `json:"expireAt"`
}

// Create mints a share token for one of the caller's vehicles.
func (h *ShareHandler) Create(c echo.Context) error {
	p, err := currentUser(c)
	if err != nil {
		return err
	}
	vehicleID, err := pathID(c, "vehicleId")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if _, err := h.Vehicles.GetByID(ctx, vehicleID, p.UserID); err != nil {
		if errors.Is(err, repository.ErrVehicleNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "车辆不存在")
		}
		return internalError(c, "get vehicle", err)
	}

	t := model.CertificateShareToken{
		Token:     uuid.NewString(),
		VehicleID: vehicleID,
		ExpireAt:  time.Now().Add(shareTTL),
	}
	if err := h.Tokens.Create(ctx, &t); err != nil {
		return internalError(c, "create share token", err)
	}
	return okWith(c, "生成成功", shareResp{Token: t.Token, ExpireAt: t.ExpireAt.UTC().Format(time.RFC3339)})
}

type sharedViewResp struct {
	PlateNumber       string   `json:"plateNumber"`
	Brand             string   `json:"brand"`
	CertificateImages []string `json:"certificateImages"`
	ExpireAt          string   `json:"expireAt"`
}

// View resolves a share token to the vehicle's certificate images.  Unknown
// and expired tokens are indistinguishable on the wire.
func (h *ShareHandler) View(c echo.Context) error {
	token := c.Param("token")
	if token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "缺少分享令牌")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	t, err := h.Tokens.GetValid(ctx, token, time.Now())
	if err != nil {
		if errors.Is(err, repository.ErrShareTokenNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "分享链接不存在或已过期")
		}
		return internalError(c, "resolve share token", err)
	}
	v, err := h.Vehicles.GetAny(ctx, t.VehicleID)
	if err != nil {
		if errors.Is(err, repository.ErrVehicleNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "分享链接不存在或已过期")
		}
		return internalError(c, "load shared vehicle", err)
	}
	if err := h.Tokens.IncrementUse(ctx, t.ID); err != nil {
		c.Logger().Warnf("increment share use count %d: %v", t.ID, err)
	}

	return ok(c, sharedViewResp{
		PlateNumber:       v.PlateNumber,
		Brand:             v.Brand,
		CertificateImages: v.CertificateImages.OrEmpty(),
		ExpireAt:          t.ExpireAt.UTC().Format(time.RFC3339),
	})
}
