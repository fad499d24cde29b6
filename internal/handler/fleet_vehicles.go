package handler

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/landport/freight-api/internal/model"
	"github.com/landport/freight-api/internal/repository"
)

// VehicleHandler implements the fleet console's truck management.  The list
// view decorates each vehicle with its profit over a date window (the last
// 30 days by default) and orders by profit so the best earner tops the
// screen.
type VehicleHandler struct {
	Vehicles *repository.VehicleRepo
}

func NewVehicleHandler(vehicles *repository.VehicleRepo) *VehicleHandler {
	return &VehicleHandler{Vehicles: vehicles}
}

// vehicleWithStats is a vehicle plus its window aggregates.  Money values
// are formatted as strings with two decimals, matching the frontend's
// display format.
type vehicleWithStats struct {
	model.Vehicle
	Income  string `json:"income"`
	Expense string `json:"expense"`
	Profit  string `json:"profit"`
}

// statsWindow resolves the optional startDate/endDate query parameters,
// defaulting to the trailing 30 days.
func statsWindow(c echo.Context) (from, to time.Time, err error) {
	now := time.Now()
	to = now
	from = now.AddDate(0, 0, -30)
	if p, e := parseDateParam(c, "startDate"); e != nil {
		return from, to, e
	} else if p != nil {
		from = *p
	}
	if p, e := parseDateParam(c, "endDate"); e != nil {
		return from, to, e
	} else if p != nil {
		to = *p
	}
	if to.Before(from) {
		return from, to, echo.NewHTTPError(http.StatusBadRequest, "结束日期不能早于开始日期")
	}
	return from, to, nil
}

// List returns the driver's vehicles with window profit, most profitable
// first.  A driver owns a handful of trucks at most, so the sort and the
// paging happen in memory after one aggregate query.
func (h *VehicleHandler) List(c echo.Context) error {
	p, err := currentUser(c)
	if err != nil {
		return err
	}
	from, to, err := statsWindow(c)
	if err != nil {
		return err
	}
	page, pageSize := pageParams(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	vehicles, err := h.Vehicles.ListByOwner(ctx, p.UserID)
	if err != nil {
		return internalError(c, "list vehicles", err)
	}
	profits, err := h.Vehicles.ProfitByVehicle(ctx, p.UserID, from, to)
	if err != nil {
		return internalError(c, "vehicle profit stats", err)
	}

	decorated := make([]vehicleWithStats, 0, len(vehicles))
	for _, v := range vehicles {
		v.CertificateImages = v.CertificateImages.OrEmpty()
		v.OtherImages = v.OtherImages.OrEmpty()
		agg := profits[v.ID]
		decorated = append(decorated, vehicleWithStats{
			Vehicle: v,
			Income:  money(agg.Income),
			Expense: money(agg.Expense),
			Profit:  money(agg.Profit()),
		})
	}
	sort.SliceStable(decorated, func(i, j int) bool {
		return profits[decorated[i].ID].Profit() > profits[decorated[j].ID].Profit()
	})

	total := int64(len(decorated))
	start := (page - 1) * pageSize
	if start > len(decorated) {
		start = len(decorated)
	}
	end := start + pageSize
	if end > len(decorated) {
		end = len(decorated)
	}
	return ok(c, listPayload{List: decorated[start:end], Pagination: pageOf(page, pageSize, total)})
}

// Get returns one vehicle.
func (h *VehicleHandler) Get(c echo.Context) error {
	p, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	v, err := h.Vehicles.GetByID(ctx, id, p.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrVehicleNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "车辆不存在")
		}
		return internalError(c, "get vehicle", err)
	}
	v.CertificateImages = v.CertificateImages.OrEmpty()
	v.OtherImages = v.OtherImages.OrEmpty()
	return ok(c, v)
}

type vehicleReq struct {
	PlateNumber       string   `json:"plateNumber"`
	Brand             string   `json:"brand"`
	Horsepower        string   `json:"horsepower"`
	LoadCapacity      string   `json:"loadCapacity"`
	AxleCount         int      `json:"axleCount"`
	TireCount         int      `json:"tireCount"`
	TrailerLength     string   `json:"trailerLength"`
	CertificateImages []string `json:"certificateImages"`
	OtherImages       []string `json:"otherImages"`
}

// Create registers a truck.
func (h *VehicleHandler) Create(c echo.Context) error {
	p, err := currentUser(c)
	if err != nil {
		return err
	}
	var req vehicleReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "请求体格式错误")
	}
	if req.PlateNumber == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "请填写车牌号")
	}

	v := model.Vehicle{
		UserID:            p.UserID,
		PlateNumber:       req.PlateNumber,
		Brand:             req.Brand,
		Horsepower:        req.Horsepower,
		LoadCapacity:      req.LoadCapacity,
		AxleCount:         req.AxleCount,
		TireCount:         req.TireCount,
		TrailerLength:     req.TrailerLength,
		CertificateImages: req.CertificateImages,
		OtherImages:       req.OtherImages,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Vehicles.Create(ctx, &v); err != nil {
		return internalError(c, "create vehicle", err)
	}
	v.CertificateImages = v.CertificateImages.OrEmpty()
	v.OtherImages = v.OtherImages.OrEmpty()
	return okWith(c, "创建成功", v)
}

// Update rewrites a truck's descriptive fields.
func (h *VehicleHandler) Update(c echo.Context) error {
	p, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req vehicleReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "请求体格式错误")
	}
	if req.PlateNumber == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "请填写车牌号")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if _, err := h.Vehicles.GetByID(ctx, id, p.UserID); err != nil {
		if errors.Is(err, repository.ErrVehicleNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "车辆不存在")
		}
		return internalError(c, "get vehicle", err)
	}

	v := model.Vehicle{
		ID:                id,
		UserID:            p.UserID,
		PlateNumber:       req.PlateNumber,
		Brand:             req.Brand,
		Horsepower:        req.Horsepower,
		LoadCapacity:      req.LoadCapacity,
		AxleCount:         req.AxleCount,
		TireCount:         req.TireCount,
		TrailerLength:     req.TrailerLength,
		CertificateImages: req.CertificateImages,
		OtherImages:       req.OtherImages,
	}
	if err := h.Vehicles.Update(ctx, &v, p.UserID); err != nil {
		return internalError(c, "update vehicle", err)
	}
	v.CertificateImages = v.CertificateImages.OrEmpty()
	v.OtherImages = v.OtherImages.OrEmpty()
	return okWith(c, "更新成功", v)
}

// Delete removes a truck with no transport records.
func (h *VehicleHandler) Delete(c echo.Context) error {
	p, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Vehicles.Delete(ctx, id, p.UserID); err != nil {
		switch {
		case errors.Is(err, repository.ErrVehicleNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "车辆不存在")
		case errors.Is(err, repository.ErrConflict):
			return echo.NewHTTPError(http.StatusConflict, "车辆存在运输记录，无法删除")
		}
		return internalError(c, "delete vehicle", err)
	}
	return okMessage(c, "删除成功")
}
