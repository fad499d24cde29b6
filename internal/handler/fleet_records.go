package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/landport/freight-api/internal/model"
	"github.com/landport/freight-api/internal/repository"
)

// RecordHandler implements the fleet console's transport ledger.  Each
// record hangs off a vehicle; reachability through a vehicle the driver
// owns is the ownership rule for everything here.
type RecordHandler struct {
	Records  *repository.TransportRecordRepo
	Vehicles *repository.VehicleRepo
}

func NewRecordHandler(records *repository.TransportRecordRepo, vehicles *repository.VehicleRepo) *RecordHandler {
	return &RecordHandler{Records: records, Vehicles: vehicles}
}

// recordView is the wire form of a transport record: money as two-decimal
// strings plus derived totals, the way the console renders them.
type recordView struct {
	*model.TransportRecord
	Freight           string `json:"freight"`
	OtherIncome       string `json:"otherIncome"`
	FuelCost          string `json:"fuelCost"`
	RepairCost        string `json:"repairCost"`
	AccommodationCost string `json:"accommodationCost"`
	MealCost          string `json:"mealCost"`
	OtherExpense      string `json:"otherExpense"`
	TotalIncome       string `json:"totalIncome"`
	TotalExpense      string `json:"totalExpense"`
	Profit            string `json:"profit"`
	VehicleBrand      string `json:"vehicleBrand"`
	DateStr           string `json:"date"`
}

func viewOf(t *model.TransportRecord) recordView {
	t.Images = t.Images.OrEmpty()
	income := t.Freight + t.OtherIncome
	expense := t.FuelCost + t.RepairCost + t.AccommodationCost + t.MealCost + t.OtherExpense
	return recordView{
		TransportRecord:   t,
		Freight:           money(t.Freight),
		OtherIncome:       money(t.OtherIncome),
		FuelCost:          money(t.FuelCost),
		RepairCost:        money(t.RepairCost),
		AccommodationCost: money(t.AccommodationCost),
		MealCost:          money(t.MealCost),
		OtherExpense:      money(t.OtherExpense),
		TotalIncome:       money(income),
		TotalExpense:      money(expense),
		Profit:            money(income - expense),
		VehicleBrand:      t.VehicleBrand,
		DateStr:           t.Date.Format("2006-01-02"),
	}
}

// List returns one page of the driver's records with optional vehicle,
// date-range and reconciliation filters.
func (h *RecordHandler) List(c echo.Context) error {
	p, err := currentUser(c)
	if err != nil {
		return err
	}
	page, pageSize := pageParams(c)
	f := repository.RecordFilter{Page: page, PageSize: pageSize}

	if v := c.QueryParam("vehicleId"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "无效的车辆ID")
		}
		f.VehicleID = &id
	}
	if f.From, err = parseDateParam(c, "startDate"); err != nil {
		return err
	}
	if f.To, err = parseDateParam(c, "endDate"); err != nil {
		return err
	}
	if v := c.QueryParam("isReconciled"); v != "" {
		b := v == "true" || v == "1"
		f.IsReconciled = &b
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	items, total, err := h.Records.List(ctx, p.UserID, f)
	if err != nil {
		return internalError(c, "list transport records", err)
	}
	views := make([]recordView, 0, len(items))
	for i := range items {
		views = append(views, viewOf(&items[i]))
	}
	return ok(c, listPayload{List: views, Pagination: pageOf(page, pageSize, total)})
}

// Get returns one record.
func (h *RecordHandler) Get(c echo.Context) error {
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

	t, err := h.Records.GetByID(ctx, id, p.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "运输记录不存在")
		}
		return internalError(c, "get transport record", err)
	}
	return ok(c, viewOf(t))
}

type recordReq struct {
	VehicleID         uint64   `json:"vehicleId"`
	GoodsName         string   `json:"goodsName"`
	Date              string   `json:"date"` // YYYY-MM-DD
	Freight           float64  `json:"freight"`
	OtherIncome       float64  `json:"otherIncome"`
	FuelCost          float64  `json:"fuelCost"`
	RepairCost        float64  `json:"repairCost"`
	AccommodationCost float64  `json:"accommodationCost"`
	MealCost          float64  `json:"mealCost"`
	OtherExpense      float64  `json:"otherExpense"`
	Remark            *string  `json:"remark"`
	Images            []string `json:"images"`
}

func (r recordReq) parse() (*model.TransportRecord, error) {
	if r.VehicleID == 0 {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "请选择车辆")
	}
	if r.GoodsName == "" {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "请填写货物名称")
	}
	date, err := time.Parse("2006-01-02", r.Date)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "日期格式错误，应为 YYYY-MM-DD")
	}
	for _, v := range []float64{r.Freight, r.OtherIncome, r.FuelCost, r.RepairCost, r.AccommodationCost, r.MealCost, r.OtherExpense} {
		if v < 0 {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "金额不能为负数")
		}
	}
	return &model.TransportRecord{
		VehicleID:         r.VehicleID,
		GoodsName:         r.GoodsName,
		Date:              date,
		Freight:           r.Freight,
		OtherIncome:       r.OtherIncome,
		FuelCost:          r.FuelCost,
		RepairCost:        r.RepairCost,
		AccommodationCost: r.AccommodationCost,
		MealCost:          r.MealCost,
		OtherExpense:      r.OtherExpense,
		Remark:            r.Remark,
		Images:            r.Images,
	}, nil
}

// ensureVehicle verifies that the target vehicle belongs to the caller.
func (h *RecordHandler) ensureVehicle(ctx context.Context, vehicleID, userID uint64) error {
	if _, err := h.Vehicles.GetByID(ctx, vehicleID, userID); err != nil {
		if errors.Is(err, repository.ErrVehicleNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "车辆不存在")
		}
		return err
	}
	return nil
}

// Create appends a record to the ledger.
func (h *RecordHandler) Create(c echo.Context) error {
	p, err := currentUser(c)
	if err != nil {
		return err
	}
	var req recordReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "请求体格式错误")
	}
	t, err := req.parse()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.ensureVehicle(ctx, t.VehicleID, p.UserID); err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return err
		}
		return internalError(c, "check vehicle", err)
	}
	if err := h.Records.Create(ctx, t); err != nil {
		return internalError(c, "create transport record", err)
	}
	return okWith(c, "创建成功", viewOf(t))
}

// Update rewrites a record.
func (h *RecordHandler) Update(c echo.Context) error {
	p, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req recordReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "请求体格式错误")
	}
	t, err := req.parse()
	if err != nil {
		return err
	}
	t.ID = id

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if _, err := h.Records.GetByID(ctx, id, p.UserID); err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "运输记录不存在")
		}
		return internalError(c, "get transport record", err)
	}
	if err := h.ensureVehicle(ctx, t.VehicleID, p.UserID); err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return err
		}
		return internalError(c, "check vehicle", err)
	}
	if err := h.Records.Update(ctx, t, p.UserID); err != nil {
		return internalError(c, "update transport record", err)
	}
	return okWith(c, "更新成功", viewOf(t))
}

// Delete removes a record.
func (h *RecordHandler) Delete(c echo.Context) error {
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

	if err := h.Records.Delete(ctx, id, p.UserID); err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "运输记录不存在")
		}
		return internalError(c, "delete transport record", err)
	}
	return okMessage(c, "删除成功")
}

type reconcileReq struct {
	IDs          []uint64 `json:"ids"`
	IsReconciled bool     `json:"isReconciled"`
}

// Reconcile flips the reconciliation flag on a batch of records.  IDs not
// reachable by the caller are silently skipped; the response reports how
// many rows actually changed.
func (h *RecordHandler) Reconcile(c echo.Context) error {
	p, err := currentUser(c)
	if err != nil {
		return err
	}
	var req reconcileReq
	if err := c.Bind(&req); err != nil || len(req.IDs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "请选择要对账的记录")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	n, err := h.Records.SetReconciled(ctx, p.UserID, req.IDs, req.IsReconciled)
	if err != nil {
		return internalError(c, "reconcile records", err)
	}
	return okWith(c, "更新成功", echo.Map{"updated": n})
}
