package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/landport/freight-api/internal/model"
	"github.com/landport/freight-api/internal/queue"
	"github.com/landport/freight-api/internal/repository"
	"github.com/landport/freight-api/internal/service"
)

// GoodsHandler implements the mini-program waybill endpoints.  Every
// operation is scoped to the authenticated driver except ListAll, which
// re-checks the caller's stored role before dropping the scope.
type GoodsHandler struct {
	Goods *repository.GoodsRepo
	Users *repository.UserRepo
}

func NewGoodsHandler(goods *repository.GoodsRepo, users *repository.UserRepo) *GoodsHandler {
	return &GoodsHandler{Goods: goods, Users: users}
}

// goodsFilterFrom reads the shared list query parameters.
func goodsFilterFrom(c echo.Context) (repository.GoodsFilter, error) {
	page, pageSize := pageParams(c)
	f := repository.GoodsFilter{
		Keyword:  c.QueryParam("keyword"),
		Status:   c.QueryParam("status"),
		Receiver: c.QueryParam("receiverName"),
		Sender:   c.QueryParam("senderName"),
		Page:     page,
		PageSize: pageSize,
	}
	if f.Status != "" && !model.ValidGoodsStatus(f.Status) {
		return f, echo.NewHTTPError(http.StatusBadRequest, "无效的货物状态")
	}
	return f, nil
}

// List returns one page of the driver's waybills with optional keyword,
// status, receiver and sender filters.
func (h *GoodsHandler) List(c echo.Context) error {
	p, err := currentUser(c)
	if err != nil {
		return err
	}
	f, err := goodsFilterFrom(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	items, total, err := h.Goods.List(ctx, p.UserID, f)
	if err != nil {
		return internalError(c, "list goods", err)
	}
	for i := range items {
		items[i].Images = items[i].Images.OrEmpty()
	}
	if items == nil {
		items = []model.Goods{}
	}
	return ok(c, listPayload{List: items, Pagination: pageOf(f.Page, f.PageSize, total)})
}

// ListAll returns goods across every user.  The admin role is re-read from
// storage rather than trusted from the token's role claim.
func (h *GoodsHandler) ListAll(c echo.Context) error {
	p, err := currentUser(c)
	if err != nil {
		return err
	}
	f, err := goodsFilterFrom(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	u, err := h.Users.FindByID(ctx, p.UserID)
	if err != nil {
		return internalError(c, "resolve role", err)
	}
	if u == nil || !model.IsAdminRole(u.Role) {
		return echo.NewHTTPError(http.StatusForbidden, "无权查看所有货物")
	}

	items, total, err := h.Goods.ListAll(ctx, f)
	if err != nil {
		return internalError(c, "list all goods", err)
	}
	for i := range items {
		items[i].Images = items[i].Images.OrEmpty()
	}
	if items == nil {
		items = []model.Goods{}
	}
	return ok(c, listPayload{List: items, Pagination: pageOf(f.Page, f.PageSize, total)})
}

// Get returns one waybill.
func (h *GoodsHandler) Get(c echo.Context) error {
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

	g, err := h.Goods.GetByID(ctx, id, p.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrGoodsNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "货物不存在")
		}
		return internalError(c, "get goods", err)
	}
	g.Images = g.Images.OrEmpty()
	return ok(c, g)
}

type goodsReq struct {
	Name          *string  `json:"name"`
	WaybillNo     *string  `json:"waybillNo"`
	ReceiverName  *string  `json:"receiverName"`
	ReceiverPhone *string  `json:"receiverPhone"`
	SenderName    *string  `json:"senderName"`
	SenderPhone   *string  `json:"senderPhone"`
	Volume        *float64 `json:"volume"`
	Weight        *float64 `json:"weight"`
	Freight       *float64 `json:"freight"`
	Remark        *string  `json:"remark"`
	Images        []string `json:"images"`
}

// Create registers a new waybill in status pending.
func (h *GoodsHandler) Create(c echo.Context) error {
	p, err := currentUser(c)
	if err != nil {
		return err
	}
	var req goodsReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "请求体格式错误")
	}

	g := model.Goods{
		Name:          req.Name,
		WaybillNo:     req.WaybillNo,
		ReceiverName:  req.ReceiverName,
		ReceiverPhone: req.ReceiverPhone,
		SenderName:    req.SenderName,
		SenderPhone:   req.SenderPhone,
		Volume:        req.Volume,
		Weight:        req.Weight,
		Freight:       req.Freight,
		Status:        model.GoodsStatusPending,
		Remark:        req.Remark,
		Images:        req.Images,
		CreatedBy:     p.UserID,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Goods.Create(ctx, &g); err != nil {
		return internalError(c, "create goods", err)
	}
	g.Images = g.Images.OrEmpty()
	return okWith(c, "创建成功", g)
}

// Update applies the provided fields to an existing waybill; absent fields
// keep their stored values.
func (h *GoodsHandler) Update(c echo.Context) error {
	p, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req goodsReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "请求体格式错误")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	g, err := h.Goods.GetByID(ctx, id, p.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrGoodsNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "货物不存在")
		}
		return internalError(c, "get goods", err)
	}

	if req.Name != nil {
		g.Name = req.Name
	}
	if req.WaybillNo != nil {
		g.WaybillNo = req.WaybillNo
	}
	if req.ReceiverName != nil {
		g.ReceiverName = req.ReceiverName
	}
	if req.ReceiverPhone != nil {
		g.ReceiverPhone = req.ReceiverPhone
	}
	if req.SenderName != nil {
		g.SenderName = req.SenderName
	}
	if req.SenderPhone != nil {
		g.SenderPhone = req.SenderPhone
	}
	if req.Volume != nil {
		g.Volume = req.Volume
	}
	if req.Weight != nil {
		g.Weight = req.Weight
	}
	if req.Freight != nil {
		g.Freight = req.Freight
	}
	if req.Remark != nil {
		g.Remark = req.Remark
	}
	if req.Images != nil {
		g.Images = req.Images
	}

	if err := h.Goods.Update(ctx, g, p.UserID); err != nil {
		return internalError(c, "update goods", err)
	}
	g.Images = g.Images.OrEmpty()
	return okWith(c, "更新成功", g)
}

type statusReq struct {
	Status string `json:"status"`
}

// UpdateStatus moves a waybill to a new transport status and publishes the
// transition to the broker.  The publish is best effort: its failure is
// logged and never fails the request.
func (h *GoodsHandler) UpdateStatus(c echo.Context) error {
	p, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req statusReq
	// pending is the creation state only; transitions never go back to it
	if err := c.Bind(&req); err != nil || !model.ValidGoodsStatus(req.Status) || req.Status == model.GoodsStatusPending {
		return echo.NewHTTPError(http.StatusBadRequest, "无效的货物状态")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	g, err := h.Goods.GetByID(ctx, id, p.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrGoodsNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "货物不存在")
		}
		return internalError(c, "get goods", err)
	}
	if err := h.Goods.UpdateStatus(ctx, id, p.UserID, req.Status); err != nil {
		if errors.Is(err, repository.ErrGoodsNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "货物不存在")
		}
		return internalError(c, "update goods status", err)
	}

	ev := queue.GoodsStatusChangedEvent{
		GoodsID:    g.ID,
		FromStatus: g.Status,
		ToStatus:   req.Status,
		UserID:     p.UserID,
		ChangedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	if g.Name != nil {
		ev.GoodsName = *g.Name
	}
	if g.WaybillNo != nil {
		ev.WaybillNo = *g.WaybillNo
	}
	go func() { _ = service.PublishGoodsStatusChanged(context.Background(), ev) }()

	return okMessage(c, "状态更新成功")
}

// Delete removes a waybill.
func (h *GoodsHandler) Delete(c echo.Context) error {
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

	if err := h.Goods.Delete(ctx, id, p.UserID); err != nil {
		if errors.Is(err, repository.ErrGoodsNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "货物不存在")
		}
		return internalError(c, "delete goods", err)
	}
	return okMessage(c, "删除成功")
}

type goodsStatsResp struct {
	Total    int64            `json:"total"`
	ByStatus map[string]int64 `json:"byStatus"`
}

// Stats returns the driver's waybill count per status for the home screen.
// Statuses with no rows are reported as 0 so the frontend never null-checks.
func (h *GoodsHandler) Stats(c echo.Context) error {
	p, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	counts, err := h.Goods.StatusCounts(ctx, p.UserID)
	if err != nil {
		return internalError(c, "goods stats", err)
	}
	resp := goodsStatsResp{ByStatus: make(map[string]int64, len(model.GoodsStatuses))}
	for _, s := range model.GoodsStatuses {
		resp.ByStatus[s] = counts[s]
		resp.Total += counts[s]
	}
	return ok(c, resp)
}

type monthlyFreightView struct {
	Month        string `json:"month"`
	GoodsCount   int64  `json:"goodsCount"`
	TotalFreight string `json:"totalFreight"`
}

// Reconciliation returns the driver's freight totals per month, newest
// first, for settling accounts with shippers.
func (h *GoodsHandler) Reconciliation(c echo.Context) error {
	p, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	months, err := h.Goods.MonthlyFreightTotals(ctx, p.UserID)
	if err != nil {
		return internalError(c, "goods reconciliation", err)
	}
	list := make([]monthlyFreightView, 0, len(months))
	for _, m := range months {
		list = append(list, monthlyFreightView{
			Month:        m.Month,
			GoodsCount:   m.GoodsCount,
			TotalFreight: money(m.TotalFreight),
		})
	}
	return ok(c, echo.Map{"list": list})
}
