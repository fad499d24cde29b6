package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/landport/freight-api/internal/config"
	"github.com/landport/freight-api/internal/middleware"
	"github.com/landport/freight-api/internal/model"
	"github.com/landport/freight-api/internal/repository"
)

// CaseHandler implements the agency website's case catalogue.  Reads are
// reachable by the website pseudo-user and by admins; writes are admin-only
// (both enforced upstream).  List responses sit behind the Redis cache, so
// every mutation invalidates the cache prefix.
type CaseHandler struct {
	Cases    *repository.CaseRepo
	Redis    *redis.Client
	CacheCfg config.CacheConfig
}

func NewCaseHandler(cases *repository.CaseRepo, rdb *redis.Client, cacheCfg config.CacheConfig) *CaseHandler {
	return &CaseHandler{Cases: cases, Redis: rdb, CacheCfg: cacheCfg}
}

// parseDateParam reads an optional YYYY-MM-DD query parameter.
func parseDateParam(c echo.Context, name string) (*time.Time, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "日期格式错误，应为 YYYY-MM-DD")
	}
	return &t, nil
}

// List returns one page of cases with optional keyword, tag and date-range
// filters.
func (h *CaseHandler) List(c echo.Context) error {
	page, pageSize := pageParams(c)
	from, err := parseDateParam(c, "startDate")
	if err != nil {
		return err
	}
	to, err := parseDateParam(c, "endDate")
	if err != nil {
		return err
	}
	f := repository.CaseFilter{
		Keyword:  c.QueryParam("keyword"),
		Tag:      c.QueryParam("tag"),
		From:     from,
		To:       to,
		Page:     page,
		PageSize: pageSize,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	items, total, err := h.Cases.List(ctx, f)
	if err != nil {
		return internalError(c, "list cases", err)
	}
	for i := range items {
		items[i].Tags = items[i].Tags.OrEmpty()
		items[i].Images = items[i].Images.OrEmpty()
	}
	if items == nil {
		items = []model.Case{}
	}
	return ok(c, listPayload{List: items, Pagination: pageOf(page, pageSize, total)})
}

// Get returns one case.
func (h *CaseHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	cs, err := h.Cases.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrCaseNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "案例不存在")
		}
		return internalError(c, "get case", err)
	}
	cs.Tags = cs.Tags.OrEmpty()
	cs.Images = cs.Images.OrEmpty()
	return ok(c, cs)
}

type caseReq struct {
	ProjectName string   `json:"projectName"`
	Date        string   `json:"date"` // YYYY-MM-DD
	Tags        []string `json:"tags"`
	Images      []string `json:"images"`
}

func (r caseReq) parse() (*model.Case, error) {
	if r.ProjectName == "" {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "请填写项目名称")
	}
	date, err := time.Parse("2006-01-02", r.Date)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "日期格式错误，应为 YYYY-MM-DD")
	}
	return &model.Case{ProjectName: r.ProjectName, Date: date, Tags: r.Tags, Images: r.Images}, nil
}

// invalidate drops the cached case pages after a mutation.
func (h *CaseHandler) invalidate(ctx context.Context) {
	middleware.InvalidateCache(ctx, h.Redis, h.CacheCfg)
}

// Create inserts a case.
func (h *CaseHandler) Create(c echo.Context) error {
	var req caseReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "请求体格式错误")
	}
	cs, err := req.parse()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Cases.Create(ctx, cs); err != nil {
		return internalError(c, "create case", err)
	}
	h.invalidate(ctx)
	cs.Tags = cs.Tags.OrEmpty()
	cs.Images = cs.Images.OrEmpty()
	return okWith(c, "创建成功", cs)
}

// Update rewrites a case.
func (h *CaseHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req caseReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "请求体格式错误")
	}
	cs, err := req.parse()
	if err != nil {
		return err
	}
	cs.ID = id

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if _, err := h.Cases.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrCaseNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "案例不存在")
		}
		return internalError(c, "get case", err)
	}
	if err := h.Cases.Update(ctx, cs); err != nil {
		return internalError(c, "update case", err)
	}
	h.invalidate(ctx)
	cs.Tags = cs.Tags.OrEmpty()
	cs.Images = cs.Images.OrEmpty()
	return okWith(c, "更新成功", cs)
}

// Delete removes a case.
func (h *CaseHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Cases.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrCaseNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "案例不存在")
		}
		return internalError(c, "delete case", err)
	}
	h.invalidate(ctx)
	return okMessage(c, "删除成功")
}
