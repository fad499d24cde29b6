package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/landport/freight-api/internal/repository"
)

// StatsHandler implements the fleet console's income/expense analytics.
type StatsHandler struct {
	Records *repository.TransportRecordRepo
}

func NewStatsHandler(records *repository.TransportRecordRepo) *StatsHandler {
	return &StatsHandler{Records: records}
}

// resolvePeriod turns the ?period= preset (or an explicit custom range)
// into an inclusive date window.
//
//	last30days (default) | thisMonth | thisYear | lastYear | custom
func resolvePeriod(c echo.Context) (from, to time.Time, err error) {
	now := time.Now()
	switch c.QueryParam("period") {
	case "", "last30days":
		return now.AddDate(0, 0, -30), now, nil
	case "thisMonth":
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), now, nil
	case "thisYear":
		return time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location()), now, nil
	case "lastYear":
		from = time.Date(now.Year()-1, 1, 1, 0, 0, 0, 0, now.Location())
		to = time.Date(now.Year()-1, 12, 31, 0, 0, 0, 0, now.Location())
		return from, to, nil
	case "custom":
		f, err := parseDateParam(c, "startDate")
		if err != nil {
			return from, to, err
		}
		t, err := parseDateParam(c, "endDate")
		if err != nil {
			return from, to, err
		}
		if f == nil || t == nil {
			return from, to, echo.NewHTTPError(http.StatusBadRequest, "自定义周期需要提供起止日期")
		}
		if t.Before(*f) {
			return from, to, echo.NewHTTPError(http.StatusBadRequest, "结束日期不能早于开始日期")
		}
		return *f, *t, nil
	default:
		return from, to, echo.NewHTTPError(http.StatusBadRequest, "无效的统计周期")
	}
}

type overviewResp struct {
	TotalIncome  string `json:"totalIncome"`
	TotalExpense string `json:"totalExpense"`
	Profit       string `json:"profit"`
	RecordCount  int64  `json:"recordCount"`
	StartDate    string `json:"startDate"`
	EndDate      string `json:"endDate"`
}

// Overview returns window totals for the console dashboard.
func (h *StatsHandler) Overview(c echo.Context) error {
	p, err := currentUser(c)
	if err != nil {
		return err
	}
	from, to, err := resolvePeriod(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	totals, err := h.Records.Totals(ctx, p.UserID, from, to)
	if err != nil {
		return internalError(c, "stats overview", err)
	}
	return ok(c, overviewResp{
		TotalIncome:  money(totals.Income),
		TotalExpense: money(totals.Expense),
		Profit:       money(totals.Income - totals.Expense),
		RecordCount:  totals.RecordCount,
		StartDate:    from.Format("2006-01-02"),
		EndDate:      to.Format("2006-01-02"),
	})
}

type breakdownEntry struct {
	Category string `json:"category"`
	Amount   string `json:"amount"`
}

type trendPoint struct {
	Date    string `json:"date"`
	Income  string `json:"income"`
	Expense string `json:"expense"`
}

type reconciliationResp struct {
	TotalIncome      string           `json:"totalIncome"`
	TotalExpense     string           `json:"totalExpense"`
	Profit           string           `json:"profit"`
	RecordCount      int64            `json:"recordCount"`
	ExpenseBreakdown []breakdownEntry `json:"expenseBreakdown"`
	DailyTrend       []trendPoint     `json:"dailyTrend"`
	StartDate        string           `json:"startDate"`
	EndDate          string           `json:"endDate"`
}

// Reconciliation returns the window totals plus the expense split by
// category and the per-day trend, which the console renders as charts.
func (h *StatsHandler) Reconciliation(c echo.Context) error {
	p, err := currentUser(c)
	if err != nil {
		return err
	}
	from, to, err := resolvePeriod(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	totals, err := h.Records.Totals(ctx, p.UserID, from, to)
	if err != nil {
		return internalError(c, "reconciliation totals", err)
	}
	breakdown, err := h.Records.Breakdown(ctx, p.UserID, from, to)
	if err != nil {
		return internalError(c, "reconciliation breakdown", err)
	}
	daily, err := h.Records.DailyTrend(ctx, p.UserID, from, to)
	if err != nil {
		return internalError(c, "reconciliation trend", err)
	}

	trend := make([]trendPoint, 0, len(daily))
	for _, d := range daily {
		trend = append(trend, trendPoint{Date: d.Date, Income: money(d.Income), Expense: money(d.Expense)})
	}
	return ok(c, reconciliationResp{
		TotalIncome:  money(totals.Income),
		TotalExpense: money(totals.Expense),
		Profit:       money(totals.Income - totals.Expense),
		RecordCount:  totals.RecordCount,
		ExpenseBreakdown: []breakdownEntry{
			{Category: "fuel", Amount: money(breakdown.Fuel)},
			{Category: "repair", Amount: money(breakdown.Repair)},
			{Category: "accommodation", Amount: money(breakdown.Accommodation)},
			{Category: "meal", Amount: money(breakdown.Meal)},
			{Category: "other", Amount: money(breakdown.Other)},
		},
		DailyTrend: trend,
		StartDate:  from.Format("2006-01-02"),
		EndDate:    to.Format("2006-01-02"),
	})
}
