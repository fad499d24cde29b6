package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext(t *testing.T, method, target string) echo.Context {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec)
}

func TestPageParams(t *testing.T) {
	c := newContext(t, http.MethodGet, "/?page=3&pageSize=25")
	page, size := pageParams(c)
	assert.Equal(t, 3, page)
	assert.Equal(t, 25, size)

	c = newContext(t, http.MethodGet, "/")
	page, size = pageParams(c)
	assert.Equal(t, 1, page)
	assert.Equal(t, 10, size)

	c = newContext(t, http.MethodGet, "/?page=-1&pageSize=100000")
	page, size = pageParams(c)
	assert.Equal(t, 1, page)
	assert.Equal(t, 100, size)
}

func TestPageOf(t *testing.T) {
	p := pageOf(2, 10, 25)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, int64(25), p.Total)

	assert.Equal(t, 0, pageOf(1, 10, 0).TotalPages)
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "1234.50", money(1234.5))
	assert.Equal(t, "0.00", money(0))
	assert.Equal(t, "-12.35", money(-12.345))
}

func TestResolvePeriod(t *testing.T) {
	now := time.Now()

	from, to, err := resolvePeriod(newContext(t, http.MethodGet, "/"))
	require.NoError(t, err)
	assert.WithinDuration(t, now, to, time.Minute)
	assert.WithinDuration(t, now.AddDate(0, 0, -30), from, time.Minute)

	from, _, err = resolvePeriod(newContext(t, http.MethodGet, "/?period=thisMonth"))
	require.NoError(t, err)
	assert.Equal(t, 1, from.Day())
	assert.Equal(t, now.Month(), from.Month())

	from, to, err = resolvePeriod(newContext(t, http.MethodGet, "/?period=lastYear"))
	require.NoError(t, err)
	assert.Equal(t, now.Year()-1, from.Year())
	assert.Equal(t, time.January, from.Month())
	assert.Equal(t, time.December, to.Month())

	from, to, err = resolvePeriod(newContext(t, http.MethodGet, "/?period=custom&startDate=2026-01-01&endDate=2026-02-01"))
	require.NoError(t, err)
	assert.Equal(t, "2026-01-01", from.Format("2006-01-02"))
	assert.Equal(t, "2026-02-01", to.Format("2006-01-02"))

	_, _, err = resolvePeriod(newContext(t, http.MethodGet, "/?period=custom"))
	assert.Error(t, err)

	_, _, err = resolvePeriod(newContext(t, http.MethodGet, "/?period=custom&startDate=2026-02-01&endDate=2026-01-01"))
	assert.Error(t, err)

	_, _, err = resolvePeriod(newContext(t, http.MethodGet, "/?period=bogus"))
	assert.Error(t, err)
}
