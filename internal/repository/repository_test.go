package repository_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/landport/freight-api/internal/database"
	"github.com/landport/freight-api/internal/model"
	"github.com/landport/freight-api/internal/repository"
)

// testDB opens the MySQL instance named by the TEST_DB_* variables and
// ensures the schema.  Tests are skipped when no database is configured,
// so the suite stays runnable on machines without MySQL.
func testDB(t *testing.T) *sql.DB {
	t.Helper()
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("skipping: test database not available (set TEST_DB_HOST)")
	}
	db, err := database.Open(
		getenvDefault("TEST_DB_USER", "root"),
		os.Getenv("TEST_DB_PASS"),
		host,
		getenvDefault("TEST_DB_PORT", "3306"),
		getenvDefault("TEST_DB_NAME", "landport_test"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	require.NoError(t, database.EnsureSchema(ctx, db))
	for _, table := range []string{"transport_records", "certificate_share_tokens", "fleet_members", "fleets", "vehicles", "goods", "cases", "users"} {
		_, err := db.ExecContext(ctx, "DELETE FROM "+table)
		require.NoError(t, err)
	}
	return db
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func TestUserFindOrCreateByOpenID(t *testing.T) {
	db := testDB(t)
	users := repository.NewUserRepo(db)
	ctx := context.Background()

	u, created, err := users.FindOrCreateByOpenID(ctx, "wx_abc123")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, u.ID)
	assert.Equal(t, model.RoleUser, u.Role)
	assert.Equal(t, repository.DefaultNickname, u.Nickname)

	// second login returns the same row
	again, created, err := users.FindOrCreateByOpenID(ctx, "wx_abc123")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, u.ID, again.ID)
}

func TestUserFindByIDMissingIsNilNil(t *testing.T) {
	db := testDB(t)
	users := repository.NewUserRepo(db)

	u, err := users.FindByID(context.Background(), 987654)
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestUpsertAdmin(t *testing.T) {
	db := testDB(t)
	users := repository.NewUserRepo(db)
	ctx := context.Background()

	u, err := users.UpsertAdmin(ctx, "boss", "hash-one")
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.Equal(t, model.RoleAdmin, u.Role)
	require.NotNil(t, u.Password)
	assert.Equal(t, "hash-one", *u.Password)

	// re-running resets the credential on the same row
	again, err := users.UpsertAdmin(ctx, "boss", "hash-two")
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)
	require.NotNil(t, again.Password)
	assert.Equal(t, "hash-two", *again.Password)
}

func TestGoodsLifecycle(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	users := repository.NewUserRepo(db)
	goods := repository.NewGoodsRepo(db)

	owner, _, err := users.FindOrCreateByOpenID(ctx, "wx_owner")
	require.NoError(t, err)
	other, _, err := users.FindOrCreateByOpenID(ctx, "wx_other")
	require.NoError(t, err)

	name := "钢材"
	g := model.Goods{Name: &name, Status: model.GoodsStatusPending, CreatedBy: owner.ID, Images: model.StringList{"/uploads/a.jpg"}}
	require.NoError(t, goods.Create(ctx, &g))
	require.NotZero(t, g.ID)

	// visible to the owner
	got, err := goods.GetByID(ctx, g.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "钢材", *got.Name)
	assert.Equal(t, model.StringList{"/uploads/a.jpg"}, got.Images)

	// invisible to anyone else
	_, err = goods.GetByID(ctx, g.ID, other.ID)
	assert.ErrorIs(t, err, repository.ErrGoodsNotFound)

	require.NoError(t, goods.UpdateStatus(ctx, g.ID, owner.ID, model.GoodsStatusDelivered))
	counts, err := goods.StatusCounts(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[model.GoodsStatusDelivered])

	items, total, err := goods.List(ctx, owner.ID, repository.GoodsFilter{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].Creator)
	assert.Equal(t, owner.ID, items[0].Creator.ID)

	// the unscoped list sees goods across users
	g2 := model.Goods{Status: model.GoodsStatusPending, CreatedBy: other.ID}
	require.NoError(t, goods.Create(ctx, &g2))
	_, allTotal, err := goods.ListAll(ctx, repository.GoodsFilter{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), allTotal)

	months, err := goods.MonthlyFreightTotals(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, months, 1)
	assert.Equal(t, int64(1), months[0].GoodsCount)

	require.NoError(t, goods.Delete(ctx, g.ID, owner.ID))
	assert.ErrorIs(t, goods.Delete(ctx, g.ID, owner.ID), repository.ErrGoodsNotFound)
}

func TestVehicleDeleteConflict(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	users := repository.NewUserRepo(db)
	vehicles := repository.NewVehicleRepo(db)
	records := repository.NewTransportRecordRepo(db)

	owner, _, err := users.FindOrCreateByOpenID(ctx, "wx_driver")
	require.NoError(t, err)

	v := model.Vehicle{UserID: owner.ID, PlateNumber: "京A12345", Brand: "解放"}
	require.NoError(t, vehicles.Create(ctx, &v))

	rec := model.TransportRecord{VehicleID: v.ID, GoodsName: "砂石", Date: time.Now(), Freight: 1000}
	require.NoError(t, records.Create(ctx, &rec))

	assert.ErrorIs(t, vehicles.Delete(ctx, v.ID, owner.ID), repository.ErrConflict)

	require.NoError(t, records.Delete(ctx, rec.ID, owner.ID))
	require.NoError(t, vehicles.Delete(ctx, v.ID, owner.ID))
}

func TestRecordStats(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	users := repository.NewUserRepo(db)
	vehicles := repository.NewVehicleRepo(db)
	records := repository.NewTransportRecordRepo(db)

	owner, _, err := users.FindOrCreateByOpenID(ctx, "wx_stats")
	require.NoError(t, err)
	v := model.Vehicle{UserID: owner.ID, PlateNumber: "京B00001"}
	require.NoError(t, vehicles.Create(ctx, &v))

	day := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		rec := model.TransportRecord{
			VehicleID: v.ID,
			GoodsName: fmt.Sprintf("货物%d", i),
			Date:      day.AddDate(0, 0, i),
			Freight:   1000,
			FuelCost:  200,
			MealCost:  50,
		}
		require.NoError(t, records.Create(ctx, &rec))
	}

	from := day.AddDate(0, 0, -1)
	to := day.AddDate(0, 0, 10)
	totals, err := records.Totals(ctx, owner.ID, from, to)
	require.NoError(t, err)
	assert.Equal(t, int64(3), totals.RecordCount)
	assert.InDelta(t, 3000, totals.Income, 0.001)
	assert.InDelta(t, 750, totals.Expense, 0.001)

	breakdown, err := records.Breakdown(ctx, owner.ID, from, to)
	require.NoError(t, err)
	assert.InDelta(t, 600, breakdown.Fuel, 0.001)
	assert.InDelta(t, 150, breakdown.Meal, 0.001)

	trend, err := records.DailyTrend(ctx, owner.ID, from, to)
	require.NoError(t, err)
	require.Len(t, trend, 3)
	assert.Equal(t, "2026-08-01", trend[0].Date)

	profits, err := vehicles.ProfitByVehicle(ctx, owner.ID, from, to)
	require.NoError(t, err)
	assert.InDelta(t, 2250, profits[v.ID].Profit(), 0.001)
}

func TestCaseCRUD(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	cases := repository.NewCaseRepo(db)

	cs := model.Case{
		ProjectName: "某钢厂整车运输项目",
		Date:        time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		Tags:        model.StringList{"整车", "钢材"},
		Images:      model.StringList{"/uploads/case1.jpg"},
	}
	require.NoError(t, cases.Create(ctx, &cs))

	items, total, err := cases.List(ctx, repository.CaseFilter{Keyword: "钢厂", Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)

	// tag filter hits the JSON array
	_, total, err = cases.List(ctx, repository.CaseFilter{Tag: "整车", Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	_, total, err = cases.List(ctx, repository.CaseFilter{Tag: "零担", Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)

	require.NoError(t, cases.Delete(ctx, cs.ID))
	_, err = cases.GetByID(ctx, cs.ID)
	assert.ErrorIs(t, err, repository.ErrCaseNotFound)
}
