package dataaccess

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/database"
	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/entity"
	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/logging"
)

func TestMemoryStoreUpsert(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	table, err := store.Table("CustomerEntity")
	require.NoError(t, err)

	ok, err := table.InsertOrUpdate(ctx, entity.Record{"mobileNo": "9000000000", "name": "Asha"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = table.InsertOrUpdate(ctx, entity.Record{"mobileNo": "9000000000", "name": "Asha R"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = table.InsertOrUpdate(ctx, entity.Record{"mobileNo": "  ", "name": "nobody"})
	require.NoError(t, err)
	assert.False(t, ok, "blank primary key is rejected")

	assert.Equal(t, 1, store.Count("customer"))
	got, found := store.Get("customers", "9000000000")
	require.True(t, found)
	assert.Equal(t, "Asha R", got["name"])
	assert.Equal(t, float64(0), got["totalAmount"], "missing columns take zero values")
	assert.Equal(t, time.Time{}, got["addDate"])
}

func TestMemoryStoreInsertionOrderAndCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Seed("FirmEntity",
		entity.Record{"firmId": "f2", "firmName": "B"},
		entity.Record{"firmId": "f1", "firmName": "A"},
	))

	table, err := store.Table("firm")
	require.NoError(t, err)
	rows, err := table.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "f2", rows[0]["firmId"])
	assert.Equal(t, "f1", rows[1]["firmId"])

	rows[0]["firmName"] = "mutated"
	again, err := table.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "B", again[0]["firmName"])
}

func TestMemoryStoreUnknownTable(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Table("invoices")
	var unknown *UnknownTableError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "invoices", unknown.Name)
	assert.Equal(t, -1, store.Count("invoices"))
	assert.Error(t, store.Seed("invoices", entity.Record{}))
}

func TestMemoryStoreCanceledContext(t *testing.T) {
	store := NewMemoryStore()
	table, err := store.Table("item")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = table.GetAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCreateTableStatement(t *testing.T) {
	ddl := CreateTableStatement(entity.Firm)
	assert.Contains(t, ddl, "CREATE TABLE IF NOT EXISTS `firm`")
	assert.Contains(t, ddl, "`firmId` VARCHAR(191) NOT NULL")
	assert.Contains(t, ddl, "`firmName` TEXT NULL")
	assert.Contains(t, ddl, "PRIMARY KEY (`firmId`)")

	ddl = CreateTableStatement(entity.Item)
	assert.Contains(t, ddl, "`quantity` BIGINT NOT NULL DEFAULT 0")
	assert.Contains(t, ddl, "`gsWt` DOUBLE NOT NULL DEFAULT 0")
	assert.Contains(t, ddl, "`addDate` DATETIME NULL")
}

func newMockStore(t *testing.T) (*MySQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := logging.NewDiscardLogger()
	return NewMySQLStore(db, database.NewServiceWithLogger(logger), logger), mock
}

func TestMySQLStoreEnsureSchema(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	for _, def := range entity.ImportOrder() {
		mock.ExpectExec(CreateTableStatement(def)).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectCommit()

	require.NoError(t, store.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLTableGetAll(t *testing.T) {
	store, mock := newMockStore(t)
	added := time.Date(2024, 3, 4, 5, 6, 7, 0, time.Local)

	columns := entity.Customer.CurrentHeaders()
	rows := sqlmock.NewRows(columns).AddRow(
		"9000000000", "Asha", "Cuttack", added, nil,
		int64(2), 12345.5, nil, "u1", "s1", "",
	)
	mock.ExpectQuery(selectStatement(entity.Customer)).WillReturnRows(rows)

	table, err := store.Table("CustomerEntity")
	require.NoError(t, err)
	got, err := table.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)

	r := got[0]
	assert.Equal(t, "9000000000", r["mobileNo"])
	assert.Equal(t, added, r["addDate"])
	assert.Equal(t, time.Time{}, r["lastModifiedDate"])
	assert.Equal(t, int64(2), r["totalItemBought"])
	assert.Equal(t, 12345.5, r["totalAmount"])
	assert.Equal(t, "", r["notes"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLTableGetAllError(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(selectStatement(entity.Firm)).WillReturnError(errors.New("table missing"))

	table, err := store.Table("FirmEntity")
	require.NoError(t, err)
	_, err = table.GetAll(context.Background())
	assert.ErrorContains(t, err, "failed to read firm")
}

func TestMySQLTableInsertOrUpdate(t *testing.T) {
	store, mock := newMockStore(t)
	table, err := store.Table("FirmEntity")
	require.NoError(t, err)

	mock.ExpectExec(upsertStatement(entity.Firm)).
		WithArgs("f1", "Gold House", "9999", "GST1", "Main road", "u1", "s1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := table.InsertOrUpdate(context.Background(), entity.Record{
		"firmId": "f1", "firmName": "Gold House", "firmMobileNumber": "9999",
		"gstNumber": "GST1", "address": "Main road", "userId": "u1", "storeId": "s1",
	})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = table.InsertOrUpdate(context.Background(), entity.Record{"firmName": "no id"})
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLTableInsertConvertsValues(t *testing.T) {
	store, mock := newMockStore(t)
	table, err := store.Table("ExchangeItemEntity")
	require.NoError(t, err)

	orderDate := time.Date(2024, 1, 1, 10, 0, 0, 0, time.Local)
	mock.ExpectExec(upsertStatement(entity.ExchangeItem)).
		WithArgs("x1", "o1", orderDate, "9000000000", "Gold", "22K", 10.5, 9.6, 5600.0, true, 0.0, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := table.InsertOrUpdate(context.Background(), entity.Record{
		"exchangeItemId": "x1", "orderId": "o1", "orderDate": orderDate, "customerMobile": "9000000000",
		"metalType": "Gold", "purity": "22K", "grossWeight": 10.5, "fineWeight": 9.6, "price": 5600.0,
		"isExchangedByMetal": true, "addDate": time.Time{},
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStoreUnknownTable(t *testing.T) {
	store, _ := newMockStore(t)
	_, err := store.Table("ledger")
	assert.Error(t, err)
}
