package persistence_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"cardshop/internal/domain"
	"cardshop/internal/domain/entity"
	"cardshop/internal/infrastructure/persistence"
	"cardshop/pkg/dbtest"
	"cardshop/pkg/errcodes"
)

// Тесты аллокатора гоняются на настоящем Postgres: условные UPDATE и
// SKIP LOCKED эмулировать нечем.
func testDB(t *testing.T) *sqlx.DB {
	t.Helper()

	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN is not set")
	}

	db, err := sqlx.Connect("pgx", dsn)
	require.NoError(t, err)

	require.NoError(t, dbtest.MigrateFromFile(db, "../../../migrations/init.sql"))

	t.Cleanup(func() {
		_, _ = db.Exec(`TRUNCATE orders, keys, variants CASCADE`)
		_ = db.Close()
	})

	return db
}

func seedVariant(t *testing.T, db *sqlx.DB, id int64) {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO variants (id, product_id, name, price, custom_markup, updated_at)
		VALUES ($1, 1, 'test variant', 10.00, 2.00, now())`, id)
	require.NoError(t, err)
}

func seedKeys(t *testing.T, db *sqlx.DB, variantID int64, count int) []int64 {
	t.Helper()

	batch := make([]*entity.Key, 0, count)
	for i := 0; i < count; i++ {
		batch = append(batch, &entity.Key{
			VariantID: variantID,
			Content:   fmt.Sprintf("KEY-%d-%d", variantID, i),
		})
	}
	require.NoError(t, persistence.NewKeyRepository(db).CreateBatch(context.Background(), batch))

	var ids []int64
	require.NoError(t, db.Select(&ids,
		`SELECT id FROM keys WHERE variant_id = $1 ORDER BY id ASC`, variantID))
	require.Len(t, ids, count)

	return ids
}

func TestClaimRandomAllOrNothing(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	db := testDB(t)
	repo := persistence.NewKeyRepository(db)

	seedVariant(t, db, 101)
	seedKeys(t, db, 101, 3)

	// Хватает — все три уходят в sold
	keys, err := repo.ClaimRandom(ctx, 101, "ord-a", 2)
	rq.NoError(err)
	rq.Len(keys, 2)

	// Осталась одна, просим две: ни одна не должна быть занята
	_, err = repo.ClaimRandom(ctx, 101, "ord-b", 2)
	rq.True(domain.CodeIs(err, errcodes.InsufficientStock))

	available, err := repo.CountAvailable(ctx, 101)
	rq.NoError(err)
	rq.Equal(1, available)
}

func TestClaimRandomConcurrentSingleWinner(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	db := testDB(t)
	repo := persistence.NewKeyRepository(db)

	seedVariant(t, db, 102)
	seedKeys(t, db, 102, 3)

	var wg sync.WaitGroup

	errs := make([]error, 2)
	orderIDs := []string{"ord-x", "ord-y"}

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.ClaimRandom(ctx, 102, orderIDs[i], 2)
		}(i)
	}
	wg.Wait()

	// Ровно один из двух заказов получает свои два ключа
	var winners, losers int
	for _, err := range errs {
		switch {
		case err == nil:
			winners++
		case domain.CodeIs(err, errcodes.InsufficientStock):
			losers++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	rq.Equal(1, winners)
	rq.Equal(1, losers)

	var sold int
	rq.NoError(db.Get(&sold, `SELECT COUNT(*) FROM keys WHERE variant_id = 102 AND status = 'sold'`))
	rq.Equal(2, sold)
}

func TestReserveSpecificConcurrentSingleWinner(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	db := testDB(t)
	repo := persistence.NewKeyRepository(db)

	seedVariant(t, db, 103)
	keyIDs := seedKeys(t, db, 103, 1)

	var wg sync.WaitGroup

	errs := make([]error, 2)

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.ReserveSpecific(ctx, 103, keyIDs[0], fmt.Sprintf("ord-%d", i))
		}(i)
	}
	wg.Wait()

	var winners, losers int
	for _, err := range errs {
		switch {
		case err == nil:
			winners++
		case domain.CodeIs(err, errcodes.KeyUnavailable):
			losers++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	rq.Equal(1, winners)
	rq.Equal(1, losers)
}

func TestReserveAndRelease(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	db := testDB(t)
	repo := persistence.NewKeyRepository(db)

	seedVariant(t, db, 104)
	keyIDs := seedKeys(t, db, 104, 1)

	key, err := repo.ReserveSpecific(ctx, 104, keyIDs[0], "ord-r")
	rq.NoError(err)
	rq.Equal(entity.KeyStatusReserved, key.Status)
	rq.NotNil(key.OrderID)
	rq.Equal("ord-r", *key.OrderID)

	// Чужой вариант — KeyNotFound, а не утечка чужого ключа
	_, err = repo.ReserveSpecific(ctx, 999, keyIDs[0], "ord-r")
	rq.True(domain.CodeIs(err, errcodes.KeyNotFound))

	rq.NoError(repo.Release(ctx, keyIDs[0]))

	released, err := repo.GetByID(ctx, keyIDs[0])
	rq.NoError(err)
	rq.Equal(entity.KeyStatusAvailable, released.Status)
	rq.Nil(released.OrderID)

	// Повторный release уже нечего освобождать
	rq.True(domain.CodeIs(repo.Release(ctx, keyIDs[0]), errcodes.KeyNotFound))
}

func TestPromoteReserved(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	db := testDB(t)
	repo := persistence.NewKeyRepository(db)

	seedVariant(t, db, 107)
	keyIDs := seedKeys(t, db, 107, 2)

	_, err := repo.ReserveSpecific(ctx, 107, keyIDs[0], "ord-p")
	rq.NoError(err)

	promoted, err := repo.PromoteReserved(ctx, "ord-p")
	rq.NoError(err)
	rq.Equal(1, promoted)

	sold, err := repo.GetByID(ctx, keyIDs[0])
	rq.NoError(err)
	rq.Equal(entity.KeyStatusSold, sold.Status)

	// Из sold выхода нет: повторный promote ничего не трогает
	promoted, err = repo.PromoteReserved(ctx, "ord-p")
	rq.NoError(err)
	rq.Zero(promoted)
}

func TestOrderSettlementFlows(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	db := testDB(t)
	keyRepo := persistence.NewKeyRepository(db)
	orderRepo := persistence.NewOrderRepository(db)

	seedVariant(t, db, 105)
	keyIDs := seedKeys(t, db, 105, 2)

	order := &entity.Order{
		ID:            "ord-sel",
		VariantID:     105,
		Quantity:      1,
		UnitPrice:     decimal.RequireFromString("12.00"),
		TotalAmount:   decimal.RequireFromString("12.00"),
		Status:        entity.OrderStatusPendingPayment,
		PurchaseMode:  entity.PurchaseModeSelection,
		Contact:       "buyer@example.com",
		PaymentMethod: "alipay",
	}

	key, err := orderRepo.CreateSelection(ctx, order, keyIDs[0])
	rq.NoError(err)
	rq.Equal(entity.KeyStatusReserved, key.Status)

	rq.NoError(orderRepo.SettleSelection(ctx, "ord-sel", time.Now()))

	settled, err := orderRepo.GetByID(ctx, "ord-sel")
	rq.NoError(err)
	rq.Equal(entity.OrderStatusPaid, settled.Status)
	rq.NotNil(settled.PaidAt)

	soldKey, err := keyRepo.GetByID(ctx, keyIDs[0])
	rq.NoError(err)
	rq.Equal(entity.KeyStatusSold, soldKey.Status)

	// Повторное подтверждение — InvalidOrderState, ключи не трогаются
	err = orderRepo.SettleSelection(ctx, "ord-sel", time.Now())
	rq.Error(err)
}

func TestDeleteWithReleaseFreesReservedKey(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	db := testDB(t)
	keyRepo := persistence.NewKeyRepository(db)
	orderRepo := persistence.NewOrderRepository(db)

	seedVariant(t, db, 106)
	keyIDs := seedKeys(t, db, 106, 1)

	order := &entity.Order{
		ID:            "ord-del",
		VariantID:     106,
		Quantity:      1,
		UnitPrice:     decimal.RequireFromString("12.00"),
		TotalAmount:   decimal.RequireFromString("12.00"),
		Status:        entity.OrderStatusPendingPayment,
		PurchaseMode:  entity.PurchaseModeSelection,
		Contact:       "buyer@example.com",
		PaymentMethod: "alipay",
	}

	_, err := orderRepo.CreateSelection(ctx, order, keyIDs[0])
	rq.NoError(err)

	// Административное удаление возвращает резерв в пул
	rq.NoError(orderRepo.DeleteWithRelease(ctx, "ord-del"))

	freed, err := keyRepo.GetByID(ctx, keyIDs[0])
	rq.NoError(err)
	rq.Equal(entity.KeyStatusAvailable, freed.Status)
	rq.Nil(freed.OrderID)

	_, err = orderRepo.GetByID(ctx, "ord-del")
	rq.True(domain.CodeIs(err, errcodes.OrderNotFound))
}
