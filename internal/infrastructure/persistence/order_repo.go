package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"cardshop/internal/domain"
	"cardshop/internal/domain/entity"
	"cardshop/pkg/errcodes"
)

type OrderRepository struct {
	db *sqlx.DB
}

func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.WrapError(err, errcodes.InternalServerError, "failed to begin transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return domain.WrapError(err, errcodes.InternalServerError, "failed to commit")
	}
	return nil
}

const insertOrderQuery = `
	INSERT INTO orders (
		id, variant_id, quantity, unit_price, total_amount, status,
		purchase_mode, contact, payment_method, query_secret, created_at, paid_at
	) VALUES (
		:id, :variant_id, :quantity, :unit_price, :total_amount, :status,
		:purchase_mode, :contact, :payment_method, :query_secret, :created_at, :paid_at
	)`

// CreateRandom сохраняет заказ на произвольные ключи. Ключи при создании
// не привязываются — только при подтверждении оплаты.
func (r *OrderRepository) CreateRandom(ctx context.Context, order *entity.Order) error {
	schema := fromOrder(order)
	if schema.CreatedAt.IsZero() {
		schema.CreatedAt = time.Now()
		order.CreatedAt = schema.CreatedAt
	}

	if _, err := r.db.NamedExecContext(ctx, insertOrderQuery, schema); err != nil {
		return domain.WrapError(err, errcodes.InternalServerError, "failed to insert order")
	}

	return nil
}

// CreateSelection сохраняет заказ на конкретный ключ вместе с его
// резервированием — одна транзакция, всё или ничего.
func (r *OrderRepository) CreateSelection(ctx context.Context, order *entity.Order, keyID int64) (*entity.Key, error) {
	var key *entity.Key

	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		schema := fromOrder(order)
		if schema.CreatedAt.IsZero() {
			schema.CreatedAt = time.Now()
			order.CreatedAt = schema.CreatedAt
		}

		if _, err := tx.NamedExecContext(ctx, insertOrderQuery, schema); err != nil {
			return domain.WrapError(err, errcodes.InternalServerError, "failed to insert order")
		}

		var txErr error
		key, txErr = reserveSpecificTx(ctx, tx, order.VariantID, keyID, order.ID)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	return key, nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*entity.Order, error) {
	query := `
		SELECT id, variant_id, quantity, unit_price, total_amount, status,
		       purchase_mode, contact, payment_method, query_secret, created_at, paid_at
		FROM orders
		WHERE id = $1`

	var schema orderSchema
	if err := r.db.GetContext(ctx, &schema, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewError(errcodes.OrderNotFound, "order not found")
		}
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to get order")
	}

	return schema.toDomain(), nil
}

// SettleSelection завершает заказ с выбранным ключом: зарезервированный ключ
// становится sold, заказ — оплаченным, одной транзакцией. Если резерва уже
// нет (админ освободил ключ), возвращается InsufficientStock.
func (r *OrderRepository) SettleSelection(ctx context.Context, orderID string, paidAt time.Time) error {
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		promoted, err := promoteReservedTx(ctx, tx, orderID)
		if err != nil {
			return err
		}

		if promoted == 0 {
			return domain.NewError(errcodes.InsufficientStock, "reserved key is gone")
		}

		return markPaidTx(ctx, tx, orderID, paidAt)
	})
}

// SettleRandom завершает заказ на произвольные ключи: авторитетный захват
// пула и перевод заказа в paid в одной транзакции.
func (r *OrderRepository) SettleRandom(ctx context.Context, orderID string, variantID int64, count int, paidAt time.Time) ([]entity.Key, error) {
	var keys []entity.Key

	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		var txErr error
		keys, txErr = claimRandomTx(ctx, tx, variantID, orderID, count)
		if txErr != nil {
			return txErr
		}

		return markPaidTx(ctx, tx, orderID, paidAt)
	})
	if err != nil {
		return nil, err
	}

	return keys, nil
}

// MarkRefunded переводит всё ещё ожидающий оплаты заказ в refunded.
// Условие по статусу делает операцию идемпотентной при дублях срабатывания.
func (r *OrderRepository) MarkRefunded(ctx context.Context, orderID string) error {
	query := `
		UPDATE orders
		SET status = $1
		WHERE id = $2 AND status = $3`

	res, err := r.db.ExecContext(ctx, query,
		int(entity.OrderStatusRefunded), orderID, int(entity.OrderStatusPendingPayment))
	if err != nil {
		return domain.WrapError(err, errcodes.InternalServerError, "failed to refund order")
	}

	if rows, _ := res.RowsAffected(); rows == 0 {
		return domain.NewError(errcodes.InvalidOrderState, "order is not pending")
	}

	return nil
}

// DeleteWithRelease — административное удаление заказа: зарезервированные
// ключи возвращаются в пул, заказ удаляется. Инварианты ядра здесь
// не проверяются, отложенное подтверждение увидит отсутствие заказа и
// превратится в no-op.
func (r *OrderRepository) DeleteWithRelease(ctx context.Context, orderID string) error {
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		releaseQuery := `
			UPDATE keys
			SET status = 'available', order_id = NULL, updated_at = $1
			WHERE order_id = $2 AND status = 'reserved'`

		if _, err := tx.ExecContext(ctx, releaseQuery, time.Now(), orderID); err != nil {
			return domain.WrapError(err, errcodes.InternalServerError, "failed to release order keys")
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, orderID)
		if err != nil {
			return domain.WrapError(err, errcodes.InternalServerError, "failed to delete order")
		}

		if rows, _ := res.RowsAffected(); rows == 0 {
			return domain.NewError(errcodes.OrderNotFound, "order not found")
		}

		return nil
	})
}

// markPaidTx — условный перевод pending → paid внутри транзакции.
func markPaidTx(ctx context.Context, tx *sqlx.Tx, orderID string, paidAt time.Time) error {
	query := `
		UPDATE orders
		SET status = $1, paid_at = $2
		WHERE id = $3 AND status = $4`

	res, err := tx.ExecContext(ctx, query,
		int(entity.OrderStatusPaid), paidAt, orderID, int(entity.OrderStatusPendingPayment))
	if err != nil {
		return domain.WrapError(err, errcodes.InternalServerError, "failed to mark order paid")
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return domain.WrapError(err, errcodes.InternalServerError, "failed to check affected rows")
	}

	if rows == 0 {
		return domain.NewError(errcodes.InvalidOrderState, "order is not pending")
	}

	return nil
}
