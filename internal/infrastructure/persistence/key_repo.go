package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"cardshop/internal/domain"
	"cardshop/internal/domain/entity"
	"cardshop/pkg/errcodes"
)

// KeyRepository — аллокатор пула ключей. Вся конкурентная корректность
// держится на условных UPDATE и транзакциях, а не на проверках перед записью.
type KeyRepository struct {
	db *sqlx.DB
}

func NewKeyRepository(db *sqlx.DB) *KeyRepository {
	return &KeyRepository{db: db}
}

// withTx выполняет функцию в транзакции.
func (r *KeyRepository) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
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

// ReserveSpecific резервирует конкретный ключ под заказ. Один условный
// UPDATE закрывает гонку между покупателями, выбравшими один и тот же ключ.
func (r *KeyRepository) ReserveSpecific(ctx context.Context, variantID, keyID int64, orderID string) (*entity.Key, error) {
	return reserveSpecificTx(ctx, r.db, variantID, keyID, orderID)
}

// ClaimRandom атомарно переводит count доступных ключей варианта в sold.
// Всё или ничего: при нехватке не занимается ни один ключ.
func (r *KeyRepository) ClaimRandom(ctx context.Context, variantID int64, orderID string, count int) ([]entity.Key, error) {
	var keys []entity.Key

	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		var txErr error
		keys, txErr = claimRandomTx(ctx, tx, variantID, orderID, count)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	return keys, nil
}

// PromoteReserved переводит зарезервированные под заказ ключи в sold
// и возвращает число затронутых ключей.
func (r *KeyRepository) PromoteReserved(ctx context.Context, orderID string) (int, error) {
	var promoted int

	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		var txErr error
		promoted, txErr = promoteReservedTx(ctx, tx, orderID)
		return txErr
	})
	if err != nil {
		return 0, err
	}

	return promoted, nil
}

// Release возвращает зарезервированный ключ в пул, снимая привязку к заказу.
func (r *KeyRepository) Release(ctx context.Context, keyID int64) error {
	query := `
		UPDATE keys
		SET status = 'available', order_id = NULL, updated_at = $1
		WHERE id = $2 AND status = 'reserved'`

	res, err := r.db.ExecContext(ctx, query, time.Now(), keyID)
	if err != nil {
		return domain.WrapError(err, errcodes.InternalServerError, "failed to release key")
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return domain.WrapError(err, errcodes.InternalServerError, "failed to check affected rows")
	}

	if rows == 0 {
		return domain.NewError(errcodes.KeyNotFound, "no reserved key to release")
	}

	return nil
}

// CountAvailable — рекомендательная проверка остатка. Авторитетная проверка
// происходит только в ClaimRandom в момент подтверждения оплаты.
func (r *KeyRepository) CountAvailable(ctx context.Context, variantID int64) (int, error) {
	query := `SELECT COUNT(*) FROM keys WHERE variant_id = $1 AND status = 'available'`

	var count int
	if err := r.db.GetContext(ctx, &count, query, variantID); err != nil {
		return 0, domain.WrapError(err, errcodes.InternalServerError, "failed to count available keys")
	}

	return count, nil
}

func (r *KeyRepository) GetByID(ctx context.Context, id int64) (*entity.Key, error) {
	query := `
		SELECT id, variant_id, content, note, status, order_id, updated_at
		FROM keys
		WHERE id = $1`

	var schema keySchema
	if err := r.db.GetContext(ctx, &schema, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewError(errcodes.KeyNotFound, "key not found")
		}
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to get key")
	}

	return schema.toDomain(), nil
}

// ListByOrder возвращает ключи, привязанные к заказу.
func (r *KeyRepository) ListByOrder(ctx context.Context, orderID string) ([]entity.Key, error) {
	query := `
		SELECT id, variant_id, content, note, status, order_id, updated_at
		FROM keys
		WHERE order_id = $1
		ORDER BY id ASC`

	var schemas []keySchema
	if err := r.db.SelectContext(ctx, &schemas, query, orderID); err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to list order keys")
	}

	keys := make([]entity.Key, 0, len(schemas))
	for i := range schemas {
		keys = append(keys, *schemas[i].toDomain())
	}

	return keys, nil
}

// CreateBatch атомарно загружает партию ключей в пул.
func (r *KeyRepository) CreateBatch(ctx context.Context, keys []*entity.Key) error {
	if len(keys) == 0 {
		return nil
	}

	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO keys (variant_id, content, note, status, order_id, updated_at)
			VALUES (:variant_id, :content, :note, :status, :order_id, :updated_at)`

		for i, key := range keys {
			params := map[string]any{
				"variant_id": key.VariantID,
				"content":    key.Content,
				"note":       key.Note,
				"status":     string(entity.KeyStatusAvailable),
				"order_id":   nil,
				"updated_at": time.Now(),
			}

			if _, err := tx.NamedExecContext(ctx, query, params); err != nil {
				return domain.WrapError(err, errcodes.InternalServerError,
					fmt.Sprintf("failed at index %d", i))
			}
		}
		return nil
	})
}

// execer покрывает *sqlx.DB и *sqlx.Tx, чтобы условный UPDATE
// одинаково работал сам по себе и внутри чужой транзакции.
type execer interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest any, query string, args ...any) error
}

// reserveSpecificTx — единственный допустимый способ занять конкретный ключ:
// compare-and-swap по статусу. Нулевое число строк дорасследуется,
// чтобы отличить "ключа нет" от "ключ уже занят".
func reserveSpecificTx(ctx context.Context, ext execer, variantID, keyID int64, orderID string) (*entity.Key, error) {
	query := `
		UPDATE keys
		SET status = 'reserved', order_id = $1, updated_at = $2
		WHERE id = $3 AND variant_id = $4 AND status = 'available'`

	res, err := ext.ExecContext(ctx, query, orderID, time.Now(), keyID, variantID)
	if err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to reserve key")
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to check affected rows")
	}

	if rows == 0 {
		var exists bool
		_ = ext.GetContext(ctx, &exists,
			`SELECT EXISTS(SELECT 1 FROM keys WHERE id = $1 AND variant_id = $2)`, keyID, variantID)
		if !exists {
			return nil, domain.NewError(errcodes.KeyNotFound, "key not found")
		}
		return nil, domain.NewError(errcodes.KeyUnavailable, "key already taken")
	}

	var schema keySchema
	if err := ext.GetContext(ctx, &schema,
		`SELECT id, variant_id, content, note, status, order_id, updated_at FROM keys WHERE id = $1`, keyID); err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to reload key")
	}

	return schema.toDomain(), nil
}

// claimRandomTx захватывает count доступных ключей внутри транзакции.
// SKIP LOCKED не даёт двум подтверждениям тянуть одни и те же строки;
// нехватка откатывает всё целиком.
func claimRandomTx(ctx context.Context, tx *sqlx.Tx, variantID int64, orderID string, count int) ([]entity.Key, error) {
	selectQuery := `
		SELECT id, variant_id, content, note, status, order_id, updated_at
		FROM keys
		WHERE variant_id = $1 AND status = 'available'
		ORDER BY id ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED`

	var schemas []keySchema
	if err := tx.SelectContext(ctx, &schemas, selectQuery, variantID, count); err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to select available keys")
	}

	if len(schemas) < count {
		return nil, domain.NewError(errcodes.InsufficientStock, "not enough keys in stock")
	}

	ids := make([]int64, 0, len(schemas))
	for i := range schemas {
		ids = append(ids, schemas[i].ID)
	}

	updateQuery, args, err := sqlx.In(`
		UPDATE keys
		SET status = 'sold', order_id = ?, updated_at = ?
		WHERE id IN (?)`, orderID, time.Now(), ids)
	if err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to build claim query")
	}

	res, err := tx.ExecContext(ctx, tx.Rebind(updateQuery), args...)
	if err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to claim keys")
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to check affected rows")
	}

	if int(rows) != count {
		return nil, domain.NewError(errcodes.InsufficientStock, "keys changed state during claim")
	}

	keys := make([]entity.Key, 0, len(schemas))
	for i := range schemas {
		key := schemas[i].toDomain()
		key.Status = entity.KeyStatusSold
		key.OrderID = &orderID
		keys = append(keys, *key)
	}

	return keys, nil
}

// promoteReservedTx переводит зарезервированные под заказ ключи в sold.
func promoteReservedTx(ctx context.Context, tx *sqlx.Tx, orderID string) (int, error) {
	query := `
		UPDATE keys
		SET status = 'sold', updated_at = $1
		WHERE order_id = $2 AND status = 'reserved'`

	res, err := tx.ExecContext(ctx, query, time.Now(), orderID)
	if err != nil {
		return 0, domain.WrapError(err, errcodes.InternalServerError, "failed to promote reserved keys")
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, domain.WrapError(err, errcodes.InternalServerError, "failed to check affected rows")
	}

	return int(rows), nil
}
