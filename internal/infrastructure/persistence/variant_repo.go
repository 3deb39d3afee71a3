package persistence

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"cardshop/internal/domain"
	"cardshop/internal/domain/entity"
	"cardshop/pkg/contextx"
	"cardshop/pkg/errcodes"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

type VariantRepository struct {
	db *sqlx.DB
}

func NewVariantRepository(db *sqlx.DB) *VariantRepository {
	return &VariantRepository{db: db}
}

// GetByID возвращает вариант по идентификатору. Нечитаемый оптовый конфиг
// не считается ошибкой: вариант отдаётся без оптовых цен, пишем warning.
func (r *VariantRepository) GetByID(ctx context.Context, id int64) (*entity.Variant, error) {
	query := `
		SELECT id, product_id, name, price, custom_markup, wholesale_config, updated_at
		FROM variants
		WHERE id = $1`

	var schema variantSchema
	if err := r.db.GetContext(ctx, &schema, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewError(errcodes.VariantNotFound, "variant not found")
		}
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to get variant")
	}

	variant, ok := schema.toDomain()
	if !ok {
		logger(ctx).Warn("malformed wholesale config, selling at base price",
			slog.Int64("variant_id", id))
	}

	return variant, nil
}

func (r *VariantRepository) List(ctx context.Context, limit, offset int) ([]entity.Variant, error) {
	query := `
		SELECT id, product_id, name, price, custom_markup, wholesale_config, updated_at
		FROM variants
		ORDER BY id ASC
		LIMIT $1 OFFSET $2`

	var schemas []variantSchema
	if err := r.db.SelectContext(ctx, &schemas, query, limit, offset); err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to list variants")
	}

	result := make([]entity.Variant, 0, len(schemas))
	for i := range schemas {
		variant, ok := schemas[i].toDomain()
		if !ok {
			logger(ctx).Warn("malformed wholesale config, selling at base price",
				slog.Int64("variant_id", schemas[i].ID))
		}
		result = append(result, *variant)
	}

	return result, nil
}
