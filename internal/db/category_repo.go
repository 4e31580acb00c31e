package db

import (
	"context"

	"biteindex/internal/types"
)

// CategoryRepository reads the fish_types catalogue.
type CategoryRepository struct {
	db DBTX
}

func NewCategoryRepository(db DBTX) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// List returns every fish type ordered for display.
func (r *CategoryRepository) List(ctx context.Context) ([]types.Category, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name_ru, name_en, icon_name, display_order
		 FROM fish_types
		 ORDER BY display_order, id`,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list fish types", err)
	}
	defer rows.Close()

	var out []types.Category
	for rows.Next() {
		var c types.Category
		if err := rows.Scan(&c.ID, &c.DisplayName, &c.NameEN, &c.IconName, &c.SortOrder); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan fish type", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate fish types", err)
	}
	return out, nil
}
