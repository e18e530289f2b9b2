package repository

import (
	"context"

	"github.com/Caolboy/LABERS-HOST/internal/domain"
)

type CatalogRepository interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
	ListItems(ctx context.Context, categoryID int64) ([]domain.CatalogItem, error)
}

type PGCatalogRepository struct {
	db DBTX
}

func NewCatalogRepository(db DBTX) CatalogRepository {
	return &PGCatalogRepository{db: db}
}

func (r *PGCatalogRepository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]domain.Category, 0)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// ListItems returns the category's rooms (through their labs) followed by its
// equipment.
func (r *PGCatalogRepository) ListItems(ctx context.Context, categoryID int64) ([]domain.CatalogItem, error) {
	items := make([]domain.CatalogItem, 0)

	rows, err := r.db.Query(ctx, `SELECT rm.id, rm.room_number, l.name, l.description
		FROM rooms rm
		JOIN labs l ON l.id = rm.lab_id
		WHERE l.category_id=$1
		ORDER BY rm.id`, categoryID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var (
			item           domain.CatalogItem
			labName, labDe string
		)
		if err := rows.Scan(&item.ID, &item.Name, &labName, &labDe); err != nil {
			rows.Close()
			return nil, err
		}
		item.Kind = domain.ItemKindRoom
		item.LabName = &labName
		item.LabDescription = &labDe
		items = append(items, item)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.db.Query(ctx, `SELECT id, name, description, quantity FROM equipment WHERE category_id=$1 ORDER BY id`, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			item        domain.CatalogItem
			description string
			quantity    int
		)
		if err := rows.Scan(&item.ID, &item.Name, &description, &quantity); err != nil {
			return nil, err
		}
		item.Kind = domain.ItemKindEquipment
		item.Description = &description
		item.AvailableQuantity = &quantity
		items = append(items, item)
	}
	return items, rows.Err()
}

var _ CatalogRepository = (*PGCatalogRepository)(nil)
