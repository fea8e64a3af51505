package sqlite

import (
	"context"

	"github.com/amir0eveloper/rdmc-srshb/internal/domain"
)

func (r *Repository) CreateMetadata(ctx context.Context, value domain.MetadataField) (domain.MetadataField, error) {
	m := MetadataFieldModel{ItemID: value.ItemID, Key: value.Key, Value: value.Value}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.MetadataField{}, internal(err)
	}
	return m.toDomain(), nil
}

func (r *Repository) GetMetadata(ctx context.Context, id uint) (domain.MetadataField, error) {
	var m MetadataFieldModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return domain.MetadataField{}, notFound(err, "metadata field")
	}
	return m.toDomain(), nil
}

func (r *Repository) UpdateMetadataValue(ctx context.Context, id uint, value string) error {
	res := r.db.WithContext(ctx).Model(&MetadataFieldModel{}).Where("id = ?", id).Update("value", value)
	return affected(res, "metadata field")
}

func (r *Repository) DeleteMetadata(ctx context.Context, id uint) error {
	return affected(r.db.WithContext(ctx).Delete(&MetadataFieldModel{}, id), "metadata field")
}

func (r *Repository) DeleteItemMetadata(ctx context.Context, itemID uint) error {
	return internal(r.db.WithContext(ctx).Where("item_id = ?", itemID).Delete(&MetadataFieldModel{}).Error)
}

func (r *Repository) ListMetadata(ctx context.Context, itemID uint) ([]domain.MetadataField, error) {
	rows := make([]MetadataFieldModel, 0)
	if err := r.db.WithContext(ctx).Where("item_id = ?", itemID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, internal(err)
	}
	result := make([]domain.MetadataField, 0, len(rows))
	for _, m := range rows {
		result = append(result, m.toDomain())
	}
	return result, nil
}

func (r *Repository) PublishedMetadataValues(ctx context.Context, key string) ([]string, error) {
	values := make([]string, 0)
	err := r.db.WithContext(ctx).Raw(`
SELECT m.value
FROM metadata_fields m
JOIN items i ON i.id = m.item_id
WHERE i.status = ? AND m.key = ?
ORDER BY m.id
`, string(domain.StatusPublished), key).Scan(&values).Error
	if err != nil {
		return nil, internal(err)
	}
	return values, nil
}

func (r *Repository) IssuedYearBounds(ctx context.Context) (*int, *int, error) {
	var row struct {
		MinYear *int
		MaxYear *int
	}
	err := r.db.WithContext(ctx).Raw(`
SELECT MIN(CAST(substr(m.value, 1, 4) AS INTEGER)) AS min_year,
       MAX(CAST(substr(m.value, 1, 4) AS INTEGER)) AS max_year
FROM metadata_fields m
JOIN items i ON i.id = m.item_id
WHERE i.status = ?
  AND m.key = ?
  AND m.value GLOB '[0-9][0-9][0-9][0-9]*'
`, string(domain.StatusPublished), domain.KeyDateIssued).Scan(&row).Error
	if err != nil {
		return nil, nil, internal(err)
	}
	return row.MinYear, row.MaxYear, nil
}

func (r *Repository) IssuedYearHistogram(ctx context.Context, limit int) ([]domain.YearCount, error) {
	rows := make([]domain.YearCount, 0)
	err := r.db.WithContext(ctx).Raw(`
SELECT substr(m.value, 1, 4) AS year,
       COUNT(DISTINCT i.id) AS count
FROM metadata_fields m
JOIN items i ON i.id = m.item_id
WHERE i.status = ?
  AND m.key = ?
  AND m.value GLOB '[0-9][0-9][0-9][0-9]-[0-9][0-9]-[0-9][0-9]'
GROUP BY year
ORDER BY year DESC
LIMIT ?
`, string(domain.StatusPublished), domain.KeyDateIssued, limit).Scan(&rows).Error
	if err != nil {
		return nil, internal(err)
	}
	return rows, nil
}
