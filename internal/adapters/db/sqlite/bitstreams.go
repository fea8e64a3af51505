package sqlite

import (
	"context"

	"github.com/amir0eveloper/rdmc-srshb/internal/domain"
	"gorm.io/gorm"
)

func (r *Repository) CreateBitstream(ctx context.Context, value domain.Bitstream) (domain.Bitstream, error) {
	m := BitstreamModel{
		ItemID:        value.ItemID,
		Name:          value.Name,
		MimeType:      value.MimeType,
		Size:          value.Size,
		StorageKey:    value.StorageKey,
		DownloadCount: value.DownloadCount,
		CreatedAt:     value.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.Bitstream{}, internal(err)
	}
	return m.toDomain(), nil
}

func (r *Repository) GetBitstream(ctx context.Context, id uint) (domain.Bitstream, error) {
	var m BitstreamModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return domain.Bitstream{}, notFound(err, "bitstream")
	}
	return m.toDomain(), nil
}

func (r *Repository) ListBitstreams(ctx context.Context, itemID uint) ([]domain.Bitstream, error) {
	rows := make([]BitstreamModel, 0)
	if err := r.db.WithContext(ctx).Where("item_id = ?", itemID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, internal(err)
	}
	result := make([]domain.Bitstream, 0, len(rows))
	for _, m := range rows {
		result = append(result, m.toDomain())
	}
	return result, nil
}

func (r *Repository) DeleteBitstream(ctx context.Context, id uint) error {
	return affected(r.db.WithContext(ctx).Delete(&BitstreamModel{}, id), "bitstream")
}

func (r *Repository) DeleteItemBitstreams(ctx context.Context, itemID uint) error {
	return internal(r.db.WithContext(ctx).Where("item_id = ?", itemID).Delete(&BitstreamModel{}).Error)
}

func (r *Repository) IncrementDownloads(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&BitstreamModel{}).Where("id = ?", id).
		UpdateColumn("download_count", gorm.Expr("download_count + ?", 1))
	return affected(res, "bitstream")
}

func (r *Repository) PublishedBitstreams(ctx context.Context) ([]domain.Bitstream, error) {
	rows := make([]BitstreamModel, 0)
	err := r.db.WithContext(ctx).
		Joins("JOIN items ON items.id = bitstreams.item_id").
		Where("items.status = ?", string(domain.StatusPublished)).
		Order("bitstreams.id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, internal(err)
	}
	result := make([]domain.Bitstream, 0, len(rows))
	for _, m := range rows {
		result = append(result, m.toDomain())
	}
	return result, nil
}

func (r *Repository) TopDownloadedItems(ctx context.Context, limit int) ([]domain.ItemDownloads, error) {
	rows := make([]domain.ItemDownloads, 0)
	err := r.db.WithContext(ctx).Raw(`
SELECT i.id AS item_id,
       i.title,
       SUM(b.download_count) AS downloads
FROM bitstreams b
JOIN items i ON i.id = b.item_id
WHERE i.status = ?
GROUP BY i.id, i.title
ORDER BY downloads DESC, i.id ASC
LIMIT ?
`, string(domain.StatusPublished), limit).Scan(&rows).Error
	if err != nil {
		return nil, internal(err)
	}
	return rows, nil
}

func (r *Repository) CollectionActivity(ctx context.Context) ([]domain.CollectionActivity, error) {
	rows := make([]domain.CollectionActivity, 0)
	err := r.db.WithContext(ctx).Raw(`
SELECT k.id AS collection_id,
       k.name,
       COUNT(DISTINCT i.id) AS published_items,
       COALESCE(SUM(b.download_count), 0) AS downloads
FROM collections k
LEFT JOIN items i ON i.collection_id = k.id AND i.status = ?
LEFT JOIN bitstreams b ON b.item_id = i.id
GROUP BY k.id, k.name
ORDER BY k.id ASC
`, string(domain.StatusPublished)).Scan(&rows).Error
	if err != nil {
		return nil, internal(err)
	}
	return rows, nil
}

func (r *Repository) CountSummary(ctx context.Context) (domain.StatsSummary, error) {
	var row struct {
		PublishedItems int64
		Collections    int64
		Communities    int64
		TotalDownloads int64
	}
	published := string(domain.StatusPublished)
	err := r.db.WithContext(ctx).Raw(`
SELECT (SELECT COUNT(*) FROM items WHERE status = ?) AS published_items,
       (SELECT COUNT(*) FROM collections) AS collections,
       (SELECT COUNT(*) FROM communities) AS communities,
       (SELECT COALESCE(SUM(b.download_count), 0)
        FROM bitstreams b
        JOIN items i ON i.id = b.item_id
        WHERE i.status = ?) AS total_downloads
`, published, published).Scan(&row).Error
	if err != nil {
		return domain.StatsSummary{}, internal(err)
	}
	return domain.StatsSummary{
		PublishedItems: row.PublishedItems,
		Collections:    row.Collections,
		Communities:    row.Communities,
		TotalDownloads: row.TotalDownloads,
	}, nil
}
