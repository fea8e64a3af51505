package sqlite

import (
	"context"
	"time"

	"github.com/amir0eveloper/rdmc-srshb/internal/domain"
)

func (r *Repository) CreateCommunity(ctx context.Context, value domain.Community) (domain.Community, error) {
	m := CommunityModel{Name: value.Name, Description: value.Description, ParentID: value.ParentID}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.Community{}, internal(err)
	}
	return m.toDomain(), nil
}

func (r *Repository) UpdateCommunity(ctx context.Context, value domain.Community) (domain.Community, error) {
	m := CommunityModel{ID: value.ID, Name: value.Name, Description: value.Description, ParentID: value.ParentID}
	res := r.db.WithContext(ctx).Model(&m).
		Select("name", "description", "parent_id", "updated_at").
		Updates(&m)
	if err := affected(res, "community"); err != nil {
		return domain.Community{}, err
	}
	return r.GetCommunity(ctx, value.ID)
}

func (r *Repository) GetCommunity(ctx context.Context, id uint) (domain.Community, error) {
	var m CommunityModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return domain.Community{}, notFound(err, "community")
	}
	return m.toDomain(), nil
}

func (r *Repository) ListCommunities(ctx context.Context) ([]domain.Community, error) {
	rows := make([]CommunityModel, 0)
	if err := r.db.WithContext(ctx).Order("name ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, internal(err)
	}
	result := make([]domain.Community, 0, len(rows))
	for _, m := range rows {
		result = append(result, m.toDomain())
	}
	return result, nil
}

func (r *Repository) ListRootCommunities(ctx context.Context) ([]domain.CommunitySummary, error) {
	type row struct {
		ID                uint
		Name              string
		Description       string
		ParentID          *uint
		CreatedAt         time.Time
		UpdatedAt         time.Time
		SubCommunityCount int64
		CollectionCount   int64
	}
	rows := make([]row, 0)
	if err := r.db.WithContext(ctx).Raw(`
SELECT c.id,
       c.name,
       c.description,
       c.parent_id,
       c.created_at,
       c.updated_at,
       (SELECT COUNT(*) FROM communities s WHERE s.parent_id = c.id) AS sub_community_count,
       (SELECT COUNT(*) FROM collections k WHERE k.community_id = c.id) AS collection_count
FROM communities c
WHERE c.parent_id IS NULL
ORDER BY c.name ASC, c.id ASC
`).Scan(&rows).Error; err != nil {
		return nil, internal(err)
	}
	result := make([]domain.CommunitySummary, 0, len(rows))
	for _, m := range rows {
		result = append(result, domain.CommunitySummary{
			Community: domain.Community{
				ID:          m.ID,
				Name:        m.Name,
				Description: m.Description,
				ParentID:    m.ParentID,
				CreatedAt:   m.CreatedAt,
				UpdatedAt:   m.UpdatedAt,
			},
			SubCommunityCount: m.SubCommunityCount,
			CollectionCount:   m.CollectionCount,
		})
	}
	return result, nil
}

func (r *Repository) ListSubCommunities(ctx context.Context, parentID uint) ([]domain.Community, error) {
	rows := make([]CommunityModel, 0)
	if err := r.db.WithContext(ctx).Where("parent_id = ?", parentID).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, internal(err)
	}
	result := make([]domain.Community, 0, len(rows))
	for _, m := range rows {
		result = append(result, m.toDomain())
	}
	return result, nil
}

func (r *Repository) CountCommunityChildren(ctx context.Context, id uint) (int64, int64, error) {
	var subs, collections int64
	if err := r.db.WithContext(ctx).Model(&CommunityModel{}).Where("parent_id = ?", id).Count(&subs).Error; err != nil {
		return 0, 0, internal(err)
	}
	if err := r.db.WithContext(ctx).Model(&CollectionModel{}).Where("community_id = ?", id).Count(&collections).Error; err != nil {
		return 0, 0, internal(err)
	}
	return subs, collections, nil
}

func (r *Repository) DeleteCommunity(ctx context.Context, id uint) error {
	return affected(r.db.WithContext(ctx).Delete(&CommunityModel{}, id), "community")
}

func (r *Repository) CreateCollection(ctx context.Context, value domain.Collection) (domain.Collection, error) {
	m := CollectionModel{Name: value.Name, Description: value.Description, CommunityID: value.CommunityID}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.Collection{}, internal(err)
	}
	return m.toDomain(), nil
}

func (r *Repository) UpdateCollection(ctx context.Context, value domain.Collection) (domain.Collection, error) {
	m := CollectionModel{ID: value.ID, Name: value.Name, Description: value.Description, CommunityID: value.CommunityID}
	res := r.db.WithContext(ctx).Model(&m).
		Select("name", "description", "community_id", "updated_at").
		Updates(&m)
	if err := affected(res, "collection"); err != nil {
		return domain.Collection{}, err
	}
	return r.GetCollection(ctx, value.ID)
}

func (r *Repository) GetCollection(ctx context.Context, id uint) (domain.Collection, error) {
	var m CollectionModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return domain.Collection{}, notFound(err, "collection")
	}
	return m.toDomain(), nil
}

func (r *Repository) ListCollections(ctx context.Context, communityID *uint) ([]domain.CollectionSummary, error) {
	type row struct {
		ID          uint
		Name        string
		Description string
		CommunityID uint
		CreatedAt   time.Time
		UpdatedAt   time.Time
		ItemCount   int64
	}
	where := ""
	args := []any{string(domain.StatusPublished)}
	if communityID != nil {
		where = "WHERE k.community_id = ?"
		args = append(args, *communityID)
	}
	rows := make([]row, 0)
	if err := r.db.WithContext(ctx).Raw(`
SELECT k.id,
       k.name,
       k.description,
       k.community_id,
       k.created_at,
       k.updated_at,
       (SELECT COUNT(*) FROM items i WHERE i.collection_id = k.id AND i.status = ?) AS item_count
FROM collections k
`+where+`
ORDER BY k.name ASC, k.id ASC
`, args...).Scan(&rows).Error; err != nil {
		return nil, internal(err)
	}
	result := make([]domain.CollectionSummary, 0, len(rows))
	for _, m := range rows {
		result = append(result, domain.CollectionSummary{
			Collection: domain.Collection{
				ID:          m.ID,
				Name:        m.Name,
				Description: m.Description,
				CommunityID: m.CommunityID,
				CreatedAt:   m.CreatedAt,
				UpdatedAt:   m.UpdatedAt,
			},
			ItemCount: m.ItemCount,
		})
	}
	return result, nil
}

// CountCollectionItems counts items in every status.
func (r *Repository) CountCollectionItems(ctx context.Context, id uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&ItemModel{}).Where("collection_id = ?", id).Count(&count).Error
	return count, internal(err)
}

func (r *Repository) DeleteCollection(ctx context.Context, id uint) error {
	return affected(r.db.WithContext(ctx).Delete(&CollectionModel{}, id), "collection")
}
