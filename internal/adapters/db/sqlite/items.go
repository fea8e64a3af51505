package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/amir0eveloper/rdmc-srshb/internal/domain"
)

const listingColumns = `
SELECT i.id,
       i.title,
       i.status,
       i.collection_id,
       i.submitter_id,
       i.created_at,
       i.updated_at,
       COALESCE(c.name, '') AS collection_name,
       COALESCE((SELECT m.value
                 FROM metadata_fields m
                 WHERE m.item_id = i.id AND m.key = '` + domain.KeyAbstract + `'
                 ORDER BY m.id
                 LIMIT 1), '') AS abstract
FROM items i
LEFT JOIN collections c ON c.id = i.collection_id
`

type listingRow struct {
	ID             uint
	Title          string
	Status         string
	CollectionID   uint
	SubmitterID    uint
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CollectionName string
	Abstract       string
}

func (m listingRow) toDomain() domain.ItemListing {
	return domain.ItemListing{
		Item: domain.Item{
			ID:           m.ID,
			Title:        m.Title,
			Status:       domain.ItemStatus(m.Status),
			CollectionID: m.CollectionID,
			SubmitterID:  m.SubmitterID,
			CreatedAt:    m.CreatedAt,
			UpdatedAt:    m.UpdatedAt,
		},
		CollectionName: m.CollectionName,
		Abstract:       m.Abstract,
	}
}

func (r *Repository) CreateItem(ctx context.Context, value domain.Item) (domain.Item, error) {
	m := ItemModel{
		Title:        value.Title,
		Status:       string(value.Status),
		CollectionID: value.CollectionID,
		SubmitterID:  value.SubmitterID,
		CreatedAt:    value.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.Item{}, internal(err)
	}
	return m.toDomain(), nil
}

// UpdateItem writes title, status and collection. The submitter never changes.
func (r *Repository) UpdateItem(ctx context.Context, value domain.Item) (domain.Item, error) {
	m := ItemModel{ID: value.ID, Title: value.Title, Status: string(value.Status), CollectionID: value.CollectionID}
	res := r.db.WithContext(ctx).Model(&m).
		Select("title", "status", "collection_id", "updated_at").
		Updates(&m)
	if err := affected(res, "item"); err != nil {
		return domain.Item{}, err
	}
	return r.GetItem(ctx, value.ID)
}

// RenameItem writes the title alone so a concurrent status change survives.
func (r *Repository) RenameItem(ctx context.Context, id uint, title string) error {
	res := r.db.WithContext(ctx).Model(&ItemModel{ID: id}).Update("title", title)
	return affected(res, "item")
}

// SetItemStatus moves the item from one status to another. It fails with a
// validation error when the stored status is no longer from.
func (r *Repository) SetItemStatus(ctx context.Context, id uint, from, to domain.ItemStatus) (domain.Item, error) {
	res := r.db.WithContext(ctx).Model(&ItemModel{}).
		Where("id = ? AND status = ?", id, string(from)).
		Update("status", string(to))
	if res.Error != nil {
		return domain.Item{}, internal(res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetItem(ctx, id); err != nil {
			return domain.Item{}, err
		}
		return domain.Item{}, domain.ErrValidation.New("item is no longer %s", from)
	}
	return r.GetItem(ctx, id)
}

func (r *Repository) GetItem(ctx context.Context, id uint) (domain.Item, error) {
	var m ItemModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return domain.Item{}, notFound(err, "item")
	}
	return m.toDomain(), nil
}

func (r *Repository) ListItems(ctx context.Context, filter domain.ItemFilter) ([]domain.ItemListing, int64, error) {
	conds := make([]string, 0, 3)
	args := make([]any, 0, 3)
	if filter.Status != "" {
		conds = append(conds, "i.status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.CollectionID != 0 {
		conds = append(conds, "i.collection_id = ?")
		args = append(args, filter.CollectionID)
	}
	if filter.SubmitterID != 0 {
		conds = append(conds, "i.submitter_id = ?")
		args = append(args, filter.SubmitterID)
	}
	order := "i.created_at DESC, i.id DESC"
	if filter.OldestFirst {
		order = "i.created_at ASC, i.id ASC"
	}
	return r.listing(ctx, whereClause(conds), args, order, filter.Offset, filter.Limit)
}

// SearchItems only ever returns published items, newest first.
func (r *Repository) SearchItems(ctx context.Context, query domain.SearchQuery) ([]domain.ItemListing, int64, error) {
	conds := []string{"i.status = ?"}
	args := []any{string(domain.StatusPublished)}

	if query.Text != "" {
		sql, a := rowCondition(domain.QueryRow{Field: domain.FieldAny, Operator: domain.MatchContains, Value: query.Text})
		conds = append(conds, sql)
		args = append(args, a...)
	}
	if query.FacetValue != "" {
		sql, a := rowCondition(domain.QueryRow{Field: query.Facet, Operator: domain.MatchContains, Value: query.FacetValue})
		conds = append(conds, sql)
		args = append(args, a...)
	}
	if query.StartYear != 0 {
		from, to := domain.YearBounds(query.StartYear, query.EndYear)
		conds = append(conds, "EXISTS (SELECT 1 FROM metadata_fields d WHERE d.item_id = i.id AND d.key = ? AND d.value BETWEEN ? AND ?)")
		args = append(args, domain.KeyDateIssued, from, to)
	}
	if len(query.Rows) > 0 {
		sql, a := foldRows(query.Rows)
		conds = append(conds, sql)
		args = append(args, a...)
	}
	return r.listing(ctx, whereClause(conds), args, "i.created_at DESC, i.id DESC", query.Offset(), query.PageSize)
}

func (r *Repository) listing(ctx context.Context, where string, args []any, order string, offset, limit int) ([]domain.ItemListing, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Raw("SELECT COUNT(*) FROM items i "+where, args...).Scan(&total).Error; err != nil {
		return nil, 0, internal(err)
	}
	if limit <= 0 {
		limit = -1
	}
	rows := make([]listingRow, 0)
	q := listingColumns + where + "\nORDER BY " + order + "\nLIMIT ? OFFSET ?"
	if err := r.db.WithContext(ctx).Raw(q, append(args, limit, offset)...).Scan(&rows).Error; err != nil {
		return nil, 0, internal(err)
	}
	result := make([]domain.ItemListing, 0, len(rows))
	for _, m := range rows {
		result = append(result, m.toDomain())
	}
	return result, total, nil
}

func (r *Repository) DeleteItem(ctx context.Context, id uint) error {
	return affected(r.db.WithContext(ctx).Delete(&ItemModel{}, id), "item")
}

func (r *Repository) ItemCreationTimes(ctx context.Context, status domain.ItemStatus) ([]time.Time, error) {
	times := make([]time.Time, 0)
	err := r.db.WithContext(ctx).Model(&ItemModel{}).Where("status = ?", string(status)).Pluck("created_at", &times).Error
	if err != nil {
		return nil, internal(err)
	}
	return times, nil
}

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(conds, " AND ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func matchExpr(column string, op domain.MatchOperator, value string) (string, []any) {
	switch op {
	case domain.MatchEquals:
		return "lower(" + column + ") = lower(?)", []any{value}
	case domain.MatchStartsWith:
		return column + ` LIKE ? ESCAPE '\'`, []any{likeEscaper.Replace(value) + "%"}
	default:
		return column + ` LIKE ? ESCAPE '\'`, []any{"%" + likeEscaper.Replace(value) + "%"}
	}
}

// rowCondition renders one advanced query row against the item aliased i.
// "any" matches the title or any metadata value.
func rowCondition(row domain.QueryRow) (string, []any) {
	if row.Field == domain.FieldTitle {
		return matchExpr("i.title", row.Operator, row.Value)
	}
	valueSQL, valueArgs := matchExpr("m.value", row.Operator, row.Value)
	if row.Field == domain.FieldAny {
		titleSQL, titleArgs := matchExpr("i.title", row.Operator, row.Value)
		return "(" + titleSQL + " OR EXISTS (SELECT 1 FROM metadata_fields m WHERE m.item_id = i.id AND " + valueSQL + "))",
			append(titleArgs, valueArgs...)
	}
	return "EXISTS (SELECT 1 FROM metadata_fields m WHERE m.item_id = i.id AND m.key = ? AND " + valueSQL + ")",
		append([]any{row.Field.MetadataKey()}, valueArgs...)
}

// foldRows combines rows left to right, each join applying to everything
// before it.
func foldRows(rows []domain.QueryRow) (string, []any) {
	expr, args := rowCondition(rows[0])
	for _, row := range rows[1:] {
		sql, a := rowCondition(row)
		switch row.Join {
		case domain.OpOr:
			expr = "(" + expr + " OR " + sql + ")"
		case domain.OpNot:
			expr = "(" + expr + " AND NOT " + sql + ")"
		default:
			expr = "(" + expr + " AND " + sql + ")"
		}
		args = append(args, a...)
	}
	return expr, args
}
