package domain

import "strings"

const (
	SearchPageSize      = 10
	BrowsePageSize      = 20
	RecentItemsLimit    = 4
	CollectionPageSize  = 10
	maxSearchQueryRows  = 20
	maxListingPageLimit = 200
)

// ItemFilter selects items for queues and listings. Zero values match
// everything.
type ItemFilter struct {
	Status       ItemStatus
	CollectionID uint
	SubmitterID  uint
	OldestFirst  bool
	Offset       int
	Limit        int
}

type SearchField string

const (
	FieldAny      SearchField = "any"
	FieldTitle    SearchField = "title"
	FieldAuthor   SearchField = "author"
	FieldSubject  SearchField = "subject"
	FieldAbstract SearchField = "abstract"
)

// MetadataKey is the key a field searches, or "" for title and any.
func (f SearchField) MetadataKey() string {
	switch f {
	case FieldAuthor:
		return KeyAuthor
	case FieldSubject:
		return KeySubject
	case FieldAbstract:
		return KeyAbstract
	}
	return ""
}

type MatchOperator string

const (
	MatchContains   MatchOperator = "contains"
	MatchEquals     MatchOperator = "equals"
	MatchStartsWith MatchOperator = "startsWith"
)

type BoolOp string

const (
	OpAnd BoolOp = "AND"
	OpOr  BoolOp = "OR"
	OpNot BoolOp = "NOT"
)

// QueryRow is one line of an advanced query. Join combines the row with
// everything before it and is ignored on the first row; NOT means AND NOT.
type QueryRow struct {
	Join     BoolOp        `json:"join"`
	Field    SearchField   `json:"field"`
	Operator MatchOperator `json:"operator"`
	Value    string        `json:"value"`
}

// SearchQuery combines every public search mode. Set parts are ANDed.
type SearchQuery struct {
	Text       string      `json:"q"`
	Facet      SearchField `json:"facet"`
	FacetValue string      `json:"facet_value"`
	StartYear  int         `json:"start_year"`
	EndYear    int         `json:"end_year"`
	Rows       []QueryRow  `json:"rows"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
}

// Normalize validates the query and fills in paging defaults. Rows with an
// empty value are dropped.
func (q SearchQuery) Normalize() (SearchQuery, error) {
	q.Text = strings.TrimSpace(q.Text)
	q.FacetValue = strings.TrimSpace(q.FacetValue)
	if q.FacetValue != "" {
		if q.Facet != FieldAuthor && q.Facet != FieldSubject {
			return q, ErrValidation.New("facet must be author or subject")
		}
	}
	if (q.StartYear == 0) != (q.EndYear == 0) {
		return q, ErrValidation.New("start_year and end_year must be set together")
	}
	if q.StartYear > q.EndYear {
		return q, ErrValidation.New("start_year is after end_year")
	}

	rows := make([]QueryRow, 0, len(q.Rows))
	for _, row := range q.Rows {
		row.Value = strings.TrimSpace(row.Value)
		if row.Value == "" {
			continue
		}
		if row.Field == "" {
			row.Field = FieldAny
		}
		if row.Operator == "" {
			row.Operator = MatchContains
		}
		if row.Join == "" {
			row.Join = OpAnd
		}
		switch row.Field {
		case FieldAny, FieldTitle, FieldAuthor, FieldSubject, FieldAbstract:
		default:
			return q, ErrValidation.New("unknown search field %q", row.Field)
		}
		switch row.Operator {
		case MatchContains, MatchEquals, MatchStartsWith:
		default:
			return q, ErrValidation.New("unknown operator %q", row.Operator)
		}
		switch BoolOp(strings.ToUpper(string(row.Join))) {
		case OpAnd, OpOr, OpNot:
			row.Join = BoolOp(strings.ToUpper(string(row.Join)))
		default:
			return q, ErrValidation.New("unknown boolean operator %q", row.Join)
		}
		rows = append(rows, row)
	}
	if len(rows) > maxSearchQueryRows {
		return q, ErrValidation.New("too many query rows")
	}
	q.Rows = rows

	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = SearchPageSize
	}
	if q.PageSize > maxListingPageLimit {
		q.PageSize = maxListingPageLimit
	}
	return q, nil
}

func (q SearchQuery) Offset() int { return PageOffset(q.Page, q.PageSize) }

type YearCount struct {
	Year  string `json:"year"`
	Count int64  `json:"count"`
}

type ItemDownloads struct {
	ItemID    uint   `json:"item_id"`
	Title     string `json:"title"`
	Downloads int64  `json:"downloads"`
}

type CollectionActivity struct {
	CollectionID   uint   `json:"collection_id"`
	Name           string `json:"name"`
	PublishedItems int64  `json:"published_items"`
	Downloads      int64  `json:"downloads"`
}

type StatsSummary struct {
	PublishedItems    int64 `json:"published_items"`
	Collections       int64 `json:"collections"`
	Communities       int64 `json:"communities"`
	TotalDownloads    int64 `json:"total_downloads"`
	NewItemsThisMonth int64 `json:"new_items_this_month"`
}
