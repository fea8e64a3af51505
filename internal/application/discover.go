package application

import (
	"context"

	"github.com/amir0eveloper/rdmc-srshb/internal/domain"
)

// Search runs a simple, facet, date range or advanced query over published
// items. Modes combine when several are set.
func (s *Service) Search(ctx context.Context, query domain.SearchQuery) (domain.Page[domain.ItemListing], error) {
	query, err := query.Normalize()
	if err != nil {
		return domain.Page[domain.ItemListing]{}, err
	}
	items, total, err := s.repo.SearchItems(ctx, query)
	if err != nil {
		return domain.Page[domain.ItemListing]{}, err
	}
	return domain.NewPage(items, total, query.Page, query.PageSize), nil
}

func (s *Service) AuthorFacet(ctx context.Context) ([]domain.FacetEntry, error) {
	return s.facet(ctx, domain.KeyAuthor, domain.DiscoverFacetLimit)
}

func (s *Service) SubjectFacet(ctx context.Context) ([]domain.FacetEntry, error) {
	return s.facet(ctx, domain.KeySubject, domain.DiscoverFacetLimit)
}

func (s *Service) facet(ctx context.Context, key string, limit int) ([]domain.FacetEntry, error) {
	values, err := s.repo.PublishedMetadataValues(ctx, key)
	if err != nil {
		return nil, err
	}
	return domain.Top(domain.CountFacet(values), limit), nil
}

// DateRange is the span of issue years, defaulting to the last ten years.
func (s *Service) DateRange(ctx context.Context) (domain.YearRange, error) {
	minYear, maxYear, err := s.repo.IssuedYearBounds(ctx)
	if err != nil {
		return domain.YearRange{}, err
	}
	return domain.ResolveYearRange(minYear, maxYear, s.now()), nil
}

func (s *Service) YearHistogram(ctx context.Context) ([]domain.YearCount, error) {
	return s.repo.IssuedYearHistogram(ctx, domain.YearHistogramLimit)
}

// BrowseAuthors pages through every published author, most frequent first.
func (s *Service) BrowseAuthors(ctx context.Context, page int) (domain.Page[domain.FacetEntry], error) {
	values, err := s.repo.PublishedMetadataValues(ctx, domain.KeyAuthor)
	if err != nil {
		return domain.Page[domain.FacetEntry]{}, err
	}
	all := domain.CountFacet(values)
	page = pageNumber(page)
	start := min(domain.PageOffset(page, domain.BrowsePageSize), len(all))
	end := min(start+domain.BrowsePageSize, len(all))
	return domain.NewPage(all[start:end], int64(len(all)), page, domain.BrowsePageSize), nil
}
