package application

import (
	"context"

	"github.com/amir0eveloper/rdmc-srshb/internal/domain"
)

// Statistics only ever look at published items.

func (s *Service) Summary(ctx context.Context) (domain.StatsSummary, error) {
	summary, err := s.repo.CountSummary(ctx)
	if err != nil {
		return domain.StatsSummary{}, err
	}
	created, err := s.repo.ItemCreationTimes(ctx, domain.StatusPublished)
	if err != nil {
		return domain.StatsSummary{}, err
	}
	start, end := domain.MonthRange(s.now())
	for _, at := range created {
		at = at.UTC()
		if !at.Before(start) && at.Before(end) {
			summary.NewItemsThisMonth++
		}
	}
	return summary, nil
}

// TopAuthors counts authors case-insensitively and title-cases the names.
func (s *Service) TopAuthors(ctx context.Context) ([]domain.FacetEntry, error) {
	top, err := s.facet(ctx, domain.KeyAuthor, domain.StatisticsTopLimit)
	if err != nil {
		return nil, err
	}
	for i := range top {
		top[i].Name = domain.TitleWords(top[i].Name)
	}
	return top, nil
}

func (s *Service) TopDownloads(ctx context.Context) ([]domain.ItemDownloads, error) {
	return s.repo.TopDownloadedItems(ctx, domain.StatisticsTopLimit)
}

// DownloadsOverTime attributes each bitstream's download count to the month
// it was uploaded in.
func (s *Service) DownloadsOverTime(ctx context.Context) ([]domain.MonthBucket, error) {
	bitstreams, err := s.repo.PublishedBitstreams(ctx)
	if err != nil {
		return nil, err
	}
	obs := make([]domain.Observation, 0, len(bitstreams))
	for _, b := range bitstreams {
		obs = append(obs, domain.Observation{At: b.CreatedAt, Weight: b.DownloadCount})
	}
	return domain.MonthlySeries(s.now(), obs), nil
}

func (s *Service) SubmissionsOverTime(ctx context.Context) ([]domain.MonthBucket, error) {
	created, err := s.repo.ItemCreationTimes(ctx, domain.StatusPublished)
	if err != nil {
		return nil, err
	}
	obs := make([]domain.Observation, 0, len(created))
	for _, at := range created {
		obs = append(obs, domain.Observation{At: at, Weight: 1})
	}
	return domain.MonthlySeries(s.now(), obs), nil
}

// SubmissionsByType groups dc.type values with only the first letter
// capitalised, so "article" and "ARTICLE" count together.
func (s *Service) SubmissionsByType(ctx context.Context) ([]domain.FacetEntry, error) {
	values, err := s.repo.PublishedMetadataValues(ctx, domain.KeyType)
	if err != nil {
		return nil, err
	}
	return domain.CountTokens(values, func(v string) string {
		return domain.CapitalizeFirst(v, true)
	}), nil
}

func (s *Service) MostActiveCollections(ctx context.Context) ([]domain.CollectionActivity, error) {
	activity, err := s.repo.CollectionActivity(ctx)
	if err != nil {
		return nil, err
	}
	return domain.RankCollections(activity, domain.StatisticsTopLimit), nil
}
