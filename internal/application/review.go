package application

import (
	"context"

	"github.com/amir0eveloper/rdmc-srshb/internal/domain"
)

// ReviewQueue lists items awaiting review, oldest first.
func (s *Service) ReviewQueue(ctx context.Context, actor *domain.Identity, page int) (domain.Page[domain.ItemListing], error) {
	if err := domain.Authorize(actor, 0, domain.ActionReviewItem); err != nil {
		return domain.Page[domain.ItemListing]{}, err
	}
	page = pageNumber(page)
	items, total, err := s.repo.ListItems(ctx, domain.ItemFilter{
		Status:      domain.StatusInReview,
		OldestFirst: true,
		Offset:      domain.PageOffset(page, domain.BrowsePageSize),
		Limit:       domain.BrowsePageSize,
	})
	if err != nil {
		return domain.Page[domain.ItemListing]{}, err
	}
	return domain.NewPage(items, total, page, domain.BrowsePageSize), nil
}

// Review publishes or rejects an item under review. status is the target
// state, PUBLISHED or REJECTED.
func (s *Service) Review(ctx context.Context, actor *domain.Identity, itemID uint, status string) (domain.Item, error) {
	if err := domain.Authorize(actor, 0, domain.ActionReviewItem); err != nil {
		return domain.Item{}, err
	}
	trigger, err := domain.ReviewTrigger(status)
	if err != nil {
		return domain.Item{}, err
	}
	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return domain.Item{}, err
	}
	return s.transition(ctx, actor, item, trigger)
}
