package audit

import (
	"context"
	"fmt"

	"github.com/taskforge-app/taskforge/internal/authz"
	"github.com/taskforge-app/taskforge/internal/shared"
)

// Result wraps a timeline page with paging metadata.
type Result struct {
	Events     []Event
	Pagination shared.Pagination
}

// Service coordinates audit timeline reads.
type Service struct {
	repo Repository
}

// NewService constructs an audit read service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Timeline returns a page of the caller's organization trail. The
// listing is always bound to the principal's own organization; there is
// no cross-organization audit view.
func (s *Service) Timeline(ctx context.Context, principal authz.Principal, page, perPage int) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	if perPage <= 0 {
		perPage = 20
	}
	if perPage > 50 {
		perPage = 50
	}
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * perPage
	events, total, err := s.repo.ListByOrg(ctx, principal.OrgID, offset, perPage)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Events:     events,
		Pagination: shared.NewPagination(page, perPage, total),
	}, nil
}
