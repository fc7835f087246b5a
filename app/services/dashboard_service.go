package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/pkg/cache"
)

// DashboardService builds the admin overview.
type DashboardService struct {
	repo  repositories.DashboardRepository
	cache *cache.Store
}

func NewDashboardService(repo repositories.DashboardRepository, c *cache.Store) *DashboardService {
	return &DashboardService{repo: repo, cache: c}
}

// Stats covers the last 30 days of daily sales. Results are cached for
// 30 seconds.
func (s *DashboardService) Stats(ctx context.Context) (*models.DashboardStats, error) {
	return cache.Remember(ctx, s.cache, "dashboard:stats", 30*time.Second, func() (*models.DashboardStats, error) {
		since := time.Now().UTC().AddDate(0, 0, -30).Truncate(24 * time.Hour)
		st, err := s.repo.Stats(ctx, since)
		if err != nil {
			return nil, fmt.Errorf("dashboard: %w", err)
		}
		return st, nil
	})
}
