package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/feastly/marketplace/internal/domain"
	"github.com/feastly/marketplace/internal/storage"
)

// rankingLimit caps the revenue and spend leaderboards. Deliverer rankings
// are uncapped.
const rankingLimit = 5

// RankingWindows configures the day counts of the three revenue windows.
type RankingWindows struct {
	WeekDays  int
	MonthDays int
	YearDays  int
}

// DefaultRankingWindows matches the calendar-ish defaults: 7, 30, 90 days.
func DefaultRankingWindows() RankingWindows {
	return RankingWindows{WeekDays: 7, MonthDays: 30, YearDays: 90}
}

// RankingService computes restaurant and customer leaderboards. Every
// ranking is ordered deterministically: the ranking key first, then
// ascending id on ties.
type RankingService struct {
	store   storage.Adapter
	logger  *slog.Logger
	windows RankingWindows

	// now is swappable for tests.
	now func() time.Time
}

// NewRankingService creates a new ranking service.
func NewRankingService(store storage.Adapter, windows RankingWindows, logger *slog.Logger) *RankingService {
	return &RankingService{
		store:   store,
		logger:  logger,
		windows: windows,
		now:     time.Now,
	}
}

// TopRestaurants computes the three revenue leaderboards. The windows are
// independent and computed concurrently; restaurants with no orders in a
// window are excluded from it, never ranked at zero.
func (s *RankingService) TopRestaurants(ctx context.Context) (*domain.TopRestaurants, error) {
	now := s.now().UTC()

	windows := []struct {
		name string
		days int
	}{
		{"week", s.windows.WeekDays},
		{"month", s.windows.MonthDays},
		{"year", s.windows.YearDays},
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
		revenues = make([][]domain.RestaurantRevenue, len(windows))
	)

	for i, w := range windows {
		wg.Add(1)
		go func(i, days int) {
			defer wg.Done()
			revs, err := s.store.RevenueByRestaurantInWindow(ctx, now.AddDate(0, 0, -days))
			mu.Lock()
			defer mu.Unlock()
			if err != nil && firstErr == nil {
				firstErr = err
			}
			revenues[i] = revs
		}(i, w.days)
	}
	wg.Wait()
	if firstErr != nil {
		return nil, fmt.Errorf("revenue windows: %w", firstErr)
	}

	// Rank each window, then resolve every ranked restaurant in one load.
	ranked := make([][]domain.RestaurantRevenue, len(windows))
	idSet := make(map[string]struct{})
	for i := range revenues {
		ranked[i] = rankRevenues(revenues[i])
		for _, rev := range ranked[i] {
			idSet[rev.RestaurantID] = struct{}{}
		}
	}

	ids := make([]string, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}
	restaurants, err := s.store.RestaurantsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve ranked restaurants: %w", err)
	}

	assemble := func(revs []domain.RestaurantRevenue) []domain.RevenueRank {
		ranks := make([]domain.RevenueRank, 0, len(revs))
		for _, rev := range revs {
			r, ok := restaurants[rev.RestaurantID]
			if !ok {
				// Orders referencing a removed restaurant: skip.
				s.logger.WarnContext(ctx, "ranked restaurant no longer exists",
					slog.String("restaurant_id", rev.RestaurantID))
				continue
			}
			ranks = append(ranks, domain.RevenueRank{Restaurant: r, Revenue: rev.Revenue})
		}
		return ranks
	}

	return &domain.TopRestaurants{
		TopLastWeekRestaurants:  assemble(ranked[0]),
		TopLastMonthRestaurants: assemble(ranked[1]),
		TopLastYearRestaurants:  assemble(ranked[2]),
	}, nil
}

// rankRevenues orders by revenue descending, ascending id on ties, capped at
// rankingLimit.
func rankRevenues(revs []domain.RestaurantRevenue) []domain.RestaurantRevenue {
	sorted := make([]domain.RestaurantRevenue, len(revs))
	copy(sorted, revs)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Revenue != sorted[j].Revenue {
			return sorted[i].Revenue > sorted[j].Revenue
		}
		return sorted[i].RestaurantID < sorted[j].RestaurantID
	})
	if len(sorted) > rankingLimit {
		sorted = sorted[:rankingLimit]
	}
	return sorted
}

// TopDeliverers returns the restaurants with the lowest mean delivery
// duration.
func (s *RankingService) TopDeliverers(ctx context.Context) ([]domain.DelivererRank, error) {
	return s.rankDeliverers(ctx, false)
}

// BottomDeliverers returns the restaurants with the highest mean delivery
// duration.
func (s *RankingService) BottomDeliverers(ctx context.Context) ([]domain.DelivererRank, error) {
	return s.rankDeliverers(ctx, true)
}

func (s *RankingService) rankDeliverers(ctx context.Context, worstFirst bool) ([]domain.DelivererRank, error) {
	samples, err := s.store.DeliveryDurations(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("delivery durations: %w", err)
	}

	type entry struct {
		restaurantID string
		avgSeconds   float64
	}
	entries := make([]entry, 0, len(samples))
	for restaurantID, ss := range samples {
		// Restaurants with no completed deliveries never appear here;
		// the adapter only emits complete samples.
		var total time.Duration
		for _, sample := range ss {
			total += sample.Duration()
		}
		entries = append(entries, entry{
			restaurantID: restaurantID,
			avgSeconds:   total.Seconds() / float64(len(ss)),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].avgSeconds != entries[j].avgSeconds {
			if worstFirst {
				return entries[i].avgSeconds > entries[j].avgSeconds
			}
			return entries[i].avgSeconds < entries[j].avgSeconds
		}
		return entries[i].restaurantID < entries[j].restaurantID
	})

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.restaurantID)
	}
	restaurants, err := s.store.RestaurantsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve ranked restaurants: %w", err)
	}

	ranks := make([]domain.DelivererRank, 0, len(entries))
	for _, e := range entries {
		r, ok := restaurants[e.restaurantID]
		if !ok {
			s.logger.WarnContext(ctx, "ranked restaurant no longer exists",
				slog.String("restaurant_id", e.restaurantID))
			continue
		}
		ranks = append(ranks, domain.DelivererRank{Restaurant: r, AvgDeliverySeconds: e.avgSeconds})
	}
	return ranks, nil
}

// TopCustomers returns up to five customers by lifetime spend, descending,
// ascending id on ties.
func (s *RankingService) TopCustomers(ctx context.Context) ([]domain.UserSpend, error) {
	customers, err := s.store.TopCustomersBySpend(ctx, rankingLimit)
	if err != nil {
		return nil, fmt.Errorf("top customers: %w", err)
	}

	// Backends already order, but the final ordering is ours to guarantee.
	sort.Slice(customers, func(i, j int) bool {
		if customers[i].TotalSpent != customers[j].TotalSpent {
			return customers[i].TotalSpent > customers[j].TotalSpent
		}
		return customers[i].ID < customers[j].ID
	})

	if customers == nil {
		customers = []domain.UserSpend{}
	}
	return customers, nil
}
