package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/campushub/smartmail/internal/domain"
	"github.com/campushub/smartmail/internal/observability"
	"github.com/campushub/smartmail/internal/repository"
)

// ProviderUsageStats is the operator-facing projection of one provider's
// usage for a day.
type ProviderUsageStats struct {
	ProviderID  string
	Date        string
	Limit       int
	Attempts    int
	Successes   int
	Failures    int
	Remaining   int
	PercentUsed float64
	Hourly      domain.HourHistogram
}

// StatsService serves the admin dashboard read projections over the
// usage store and send log.
type StatsService struct {
	specs   []ProviderSpec
	usage   repository.UsageRepository
	logs    repository.SendLogRepository
	metrics *observability.Metrics
	now     func() time.Time
}

func NewStatsService(
	specs []ProviderSpec,
	usage repository.UsageRepository,
	logs repository.SendLogRepository,
) (*StatsService, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("at least one provider spec is required")
	}
	if usage == nil {
		return nil, fmt.Errorf("usage repository is required")
	}
	if logs == nil {
		return nil, fmt.Errorf("send log repository is required")
	}

	return &StatsService{
		specs: specs,
		usage: usage,
		logs:  logs,
		now:   time.Now,
	}, nil
}

func (s *StatsService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// TodayUsage returns one stats row per configured provider, in priority
// order, with zero counters for providers that have not sent today.
func (s *StatsService) TodayUsage(ctx context.Context) ([]ProviderUsageStats, error) {
	day := domain.UsageDay(s.now())

	rows, err := s.usage.DayUsage(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("failed to read today's usage: %w", err)
	}

	byProvider := make(map[string]domain.ProviderUsage, len(rows))
	for i := range rows {
		byProvider[rows[i].ProviderID] = rows[i]
	}

	stats := make([]ProviderUsageStats, 0, len(s.specs))
	for _, spec := range s.specs {
		row := byProvider[spec.ID]

		remaining := spec.DailyLimit - row.Attempts
		if remaining < 0 {
			remaining = 0
		}

		percent := 0.0
		if spec.DailyLimit > 0 {
			percent = float64(row.Attempts) / float64(spec.DailyLimit) * 100
		}

		hourly := row.Hourly
		if hourly == nil {
			hourly = domain.HourHistogram{}
		}

		if s.metrics != nil {
			s.metrics.SetQuotaRemaining(spec.ID, remaining)
		}

		stats = append(stats, ProviderUsageStats{
			ProviderID:  spec.ID,
			Date:        day,
			Limit:       spec.DailyLimit,
			Attempts:    row.Attempts,
			Successes:   row.Successes,
			Failures:    row.Failures,
			Remaining:   remaining,
			PercentUsed: percent,
			Hourly:      hourly,
		})
	}

	return stats, nil
}

func (s *StatsService) RecentLogs(ctx context.Context, limit int) ([]domain.SendLog, error) {
	return s.logs.Recent(ctx, limit)
}
