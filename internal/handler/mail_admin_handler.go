package handler

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/campushub/smartmail/internal/domain"
	"github.com/campushub/smartmail/internal/mailer"
	"github.com/gofiber/fiber/v2"
)

const (
	defaultLogLimit = 50
	maxLogLimit     = 500
)

// MailStatsService is the read-side the admin dashboard consumes.
type MailStatsService interface {
	TodayUsage(ctx context.Context) ([]mailer.ProviderUsageStats, error)
	RecentLogs(ctx context.Context, limit int) ([]domain.SendLog, error)
}

type MailAdminHandler struct {
	stats MailStatsService
}

func NewMailAdminHandler(stats MailStatsService) (*MailAdminHandler, error) {
	if stats == nil {
		return nil, fmt.Errorf("mail stats service is required")
	}
	return &MailAdminHandler{stats: stats}, nil
}

func RegisterMailAdminRoutes(router fiber.Router, stats MailStatsService) error {
	h, err := NewMailAdminHandler(stats)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Get("/mail/usage", h.GetTodayUsage)
	v1.Get("/mail/logs", h.GetRecentLogs)

	return nil
}

type providerUsageResponse struct {
	Provider    string      `json:"provider"`
	Date        string      `json:"date"`
	Limit       int         `json:"limit"`
	Attempts    int         `json:"attempts"`
	Successes   int         `json:"successes"`
	Failures    int         `json:"failures"`
	Remaining   int         `json:"remaining"`
	PercentUsed float64     `json:"percentUsed"`
	Hourly      map[int]int `json:"hourly"`
}

type sendLogResponse struct {
	ID          string    `json:"id"`
	Provider    *string   `json:"provider"`
	Recipient   string    `json:"recipient"`
	MessageType string    `json:"messageType"`
	Status      string    `json:"status"`
	Error       *string   `json:"error,omitempty"`
	Origin      string    `json:"origin"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (h *MailAdminHandler) GetTodayUsage(c *fiber.Ctx) error {
	stats, err := h.stats.TodayUsage(c.Context())
	if err != nil {
		return err
	}

	response := make([]providerUsageResponse, 0, len(stats))
	for _, s := range stats {
		response = append(response, providerUsageResponse{
			Provider:    s.ProviderID,
			Date:        s.Date,
			Limit:       s.Limit,
			Attempts:    s.Attempts,
			Successes:   s.Successes,
			Failures:    s.Failures,
			Remaining:   s.Remaining,
			PercentUsed: s.PercentUsed,
			Hourly:      s.Hourly,
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"providers": response,
	})
}

func (h *MailAdminHandler) GetRecentLogs(c *fiber.Ctx) error {
	limit := defaultLogLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return fiber.NewError(fiber.StatusBadRequest, "limit must be a positive integer")
		}
		limit = parsed
	}
	if limit > maxLogLimit {
		limit = maxLogLimit
	}

	logs, err := h.stats.RecentLogs(c.Context(), limit)
	if err != nil {
		return err
	}

	response := make([]sendLogResponse, 0, len(logs))
	for i := range logs {
		l := logs[i]
		response = append(response, sendLogResponse{
			ID:          l.ID,
			Provider:    l.ProviderID,
			Recipient:   l.Recipient,
			MessageType: l.MessageType.String(),
			Status:      l.Status.String(),
			Error:       l.Error,
			Origin:      l.Origin,
			CreatedAt:   l.CreatedAt,
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"logs": response,
	})
}
