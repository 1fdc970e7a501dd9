package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// HourHistogram maps hour-of-day (0-23) to attempt count. Stored as JSONB.
type HourHistogram map[int]int

func (h HourHistogram) Value() (driver.Value, error) {
	if h == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(h)
}

func (h *HourHistogram) Scan(value any) error {
	if value == nil {
		*h = HourHistogram{}
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported hour histogram source type %T", value)
	}

	if len(raw) == 0 {
		*h = HourHistogram{}
		return nil
	}
	return json.Unmarshal(raw, h)
}

// ProviderUsage is the per-(provider, calendar day) usage counter row.
// At most one row exists per pair; counters only ever grow.
type ProviderUsage struct {
	ProviderID string        `gorm:"type:varchar(64);primaryKey"`
	UsageDate  string        `gorm:"type:date;primaryKey"`
	Attempts   int           `gorm:"not null;default:0"`
	Successes  int           `gorm:"not null;default:0"`
	Failures   int           `gorm:"not null;default:0"`
	Hourly     HourHistogram `gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// UsageDay formats t as the UTC calendar day used as the quota window key.
func UsageDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
