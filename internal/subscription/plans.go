package subscription

import (
	"errors"

	"github.com/shopspring/decimal"
)

var ErrUnknownTier = errors.New("unknown subscription tier")

type Plan struct {
	Tier         string          `json:"tier"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	MonthlyPrice decimal.Decimal `json:"monthly_price"`
	WeeklyQuota  *int            `json:"weekly_quota"`
}

func quota(n int) *int { return &n }

func Plans() []Plan {
	return []Plan{
		{
			Tier:         "starter",
			Name:         "Starter",
			Description:  "One session per week",
			MonthlyPrice: decimal.RequireFromString("99.00"),
			WeeklyQuota:  quota(1),
		},
		{
			Tier:         "regular",
			Name:         "Regular",
			Description:  "Three sessions per week",
			MonthlyPrice: decimal.RequireFromString("249.00"),
			WeeklyQuota:  quota(3),
		},
		{
			Tier:         "unlimited",
			Name:         "Unlimited",
			Description:  "No weekly session limit",
			MonthlyPrice: decimal.RequireFromString("399.00"),
			WeeklyQuota:  nil,
		},
	}
}

func FindPlan(tier string) (Plan, error) {
	for _, p := range Plans() {
		if p.Tier == tier {
			return p, nil
		}
	}
	return Plan{}, ErrUnknownTier
}
