package credit

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrUnknownPack = errors.New("unknown credit pack")

type Pack struct {
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Sessions  int             `json:"sessions"`
	Price     decimal.Decimal `json:"price"`
	ValidDays int             `json:"valid_days"`
}

func (p Pack) ExpiresAt(from time.Time) *time.Time {
	t := from.AddDate(0, 0, p.ValidDays)
	return &t
}

func Packs() []Pack {
	return []Pack{
		{Code: "single", Name: "Single session", Sessions: 1, Price: decimal.RequireFromString("95.00"), ValidDays: 90},
		{Code: "five", Name: "5-session pack", Sessions: 5, Price: decimal.RequireFromString("425.00"), ValidDays: 180},
		{Code: "ten", Name: "10-session pack", Sessions: 10, Price: decimal.RequireFromString("800.00"), ValidDays: 365},
	}
}

func FindPack(code string) (Pack, error) {
	for _, p := range Packs() {
		if p.Code == code {
			return p, nil
		}
	}
	return Pack{}, ErrUnknownPack
}
