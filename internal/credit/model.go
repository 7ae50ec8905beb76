package credit

import "time"

// Credit is one prepaid grant of sessions. Grants are consumed oldest first.
type Credit struct {
	ID            int        `db:"id" json:"id"`
	CustomerID    int        `db:"customer_id" json:"customer_id"`
	TotalSessions int        `db:"total_sessions" json:"total_sessions"`
	UsedSessions  int        `db:"used_sessions" json:"used_sessions"`
	ExpiresAt     *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	ExternalRef   *string    `db:"external_ref" json:"-"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

func (c Credit) Remaining() int {
	return max(0, c.TotalSessions-c.UsedSessions)
}

func (c Credit) Expired(at time.Time) bool {
	return c.ExpiresAt != nil && !c.ExpiresAt.After(at)
}

type Balance struct {
	Available int      `json:"available"`
	Grants    []Credit `json:"grants"`
}

// NewBalance sums the remaining sessions of every unexpired grant.
func NewBalance(grants []Credit, at time.Time) Balance {
	b := Balance{Grants: grants}
	for _, g := range grants {
		if !g.Expired(at) {
			b.Available += g.Remaining()
		}
	}
	return b
}

type Grant struct {
	CustomerID  int
	Sessions    int
	ExpiresAt   *time.Time
	ExternalRef *string
}

type GrantRequest struct {
	CustomerID int        `json:"customer_id" binding:"required,min=1"`
	Sessions   int        `json:"sessions" binding:"required,min=1,max=100"`
	ExpiresAt  *time.Time `json:"expires_at"`
}
