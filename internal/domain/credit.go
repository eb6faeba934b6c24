package domain

import (
	"time"
)

// CreditBalance tracks booking credits per user. Rollover credits from a
// prior period are folded into Total when the period closes, so Available
// stays a plain difference.
type CreditBalance struct {
	UserID    string    `json:"user_id"`
	Total     int       `json:"total"`
	Used      int       `json:"used"` // floored at zero on release
	Rollover  int       `json:"rollover"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *CreditBalance) Available() int {
	return c.Total - c.Used
}
