package usecase

import "time"

const (
	// DefaultTransactionTimeout bounds every store transaction so a stuck
	// lock cannot block tables indefinitely.
	DefaultTransactionTimeout = 10 * time.Second

	// DuplicateWindow is how far back the near-duplicate probe looks.
	DuplicateWindow = 5 * time.Minute

	// DailyLimitWindow is the rolling window for branch amount ceilings.
	DailyLimitWindow = 24 * time.Hour
)
