package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Human-readable number prefixes.
const (
	TransactionNumberPrefix   = "TRX"
	VaultTransferNumberPrefix = "VTR"
)

// FormatNumber builds a date-scoped sequence number, e.g. TRX-20250109-00001.
func FormatNumber(prefix string, date time.Time, seq int) string {
	return fmt.Sprintf("%s-%s-%05d", prefix, date.UTC().Format("20060102"), seq)
}

// NumberDatePrefix returns the scan prefix for all numbers under one date,
// e.g. "TRX-20250109-".
func NumberDatePrefix(prefix string, date time.Time) string {
	return fmt.Sprintf("%s-%s-", prefix, date.UTC().Format("20060102"))
}

// SequenceFromNumber extracts the trailing sequence from a formatted number.
func SequenceFromNumber(number string) (int, error) {
	idx := strings.LastIndex(number, "-")
	if idx < 0 || idx == len(number)-1 {
		return 0, fmt.Errorf("malformed number %q", number)
	}
	return strconv.Atoi(number[idx+1:])
}
