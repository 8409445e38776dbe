package calculator

import (
	"fmt"

	"github.com/mmynk/roommates/internal/models"
	"github.com/mmynk/roommates/internal/money"
)

// SplitEvenly divides total across n shares in whole cents.
// Based on the algorithm: base = floor(total / n), remainder = total - base*n,
// and the first remainder shares receive base + 1.
//
// The result depends only on total and n, so a split can always be
// recomputed later and reversed exactly. The shares always sum to total.
func SplitEvenly(total money.Cents, n int) ([]money.Cents, error) {
	if n <= 0 {
		return nil, fmt.Errorf("must have at least one share")
	}
	if total < 0 {
		return nil, fmt.Errorf("total cannot be negative")
	}

	base := total / money.Cents(n)
	remainder := int(total - base*money.Cents(n))

	shares := make([]money.Cents, n)
	for i := range shares {
		shares[i] = base
		if i < remainder {
			shares[i]++
		}
	}
	return shares, nil
}

// SplitAmong maps SplitEvenly onto an ordered list of owers. Duplicate owers
// are counted once per occurrence, so the returned slice is positional.
func SplitAmong(total money.Cents, owers []string) ([]models.Share, error) {
	if len(owers) == 0 {
		return nil, fmt.Errorf("must have at least one ower")
	}
	amounts, err := SplitEvenly(total, len(owers))
	if err != nil {
		return nil, err
	}

	shares := make([]models.Share, len(owers))
	for i, ower := range owers {
		shares[i] = models.Share{Member: ower, Amount: amounts[i]}
	}
	return shares, nil
}

