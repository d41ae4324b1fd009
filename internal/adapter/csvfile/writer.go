package csvfile

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/iho/txreplay/internal/domain"
)

var reportHeader = []string{"client", "available", "held", "total", "locked"}

// WriteReport writes one CSV row per account after a header line.
func WriteReport(w io.Writer, accounts []*domain.Account) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(reportHeader); err != nil {
		return err
	}

	for _, acc := range accounts {
		row := []string{
			strconv.FormatUint(uint64(acc.Client), 10),
			formatAmount(acc.Available()),
			formatAmount(acc.Held()),
			formatAmount(acc.Total()),
			strconv.FormatBool(acc.Locked()),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// formatAmount renders d exactly, keeping the scale it was computed at.
func formatAmount(d decimal.Decimal) string {
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}
	return d.String()
}
