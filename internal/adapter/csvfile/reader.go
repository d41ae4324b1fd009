package csvfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iho/txreplay/internal/domain"
)

// ErrMalformedRecord is returned when the input cannot be decoded.
var ErrMalformedRecord = errors.New("malformed transaction record")

// byteOrderMark prefixes the header of many spreadsheet exports.
const byteOrderMark = "\ufeff"

// Input column names.
const (
	columnType   = "type"
	columnClient = "client"
	columnTx     = "tx"
	columnAmount = "amount"
)

// ReadAll decodes every transaction row of r.
// The first row is a header naming the columns; any undecodable row fails the
// whole input so that nothing is applied from a partially valid file.
func ReadAll(r io.Reader) ([]domain.TransactionRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrMalformedRecord, err)
	}

	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], byteOrderMark)
	}
	cols, err := parseHeader(header)
	if err != nil {
		return nil, err
	}

	var records []domain.TransactionRecord
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
		}

		line, _ := cr.FieldPos(0)
		rec, err := cols.decode(row)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMalformedRecord, line, err)
		}
		records = append(records, rec)
	}
}

type columns struct {
	typ, client, tx, amount int
}

func parseHeader(header []string) (columns, error) {
	cols := columns{typ: -1, client: -1, tx: -1, amount: -1}
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case columnType:
			cols.typ = i
		case columnClient:
			cols.client = i
		case columnTx:
			cols.tx = i
		case columnAmount:
			cols.amount = i
		}
	}

	for name, idx := range map[string]int{columnType: cols.typ, columnClient: cols.client, columnTx: cols.tx} {
		if idx < 0 {
			return cols, fmt.Errorf("%w: header is missing column %q", ErrMalformedRecord, name)
		}
	}
	return cols, nil
}

func field(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func (c columns) decode(row []string) (domain.TransactionRecord, error) {
	var rec domain.TransactionRecord

	typ, err := domain.ParseTransactionType(field(row, c.typ))
	if err != nil {
		return rec, err
	}
	rec.Type = typ

	client, err := strconv.ParseUint(field(row, c.client), 10, 16)
	if err != nil {
		return rec, fmt.Errorf("client: %w", err)
	}
	rec.Client = domain.ClientID(client)

	tx, err := strconv.ParseUint(field(row, c.tx), 10, 32)
	if err != nil {
		return rec, fmt.Errorf("tx: %w", err)
	}
	rec.TxID = domain.TxID(tx)

	raw := field(row, c.amount)
	if raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return rec, fmt.Errorf("amount: %w", err)
		}
		if typ.CarriesAmount() {
			rec.Amount = decimal.NewNullDecimal(amount)
		}
	}

	if typ.CarriesAmount() && !rec.Amount.Valid {
		return rec, fmt.Errorf("%s tx %d: %w", typ, tx, domain.ErrMissingAmount)
	}

	return rec, nil
}
