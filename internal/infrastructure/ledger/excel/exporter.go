package excel

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/handyman-docs/internal/core/domain"
)

const sheetName = "Ledger"

// Exporter renders one paid invoice as a two-column workbook the bookkeeping
// import understands. Amounts are whole kronor.
type Exporter struct{}

func NewExporter() *Exporter {
	return &Exporter{}
}

func (e *Exporter) Extension() string {
	return ".xlsx"
}

type ledgerRow struct {
	label string
	value any
}

func (e *Exporter) Export(entry domain.LedgerEntry) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	rows := []ledgerRow{
		{"Invoice", entry.InvoiceID},
		{"Business", entry.BusinessID},
		{"Customer", entry.CustomerID},
		{"Quote", entry.QuoteID},
		{"Paid at", entry.PaidAt.UTC().Format("2006-01-02")},
		{"Payment method", string(entry.PaymentMethod)},
		{"Paid amount", kronor(entry.PaidAmount)},
		{"Labor", kronor(entry.Totals.LaborTotal)},
		{"Material", kronor(entry.Totals.MaterialTotal)},
		{"Service", kronor(entry.Totals.ServiceTotal)},
		{"Discount", kronor(entry.Totals.DiscountAmount)},
		{"VAT", kronor(entry.Totals.VATAmount)},
		{"Total", kronor(entry.Totals.Total)},
		{"Deduction type", string(entry.Deduction)},
		{"Deduction", kronor(entry.Totals.DeductionAmount)},
		{"Customer pays", kronor(entry.Totals.CustomerPays)},
		{"Personal number", entry.PersonalNumber},
		{"Property designation", entry.PropertyDesignation},
	}

	if err := f.SetSheetRow(sheetName, "A1", &[]any{"Field", "Value"}); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetSheetRow(sheetName, cell, &[]any{row.label, row.value}); err != nil {
			return nil, fmt.Errorf("write %s: %w", row.label, err)
		}
	}
	if err := f.SetColWidth(sheetName, "A", "A", 24); err != nil {
		return nil, fmt.Errorf("set column width: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// kronor expects an already rounded amount.
func kronor(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}
