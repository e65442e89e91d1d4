package mirror

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/xuri/excelize/v2"
)

const (
	VendorsSheet  = "Vendors"
	AccountsSheet = "Accounts"

	defaultSheet = "Sheet1"
	dateLayout   = "2006-01-02"
)

var (
	vendorHeader  = []interface{}{"Vendor Name", "Payment Type", "Account", "Next Payment Date"}
	accountHeader = []interface{}{"Account Name", "Balance"}
)

// Workbook writes snapshots into an .xlsx file, one table per sheet.
type Workbook struct {
	mu   sync.Mutex
	path string
}

// NewWorkbook returns a writer for the workbook at path. The file is created
// on first write.
func NewWorkbook(path string) *Workbook {
	return &Workbook{path: path}
}

// Path is the workbook location.
func (w *Workbook) Path() string { return w.path }

// Write replaces the data rows of both sheets with snap.
func (w *Workbook) Write(ctx context.Context, snap Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	f, created, err := w.open()
	if err != nil {
		return err
	}
	defer f.Close()

	vendorRows := make([][]interface{}, 0, len(snap.Vendors))
	for _, v := range snap.Vendors {
		next := "N/A"
		if v.NextPaymentDate != nil {
			next = v.NextPaymentDate.Format(dateLayout)
		}
		vendorRows = append(vendorRows, []interface{}{v.Name, string(v.PaymentType), string(v.Account), next})
	}
	accountRows := make([][]interface{}, 0, len(snap.Accounts))
	for _, a := range snap.Accounts {
		accountRows = append(accountRows, []interface{}{string(a.Name), a.Balance.InexactFloat64()})
	}

	if err := writeTable(f, VendorsSheet, vendorHeader, vendorRows); err != nil {
		return err
	}
	if err := writeTable(f, AccountsSheet, accountHeader, accountRows); err != nil {
		return err
	}

	if created {
		if err := f.DeleteSheet(defaultSheet); err != nil {
			return fmt.Errorf("drop default sheet: %w", err)
		}
	}
	if idx, err := f.GetSheetIndex(VendorsSheet); err == nil && idx >= 0 {
		f.SetActiveSheet(idx)
	}

	if err := f.SaveAs(w.path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func (w *Workbook) open() (*excelize.File, bool, error) {
	f, err := excelize.OpenFile(w.path)
	if err == nil {
		return f, false, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return excelize.NewFile(), true, nil
	}
	return nil, false, fmt.Errorf("open workbook: %w", err)
}

// writeTable upserts a bold header row and the data rows, then removes any
// stale rows left from a longer previous table.
func writeTable(f *excelize.File, sheet string, header []interface{}, rows [][]interface{}) error {
	idx, err := f.GetSheetIndex(sheet)
	if err != nil {
		return err
	}
	if idx < 0 {
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("create sheet %s: %w", sheet, err)
		}
	}

	existing, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("read sheet %s: %w", sheet, err)
	}

	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return err
		}
	}
	for r := len(existing); r > len(rows)+1; r-- {
		if err := f.RemoveRow(sheet, r); err != nil {
			return err
		}
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return err
	}
	colName, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", colName, 20)
}
