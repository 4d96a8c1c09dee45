// Package export builds downloadable workbooks for dashboard data.
package export

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"github.com/zalama/partner-dashboard/internal/domain/entity"
)

const sheetName = "Remboursements"

var headers = []string{
	"ID", "Pay ID", "Statut", "Montant", "Frais de service",
	"Date de création", "Date limite", "Date de paiement",
}

// ReimbursementWorkbook renders a partner's reimbursements as an Excel
// workbook with a totals row.
func ReimbursementWorkbook(companyName string, remboursements []*entity.Reimbursement) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to remove default sheet: %w", err)
	}

	if err := f.SetCellValue(sheetName, "A1", fmt.Sprintf("Remboursements - %s", companyName)); err != nil {
		return nil, err
	}

	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 3)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return nil, err
		}
	}

	var total decimal.Decimal
	row := 4
	for _, rb := range remboursements {
		paidAt := ""
		if rb.DatePaid != nil {
			paidAt = rb.DatePaid.Format("2006-01-02 15:04")
		}
		values := []interface{}{
			rb.ID,
			rb.PayID,
			rb.Statut,
			rb.Montant.String(),
			rb.FraisService.String(),
			rb.DateCreation.Format("2006-01-02"),
			rb.DateLimite.Format("2006-01-02"),
			paidAt,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return nil, err
			}
		}
		total = total.Add(rb.Montant)
		row++
	}

	if err := f.SetCellValue(sheetName, fmt.Sprintf("C%d", row+1), "Total"); err != nil {
		return nil, err
	}
	if err := f.SetCellValue(sheetName, fmt.Sprintf("D%d", row+1), total.String()); err != nil {
		return nil, err
	}

	return f, nil
}
