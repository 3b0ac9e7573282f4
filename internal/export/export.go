// Package export writes the catalog and the order ledger as CSV or XLSX.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/tealeg/xlsx"

	"github.com/alextreichler/luxora/internal/models"
)

type Format string

const (
	CSV  Format = "csv"
	XLSX Format = "xlsx"
)

// ParseFormat accepts "csv" (also the default for an empty value) and "xlsx".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return CSV, nil
	case "xlsx", "excel":
		return XLSX, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

func (f Format) ContentType() string {
	if f == XLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Filename returns a download name such as "orders-20240131.csv".
func (f Format) Filename(base string, at time.Time) string {
	return fmt.Sprintf("%s-%s.%s", base, at.Format("20060102"), f)
}

var (
	ProductHeader = []string{"ID", "Name", "Price", "Description", "Category", "Image"}
	OrderHeader   = []string{"ID", "Ref", "Product", "Quantity", "First name", "Last name", "State", "Phone",
		"Email", "Address", "Notes", "Total", "Status", "Created at"}
)

func ProductRows(products []models.Product) [][]string {
	rows := make([][]string, 0, len(products))
	for _, p := range products {
		rows = append(rows, []string{
			strconv.FormatInt(p.ID, 10),
			p.Name,
			p.Price.StringFixed(2),
			p.Description,
			p.CategoryName,
			p.Image,
		})
	}
	return rows
}

func OrderRows(orders []models.Order) [][]string {
	rows := make([][]string, 0, len(orders))
	for _, o := range orders {
		rows = append(rows, []string{
			strconv.FormatInt(o.ID, 10),
			o.Ref,
			o.ProductName,
			strconv.Itoa(o.Quantity),
			o.FirstName,
			o.LastName,
			o.State,
			o.Phone,
			o.Email,
			o.Address,
			o.Notes,
			o.TotalPrice.StringFixed(2),
			o.Status,
			o.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		})
	}
	return rows
}

func WriteProducts(w io.Writer, f Format, products []models.Product) error {
	return Write(w, f, "Products", ProductHeader, ProductRows(products))
}

func WriteOrders(w io.Writer, f Format, orders []models.Order) error {
	return Write(w, f, "Orders", OrderHeader, OrderRows(orders))
}

// Write emits header followed by rows. sheet names the XLSX worksheet.
func Write(w io.Writer, f Format, sheet string, header []string, rows [][]string) error {
	switch f {
	case CSV:
		return writeCSV(w, header, rows)
	case XLSX:
		return writeXLSX(w, sheet, header, rows)
	default:
		return fmt.Errorf("unsupported export format %q", f)
	}
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv rows: %w", err)
	}
	return nil
}

func writeXLSX(w io.Writer, sheetName string, header []string, rows [][]string) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet(sheetName)
	if err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}

	headerRow := sheet.AddRow()
	for _, h := range header {
		headerRow.AddCell().SetString(h)
	}
	for _, r := range rows {
		row := sheet.AddRow()
		for _, v := range r {
			row.AddCell().SetString(v)
		}
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}
