package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MUSSAMALIK29/task-manager/internal/models"

	"github.com/jung-kurt/gofpdf"
)

const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatPDF  = "pdf"
)

var ErrUnknownFormat = errors.New("unknown export format")

var csvHeader = []string{
	"id", "title", "description", "completed", "priority", "category",
	"due_date", "created_at", "completed_at", "position",
}

// Exporter renders task listings for download. An empty format means
// csv.
type Exporter struct{}

func NewExporter() *Exporter { return &Exporter{} }

func (e *Exporter) Export(format string, tasks []models.Task) ([]byte, error) {
	switch normalizeFormat(format) {
	case FormatCSV:
		return e.exportCSV(tasks)
	case FormatJSON:
		return json.MarshalIndent(tasks, "", "  ")
	case FormatPDF:
		return e.exportPDF(tasks)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// ContentType reports the MIME type Export will produce for format.
func ContentType(format string) string {
	switch normalizeFormat(format) {
	case FormatJSON:
		return "application/json"
	case FormatPDF:
		return "application/pdf"
	default:
		return "text/csv"
	}
}

// Filename builds a dated attachment name like tasks-2026-08-25.csv.
func Filename(format string) string {
	return fmt.Sprintf("tasks-%s.%s", time.Now().Format("2006-01-02"), normalizeFormat(format))
}

func normalizeFormat(format string) string {
	normalized := strings.ToLower(strings.TrimSpace(format))
	if normalized == "" {
		return FormatCSV
	}
	return normalized
}

func (e *Exporter) exportCSV(tasks []models.Task) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, task := range tasks {
		if err := w.Write(csvRow(task)); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func csvRow(task models.Task) []string {
	dueDate := ""
	if task.DueDate != nil {
		dueDate = *task.DueDate
	}
	completedAt := ""
	if task.CompletedAt != nil {
		completedAt = task.CompletedAt.Format(time.RFC3339)
	}

	return []string{
		strconv.FormatUint(uint64(task.ID), 10),
		task.Title,
		task.Description,
		strconv.FormatBool(task.Completed),
		task.Priority,
		task.Category,
		dueDate,
		task.CreatedAt.Format(time.RFC3339),
		completedAt,
		strconv.Itoa(task.Position),
	}
}

func (e *Exporter) exportPDF(tasks []models.Task) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(40, 10, "Task Export")
	pdf.Ln(12)

	headers := []string{"ID", "Title", "Priority", "Category", "Due", "Done", "Created"}
	widths := []float64{12, 55, 22, 28, 25, 16, 32}

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(220, 220, 220)
	for i, header := range headers {
		pdf.CellFormat(widths[i], 7, header, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for i, task := range tasks {
		// Zebra rows keep long listings readable.
		fill := i%2 == 1
		pdf.SetFillColor(240, 240, 240)

		dueDate := ""
		if task.DueDate != nil {
			dueDate = *task.DueDate
		}

		cells := []string{
			strconv.FormatUint(uint64(task.ID), 10),
			truncate(task.Title, 34),
			task.Priority,
			truncate(task.Category, 16),
			dueDate,
			strconv.FormatBool(task.Completed),
			task.CreatedAt.Format("2006-01-02 15:04"),
		}
		for j, cell := range cells {
			pdf.CellFormat(widths[j], 6, cell, "1", 0, "L", fill, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
