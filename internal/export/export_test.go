package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MUSSAMALIK29/task-manager/internal/models"
)

func sampleTasks() []models.Task {
	due := "2026-09-01"
	completedAt := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	return []models.Task{
		{
			ID:        1,
			Title:     "Pay rent",
			Priority:  models.PriorityHigh,
			Category:  "finance",
			DueDate:   &due,
			CreatedAt: time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC),
			Position:  1,
		},
		{
			ID:          2,
			Title:       "Walk dog",
			Description: "Around the park",
			Completed:   true,
			Priority:    models.PriorityNormal,
			CreatedAt:   time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC),
			CompletedAt: &completedAt,
			Position:    2,
		},
	}
}

func TestExport_CSV(t *testing.T) {
	exporter := NewExporter()

	data, err := exporter.Export("csv", sampleTasks())
	if err != nil {
		t.Fatalf("Failed to export: %v", err)
	}

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse CSV: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("Expected header + 2 rows, got %d records", len(records))
	}

	if records[0][0] != "id" || records[0][1] != "title" {
		t.Errorf("Expected header to start with id,title, got %v", records[0][:2])
	}

	if records[1][1] != "Pay rent" {
		t.Errorf("Expected 'Pay rent', got %s", records[1][1])
	}

	if records[2][3] != "true" {
		t.Errorf("Expected completed column 'true', got %s", records[2][3])
	}

	if records[1][6] != "2026-09-01" {
		t.Errorf("Expected due_date '2026-09-01', got %s", records[1][6])
	}

	if records[1][8] != "" {
		t.Errorf("Expected empty completed_at for pending task, got %s", records[1][8])
	}
}

func TestExport_JSON(t *testing.T) {
	exporter := NewExporter()

	data, err := exporter.Export("json", sampleTasks())
	if err != nil {
		t.Fatalf("Failed to export: %v", err)
	}

	var decoded []models.Task
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to parse JSON: %v", err)
	}

	if len(decoded) != 2 {
		t.Fatalf("Expected 2 tasks, got %d", len(decoded))
	}

	if decoded[0].Title != "Pay rent" {
		t.Errorf("Expected 'Pay rent', got %s", decoded[0].Title)
	}

	if !strings.Contains(string(data), "\n") {
		t.Error("Expected indented JSON output")
	}
}

func TestExport_PDF(t *testing.T) {
	exporter := NewExporter()

	data, err := exporter.Export("pdf", sampleTasks())
	if err != nil {
		t.Fatalf("Failed to export: %v", err)
	}

	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Error("Expected PDF magic bytes")
	}
}

func TestExport_DefaultsToCSV(t *testing.T) {
	exporter := NewExporter()

	data, err := exporter.Export("", sampleTasks())
	if err != nil {
		t.Fatalf("Failed to export: %v", err)
	}

	if !bytes.HasPrefix(data, []byte("id,title")) {
		t.Error("Expected empty format to render CSV")
	}
}

func TestExport_UnknownFormat(t *testing.T) {
	exporter := NewExporter()

	_, err := exporter.Export("xml", sampleTasks())
	if !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Expected ErrUnknownFormat, got %v", err)
	}
}

func TestExport_EmptyListing(t *testing.T) {
	exporter := NewExporter()

	data, err := exporter.Export("csv", nil)
	if err != nil {
		t.Fatalf("Failed to export: %v", err)
	}

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse CSV: %v", err)
	}

	if len(records) != 1 {
		t.Errorf("Expected header only, got %d records", len(records))
	}
}

func TestContentType(t *testing.T) {
	cases := map[string]string{
		"csv":  "text/csv",
		"json": "application/json",
		"pdf":  "application/pdf",
		"":     "text/csv",
		"JSON": "application/json",
	}

	for format, expected := range cases {
		if got := ContentType(format); got != expected {
			t.Errorf("Expected %s for %q, got %s", expected, format, got)
		}
	}
}

func TestFilename(t *testing.T) {
	name := Filename("pdf")

	if !strings.HasPrefix(name, "tasks-") || !strings.HasSuffix(name, ".pdf") {
		t.Errorf("Expected tasks-<date>.pdf, got %s", name)
	}
}
