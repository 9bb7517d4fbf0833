package handlers

import (
	"testing"
	"time"

	"visittrack/internal/models"
)

func TestExportSalesNameDisplayNameFirst(t *testing.T) {
	user := &models.User{DisplayName: "Somchai J.", FirstName: "Somchai", LastName: "Jaidee"}
	if got := exportSalesName(user, "manual"); got != "Somchai J." {
		t.Fatalf("expected display name, got %q", got)
	}
}

func TestExportSalesNameFallsBackToFullName(t *testing.T) {
	user := &models.User{FirstName: "Somchai", LastName: "Jaidee"}
	if got := exportSalesName(user, ""); got != "Somchai Jaidee" {
		t.Fatalf("expected full name, got %q", got)
	}
}

func TestExportSalesNameManualWhenNoUser(t *testing.T) {
	if got := exportSalesName(nil, "Freelance Rep"); got != "Freelance Rep" {
		t.Fatalf("expected manual name, got %q", got)
	}
}

func TestExportSalesNamePlaceholder(t *testing.T) {
	if got := exportSalesName(nil, ""); got != "-" {
		t.Fatalf("expected dash placeholder, got %q", got)
	}
	if got := exportSalesName(&models.User{}, ""); got != "-" {
		t.Fatalf("expected dash for empty user, got %q", got)
	}
}

func TestBuildExportRow(t *testing.T) {
	visit := models.VisitRecord{
		VisitAt: time.Date(2025, 3, 15, 9, 30, 0, 0, time.UTC),
		JobType: "Project",
		Status:  models.VisitStatusCompleted,
		Purpose: models.VisitPurposes[0],
		Details: "site walk-through",
	}
	customer := &models.Customer{Name: "Acme Water", Province: "ชลบุรี"}
	user := &models.User{DisplayName: "Somchai J."}

	row := buildExportRow(visit, customer, user)
	if row.VisitDate != "2025-03-15 09:30" {
		t.Fatalf("unexpected date %q", row.VisitDate)
	}
	if row.CustomerName != "Acme Water" || row.Province != "ชลบุรี" {
		t.Fatalf("unexpected customer fields %q/%q", row.CustomerName, row.Province)
	}
	if row.SalesName != "Somchai J." || row.Status != models.VisitStatusCompleted {
		t.Fatalf("unexpected sales/status %q/%q", row.SalesName, row.Status)
	}
}

func TestBuildExportRowMissingCustomer(t *testing.T) {
	visit := models.VisitRecord{VisitAt: time.Now(), SalesNameManual: "Rep"}
	row := buildExportRow(visit, nil, nil)
	if row.CustomerName != "" || row.Province != "" {
		t.Fatalf("expected empty customer columns, got %q/%q", row.CustomerName, row.Province)
	}
	if row.SalesName != "Rep" {
		t.Fatalf("expected manual sales name, got %q", row.SalesName)
	}
}

func TestExportRowCellOrderMatchesHeaders(t *testing.T) {
	row := visitExportRow{
		VisitDate:    "2025-01-01",
		CustomerName: "c",
		Province:     "p",
		JobType:      "j",
		SalesName:    "s",
		Status:       "completed",
		Purpose:      "pu",
		Details:      "d",
	}
	cells := row.cells()
	if len(cells) != len(exportHeaders) {
		t.Fatalf("cell count %d != header count %d", len(cells), len(exportHeaders))
	}
	if cells[0] != "2025-01-01" || cells[1] != "c" || cells[4] != "s" || cells[7] != "d" {
		t.Fatalf("unexpected cell order: %v", cells)
	}
}
