package taskform

import (
	"testing"

	"github.com/nhle/company-tasks/internal/model"
)

func TestStartPreselectsCompany(t *testing.T) {
	companies := []model.Company{{ID: "x", Name: "Acme"}, {ID: "y", Name: "Beta"}}

	m := New(80, 24)
	m.Start(companies, "")
	if m.fb.companyID != "x" {
		t.Fatalf("expected first company preselected, got %q", m.fb.companyID)
	}
	m.Start(companies, "y")
	if m.fb.companyID != "y" {
		t.Fatalf("expected sidebar company preselected, got %q", m.fb.companyID)
	}
	if !m.Active() {
		t.Fatalf("expected an active form after Start")
	}
}

func TestDraft(t *testing.T) {
	m := New(80, 24)
	m.Start([]model.Company{{ID: "x", Name: "Acme"}}, "")
	m.fb.title = "  Fix login  "
	m.fb.description = " details "
	m.fb.priority = model.PriorityHigh
	m.fb.dueDate = "2024-06-01"

	task := m.draft()
	if task.Title != "Fix login" || task.Description != "details" {
		t.Fatalf("expected trimmed text, got %+v", task)
	}
	if task.Priority != model.PriorityHigh || task.Status != model.StatusOpen {
		t.Fatalf("unexpected priority/status %s/%s", task.Priority, task.Status)
	}
	if task.CompanyID != "x" {
		t.Fatalf("expected company x, got %q", task.CompanyID)
	}
	if task.DueDate == nil || task.DueDate.Format(dateLayout) != "2024-06-01" {
		t.Fatalf("unexpected due date %v", task.DueDate)
	}
}

func TestDraftWithoutCompanyPicker(t *testing.T) {
	m := New(80, 24)
	m.Start(nil, "ignored")
	m.fb.title = "Company user task"

	if got := m.draft().CompanyID; got != "" {
		t.Fatalf("expected no company without a picker, got %q", got)
	}
}

func TestValidators(t *testing.T) {
	if err := validateRequired("Title")("   "); err == nil {
		t.Errorf("expected blank title rejected")
	}
	if err := validateOptionalDate(""); err != nil {
		t.Errorf("expected empty date accepted: %v", err)
	}
	if err := validateOptionalDate("06/01/2024"); err == nil {
		t.Errorf("expected malformed date rejected")
	}
}
