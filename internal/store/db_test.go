package store

import (
	"errors"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "cases.db"), true)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("close database: %v", err)
		}
	})
	return db
}

func newCase(t *testing.T, db *Database, publicID, query string, risk float64, level string, names ...string) *CaseAnalysis {
	t.Helper()
	c := &CaseAnalysis{PublicID: publicID, Query: query, RiskScore: risk, RiskLevel: level, CandidateCount: len(names)}
	conflicts := make([]Conflict, 0, len(names))
	for i, name := range names {
		row := Conflict{Name: name, Included: i == 0, CombinedScore: 90 - i*10}
		row.SetClasses([]string{"035"})
		row.SetMatchedWords(nil)
		conflicts = append(conflicts, row)
	}
	if err := db.CreateCase(c, conflicts); err != nil {
		t.Fatalf("create case: %v", err)
	}
	return c
}

func TestCreateAndGetCase(t *testing.T) {
	db := openTestDB(t)
	created := newCase(t, db, "case-1", "  Kwik Mart ", 70, "medium", "Quick Mart", "Orange")
	if created.ID == 0 {
		t.Fatalf("expected case id to be assigned")
	}

	got, err := db.GetCase("case-1")
	if err != nil {
		t.Fatalf("get case: %v", err)
	}
	if got.QueryNormalized != "kwik mart" || got.RiskScore != 70 || got.RiskLevel != "medium" {
		t.Fatalf("unexpected case %+v", got)
	}

	all, err := db.ListConflicts(got.ID, false)
	if err != nil {
		t.Fatalf("list conflicts: %v", err)
	}
	if len(all) != 2 || all[0].Name != "Quick Mart" || all[1].Name != "Orange" {
		t.Fatalf("unexpected conflicts %+v", all)
	}
	if all[1].Position != 1 || all[0].CaseID != got.ID {
		t.Fatalf("expected position and case id to be set: %+v", all[1])
	}
	if classes := all[0].Classes(); len(classes) != 1 || classes[0] != "035" {
		t.Fatalf("unexpected classes %v", classes)
	}

	included, err := db.ListConflicts(got.ID, true)
	if err != nil {
		t.Fatalf("list included conflicts: %v", err)
	}
	if len(included) != 1 || included[0].Name != "Quick Mart" {
		t.Fatalf("expected only the included conflict got %+v", included)
	}
}

func TestGetCaseNotFound(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.GetCase("missing"); !errors.Is(err, ErrCaseNotFound) {
		t.Fatalf("expected ErrCaseNotFound got %v", err)
	}
}

func TestReplaceCaseResults(t *testing.T) {
	db := openTestDB(t)
	newCase(t, db, "case-1", "Kwik Mart", 70, "medium", "Quick Mart", "Orange")

	stored, err := db.GetCase("case-1")
	if err != nil {
		t.Fatalf("get case: %v", err)
	}
	stored.RiskScore = 90
	stored.RiskLevel = "high"
	replacement := []Conflict{{Name: "Kwik Mart", Included: true}, {Name: "Quick Mart"}, {Name: "Orange"}}
	if err := db.ReplaceCaseResults(stored, replacement); err != nil {
		t.Fatalf("replace results: %v", err)
	}

	reloaded, err := db.GetCase("case-1")
	if err != nil {
		t.Fatalf("reload case: %v", err)
	}
	if reloaded.RiskScore != 90 || reloaded.RiskLevel != "high" {
		t.Fatalf("expected updated risk got %.2f/%s", reloaded.RiskScore, reloaded.RiskLevel)
	}
	rows, err := db.ListConflicts(reloaded.ID, false)
	if err != nil {
		t.Fatalf("list conflicts: %v", err)
	}
	expected := []string{"Kwik Mart", "Quick Mart", "Orange"}
	if len(rows) != len(expected) {
		t.Fatalf("expected %d conflicts got %d", len(expected), len(rows))
	}
	for i, name := range expected {
		if rows[i].Name != name {
			t.Fatalf("expected %s at position %d got %s", name, i, rows[i].Name)
		}
	}

	var total int64
	if err := db.GORM().Model(&Conflict{}).Count(&total).Error; err != nil {
		t.Fatalf("count conflicts: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected old conflicts to be removed, found %d rows", total)
	}

	if err := db.ReplaceCaseResults(&CaseAnalysis{Query: "unsaved"}, nil); err == nil {
		t.Fatalf("expected error for unsaved case")
	}
}

func TestListCasesFilters(t *testing.T) {
	db := openTestDB(t)
	newCase(t, db, "kwik", "Kwik Mart", 70, "medium")
	newCase(t, db, "apple", "Apple", 90, "high")
	newCase(t, db, "sky", "Blue_Sky", 10, "low")
	newCase(t, db, "juice", "100% Juice", 65, "medium")

	tests := []struct {
		name     string
		query    CaseQuery
		expected []string
		total    int64
	}{
		{"text filter", CaseQuery{Query: "KWIK"}, []string{"kwik"}, 1},
		{"risk level", CaseQuery{RiskLevel: "Medium", Sort: "risk_desc"}, []string{"kwik", "juice"}, 2},
		{"min risk", CaseQuery{MinRisk: 65, Sort: "risk_asc"}, []string{"juice", "kwik", "apple"}, 3},
		{"percent is literal", CaseQuery{Query: "%"}, []string{"juice"}, 1},
		{"underscore is literal", CaseQuery{Query: "_"}, []string{"sky"}, 1},
		{"pagination", CaseQuery{Sort: "risk_desc", Offset: 1, Limit: 2}, []string{"kwik", "juice"}, 4},
		{"query sort", CaseQuery{Sort: "query_asc"}, []string{"juice", "apple", "sky", "kwik"}, 4},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rows, total, err := db.ListCases(tc.query)
			if err != nil {
				t.Fatalf("list cases: %v", err)
			}
			if total != tc.total {
				t.Fatalf("expected total %d got %d", tc.total, total)
			}
			if len(rows) != len(tc.expected) {
				t.Fatalf("expected %d rows got %d", len(tc.expected), len(rows))
			}
			for i, id := range tc.expected {
				if rows[i].PublicID != id {
					t.Fatalf("expected %s at %d got %s", id, i, rows[i].PublicID)
				}
			}
		})
	}
}

func TestDeleteCase(t *testing.T) {
	db := openTestDB(t)
	newCase(t, db, "case-1", "Kwik Mart", 70, "medium", "Quick Mart", "Orange")
	newCase(t, db, "case-2", "Apple", 90, "high", "Apple")

	if err := db.DeleteCase("case-1"); err != nil {
		t.Fatalf("delete case: %v", err)
	}
	if _, err := db.GetCase("case-1"); !errors.Is(err, ErrCaseNotFound) {
		t.Fatalf("expected deleted case to be gone, got %v", err)
	}
	if err := db.DeleteCase("case-1"); !errors.Is(err, ErrCaseNotFound) {
		t.Fatalf("expected ErrCaseNotFound on second delete got %v", err)
	}

	count, err := db.CountCases()
	if err != nil || count != 1 {
		t.Fatalf("expected 1 remaining case got %d (%v)", count, err)
	}
	var conflicts int64
	if err := db.GORM().Model(&Conflict{}).Count(&conflicts).Error; err != nil {
		t.Fatalf("count conflicts: %v", err)
	}
	if conflicts != 1 {
		t.Fatalf("expected only the remaining case's conflict got %d", conflicts)
	}
}
