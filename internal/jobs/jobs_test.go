package jobs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func samplePostings() *Postings {
	return &Postings{Items: []*Posting{
		{ID: "1", URL: "https://jobs.example.com/1", Title: "Go Developer", Company: "Acme", Location: "Berlin"},
		{ID: "2", URL: "https://jobs.example.com/2", Title: "Nurse", Company: "Clinic"},
		{ID: "3", URL: "https://jobs.example.com/3", Title: "SRE", Company: "Acme"},
	}}
}

func TestLoadFileDecodesLooselyTypedRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "postings.json")
	data := `[
		{"id": 42, "url": " https://jobs.example.com/42 ", "title": "Platform Engineer", "company": "Acme", "extra": true},
		{"url": "https://jobs.example.com/43", "title": "SRE", "description": "<p>Kubernetes</p>"}
	]`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	postings, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if postings.Len() != 2 {
		t.Fatalf("expected 2 postings, got %d", postings.Len())
	}

	first := postings.Items[0]
	if first.ID != "42" || first.URL != "https://jobs.example.com/42" || first.Company != "Acme" {
		t.Fatalf("unexpected first posting: %+v", first)
	}
	if second := postings.Items[1]; second.ID != second.URL {
		t.Fatalf("expected id to fall back to url, got %q", second.ID)
	}
}

func TestLoadFileRejectsPostingWithoutURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "postings.json")
	if err := os.WriteFile(path, []byte(`[{"id": "1", "title": "x"}]`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := LoadFile(path); err == nil {
		t.Fatalf("expected error for posting without url")
	}
}

func TestExcludePreservesOrder(t *testing.T) {
	postings := samplePostings()

	removed := postings.Exclude(CompanyField, []string{"Clinic", "Missing"})
	if len(removed) != 1 || removed[0] != "2" {
		t.Fatalf("unexpected removed ids: %v", removed)
	}
	if postings.Len() != 2 || postings.Items[0].ID != "1" || postings.Items[1].ID != "3" {
		t.Fatalf("unexpected remaining postings: %+v", postings.Items)
	}

	removed = postings.RemoveFunc(func(p *Posting) bool { return p.Company == "Acme" })
	if len(removed) != 2 || postings.Len() != 0 {
		t.Fatalf("expected all Acme postings removed, got %v", removed)
	}
}

func TestFindByIDAndLabel(t *testing.T) {
	postings := samplePostings()

	p := postings.FindByID("1")
	if p == nil {
		t.Fatalf("expected posting 1")
	}
	if got := p.Label(); got != "Go Developer / Acme / Berlin" {
		t.Fatalf("unexpected label %q", got)
	}
	if postings.FindByID("404") != nil {
		t.Fatalf("expected nil for unknown id")
	}
}

func TestReportByCompany(t *testing.T) {
	report := samplePostings().ReportByCompany(func(p *Posting) map[string]string {
		return map[string]string{"score": p.ID + "0"}
	})

	acme := report["Acme"]
	if len(acme) != 2 {
		t.Fatalf("expected 2 Acme entries, got %d", len(acme))
	}
	if acme[0]["title"] != "Go Developer" || acme[0]["score"] != "10" {
		t.Fatalf("unexpected entry: %v", acme[0])
	}
}

func TestDumpToTmpFile(t *testing.T) {
	name, err := samplePostings().DumpToTmpFile()
	if err != nil {
		t.Fatalf("DumpToTmpFile: %v", err)
	}
	t.Cleanup(func() { os.Remove(name) })

	data, err := os.ReadFile(name)
	if err != nil {
		t.Fatalf("read dump: %v", err)
	}

	var decoded Postings
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode dump: %v", err)
	}
	if decoded.Len() != 3 {
		t.Fatalf("expected 3 postings in dump, got %d", decoded.Len())
	}
}
