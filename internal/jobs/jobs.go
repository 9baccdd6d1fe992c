// Package jobs holds the job postings handed over by the browser driver.
package jobs

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
)

const (
	IDField      = "ID"
	URLField     = "URL"
	TitleField   = "Title"
	CompanyField = "Company"
)

type Postings struct {
	Items []*Posting `json:"items"`
}

type Posting struct {
	ID          string `json:"id" mapstructure:"id"`
	URL         string `json:"url" mapstructure:"url"`
	Title       string `json:"title" mapstructure:"title"`
	Company     string `json:"company,omitempty" mapstructure:"company"`
	Location    string `json:"location,omitempty" mapstructure:"location"`
	Description string `json:"description,omitempty" mapstructure:"description"`
}

// LoadFile reads a JSON array of postings. Field types are decoded loosely so
// numeric identifiers are accepted. A posting without an id uses its URL.
func LoadFile(path string) (*Postings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read postings: %w", err)
	}

	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode postings %s: %w", path, err)
	}

	return Decode(raw)
}

// Decode converts loosely typed records into postings.
func Decode(raw []map[string]any) (*Postings, error) {
	postings := &Postings{Items: make([]*Posting, 0, len(raw))}

	for i, record := range raw {
		var p Posting
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &p,
		})
		if err != nil {
			return nil, err
		}
		if err := decoder.Decode(record); err != nil {
			return nil, fmt.Errorf("posting %d: %w", i, err)
		}

		p.URL = strings.TrimSpace(p.URL)
		if p.URL == "" {
			return nil, fmt.Errorf("posting %d: url is required", i)
		}
		if p.ID = strings.TrimSpace(p.ID); p.ID == "" {
			p.ID = p.URL
		}

		postings.Items = append(postings.Items, &p)
	}

	return postings, nil
}

func (p *Posting) GetStringField(name string) string {
	switch name {
	case IDField:
		return p.ID
	case URLField:
		return p.URL
	case TitleField:
		return p.Title
	case CompanyField:
		return p.Company
	default:
		return ""
	}
}

// Label is a one line summary used in prompts and logs.
func (p *Posting) Label() string {
	parts := []string{p.Title}
	if p.Company != "" {
		parts = append(parts, p.Company)
	}
	if p.Location != "" {
		parts = append(parts, p.Location)
	}
	return strings.Join(parts, " / ")
}

func (v *Postings) Len() int {
	return len(v.Items)
}

func (v *Postings) FindByID(id string) *Posting {
	for _, p := range v.Items {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Exclude removes postings whose field equals one of targets and returns the
// removed ids. Order of the remaining postings is preserved.
func (v *Postings) Exclude(name string, targets []string) []string {
	set := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		set[t] = struct{}{}
	}

	return v.RemoveFunc(func(p *Posting) bool {
		_, ok := set[p.GetStringField(name)]
		return ok
	})
}

// RemoveFunc removes postings for which drop returns true and returns their ids.
func (v *Postings) RemoveFunc(drop func(*Posting) bool) []string {
	var removed []string
	kept := v.Items[:0]
	for _, p := range v.Items {
		if drop(p) {
			removed = append(removed, p.ID)
			continue
		}
		kept = append(kept, p)
	}
	clear(v.Items[len(kept):])
	v.Items = kept
	return removed
}

func (v *Postings) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "postings_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return file.Name(), nil
}

// ReportByCompany groups postings by company. extra, when not nil, adds
// per-posting fields such as screening scores.
func (v *Postings) ReportByCompany(extra func(*Posting) map[string]string) map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, p := range v.Items {
		key := p.Company
		if key == "" {
			key = "(unknown company)"
		}

		entry := map[string]string{
			"title":    p.Title,
			"url":      p.URL,
			"location": p.Location,
		}
		if extra != nil {
			for k, val := range extra(p) {
				entry[k] = val
			}
		}
		report[key] = append(report[key], entry)
	}
	return report
}
