// Package testutil provides a shared fixture document and artifact helpers
// for tests across the module.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hagall/raido/internal/document"
)

// FixtureCode returns a small but fully populated building code: two
// divisions, nested parts and sections, one subsection level, articles with
// clauses and reference tags, a table, a figure, amendments on several
// levels, and glossary entries. Tests that need specific shapes build their
// own documents; this one exercises every content type at once.
func FixtureCode() *document.Code {
	return &document.Code{
		Title:   "Model Construction Code",
		Version: "2024",
		Divisions: []document.Division{
			{
				Number: "A",
				Title:  "Compliance",
				Parts: []document.Part{
					{
						Number: "1",
						Title:  "Compliance and General",
						Sections: []document.Section{
							{
								Number: "1.1",
								Title:  "Application",
								Subsections: []document.Subsection{
									{
										Number: "1.1.1",
										Title:  "Scope",
										Articles: []document.Article{
											{
												Number: "1.1.1.1",
												Title:  "Application of this Code",
												Text:   "This Code applies to [REF:term:bldng]buildings[/REF].",
												Clauses: []document.Clause{
													{
														Label: "1",
														Text:  "See [REF:internal:div-b]Division B[/REF] for requirements.",
														Subclauses: []document.Clause{
															{Label: "a", Text: "Fire protection measures apply."},
														},
													},
												},
											},
											{
												Number: "1.1.1.2",
												Title:  "Fixtures and Fittings",
												Text:   "Fixtures shall be installed as specified.",
												Amendment: &document.Amendment{
													EffectiveDate: "2024-03-01",
													DisplayDate:   "March 1, 2024",
													Type:          "revision",
												},
											},
										},
									},
								},
							},
						},
					},
				},
			},
			{
				Number: "B",
				Title:  "Acceptable Solutions",
				Parts: []document.Part{
					{
						Number: "3",
						Title:  "Fire Protection",
						Sections: []document.Section{
							{
								Number: "3.1",
								Title:  "Fire Safety",
								Articles: []document.Article{
									{
										Number: "3.1.1.1",
										Title:  "Firewalls",
										Text:   "Firewalls shall have a fire-resistance rating.",
										Tables: []document.Table{
											{
												Number: "3.1.1.1-A",
												Title:  "Fire-Resistance Ratings",
												Header: []string{"Assembly", "Rating"},
												Rows:   [][]string{{"Firewall", "2 h"}, {"Floor", "45 min"}},
												Amendment: &document.Amendment{
													EffectiveDate: "2024-06-15",
													DisplayDate:   "June 15, 2024",
													Type:          "errata",
												},
											},
										},
										Figures: []document.Figure{
											{Number: "3.1.1.1-B", Title: "Fire Separation Diagram", Caption: "Typical fire separation between suites."},
										},
									},
									{
										Number: "3.1.1.2",
										Title:  "Fire Dampers",
										Text:   "Fire dampers shall conform to [REF:standard:ulc-s112]ULC-S112[/REF].",
									},
								},
							},
						},
					},
				},
			},
		},
		Glossary: []document.GlossaryEntry{
			{ID: "bldng", Term: "Building", Definition: "Any structure used or intended for supporting any use or occupancy."},
			{ID: "firewall", Term: "Firewall", Definition: "A fire separation of noncombustible construction. See [REF:term:bldng]building[/REF]."},
		},
	}
}

// WriteFile writes data to dir/name and fails the test on error.
func WriteFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}
