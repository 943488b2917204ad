package document

import (
	"strings"
	"testing"
)

func validCode() *Code {
	return &Code{
		Title:   "Model Construction Code",
		Version: "2024",
		Divisions: []Division{
			{
				Number: "A",
				Title:  "Compliance",
				Parts: []Part{
					{
						Number: "1",
						Title:  "General",
						Sections: []Section{
							{
								Number: "1.1",
								Title:  "Application",
								Subsections: []Subsection{
									{
										Number: "1.1.1",
										Title:  "Scope",
										Articles: []Article{
											{Number: "1.1.1.1", Title: "Application", Text: "Applies to buildings."},
										},
									},
								},
								Articles: []Article{
									{Number: "1.1.0.1", Title: "Section-level article"},
								},
							},
						},
					},
				},
			},
		},
		Glossary: []GlossaryEntry{
			{ID: "bldng", Term: "Building", Definition: "Any structure."},
		},
	}
}

func TestValidate_AcceptsWellFormedDocument(t *testing.T) {
	if err := validCode().Validate(); err != nil {
		t.Fatalf("valid document rejected: %v", err)
	}
}

func TestValidate_NamesOffendingNode(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Code)
		wantSub string
	}{
		{
			name:    "division missing number",
			mutate:  func(c *Code) { c.Divisions[0].Number = "" },
			wantSub: `division[0] "Compliance": missing number`,
		},
		{
			name:    "part missing number",
			mutate:  func(c *Code) { c.Divisions[0].Parts[0].Number = "" },
			wantSub: `division A > part[0] "General": missing number`,
		},
		{
			name:    "section missing number",
			mutate:  func(c *Code) { c.Divisions[0].Parts[0].Sections[0].Number = "" },
			wantSub: `division A > part 1 > section[0] "Application": missing number`,
		},
		{
			name:    "subsection missing number",
			mutate:  func(c *Code) { c.Divisions[0].Parts[0].Sections[0].Subsections[0].Number = "" },
			wantSub: `subsection "Scope": missing number`,
		},
		{
			name: "subsection article missing number",
			mutate: func(c *Code) {
				c.Divisions[0].Parts[0].Sections[0].Subsections[0].Articles[0].Number = ""
			},
			wantSub: `subsection 1.1.1 > article[0] "Application": missing number`,
		},
		{
			name: "section-level article missing number",
			mutate: func(c *Code) {
				c.Divisions[0].Parts[0].Sections[0].Articles[0].Number = ""
			},
			wantSub: `section[0] > article[0]`,
		},
		{
			name:    "glossary entry missing id",
			mutate:  func(c *Code) { c.Glossary[0].ID = "" },
			wantSub: "glossary[0]: missing id or term",
		},
		{
			name:    "glossary entry missing term",
			mutate:  func(c *Code) { c.Glossary[0].Term = "" },
			wantSub: "glossary[0]: missing id or term",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := validCode()
			tt.mutate(code)
			err := code.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantSub)
			}
		})
	}
}

func TestValidate_EmptyDocument(t *testing.T) {
	if err := (&Code{Title: "Empty"}).Validate(); err != nil {
		t.Fatalf("document with no divisions should validate: %v", err)
	}
}
