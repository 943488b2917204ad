// Package document defines the hierarchical building-code model supplied by
// the upstream parsing collaborator. The tree is read-only input: Division →
// Part → Section → Subsection → Article → Clause, with tables, figures, and
// notes attached at the article or clause level, plus a flat glossary and the
// list of amendment dates.
//
// Numbering fields are strings that preserve the source formatting (for
// example "3.2.1") and are never reparsed as numbers.
package document

import "fmt"

// Code is the root of the hierarchical document.
type Code struct {
	Title     string          `json:"title"`
	Version   string          `json:"version"`
	Divisions []Division      `json:"divisions"`
	Glossary  []GlossaryEntry `json:"glossary,omitempty"`
}

// Division is the coarsest level of the hierarchy.
type Division struct {
	ID     string `json:"id"`
	Number string `json:"number"`
	Title  string `json:"title"`
	Parts  []Part `json:"parts"`
}

// Part groups sections within a division.
type Part struct {
	ID       string    `json:"id"`
	Number   string    `json:"number"`
	Title    string    `json:"title"`
	Sections []Section `json:"sections"`
}

// Section groups subsections. Articles may also hang directly off a section
// when the source document skips the subsection level.
type Section struct {
	ID          string       `json:"id"`
	Number      string       `json:"number"`
	Title       string       `json:"title"`
	Subsections []Subsection `json:"subsections,omitempty"`
	Articles    []Article    `json:"articles,omitempty"`
}

// Subsection groups articles.
type Subsection struct {
	ID       string    `json:"id"`
	Number   string    `json:"number"`
	Title    string    `json:"title"`
	Articles []Article `json:"articles"`
}

// Article is the primary content-bearing unit.
type Article struct {
	ID        string     `json:"id"`
	Number    string     `json:"number"`
	Title     string     `json:"title"`
	Text      string     `json:"text,omitempty"`
	Clauses   []Clause   `json:"clauses,omitempty"`
	Tables    []Table    `json:"tables,omitempty"`
	Figures   []Figure   `json:"figures,omitempty"`
	Notes     []Note     `json:"notes,omitempty"`
	Amendment *Amendment `json:"amendment,omitempty"`
}

// Clause is a recursively nested text unit under an article.
type Clause struct {
	ID         string     `json:"id"`
	Label      string     `json:"label,omitempty"`
	Text       string     `json:"text"`
	Subclauses []Clause   `json:"subclauses,omitempty"`
	Amendment  *Amendment `json:"amendment,omitempty"`
}

// Table is tabular content attached to an article.
type Table struct {
	ID        string     `json:"id"`
	Number    string     `json:"number"`
	Title     string     `json:"title"`
	Header    []string   `json:"header,omitempty"`
	Rows      [][]string `json:"rows,omitempty"`
	Amendment *Amendment `json:"amendment,omitempty"`
}

// Figure is an illustration reference attached to an article.
type Figure struct {
	ID      string `json:"id"`
	Number  string `json:"number"`
	Title   string `json:"title"`
	Caption string `json:"caption,omitempty"`
}

// Note is explanatory text attached to an article.
type Note struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// GlossaryEntry is a defined term from the flat glossary list.
type GlossaryEntry struct {
	ID         string `json:"id"`
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

// Amendment records a revision of a content unit.
type Amendment struct {
	EffectiveDate string `json:"effectiveDate"`         // ISO date, e.g. "2024-03-15"
	DisplayDate   string `json:"displayDate,omitempty"` // human form, e.g. "March 15, 2024"
	Type          string `json:"type,omitempty"`        // e.g. "amendment", "errata"
}

// Validate checks the structural invariants the build pipeline depends on:
// every node must carry a number and an identifier. The returned error names
// the path of the first offending node; a structurally invalid document
// produces no partial output.
func (c *Code) Validate() error {
	for di, d := range c.Divisions {
		if d.Number == "" {
			return fmt.Errorf("document: division[%d] %q: missing number", di, d.Title)
		}
		for pi, p := range d.Parts {
			ppath := fmt.Sprintf("division %s > part[%d]", d.Number, pi)
			if p.Number == "" {
				return fmt.Errorf("document: %s %q: missing number", ppath, p.Title)
			}
			for si, s := range p.Sections {
				spath := fmt.Sprintf("division %s > part %s > section[%d]", d.Number, p.Number, si)
				if s.Number == "" {
					return fmt.Errorf("document: %s %q: missing number", spath, s.Title)
				}
				for _, ss := range s.Subsections {
					if ss.Number == "" {
						return fmt.Errorf("document: %s > subsection %q: missing number", spath, ss.Title)
					}
					if err := validateArticles(spath+" > subsection "+ss.Number, ss.Articles); err != nil {
						return err
					}
				}
				if err := validateArticles(spath, s.Articles); err != nil {
					return err
				}
			}
		}
	}
	for gi, g := range c.Glossary {
		if g.ID == "" || g.Term == "" {
			return fmt.Errorf("document: glossary[%d]: missing id or term", gi)
		}
	}
	return nil
}

func validateArticles(parent string, articles []Article) error {
	for ai, a := range articles {
		if a.Number == "" {
			return fmt.Errorf("document: %s > article[%d] %q: missing number", parent, ai, a.Title)
		}
	}
	return nil
}
