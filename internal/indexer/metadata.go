package indexer

import (
	"sort"
	"time"

	"github.com/hagall/raido/internal/document"
)

// ArtifactVersion identifies the artifact format. Bumped on any change to
// the serialized shape of either artifact.
const ArtifactVersion = "2.0"

// Metadata is the aggregate artifact: corpus-wide statistics, a navigation
// projection of the hierarchy, and the distinct revision dates and content
// types present. It is derived entirely from the built document list plus
// the raw hierarchy and is never hand-edited.
type Metadata struct {
	Version         string            `json:"version"`
	GeneratedAt     time.Time         `json:"generatedAt"`
	Statistics      map[string]int    `json:"statistics,omitempty"`
	Divisions       []DivisionSummary `json:"divisions"`
	RevisionDates   []RevisionDate    `json:"revisionDates"`
	TableOfContents []TOCDivision     `json:"tableOfContents"`
	ContentTypes    []string          `json:"contentTypes"`

	// AmendmentBoosts records the per-type score multiplier the build was
	// configured with, so the runtime ranks amended documents with the same
	// policy that produced the artifacts.
	AmendmentBoosts map[string]float64 `json:"amendmentBoosts,omitempty"`
}

// DivisionSummary projects division/part/section titles for filter UIs.
type DivisionSummary struct {
	Number string        `json:"number"`
	Title  string        `json:"title"`
	Parts  []PartSummary `json:"parts"`
}

// PartSummary lists a part and its section titles.
type PartSummary struct {
	Number   string   `json:"number"`
	Title    string   `json:"title"`
	Sections []string `json:"sections"`
}

// RevisionDate is one distinct amendment date present in the corpus.
type RevisionDate struct {
	EffectiveDate string `json:"effectiveDate"`
	DisplayDate   string `json:"displayDate,omitempty"`
	Count         int    `json:"count"`
	Type          string `json:"type,omitempty"`
}

// Table-of-contents projection: titles and paths only, independent of
// filtering and ranking fields.
type TOCDivision struct {
	Number string    `json:"number"`
	Title  string    `json:"title"`
	Path   string    `json:"path"`
	Parts  []TOCPart `json:"parts"`
}

type TOCPart struct {
	Number   string       `json:"number"`
	Title    string       `json:"title"`
	Path     string       `json:"path"`
	Sections []TOCSection `json:"sections"`
}

type TOCSection struct {
	Number      string          `json:"number"`
	Title       string          `json:"title"`
	Path        string          `json:"path"`
	Subsections []TOCSubsection `json:"subsections,omitempty"`
}

type TOCSubsection struct {
	Number string `json:"number"`
	Title  string `json:"title"`
	Path   string `json:"path"`
}

// aggregate computes metadata in a single pass over the completed document
// list; nothing already computed by the builder is re-derived from the tree.
// The raw hierarchy contributes only the navigation projections.
func aggregate(code *document.Code, docs []SearchDocument, cfg Config) *Metadata {
	stats := make(map[string]int)
	type dateAgg struct {
		display string
		revType string
		count   int
	}
	dates := make(map[string]*dateAgg)
	var dateOrder []string

	for i := range docs {
		d := &docs[i]
		stats[d.Type]++
		if d.EffectiveDate == "" {
			continue
		}
		agg, ok := dates[d.EffectiveDate]
		if !ok {
			agg = &dateAgg{display: d.DisplayDate, revType: d.RevisionType}
			dates[d.EffectiveDate] = agg
			dateOrder = append(dateOrder, d.EffectiveDate)
		}
		agg.count++
		if agg.display == "" {
			agg.display = d.DisplayDate
		}
	}

	// Ascending by calendar date, not string order. Unparseable dates sort
	// after parseable ones, lexically among themselves.
	sort.SliceStable(dateOrder, func(i, j int) bool {
		ti, erri := time.Parse("2006-01-02", dateOrder[i])
		tj, errj := time.Parse("2006-01-02", dateOrder[j])
		switch {
		case erri == nil && errj == nil:
			return ti.Before(tj)
		case erri == nil:
			return true
		case errj == nil:
			return false
		default:
			return dateOrder[i] < dateOrder[j]
		}
	})

	revisions := make([]RevisionDate, 0, len(dateOrder))
	for _, date := range dateOrder {
		agg := dates[date]
		revisions = append(revisions, RevisionDate{
			EffectiveDate: date,
			DisplayDate:   agg.display,
			Count:         agg.count,
			Type:          agg.revType,
		})
	}

	types := make([]string, 0, len(stats))
	for t := range stats {
		types = append(types, t)
	}
	sort.Strings(types)

	boosts := make(map[string]float64, len(cfg.ContentTypes))
	for name, policy := range cfg.ContentTypes {
		if policy.Enabled {
			boosts[name] = policy.AmendmentBoost
		}
	}

	return &Metadata{
		Version:         ArtifactVersion,
		GeneratedAt:     time.Now().UTC(),
		Statistics:      stats,
		Divisions:       divisionSummaries(code),
		RevisionDates:   revisions,
		TableOfContents: tableOfContents(code),
		ContentTypes:    types,
		AmendmentBoosts: boosts,
	}
}

func divisionSummaries(code *document.Code) []DivisionSummary {
	out := make([]DivisionSummary, 0, len(code.Divisions))
	for _, d := range code.Divisions {
		ds := DivisionSummary{Number: d.Number, Title: d.Title, Parts: []PartSummary{}}
		for _, p := range d.Parts {
			ps := PartSummary{Number: p.Number, Title: p.Title, Sections: []string{}}
			for _, s := range p.Sections {
				ps.Sections = append(ps.Sections, s.Title)
			}
			ds.Parts = append(ds.Parts, ps)
		}
		out = append(out, ds)
	}
	return out
}

func tableOfContents(code *document.Code) []TOCDivision {
	out := make([]TOCDivision, 0, len(code.Divisions))
	for _, d := range code.Divisions {
		td := TOCDivision{
			Number: d.Number,
			Title:  d.Title,
			Path:   "/code/" + d.Number,
			Parts:  []TOCPart{},
		}
		for _, p := range d.Parts {
			tp := TOCPart{
				Number:   p.Number,
				Title:    p.Title,
				Path:     td.Path + "/" + p.Number,
				Sections: []TOCSection{},
			}
			for _, s := range p.Sections {
				ts := TOCSection{
					Number: s.Number,
					Title:  s.Title,
					Path:   tp.Path + "/" + s.Number,
				}
				for _, ss := range s.Subsections {
					ts.Subsections = append(ts.Subsections, TOCSubsection{
						Number: ss.Number,
						Title:  ss.Title,
						Path:   ts.Path + "/" + ss.Number,
					})
				}
				tp.Sections = append(tp.Sections, ts)
			}
			td.Parts = append(td.Parts, tp)
		}
		out = append(out, td)
	}
	return out
}
