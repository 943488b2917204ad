package indexer

import (
	"reflect"
	"testing"
)

func TestMetadata_Statistics(t *testing.T) {
	res := buildFixture(t, nil)
	stats := res.Metadata.Statistics

	counts := make(map[string]int)
	for _, d := range res.Documents {
		counts[d.Type]++
	}
	if !reflect.DeepEqual(stats, counts) {
		t.Errorf("statistics = %v, want %v", stats, counts)
	}
	if stats[TypeArticle] != 4 {
		t.Errorf("article count = %d, want 4", stats[TypeArticle])
	}
	if stats[TypeGlossary] != 2 {
		t.Errorf("glossary count = %d, want 2", stats[TypeGlossary])
	}
}

func TestMetadata_RevisionDatesSortedAscending(t *testing.T) {
	res := buildFixture(t, nil)
	revs := res.Metadata.RevisionDates
	if len(revs) != 2 {
		t.Fatalf("revision dates = %d, want 2", len(revs))
	}
	if revs[0].EffectiveDate != "2024-03-01" || revs[1].EffectiveDate != "2024-06-15" {
		t.Errorf("order = %q, %q", revs[0].EffectiveDate, revs[1].EffectiveDate)
	}
	if revs[0].Count != 1 {
		t.Errorf("count for 2024-03-01 = %d", revs[0].Count)
	}
	if revs[0].DisplayDate != "March 1, 2024" || revs[0].Type != "revision" {
		t.Errorf("first revision fields = %q/%q", revs[0].DisplayDate, revs[0].Type)
	}
}

func TestMetadata_ContentTypesSortedAndPresent(t *testing.T) {
	res := buildFixture(t, nil)
	want := []string{
		TypeArticle, TypeDivision, TypeFigure, TypeGlossary,
		TypePart, TypeSection, TypeSubsection, TypeTable,
	}
	if !reflect.DeepEqual(res.Metadata.ContentTypes, want) {
		t.Errorf("contentTypes = %v, want %v", res.Metadata.ContentTypes, want)
	}
}

func TestMetadata_ContentTypesOmitAbsent(t *testing.T) {
	res := buildFixture(t, &Overrides{
		ContentTypes: map[string]TypePolicyOverride{
			TypeTable:  {Enabled: boolPtr(false)},
			TypeFigure: {Enabled: boolPtr(false)},
		},
	})
	for _, ct := range res.Metadata.ContentTypes {
		if ct == TypeTable || ct == TypeFigure {
			t.Errorf("disabled type %q listed in contentTypes", ct)
		}
	}
}

func TestMetadata_AmendmentBoostsCarryEffectiveConfig(t *testing.T) {
	res := buildFixture(t, nil)
	boosts := res.Metadata.AmendmentBoosts
	if boosts[TypeArticle] != 1.25 || boosts[TypeTable] != 1.2 {
		t.Errorf("default boosts = %v", boosts)
	}

	res = buildFixture(t, &Overrides{
		ContentTypes: map[string]TypePolicyOverride{
			TypeArticle: {AmendmentBoost: floatPtr(2.0)},
			TypeFigure:  {Enabled: boolPtr(false)},
		},
	})
	boosts = res.Metadata.AmendmentBoosts
	if boosts[TypeArticle] != 2.0 {
		t.Errorf("overridden article boost = %v, want 2.0", boosts[TypeArticle])
	}
	if _, ok := boosts[TypeFigure]; ok {
		t.Error("disabled type should not carry a boost")
	}
}

func TestMetadata_TableOfContents(t *testing.T) {
	res := buildFixture(t, nil)
	toc := res.Metadata.TableOfContents
	if len(toc) != 2 {
		t.Fatalf("toc divisions = %d, want 2", len(toc))
	}
	a := toc[0]
	if a.Number != "A" || a.Path != "/code/A" {
		t.Errorf("division = %q at %q", a.Number, a.Path)
	}
	sec := a.Parts[0].Sections[0]
	if sec.Path != "/code/A/1/1.1" {
		t.Errorf("section path = %q", sec.Path)
	}
	if len(sec.Subsections) != 1 || sec.Subsections[0].Path != "/code/A/1/1.1/1.1.1" {
		t.Errorf("subsections = %+v", sec.Subsections)
	}
	b := toc[1]
	if len(b.Parts[0].Sections[0].Subsections) != 0 {
		t.Errorf("division B section should have no subsections")
	}
}

func TestMetadata_DivisionSummaries(t *testing.T) {
	res := buildFixture(t, nil)
	divs := res.Metadata.Divisions
	if len(divs) != 2 {
		t.Fatalf("divisions = %d, want 2", len(divs))
	}
	if got := divs[1].Parts[0].Sections; !reflect.DeepEqual(got, []string{"Fire Safety"}) {
		t.Errorf("division B sections = %v", got)
	}
}
