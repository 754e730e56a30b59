// Package narrative searches and summarizes the bilingual commentary that
// accompanies the analysis datasets.
package narrative

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"cherrycake/internal/dataset"
)

// Kind selects a narrative collection.
type Kind string

const (
	KindClusters Kind = "clusters"
	KindSegments Kind = "segments"
	KindMeasures Kind = "measures"
)

// Lang selects the displayed language.
type Lang string

const (
	LangKO Lang = "ko"
	LangEN Lang = "en"
)

// ParseKind maps user input to a Kind, defaulting to clusters.
func ParseKind(s string) Kind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "segments", "segment":
		return KindSegments
	case "measures", "measure", "narratives":
		return KindMeasures
	default:
		return KindClusters
	}
}

// ParseLang maps user input to a Lang, defaulting to Korean.
func ParseLang(s string) Lang {
	if strings.EqualFold(strings.TrimSpace(s), "en") {
		return LangEN
	}
	return LangKO
}

// Entry is a flattened search result.
type Entry struct {
	Kind     Kind       `json:"kind"`
	ID       int        `json:"id"`
	Measures [2]float64 `json:"measures"`
	TextKO   string     `json:"narrative_ko"`
	TextEN   string     `json:"narrative_en"`
	Keywords []string   `json:"keywords,omitempty"`
}

// Text returns the entry text in lang, falling back to the other language.
func (e Entry) Text(lang Lang) string {
	if lang == LangEN && e.TextEN != "" {
		return e.TextEN
	}
	if e.TextKO != "" {
		return e.TextKO
	}
	return e.TextEN
}

// Entries flattens one collection of data into entries.
func Entries(data *dataset.Narratives, kind Kind) []Entry {
	if data == nil {
		return nil
	}
	var out []Entry
	switch kind {
	case KindSegments:
		for _, s := range data.Segments {
			out = append(out, Entry{Kind: kind, ID: s.Index, Measures: s.Measures, TextKO: s.TextKO, TextEN: s.TextEN})
		}
	case KindMeasures:
		for i, n := range data.Narratives {
			out = append(out, Entry{Kind: kind, ID: i, Measures: [2]float64{n.Measure, n.Measure}, TextKO: n.TextKO, TextEN: n.TextEN, Keywords: Keywords(n)})
		}
	default:
		for _, c := range data.Clusters {
			e := Entry{Kind: KindClusters, ID: c.ID, TextKO: c.TextKO, TextEN: c.TextEN}
			if k := len(c.RepresentativeMeasures); k > 0 {
				e.Measures = [2]float64{c.RepresentativeMeasures[0], c.RepresentativeMeasures[k-1]}
			}
			out = append(out, e)
		}
	}
	return out
}

// Search returns the entries of kind whose Korean or English text contains
// term, ignoring case. An empty term matches everything.
func Search(data *dataset.Narratives, term string, kind Kind) []Entry {
	entries := Entries(data, kind)
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return entries
	}
	out := entries[:0]
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.TextKO), term) || strings.Contains(strings.ToLower(e.TextEN), term) {
			out = append(out, e)
		}
	}
	return out
}

var keywordSplit = regexp.MustCompile(`[\s,、，]+`)

// maxKeywords bounds keywords extracted from free text.
const maxKeywords = 5

// Keywords returns the narrative's explicit keywords, or the first five
// tokens longer than two characters of its Korean text.
func Keywords(n dataset.Narrative) []string {
	if len(n.Keywords) > 0 {
		return n.Keywords
	}
	var out []string
	for _, word := range keywordSplit.Split(n.TextKO, -1) {
		if utf8.RuneCountInString(word) > 2 {
			out = append(out, word)
			if len(out) == maxKeywords {
				break
			}
		}
	}
	return out
}

// ForSegment returns the first narrative whose measure falls inside seg.
func ForSegment(data *dataset.Narratives, seg dataset.Segment) (dataset.Narrative, bool) {
	if data == nil {
		return dataset.Narrative{}, false
	}
	for _, n := range data.Narratives {
		if n.Measure >= seg.Start && n.Measure <= seg.End {
			return n, true
		}
	}
	return dataset.Narrative{}, false
}
