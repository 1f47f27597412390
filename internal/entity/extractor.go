package entity

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// The rule regexes below are compiled once at package init, in the same
// precompiled-pattern style as chunk.MarkdownChunker's headerPattern /
// frontmatterPattern / codeBlockPattern table.
var (
	backtickRe     = regexp.MustCompile("`([^`\n]+)`")
	camelCaseRe    = regexp.MustCompile(`\b[a-z][a-zA-Z0-9]*[A-Z][a-zA-Z0-9]*\b`)
	snakeCaseRe    = regexp.MustCompile(`\b[a-z][a-z0-9]*(?:_[a-z0-9]+)+\b`)
	screamingRe    = regexp.MustCompile(`\b[A-Z][A-Z0-9]*(?:_[A-Z0-9]+)+\b`)
	acronymRe      = regexp.MustCompile(`\b[A-Z]{2,6}\b`)
	versionRe      = regexp.MustCompile(`\bv?\d+\.\d+(?:\.\d+)?(?:-[A-Za-z0-9]+)?\b`)
	metricRe       = regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s?(?:ms|s|min|h|kb|mb|gb|tb|k|m|b)\b`)
	metricPctRe    = regexp.MustCompile(`\b\d+(?:\.\d+)?%`)
	properNounRe   = regexp.MustCompile(`\b[A-Z][a-z]+\b`)
	technologyRe   = buildLexiconRegex(Technologies)
	conceptRe      = buildLexiconRegex(Concepts)
)

// buildLexiconRegex compiles a case-insensitive, word-boundary alternation
// over a closed lexicon. Phrases of more than one word match as a whole,
// since \b only needs to anchor the outer edges.
func buildLexiconRegex(words []string) *regexp.Regexp {
	escaped := make([]string, len(words))
	for i, w := range words {
		escaped[i] = regexp.QuoteMeta(w)
	}
	pattern := `(?i)\b(` + strings.Join(escaped, "|") + `)\b`
	return regexp.MustCompile(pattern)
}

type occurrence struct {
	text  string
	start int
	end   int
}

func findAll(re *regexp.Regexp, text string) []occurrence {
	locs := re.FindAllStringIndex(text, -1)
	out := make([]occurrence, 0, len(locs))
	for _, loc := range locs {
		out = append(out, occurrence{text: text[loc[0]:loc[1]], start: loc[0], end: loc[1]})
	}
	return out
}

// register records an occurrence under its normalized form. Per spec
// section 4.F, later rules never overwrite an earlier entity's Type for the
// same normalized form; they only bump Frequency and slightly raise
// Confidence (bounded by 1). A normalized form shorter than 2 characters is
// dropped.
func register(entities map[string]*Entity, order *[]string, text string, typ Type, confidence float64, start, end int) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if len(normalized) < 2 {
		return
	}
	if e, ok := entities[normalized]; ok {
		e.Frequency++
		e.Positions = append(e.Positions, [2]int{start, end})
		e.Confidence = math.Min(1.0, e.Confidence+0.05)
		return
	}
	e := &Entity{
		Text:       text,
		Normalized: normalized,
		Type:       typ,
		Confidence: confidence,
		Frequency:  1,
		Positions:  [][2]int{{start, end}},
	}
	entities[normalized] = e
	*order = append(*order, normalized)
}

// Extract recognizes entities in text by applying the seven rules in
// order. It is a pure function: no network, no shared state across calls.
func Extract(text string) []Entity {
	entities := make(map[string]*Entity)
	var order []string

	// 1. CODE_REFERENCE: backtick spans, camelCase, snake_case, SCREAMING_SNAKE_CASE.
	for _, o := range findAll(backtickRe, text) {
		inner := text[o.start+1 : o.end-1]
		register(entities, &order, inner, TypeCodeReference, 0.9, o.start+1, o.end-1)
	}
	for _, re := range []*regexp.Regexp{camelCaseRe, snakeCaseRe, screamingRe} {
		for _, o := range findAll(re, text) {
			register(entities, &order, o.text, TypeCodeReference, 0.85, o.start, o.end)
		}
	}

	// 2. ACRONYM: uppercase tokens length 2-6 not already classified.
	for _, o := range findAll(acronymRe, text) {
		register(entities, &order, o.text, TypeAcronym, 0.75, o.start, o.end)
	}

	// 3. TECHNOLOGY: closed lexicon, word-boundary match.
	for _, o := range findAll(technologyRe, text) {
		register(entities, &order, o.text, TypeTechnology, 0.9, o.start, o.end)
	}

	// 4. CONCEPT: closed lexicon, multi-word phrase match.
	for _, o := range findAll(conceptRe, text) {
		register(entities, &order, o.text, TypeConcept, 0.85, o.start, o.end)
	}

	// 5. VERSION: v?\d+\.\d+(\.\d+)?(-label)?
	for _, o := range findAll(versionRe, text) {
		register(entities, &order, o.text, TypeVersion, 0.9, o.start, o.end)
	}

	// 6. METRIC: number + unit.
	for _, o := range findAll(metricRe, text) {
		register(entities, &order, o.text, TypeMetric, 0.85, o.start, o.end)
	}
	for _, o := range findAll(metricPctRe, text) {
		register(entities, &order, o.text, TypeMetric, 0.85, o.start, o.end)
	}

	// 7. PROPER_NOUN: capitalized words, rejected when stop-worded or
	// already captured by an earlier rule.
	for _, o := range findAll(properNounRe, text) {
		lower := strings.ToLower(o.text)
		if _, stop := ProperNounStopWords[lower]; stop {
			continue
		}
		if _, captured := entities[lower]; captured {
			continue
		}
		register(entities, &order, o.text, TypeProperNoun, 0.6, o.start, o.end)
	}

	out := make([]Entity, 0, len(entities))
	for _, norm := range order {
		out = append(out, *entities[norm])
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Positions[0][0] < out[j].Positions[0][0]
	})
	return out
}
