package entity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func byNormalized(entities []Entity, normalized string) (Entity, bool) {
	for _, e := range entities {
		if e.Normalized == normalized {
			return e, true
		}
	}
	return Entity{}, false
}

func TestExtractCodeReferenceBacktick(t *testing.T) {
	out := Extract("call `parseConfig` before startup")
	e, ok := byNormalized(out, "parseconfig")
	require.True(t, ok)
	require.Equal(t, TypeCodeReference, e.Type)
}

func TestExtractCodeReferenceSnakeAndCamel(t *testing.T) {
	out := Extract("set max_retry_count then call doRetryNow")
	_, ok := byNormalized(out, "max_retry_count")
	require.True(t, ok)
	_, ok = byNormalized(out, "doretrynow")
	require.True(t, ok)
}

func TestExtractAcronymNotOverwrittenByLaterRules(t *testing.T) {
	out := Extract("the API is stable")
	e, ok := byNormalized(out, "api")
	require.True(t, ok)
	require.Equal(t, TypeAcronym, e.Type)
}

func TestExtractTechnologyLexicon(t *testing.T) {
	out := Extract("we run Postgres and Kubernetes in production")
	pg, ok := byNormalized(out, "postgres")
	require.True(t, ok)
	require.Equal(t, TypeTechnology, pg.Type)
	k8s, ok := byNormalized(out, "kubernetes")
	require.True(t, ok)
	require.Equal(t, TypeTechnology, k8s.Type)
}

func TestExtractConceptPhrase(t *testing.T) {
	out := Extract("this system relies on vector search over a knowledge graph")
	_, ok := byNormalized(out, "vector search")
	require.True(t, ok)
	_, ok = byNormalized(out, "knowledge graph")
	require.True(t, ok)
}

func TestExtractVersion(t *testing.T) {
	out := Extract("upgrade to v1.2.3 before the v2.0-beta cutover")
	_, ok := byNormalized(out, "v1.2.3")
	require.True(t, ok)
	_, ok = byNormalized(out, "v2.0-beta")
	require.True(t, ok)
}

func TestExtractMetric(t *testing.T) {
	out := Extract("latency dropped to 12ms and error rate is 0.5%")
	_, ok := byNormalized(out, "12ms")
	require.True(t, ok)
	_, ok = byNormalized(out, "0.5%")
	require.True(t, ok)
}

func TestExtractProperNounRejectsStopWords(t *testing.T) {
	out := Extract("This report was written by Alice in March")
	_, ok := byNormalized(out, "this")
	require.False(t, ok, "stop word must not be captured as a proper noun")
	alice, ok := byNormalized(out, "alice")
	require.True(t, ok)
	require.Equal(t, TypeProperNoun, alice.Type)
	_, ok = byNormalized(out, "march")
	require.False(t, ok, "month names are stop-worded")
}

func TestExtractEarlierRuleWinsType(t *testing.T) {
	// "REST" matches both ACRONYM (rule 2) and TECHNOLOGY (rule 3, "rest" is
	// in the lexicon); ACRONYM runs first so it must keep the Type while
	// TECHNOLOGY's later match only bumps frequency.
	out := Extract("the REST api and the REST api again")
	e, ok := byNormalized(out, "rest")
	require.True(t, ok)
	require.Equal(t, TypeAcronym, e.Type)
	require.GreaterOrEqual(t, e.Frequency, 2)
}

func TestExtractFrequencyAndConfidenceAccumulate(t *testing.T) {
	out := Extract("Docker Docker Docker")
	e, ok := byNormalized(out, "docker")
	require.True(t, ok)
	require.Equal(t, 3, e.Frequency)
	require.LessOrEqual(t, e.Confidence, 1.0)
	require.Len(t, e.Positions, 3)
}

func TestExtractDropsShortNormalizedForms(t *testing.T) {
	out := Extract("a b c go")
	_, ok := byNormalized(out, "a")
	require.False(t, ok)
	_, ok = byNormalized(out, "go")
	require.True(t, ok)
}

func TestExtractResultsOrderedByFirstOccurrence(t *testing.T) {
	out := Extract("Kubernetes runs on Linux")
	require.True(t, len(out) >= 2)
	k, _ := byNormalized(out, "kubernetes")
	l, _ := byNormalized(out, "linux")
	require.Less(t, k.Positions[0][0], l.Positions[0][0])
}

func TestExtractIsPure(t *testing.T) {
	text := "Go and Kubernetes, v1.0.0, API, 5ms"
	first := Extract(text)
	second := Extract(text)
	require.Equal(t, first, second)
}
