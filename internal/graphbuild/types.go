// Package graphbuild holds the three batch graph builders that populate
// derived edges over the section/concept graph: SAME_TOPIC (semantic
// similarity), REFERS_TO (explicit links) and MENTIONS/DEFINES/RELATED_TO
// (the concept sub-graph) — document index component 4.G. Each builder is
// idempotent and replayable: a full rebuild reproduces the same edge set.
package graphbuild

// FailedDoc records one document a builder could not process, so a single
// bad document never aborts the whole batch (spec section 7's Build error
// kind: "a single document fails; others continue").
type FailedDoc struct {
	DocID string
	Err   error
}

// BuildReport summarizes one builder run, mirroring index.Coordinator's
// graceful per-item degradation (log + continue) surfaced as data instead of
// log lines.
type BuildReport struct {
	EdgesWritten int
	Failed       []FailedDoc
}

func (r *BuildReport) fail(docID string, err error) {
	r.Failed = append(r.Failed, FailedDoc{DocID: docID, Err: err})
}
