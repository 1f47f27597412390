package graphbuild

import (
	"context"
	"regexp"
	"strings"

	"github.com/Aman-CERP/docgraph/internal/docstore"
	"github.com/Aman-CERP/docgraph/internal/document"
	amerrors "github.com/Aman-CERP/docgraph/internal/errors"
	"github.com/Aman-CERP/docgraph/internal/graphstore"
)

// The link patterns below are compiled once at package init, in the same
// precompiled-pattern-table style as chunk.MarkdownChunker's headerPattern /
// tablePattern.
var (
	mdLinkRe   = regexp.MustCompile(`\[([^\]]*)\]\(([^)]+)\)`)
	wikiLinkRe = regexp.MustCompile(`\[\[([^\]]+)\]\]`)
)

// RefersToConfig configures the REFERS_TO builder.
type RefersToConfig struct {
	CrossDocumentOnly bool // prefer cross-document matches when resolving a fuzzy title
	EmitReverse       bool // also emit the symmetric reverse edge
}

// RefersToBuilder parses markdown link and wiki-link syntax out of every
// section's paragraphs and resolves the target to a node id, dropping
// targets that don't resolve to an existing node (invariant I5), per spec
// section 4.G. Grounded on chunk.MarkdownChunker's regex-table idiom.
type RefersToBuilder struct {
	Docs  docstore.Store
	Graph *graphstore.Store
}

type parsedLink struct {
	text     string
	target   string
	linkType string // "markdown" or "wiki"
}

func extractLinks(paragraph string) []parsedLink {
	var out []parsedLink
	for _, m := range mdLinkRe.FindAllStringSubmatch(paragraph, -1) {
		out = append(out, parsedLink{text: m[1], target: strings.TrimSpace(m[2]), linkType: "markdown"})
	}
	for _, m := range wikiLinkRe.FindAllStringSubmatch(paragraph, -1) {
		target := strings.TrimSpace(m[1])
		out = append(out, parsedLink{text: target, target: target, linkType: "wiki"})
	}
	return out
}

// titleEntry is one candidate for fuzzy title resolution.
type titleEntry struct {
	docID, nodeID, title string
}

// Build walks every section of every listed document, resolves its links,
// and persists REFERS_TO edges for the ones that resolve. Idempotent:
// UpsertEdges replaces by (fromId,toId,type), so replaying Build against an
// unchanged corpus reproduces the same edge set.
func (b *RefersToBuilder) Build(ctx context.Context, docIDs []string, cfg RefersToConfig) (BuildReport, error) {
	var report BuildReport

	docs := make(map[string]*document.Document, len(docIDs))
	var titles []titleEntry
	nodeExists := make(map[string]bool)
	for _, docID := range docIDs {
		doc, err := b.Docs.Load(docID)
		if err != nil {
			report.fail(docID, err)
			continue
		}
		docs[docID] = doc
		doc.Walk(func(n *document.SectionNode) {
			nodeExists[n.ID] = true
			titles = append(titles, titleEntry{docID: docID, nodeID: n.ID, title: n.Title})
		})
	}

	var edges []graphstore.Edge
	for docID, doc := range docs {
		doc.Walk(func(n *document.SectionNode) {
			for _, p := range n.Content {
				for _, link := range extractLinks(p) {
					targetID, ok := resolveTarget(link.target, docID, titles, nodeExists, cfg)
					if !ok {
						continue
					}
					meta := map[string]string{"linkText": link.text, "linkType": link.linkType, "originalTarget": link.target}
					edges = append(edges, graphstore.Edge{FromID: n.ID, ToID: targetID, Type: graphstore.EdgeRefersTo, Metadata: meta})
					if cfg.EmitReverse {
						edges = append(edges, graphstore.Edge{FromID: targetID, ToID: n.ID, Type: graphstore.EdgeRefersTo, Metadata: meta})
					}
				}
			}
		})
	}

	if len(edges) == 0 {
		return report, nil
	}
	if err := b.Graph.UpsertEdges(ctx, edges); err != nil {
		return report, amerrors.WrapKind(amerrors.KindStorage, "graphbuild.RefersToBuilder.Build", err)
	}
	report.EdgesWritten = len(edges)
	return report, nil
}

// resolveTarget implements spec section 4.G's three resolution rules in
// order: internal anchor (#id), explicit docId#id, then a fuzzy,
// case-insensitive, trimmed title match across all documents.
func resolveTarget(target, sourceDocID string, titles []titleEntry, nodeExists map[string]bool, cfg RefersToConfig) (string, bool) {
	switch {
	case strings.HasPrefix(target, "#"):
		id := sourceDocID + "#" + strings.TrimPrefix(target, "#")
		if nodeExists[id] {
			return id, true
		}
		// also accept a bare node id within the same document
		bare := strings.TrimPrefix(target, "#")
		if nodeExists[bare] {
			return bare, true
		}
		return "", false

	case strings.Contains(target, "#"):
		if nodeExists[target] {
			return target, true
		}
		return "", false

	default:
		return fuzzyTitleMatch(target, sourceDocID, titles, cfg.CrossDocumentOnly)
	}
}

func fuzzyTitleMatch(target, sourceDocID string, titles []titleEntry, crossDocumentOnly bool) (string, bool) {
	norm := strings.ToLower(strings.TrimSpace(target))
	var sameDocMatch, crossDocMatch string
	for _, t := range titles {
		if strings.ToLower(strings.TrimSpace(t.title)) != norm {
			continue
		}
		if t.docID == sourceDocID {
			if sameDocMatch == "" {
				sameDocMatch = t.nodeID
			}
		} else if crossDocMatch == "" {
			crossDocMatch = t.nodeID
		}
	}
	if crossDocumentOnly && crossDocMatch != "" {
		return crossDocMatch, true
	}
	if sameDocMatch != "" {
		return sameDocMatch, true
	}
	if crossDocMatch != "" {
		return crossDocMatch, true
	}
	return "", false
}
