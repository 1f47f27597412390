package retrieval

import (
	"fmt"
	"strings"

	"github.com/Aman-CERP/docgraph/internal/docstore"
	"github.com/Aman-CERP/docgraph/internal/document"
)

// assembleContext builds the hierarchical context string for node n in
// document d, per spec section 4.H.1. Grounded on mcp.format.go's
// deterministic-string-building convention: a single strings.Builder, no
// randomness, fixed emission order.
func assembleContext(docTitle string, n *document.SectionNode, docs docstore.Store, docID string, includeContext bool) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[Document: %s]\n", docTitle))
	sb.WriteString(fmt.Sprintf("## %s\n", n.Title))
	if len(n.Content) > 0 {
		sb.WriteString(strings.Join(n.Content, "\n"))
		sb.WriteString("\n")
	}
	if len(n.Children) > 0 {
		titles := make([]string, len(n.Children))
		for i, c := range n.Children {
			titles[i] = c.Title
		}
		sb.WriteString(fmt.Sprintf("[Subsections: %s]\n", strings.Join(titles, ", ")))
	}

	if includeContext {
		if parent, err := docs.GetParent(docID, n.ID); err == nil {
			sb.WriteString(fmt.Sprintf("[Parent Section: %s]\n", parent.Title))
			sb.WriteString(strings.Join(firstParagraphs(parent.Content, 2), "\n"))
			sb.WriteString("\n")
		}
	}

	return strings.TrimRight(sb.String(), "\n") + "\n"
}

func firstParagraphs(content []string, n int) []string {
	if len(content) <= n {
		return content
	}
	return content[:n]
}
