package cmd

import (
	"regexp"
	"strings"

	"github.com/Aman-CERP/docgraph/internal/document"
)

// markdownHeaderPattern recognizes ATX headers (# .. ######). Splitting a
// document into a section-per-header tree is CLI convenience, not the full
// markdown grammar: no inline formatting, lists, tables or code fences get
// special handling, and content simply carries through as paragraph text.
var markdownHeaderPattern = regexp.MustCompile(`(?m)^(#{1,6})[ \t]+(.+?)[ \t]*$`)

// markdownToRoot splits body into a section tree nested by header level,
// with title as the document root's title. Content before the first header
// becomes the root's own paragraphs.
func markdownToRoot(title, body string) *document.SectionNode {
	root := &document.SectionNode{Title: title, Type: document.TypeDocument, Level: 0}

	matches := markdownHeaderPattern.FindAllStringSubmatchIndex(body, -1)
	if len(matches) == 0 {
		root.Content = paragraphs(body)
		return root
	}

	if pre := strings.TrimSpace(body[:matches[0][0]]); pre != "" {
		root.Content = paragraphs(pre)
	}

	// stack entries track the raw '#' count alongside the node, so a header
	// run like "# / ### / ##" nests by hash count while the node's own Level
	// still records actual tree depth (parent.Level+1), per SectionNode's
	// invariant.
	type frame struct {
		hashLevel int
		node      *document.SectionNode
	}
	stack := []frame{}
	for i, m := range matches {
		hashLevel := m[3] - m[2]
		heading := strings.TrimSpace(body[m[4]:m[5]])

		bodyStart := m[1]
		bodyEnd := len(body)
		if i+1 < len(matches) {
			bodyEnd = matches[i+1][0]
		}

		for len(stack) > 0 && stack[len(stack)-1].hashLevel >= hashLevel {
			stack = stack[:len(stack)-1]
		}
		parent := root
		if len(stack) > 0 {
			parent = stack[len(stack)-1].node
		}
		node := &document.SectionNode{
			Title: heading, Type: document.TypeSection, Level: parent.Level + 1,
			Content: paragraphs(body[bodyStart:bodyEnd]),
		}
		parent.Children = append(parent.Children, node)
		stack = append(stack, frame{hashLevel: hashLevel, node: node})
	}
	return root
}

// assignIDs derives a stable id for every node that doesn't have one yet,
// the same document.DeriveNodeID(title) convention the MCP index_document
// handler uses for tree input built from titles alone.
func assignIDs(n *document.SectionNode) {
	if n.ID == "" {
		n.ID = document.DeriveNodeID(n.Title)
	}
	for _, c := range n.Children {
		assignIDs(c)
	}
}

func paragraphs(s string) []string {
	blocks := strings.Split(strings.TrimSpace(s), "\n\n")
	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		b = strings.TrimSpace(b)
		if b != "" {
			out = append(out, b)
		}
	}
	return out
}
