package render

import (
	"strings"

	"github.com/pbaille/thoughtboard/internal/domain"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const emptyMessage = "No thoughts generated yet"

// Item renders one history entry
func Item(t domain.Thought) string {
	n := element(atom.Div, "thought-item border-l-4 border-blue-500 pl-4 py-4 mb-6",
		element(atom.Div, "flex justify-between items-center mb-3",
			element(atom.Time, "text-sm text-gray-500", text(FormatTimestamp(t.Timestamp))),
		),
		element(atom.Div, "text-lg mb-3", text(t.Thought)),
	)
	return serialize(n)
}

// History renders entries in the order given
func History(list []domain.Thought) string {
	var sb strings.Builder
	for _, t := range list {
		sb.WriteString(Item(t))
	}
	return sb.String()
}

// Latest renders the body of the latest-thought region
func Latest(t domain.Thought) string {
	return serialize(
		element(atom.P, "thought-latest text-xl mb-4", text(t.Thought)),
		element(atom.Div, "text-sm text-gray-500",
			element(atom.P, "", text("Previous Thought: "+t.Input)),
		),
	)
}

// UpdatedAt is the plain text shown in the last-update region
func UpdatedAt(t domain.Thought) string {
	return "Updated: " + FormatTimestamp(t.Timestamp)
}

// Empty is the neutral placeholder shown before any thought exists
func Empty() string {
	return serialize(element(atom.P, "text-gray-600 italic", text(emptyMessage)))
}

// Failure renders an error placeholder
func Failure(title, detail string) string {
	return serialize(
		element(atom.P, "text-red-500", text(title)),
		element(atom.P, "text-sm text-gray-500", text(detail)),
	)
}

func element(a atom.Atom, class string, children ...*html.Node) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	if class != "" {
		n.Attr = []html.Attribute{{Key: "class", Val: class}}
	}
	for _, c := range children {
		n.AppendChild(c)
	}
	return n
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// serialize renders nodes with html.Render, which escapes all text
func serialize(nodes ...*html.Node) string {
	var sb strings.Builder
	for _, n := range nodes {
		// strings.Builder writes never fail
		_ = html.Render(&sb, n)
	}
	return sb.String()
}
