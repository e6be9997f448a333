package scanners

import (
	"strings"

	"golang.org/x/net/html"
)

// Small node-walking helpers over x/net/html. Each platform's parse
// function composes these instead of carrying its own tree traversal.

// nodeT shortens predicate signatures in the platform parsers.
type nodeT = html.Node

// parseHTML returns the document root, or nil when the body is not HTML
// enough to walk. html.Parse is extremely tolerant, so nil is rare.
func parseHTML(body string) *html.Node {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil
	}
	return doc
}

// attr fetches an attribute value from an element node.
func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// hasClass reports whether an element carries the CSS class.
func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// findAll collects every element matching pred, depth-first.
func findAll(n *html.Node, pred func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && pred(node) {
			out = append(out, node)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if n != nil {
		walk(n)
	}
	return out
}

// findFirst returns the first element matching pred, or nil.
func findFirst(n *html.Node, pred func(*html.Node) bool) *html.Node {
	matches := findAll(n, pred)
	if len(matches) == 0 {
		return nil
	}
	return matches[0]
}

// byClass matches elements of the given tag carrying the CSS class.
// tag may be empty to match any element.
func byClass(tag, class string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		if tag != "" && n.Data != tag {
			return false
		}
		return hasClass(n, class)
	}
}

// byTag matches elements by tag name.
func byTag(tag string) func(*html.Node) bool {
	return func(n *html.Node) bool { return n.Data == tag }
}

// innerText concatenates all text beneath a node, whitespace-collapsed.
func innerText(n *html.Node) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
			sb.WriteString(" ")
		}
		// Skip invisible content.
		if node.Type == html.ElementNode && (node.Data == "script" || node.Data == "style") {
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

// firstLink returns the href of the first anchor beneath n.
func firstLink(n *html.Node) string {
	a := findFirst(n, byTag("a"))
	if a == nil {
		return ""
	}
	return attr(a, "href")
}
