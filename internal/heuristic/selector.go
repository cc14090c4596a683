// Package heuristic implements deterministic CSS-selector-based field
// extraction: the "heuristic" extraction mode, confidence 1.0 per
// populated field.
//
// The selector matcher here is not a full CSS engine — it supports the
// compound selectors (tag, #id, .class, [attr], [attr=value],
// [attr*=value]) and plain descendant combinators that the corpus's own
// scraper (internal/shards/researcher/scraper.go) and the Python
// predecessor's selector usage actually exercise, nothing more exotic.
package heuristic

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	tagRe  = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9-]*`)
	partRe = regexp.MustCompile(`#[\w-]+|\.[\w-]+|\[[^\]]+\]`)
)

type compound struct {
	tag     string
	id      string
	classes []string
	attrs   []attrMatch
}

type attrMatch struct {
	name      string
	op        string // "", "=", "*="
	value     string
}

func parseCompound(token string) compound {
	c := compound{}
	if m := tagRe.FindString(token); m != "" {
		c.tag = strings.ToLower(m)
	}
	for _, part := range partRe.FindAllString(token, -1) {
		switch {
		case strings.HasPrefix(part, "#"):
			c.id = part[1:]
		case strings.HasPrefix(part, "."):
			c.classes = append(c.classes, part[1:])
		case strings.HasPrefix(part, "["):
			c.attrs = append(c.attrs, parseAttr(part[1:len(part)-1]))
		}
	}
	return c
}

func parseAttr(inner string) attrMatch {
	if idx := strings.Index(inner, "*="); idx >= 0 {
		return attrMatch{name: inner[:idx], op: "*=", value: unquote(inner[idx+2:])}
	}
	if idx := strings.Index(inner, "="); idx >= 0 {
		return attrMatch{name: inner[:idx], op: "=", value: unquote(inner[idx+1:])}
	}
	return attrMatch{name: inner}
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

func attrValue(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}
	return "", false
}

func classList(n *html.Node) []string {
	v, ok := attrValue(n, "class")
	if !ok {
		return nil
	}
	return strings.Fields(v)
}

func matchesCompound(n *html.Node, token string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	c := parseCompound(token)

	if c.tag != "" && !strings.EqualFold(n.Data, c.tag) {
		return false
	}
	if c.id != "" {
		v, ok := attrValue(n, "id")
		if !ok || v != c.id {
			return false
		}
	}
	if len(c.classes) > 0 {
		have := classList(n)
		for _, want := range c.classes {
			found := false
			for _, h := range have {
				if h == want {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	for _, am := range c.attrs {
		v, ok := attrValue(n, am.name)
		if !ok {
			return false
		}
		switch am.op {
		case "":
			// presence only
		case "=":
			if v != am.value {
				return false
			}
		case "*=":
			if !strings.Contains(v, am.value) {
				return false
			}
		}
	}
	return true
}

func matchSteps(n *html.Node, steps []string) bool {
	if !matchesCompound(n, steps[len(steps)-1]) {
		return false
	}
	if len(steps) == 1 {
		return true
	}
	return hasAncestorSatisfying(n.Parent, steps[:len(steps)-1])
}

func hasAncestorSatisfying(n *html.Node, steps []string) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if matchSteps(cur, steps) {
			return true
		}
	}
	return false
}

// matches reports whether n satisfies selector (a whitespace-separated
// chain of compound selectors joined by the descendant combinator).
func matches(n *html.Node, selector string) bool {
	steps := strings.Fields(selector)
	if len(steps) == 0 {
		return false
	}
	return matchSteps(n, steps)
}

// collectAll walks root's subtree in document order, returning every
// node that matches selector.
func collectAll(root *html.Node, selector string) []*html.Node {
	var out []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if matches(n, selector) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

// firstMatch returns the first node under root matching selector, or nil.
func firstMatch(root *html.Node, selector string) *html.Node {
	nodes := collectAll(root, selector)
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

// textContent concatenates all text node data under n, trimmed.
func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(strings.Join(strings.Fields(b.String()), " "))
}
