package content

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// LectureSummary is one navigation entry read back out of the store.
type LectureSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Unit  string `json:"unit"`
}

// UnitLectures groups the lectures of one unit.
type UnitLectures struct {
	Unit
	Lectures []LectureSummary `json:"lectures"`
}

// Catalog is the student facing view of the store.
type Catalog struct {
	Lectures []LectureSummary `json:"lectures"`
	Units    []UnitLectures   `json:"units"`
}

// EmptyCatalog lists every unit with no lectures.
func EmptyCatalog(units Units) Catalog {
	c := Catalog{Lectures: []LectureSummary{}, Units: make([]UnitLectures, 0, len(units))}
	for _, u := range units {
		c.Units = append(c.Units, UnitLectures{Unit: u, Lectures: []LectureSummary{}})
	}
	return c
}

// ParseCatalog lists the lecture containers of a store document in store
// order and groups them by unit. Lectures naming an unknown unit stay in the
// flat list but are not placed in any group.
func ParseCatalog(doc string, units Units) (Catalog, error) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return Catalog{}, fmt.Errorf("failed to parse lecture store: %w", err)
	}

	catalog := EmptyCatalog(units)
	index := make(map[string]int, len(units))
	for i, u := range catalog.Units {
		index[u.ID] = i
	}

	for _, n := range lectureNodes(root) {
		summary := LectureSummary{
			ID:   attr(n, "id"),
			Unit: attr(n, "data-unit"),
		}
		if summary.Unit == "" {
			summary.Unit = DefaultUnit
		}
		summary.Title = firstHeadingText(n)
		if summary.Title == "" {
			summary.Title = summary.ID
		}

		catalog.Lectures = append(catalog.Lectures, summary)
		if i, ok := index[summary.Unit]; ok {
			catalog.Units[i].Lectures = append(catalog.Units[i].Lectures, summary)
		}
	}
	return catalog, nil
}

// FindLecture returns the inner HTML of the lecture container with the given
// id. The boolean is false when no such lecture exists.
func FindLecture(doc, id string) (string, bool, error) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return "", false, fmt.Errorf("failed to parse lecture store: %w", err)
	}
	for _, n := range lectureNodes(root) {
		if attr(n, "id") != id {
			continue
		}
		var buf bytes.Buffer
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if err := html.Render(&buf, c); err != nil {
				return "", false, fmt.Errorf("failed to render lecture %s: %w", id, err)
			}
		}
		return strings.TrimSpace(buf.String()), true, nil
	}
	return "", false, nil
}

// lectureNodes collects every element whose class list contains
// lecture-content, without descending into a match.
func lectureNodes(root *html.Node) []*html.Node {
	var nodes []*html.Node
	var crawler func(*html.Node)
	crawler = func(n *html.Node) {
		if n.Type == html.ElementNode && hasClass(n, "lecture-content") {
			nodes = append(nodes, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			crawler(c)
		}
	}
	crawler(root)
	return nodes
}

// firstHeadingText prefers the first <h1>, then the first <h2>.
func firstHeadingText(n *html.Node) string {
	for _, a := range []atom.Atom{atom.H1, atom.H2} {
		if h := findFirst(n, a); h != nil {
			if text := nodeText(h); text != "" {
				return text
			}
		}
	}
	return ""
}

func findFirst(n *html.Node, a atom.Atom) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			return c
		}
		if found := findFirst(c, a); found != nil {
			return found
		}
	}
	return nil
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}
