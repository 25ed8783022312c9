package htmlscan

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type tag struct {
	name  string
	end   bool
	attrs []html.Attribute
}

func (t tag) attr(key string) string {
	for _, a := range t.attrs {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// forEachTag streams start, self-closing and end tags to fn until fn
// returns false or the input ends.
func forEachTag(page string, fn func(tag) bool) {
	z := html.NewTokenizer(strings.NewReader(page))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if !fn(tag{name: tok.Data, attrs: tok.Attr}) {
				return
			}
		case html.EndTagToken:
			tok := z.Token()
			if !fn(tag{name: tok.Data, end: true}) {
				return
			}
		}
	}
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func hasClass(n *html.Node, class string) bool {
	v, _ := attr(n, "class")
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}

// findAll walks the subtree under n depth-first and collects matches without
// descending into them.
func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		for ; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && match(c) {
				out = append(out, c)
				continue
			}
			walk(c.FirstChild)
		}
	}
	walk(n.FirstChild)
	return out
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if found := findAll(n, match); len(found) > 0 {
		return found[0]
	}
	return nil
}

func isDivWithClass(class string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.DataAtom == atom.Div && hasClass(n, class)
	}
}

// textOf concatenates the stripped text nodes under n.
func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		for ; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.TextNode:
				b.WriteString(strings.TrimSpace(c.Data))
			case html.ElementNode:
				if c.DataAtom == atom.Script || c.DataAtom == atom.Style {
					continue
				}
				walk(c.FirstChild)
			}
		}
	}
	walk(n.FirstChild)
	return b.String()
}
