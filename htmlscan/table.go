package htmlscan

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Input is a form control found inside a record field.
type Input struct {
	Name    string
	Value   string
	Checked bool
}

// TableItem is one title/data pair of the portal's flex-table layout.
type TableItem struct {
	Title  string
	Text   string
	Inputs []Input
}

// Value is the first input's value, or the cell text when the cell holds no
// input.
func (it TableItem) Value() string {
	if len(it.Inputs) > 0 {
		return it.Inputs[0].Value
	}
	return it.Text
}

// Input returns the named input inside the cell.
func (it TableItem) Input(name string) (Input, bool) {
	for _, in := range it.Inputs {
		if in.Name == name {
			return in, true
		}
	}
	return Input{}, false
}

// ExtractTableItems returns every flex-table-item with both a title and a
// data cell, in document order.
func ExtractTableItems(page string) ([]TableItem, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, err
	}

	var items []TableItem
	for _, n := range findAll(doc, isDivWithClass("flex-table-item")) {
		title := findFirst(n, isDivWithClass("item-title"))
		data := findFirst(n, isDivWithClass("item-data"))
		if title == nil || data == nil {
			continue
		}

		item := TableItem{Title: textOf(title), Text: textOf(data)}
		for _, in := range findAll(data, func(n *html.Node) bool { return n.DataAtom == atom.Input }) {
			name, _ := attr(in, "name")
			value, _ := attr(in, "value")
			_, checked := attr(in, "checked")
			item.Inputs = append(item.Inputs, Input{Name: name, Value: value, Checked: checked})
		}
		items = append(items, item)
	}
	return items, nil
}

// ExtractTableFields flattens ExtractTableItems into title → value. Later
// duplicates win.
func ExtractTableFields(page string) (map[string]string, error) {
	items, err := ExtractTableItems(page)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(items))
	for _, it := range items {
		out[it.Title] = it.Value()
	}
	return out, nil
}

// ExtractDataImage returns the base64 payload of the first inline data:image
// <img>, or "".
func ExtractDataImage(page string) string {
	var payload string
	forEachTag(page, func(t tag) bool {
		if t.name != "img" || t.end {
			return true
		}
		src := t.attr("src")
		if !strings.HasPrefix(src, "data:image") {
			return true
		}
		if _, b64, ok := strings.Cut(src, "base64,"); ok {
			payload = b64
		}
		return false
	})
	return payload
}
