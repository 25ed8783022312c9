package htmlscan

import (
	"strings"

	"golang.org/x/net/html"
)

// ExtractInfoCells returns the title/value pairs of the first main-user-info
// card on the portal's main page. Colons are dropped from titles. ok is false
// when the page has no such card.
func ExtractInfoCells(page string) (cells map[string]string, ok bool, err error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, false, err
	}
	card := findFirst(doc, isDivWithClass("main-user-info"))
	if card == nil {
		return nil, false, nil
	}

	cells = make(map[string]string)
	for _, cell := range findAll(card, isDivWithClass("info-cell")) {
		title := findFirst(cell, isDivWithClass("title"))
		value := findFirst(cell, isDivWithClass("value"))
		if title == nil || value == nil {
			continue
		}
		key := strings.TrimSpace(strings.ReplaceAll(textOf(title), ":", ""))
		cells[key] = textOf(value)
	}
	return cells, true, nil
}
