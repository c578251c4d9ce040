package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Category selects one of the Hacker News story listings.
type Category string

const (
	CategoryNew  Category = "new"
	CategoryTop  Category = "top"
	CategoryBest Category = "best"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryNew, CategoryTop, CategoryBest}

var ErrUnknownCategory = errors.New("unknown category")

// ParseCategory accepts the lower- or upper-case category name.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case CategoryNew, CategoryTop, CategoryBest:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// Label is the capitalized name shown in headers and tabs.
func (c Category) Label() string {
	if c == "" {
		return ""
	}
	return strings.ToUpper(string(c[:1])) + string(c[1:])
}

// Story mirrors the Hacker News item record for type "story".
type Story struct {
	By          string `json:"by"`
	Descendants int    `json:"descendants"`
	ID          int    `json:"id"`
	Kids        []int  `json:"kids"`
	Score       int    `json:"score"`
	Time        int64  `json:"time"`
	Title       string `json:"title"`
	Type        string `json:"type"`
	URL         string `json:"url"`
}

// Posted is the submission time.
func (s Story) Posted() time.Time { return time.Unix(s.Time, 0) }
