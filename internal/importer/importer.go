// Package importer turns a Homepage bookmarks.yaml into add requests.
package importer

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/MrSnakeDoc/bookmarks/internal/domain"
	"github.com/MrSnakeDoc/bookmarks/internal/store"
)

// ErrEmpty is returned when a document holds no importable bookmark.
var ErrEmpty = errors.New("no bookmarks found in document")

// ErrInvalidDocument is returned when the body is not a bookmarks.yaml document.
var ErrInvalidDocument = errors.New("invalid bookmarks document")

// templateVar matches Homepage template variables such as {{HOMEPAGE_VAR_URL}}
var templateVar = regexp.MustCompile(`\{\{[^}]+\}\}`)

// Result reports what an import did.
type Result struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// Parse strips template variables and decodes a bookmarks.yaml document.
func Parse(data []byte) (Config, error) {
	data = stripTemplateVariables(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return cfg, nil
}

// Map converts a parsed document into add requests for ownerID.
// Entries without an href, or whose title would be empty, are counted as
// skipped. Order follows the document; names inside one YAML map are sorted.
func Map(cfg Config, ownerID string) ([]domain.NewBookmark, int) {
	var (
		requests []domain.NewBookmark
		skipped  int
	)

	for _, category := range cfg {
		for _, categoryName := range sortedKeys(category) {
			for _, bookmarkMap := range category[categoryName] {
				for _, name := range sortedKeys(bookmarkMap) {
					entries := bookmarkMap[name]
					if len(entries) == 0 {
						skipped++
						continue
					}
					entry := entries[0]

					// Abbr wins over the bookmark name when present
					title := entry.Abbr
					if title == "" {
						title = name
					}

					nb, err := domain.NewBookmarkRequest(title, entry.Href, ownerID)
					if err != nil {
						skipped++
						continue
					}
					requests = append(requests, nb)
				}
			}
		}
	}

	return requests, skipped
}

// Import parses data and inserts every valid entry for ownerID.
// It stops at the first storage failure and returns what was done so far.
func Import(ctx context.Context, w store.Writer, ownerID string, data []byte) (Result, error) {
	cfg, err := Parse(data)
	if err != nil {
		return Result{}, err
	}

	requests, skipped := Map(cfg, ownerID)
	res := Result{Skipped: skipped}
	if len(requests) == 0 {
		return res, ErrEmpty
	}

	for _, nb := range requests {
		if _, err := w.Insert(ctx, nb); err != nil {
			return res, err
		}
		res.Imported++
	}
	return res, nil
}

// stripTemplateVariables replaces Homepage template variables with an empty
// YAML string. Example: {{HOMEPAGE_VAR_URL}} -> ""
func stripTemplateVariables(data []byte) []byte {
	return templateVar.ReplaceAll(data, []byte(`""`))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
