package importer

import (
	"context"
	"errors"
	"testing"

	"github.com/MrSnakeDoc/bookmarks/internal/domain"
	"github.com/MrSnakeDoc/bookmarks/internal/store/memory"
)

const sampleYAML = `---
- Developer:
    - Github:
        - abbr: GH
          href: https://github.com/
    - Go Docs:
        - href: https://go.dev/doc/
- Social:
    - Reddit:
        - icon: reddit.png
          href: {{HOMEPAGE_VAR_REDDIT_URL}}
    - Empty:
        - icon: nothing.png
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(cfg) != 2 {
		t.Fatalf("Parse() returned %d categories, want 2", len(cfg))
	}
}

func TestParseInvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("- [unclosed")); !errors.Is(err, ErrInvalidDocument) {
		t.Errorf("Parse() with invalid yaml error = %v, want ErrInvalidDocument", err)
	}
}

func TestStripTemplateVariables(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "single template variable",
			input:    []byte("href: {{HOMEPAGE_VAR_URL}}"),
			expected: "href: \"\"",
		},
		{
			name:     "two variables on one line",
			input:    []byte("a: {{A}} b: {{B}}"),
			expected: "a: \"\" b: \"\"",
		},
		{
			name:     "no template variables",
			input:    []byte("plain text"),
			expected: "plain text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := stripTemplateVariables(tt.input)
			if string(result) != tt.expected {
				t.Errorf("stripTemplateVariables() = %q, want %q", string(result), tt.expected)
			}
		})
	}
}

func TestMap(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	requests, skipped := Map(cfg, "U1")

	want := []domain.NewBookmark{
		{Title: "GH", URL: "https://github.com/", OwnerID: "U1"},
		{Title: "Go Docs", URL: "https://go.dev/doc/", OwnerID: "U1"},
	}
	if len(requests) != len(want) {
		t.Fatalf("Map() returned %d requests, want %d: %+v", len(requests), len(want), requests)
	}
	for i := range want {
		if requests[i] != want[i] {
			t.Errorf("request %d = %+v, want %+v", i, requests[i], want[i])
		}
	}
	// Reddit lost its href to the template variable; Empty never had one
	if skipped != 2 {
		t.Errorf("Map() skipped = %d, want 2", skipped)
	}
}

func TestImport(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	res, err := Import(ctx, s, "U1", []byte(sampleYAML))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if res.Imported != 2 || res.Skipped != 2 {
		t.Errorf("Import() = %+v, want 2 imported and 2 skipped", res)
	}

	n, err := s.CountByOwner(ctx, "U1")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("store holds %d bookmarks, want 2", n)
	}
}

func TestImportEmptyDocument(t *testing.T) {
	_, err := Import(context.Background(), memory.New(), "U1", []byte("---\n- Nothing: []\n"))
	if !errors.Is(err, ErrEmpty) {
		t.Errorf("Import() error = %v, want ErrEmpty", err)
	}
}
