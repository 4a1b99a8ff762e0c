package importer

// Entry is a single bookmark entry in a Homepage bookmarks.yaml
type Entry struct {
	Icon string `yaml:"icon"`
	Abbr string `yaml:"abbr"`
	Href string `yaml:"href"`
}

// Category maps a category name to its bookmarks.
// The YAML structure is: - CategoryName: [ - BookmarkName: [{ icon, abbr, href }] ]
// Each bookmark name maps to a list holding a single entry.
type Category map[string][]map[string][]Entry

// Config is the root structure of bookmarks.yaml
type Config []Category
