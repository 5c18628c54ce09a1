package sources

import (
	"fmt"
	"sort"

	"github.com/NathanBvumbwe/peza-ganyu/internal/config"
)

var builtin = map[string]func(...Option) *ListingCrawler{
	"jobsearchmalawi": NewJobSearchMalawi,
	"ntchito":         NewNtchito,
	"careersmw":       NewCareersMW,
}

// Names returns the built-in adapter names in sorted order.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build returns the adapters selected by name plus one FeedAdapter per
// configured feed, in configuration order.
func Build(names []string, feeds []config.FeedConfig) ([]Adapter, error) {
	seen := make(map[string]bool)
	adapters := make([]Adapter, 0, len(names)+len(feeds))

	for _, name := range names {
		newAdapter, ok := builtin[name]
		if !ok {
			return nil, fmt.Errorf("unknown source %q (available: %v)", name, Names())
		}
		if seen[name] {
			return nil, fmt.Errorf("source %q configured twice", name)
		}
		seen[name] = true
		adapters = append(adapters, newAdapter())
	}

	for _, f := range feeds {
		if seen[f.Name] {
			return nil, fmt.Errorf("source %q configured twice", f.Name)
		}
		seen[f.Name] = true
		adapters = append(adapters, NewFeed(f.Name, f.URL))
	}

	return adapters, nil
}
