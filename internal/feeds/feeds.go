// Package feeds is the static catalog of RSS endpoints the pipeline reads.
package feeds

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/suhufapp/suhuf/internal/news"
)

//go:embed feeds.yaml
var defaultFeeds []byte

// Descriptor is one feed endpoint tagged with its source, language and category.
type Descriptor struct {
	URL      string `yaml:"url"`
	Name     string `yaml:"name"`
	Language string `yaml:"language"`
	Category string `yaml:"category"`
}

// FeedsConfig is the YAML layout:
//
//	feeds:
//	  - {url: https://..., name: ..., language: en, category: world}
type FeedsConfig struct {
	Feeds []Descriptor `yaml:"feeds"`
}

// Registry is immutable after construction.
type Registry struct {
	feeds []Descriptor
}

// Default returns the registry compiled into the binary.
func Default() (*Registry, error) {
	return Parse(defaultFeeds)
}

// LoadFile reads a registry from a YAML file, replacing the embedded table.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read feeds config: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML registry document.
func Parse(data []byte) (*Registry, error) {
	var cfg FeedsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode feeds config: %w", err)
	}
	for i, d := range cfg.Feeds {
		if d.URL == "" {
			return nil, fmt.Errorf("feed %d: url is required", i)
		}
		if !news.ValidLanguage(d.Language) {
			return nil, fmt.Errorf("feed %s: unsupported language %q", d.URL, d.Language)
		}
		cfg.Feeds[i].Category = news.NormalizeCategory(d.Category)
		if cfg.Feeds[i].Name == "" {
			cfg.Feeds[i].Name = d.URL
		}
	}
	return New(cfg.Feeds), nil
}

// New builds a registry over an explicit table. Used by tests and by Parse.
func New(feeds []Descriptor) *Registry {
	cp := make([]Descriptor, len(feeds))
	copy(cp, feeds)
	return &Registry{feeds: cp}
}

// ListFeeds returns the descriptors for language, in registry order. Category
// "all" selects every category of the language.
func (r *Registry) ListFeeds(language, category string) []Descriptor {
	category = news.NormalizeCategory(category)
	var out []Descriptor
	for _, d := range r.feeds {
		if d.Language != language {
			continue
		}
		if category != news.CategoryAll && d.Category != category {
			continue
		}
		out = append(out, d)
	}
	return out
}

// ListAllLanguages is ListFeeds over every supported language, requested
// language first. Used by translating runs.
func (r *Registry) ListAllLanguages(language, category string) []Descriptor {
	out := r.ListFeeds(language, category)
	for _, lang := range []string{news.LangArabic, news.LangEnglish} {
		if lang != language {
			out = append(out, r.ListFeeds(lang, category)...)
		}
	}
	return out
}

// Len is the number of descriptors in the registry.
func (r *Registry) Len() int { return len(r.feeds) }
