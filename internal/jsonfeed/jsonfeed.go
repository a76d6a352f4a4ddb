// Package jsonfeed renders JSON Feed 1.1 documents.
package jsonfeed

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/oriys/feedcache/internal/domain"
)

// Version is the JSON Feed version URL written into every document.
const Version = "https://jsonfeed.org/version/1.1"

// Author is a feed or item author.
type Author struct {
	Name   string `json:"name,omitempty" yaml:"name"`
	URL    string `json:"url,omitempty" yaml:"url"`
	Avatar string `json:"avatar,omitempty" yaml:"avatar"`
}

// Hub is a real-time subscription endpoint.
type Hub struct {
	Type string `json:"type" yaml:"type"`
	URL  string `json:"url" yaml:"url"`
}

// Metadata is the top-level feed object minus version and items.
type Metadata struct {
	Title       string   `json:"title" yaml:"title"`
	HomePageURL string   `json:"home_page_url,omitempty" yaml:"home_page_url"`
	FeedURL     string   `json:"feed_url,omitempty" yaml:"feed_url"`
	Description string   `json:"description,omitempty" yaml:"description"`
	UserComment string   `json:"user_comment,omitempty" yaml:"user_comment"`
	NextURL     string   `json:"next_url,omitempty" yaml:"next_url"`
	Icon        string   `json:"icon,omitempty" yaml:"icon"`
	Favicon     string   `json:"favicon,omitempty" yaml:"favicon"`
	Language    string   `json:"language,omitempty" yaml:"language"`
	Expired     *bool    `json:"expired,omitempty" yaml:"expired"`
	Authors     []Author `json:"authors,omitempty" yaml:"authors"`
	Hubs        []Hub    `json:"hubs,omitempty" yaml:"hubs"`
}

// Validate checks the fields JSON Feed requires.
func (m Metadata) Validate() error {
	if m.Title == "" {
		return errors.New("feed title is required")
	}
	return nil
}

type document struct {
	Version string `json:"version"`
	Metadata
	Items []domain.Item `json:"items"`
}

// Render serializes meta and items. Items keep their order; an empty item
// list renders as [] rather than null.
func Render(meta Metadata, items []domain.Item) ([]byte, error) {
	if items == nil {
		items = []domain.Item{}
	}
	data, err := json.Marshal(document{
		Version:  Version,
		Metadata: meta,
		Items:    items,
	})
	if err != nil {
		return nil, fmt.Errorf("render feed: %w", err)
	}
	return data, nil
}
