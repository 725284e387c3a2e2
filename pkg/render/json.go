package render

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dtnitsch/docbundle/models"
)

type jsonIndex struct {
	BaseURL     string          `json:"base_url"`
	GeneratedAt time.Time       `json:"generated_at"`
	Metadata    map[string]any  `json:"metadata"`
	Pages       []jsonIndexPage `json:"pages"`
}

type jsonIndexPage struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	File  string `json:"file"`
	Depth int    `json:"depth"`
}

func renderJSON(doc *models.Documentation, opts Options) (*Bundle, error) {
	b := &Bundle{}

	if opts.Layout == LayoutCombined {
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("error marshalling documentation: %w", err)
		}
		b.add(CombinedJSON, data)
		return b, nil
	}

	names := pageFiles(doc.Pages)
	if opts.CreateIndex {
		index := jsonIndex{
			BaseURL:     doc.BaseURL,
			GeneratedAt: doc.GeneratedAt,
			Metadata:    doc.Metadata,
			Pages:       make([]jsonIndexPage, len(doc.Pages)),
		}
		for i := range doc.Pages {
			p := &doc.Pages[i]
			index.Pages[i] = jsonIndexPage{
				Title: p.DisplayTitle(),
				URL:   p.URL,
				File:  PagesDir + "/" + names[i] + ".json",
				Depth: doc.Depth(*p),
			}
		}
		data, err := json.MarshalIndent(index, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("error marshalling index: %w", err)
		}
		b.add(IndexJSON, data)
	}

	for i := range doc.Pages {
		data, err := json.MarshalIndent(&doc.Pages[i], "", "  ")
		if err != nil {
			return nil, fmt.Errorf("error marshalling page %s: %w", doc.Pages[i].URL, err)
		}
		b.add(PagesDir+"/"+names[i]+".json", data)
	}
	return b, nil
}

// DecodeJSON reads a combined JSON bundle back into Documentation.
func DecodeJSON(data []byte) (*models.Documentation, error) {
	var doc models.Documentation
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("error decoding documentation: %w", err)
	}
	if doc.Pages == nil {
		doc.Pages = []models.Page{}
	}
	if doc.Metadata == nil {
		doc.Metadata = map[string]any{}
	}
	return &doc, nil
}
