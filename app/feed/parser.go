package feed

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
	"golang.org/x/net/html/charset"
)

type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

// Run turns a raw RSS document into entries in document order.
func (p *Parser) Run(data []byte) ([]Entry, error) {
	if err := p.checkShape(data); err != nil {
		return nil, &MalformedFeedError{Err: err}
	}

	feed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, &MalformedFeedError{Err: fmt.Errorf("failed to parse feed: %w", err)}
	}

	entries := make([]Entry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		entry, err := p.normalizeItem(item)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// checkShape verifies the document is well-formed XML with a channel element
// directly under an rss (RSS 2.0) or RDF (RSS 1.0) root.
func (p *Parser) checkShape(data []byte) error {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.CharsetReader = charset.NewReaderLabel
	decoder.Entity = xml.HTMLEntity

	depth := 0
	root := ""
	hasChannel := false

	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("document is not well-formed XML: %w", err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			depth++
			if depth == 1 {
				root = t.Name.Local
			}
			if depth == 2 && t.Name.Local == "channel" {
				hasChannel = true
			}
		case xml.EndElement:
			depth--
		}
	}

	switch {
	case root == "":
		return errors.New("document has no root element")
	case root != "rss" && root != "RDF":
		return fmt.Errorf("unexpected root element <%s>", root)
	case !hasChannel:
		return errors.New("document has no channel element")
	}

	return nil
}

func (p *Parser) normalizeItem(item *gofeed.Item) (Entry, error) {
	entry := Entry{
		GUID:    cmp.Or(strings.TrimSpace(item.GUID), item.Link),
		Title:   item.Title,
		Link:    item.Link,
		Summary: item.Description,
		Creator: p.extractCreator(item),
		Media:   p.extractMedia(item),
	}

	publishedAt, err := p.parsePublished(item)
	if err != nil {
		return Entry{}, &InvalidDateError{GUID: entry.GUID, Value: item.Published, Err: err}
	}
	entry.PublishedAt = publishedAt

	return entry, nil
}

func (p *Parser) parsePublished(item *gofeed.Item) (time.Time, error) {
	if item.PublishedParsed != nil {
		return item.PublishedParsed.UTC(), nil
	}

	raw := strings.TrimSpace(item.Published)
	if raw == "" {
		return time.Time{}, errors.New("publication date is missing")
	}

	parsed, err := dateparse.ParseIn(raw, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return parsed.UTC(), nil
}

func (p *Parser) extractCreator(item *gofeed.Item) *string {
	if item.DublinCoreExt != nil {
		for _, creator := range item.DublinCoreExt.Creator {
			if creator = strings.TrimSpace(creator); creator != "" {
				return &creator
			}
		}
	}

	for _, author := range item.Authors {
		if author == nil {
			continue
		}
		if name := strings.TrimSpace(cmp.Or(author.Name, author.Email)); name != "" {
			return &name
		}
	}

	return nil
}

// extractMedia returns the first media:content carrying both url and type,
// falling back to the first image enclosure.
func (p *Parser) extractMedia(item *gofeed.Item) *Media {
	if media, ok := item.Extensions["media"]; ok {
		for _, content := range media["content"] {
			if m := mediaFromAttrs(content); m != nil {
				return m
			}
		}
		for _, group := range media["group"] {
			for _, content := range group.Children["content"] {
				if m := mediaFromAttrs(content); m != nil {
					return m
				}
			}
		}
	}

	for _, enclosure := range item.Enclosures {
		if enclosure == nil {
			continue
		}
		if enclosure.URL != "" && strings.HasPrefix(enclosure.Type, "image/") {
			return &Media{URL: enclosure.URL, Type: enclosure.Type}
		}
	}

	return nil
}

func mediaFromAttrs(content ext.Extension) *Media {
	url := strings.TrimSpace(content.Attrs["url"])
	mediaType := strings.TrimSpace(content.Attrs["type"])
	if url == "" || mediaType == "" {
		return nil
	}
	return &Media{URL: url, Type: mediaType}
}
