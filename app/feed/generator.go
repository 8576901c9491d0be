package feed

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"html"
	"time"

	"github.com/lysyi3m/sinkhole-watch/app/database"
)

type Generator struct {
	version string
}

func NewGenerator(version string) *Generator {
	return &Generator{version: version}
}

// Run renders stored reports as an RSS 2.0 document, in the order given.
func (g *Generator) Run(channel Channel, reports []database.Report) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", channel.Title, 4)
	g.writeElement(&buf, "link", channel.Link, 4)
	g.writeElement(&buf, "description", cmp.Or(channel.Description, channel.Title), 4)

	if channel.SelfLink != "" {
		buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
			html.EscapeString(channel.SelfLink)))
	}

	lastBuildDate := time.Now()
	if len(reports) > 0 {
		if published, err := parseTimestamp(reports[0].PubDate); err == nil {
			lastBuildDate = published
		}
	}

	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("Sinkhole-Watch/%s", g.version), 4)
	g.writeElement(&buf, "language", channel.Language, 4)

	for _, report := range reports {
		if err := g.writeItem(&buf, report); err != nil {
			return "", err
		}
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, report database.Report) error {
	published, err := parseTimestamp(report.PubDate)
	if err != nil {
		return fmt.Errorf("failed to parse pubDate of report %s: %w", report.ID, err)
	}

	buf.WriteString("    <item>\n")

	guid := cmp.Or(report.GUID, report.ID)
	buf.WriteString(fmt.Sprintf("      <guid isPermaLink=\"%t\">", g.isURL(guid)))
	xml.EscapeText(buf, []byte(guid))
	buf.WriteString("</guid>\n")

	g.writeElement(buf, "title", report.Title, 6)
	g.writeElement(buf, "link", report.Link, 6)
	g.writeElement(buf, "description", cmp.Or(report.Summary, "No description available"), 6)
	g.writeElement(buf, "pubDate", published.Format(time.RFC1123Z), 6)

	if report.Creator != nil {
		g.writeElement(buf, "dc:creator", *report.Creator, 6)
	}

	if report.Location != nil {
		g.writeElement(buf, "category", *report.Location, 6)
	}

	if report.MediaContent != nil && report.MediaContent.URL != "" && report.MediaContent.Type != "" {
		buf.WriteString(fmt.Sprintf("      <enclosure url=\"%s\" length=\"0\" type=\"%s\" />\n",
			html.EscapeString(report.MediaContent.URL),
			html.EscapeString(report.MediaContent.Type)))
	}

	buf.WriteString("    </item>\n")
	return nil
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func (g *Generator) isURL(s string) bool {
	return (len(s) > 7 && s[:7] == "http://") || (len(s) > 8 && s[:8] == "https://")
}

func parseTimestamp(value string) (time.Time, error) {
	return time.Parse(database.PubDateLayout, value)
}
