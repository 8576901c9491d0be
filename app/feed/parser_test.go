package feed

import (
	"errors"
	"testing"
	"time"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss xmlns:content="http://purl.org/rss/1.0/modules/content/"
     xmlns:dc="http://purl.org/dc/elements/1.1/"
     xmlns:media="http://search.yahoo.com/mrss/"
     xmlns:atom="http://www.w3.org/2005/Atom"
     version="2.0">
  <channel>
    <title><![CDATA[연합뉴스 최신기사]]></title>
    <link>https://www.yna.co.kr/news</link>
    <description><![CDATA[연합뉴스 실시간 최신뉴스입니다]]></description>
    <language>ko-KR</language>
    <item>
      <title><![CDATA[서울 도심에 싱크홀 발생]]></title>
      <link>https://test.com/news/1</link>
      <guid isPermaLink="true">https://test.com/news/1</guid>
      <pubDate>Tue, 15 Nov 2023 09:00:00 GMT</pubDate>
      <dc:creator>테스트기자</dc:creator>
      <description><![CDATA[도로에 싱크홀이 발생하여...]]></description>
      <media:content url="https://test.com/image1.jpg" type="image/jpeg"/>
    </item>
  </channel>
</rss>`

func TestParseSampleFeed(t *testing.T) {
	parser := NewParser()
	entries, err := parser.Run([]byte(sampleFeed))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}

	entry := entries[0]
	if entry.Title != "서울 도심에 싱크홀 발생" {
		t.Errorf("Expected title '서울 도심에 싱크홀 발생', got '%s'", entry.Title)
	}
	if entry.Summary != "도로에 싱크홀이 발생하여..." {
		t.Errorf("Expected summary from description, got '%s'", entry.Summary)
	}
	if entry.Link != "https://test.com/news/1" {
		t.Errorf("Expected link 'https://test.com/news/1', got '%s'", entry.Link)
	}
	if entry.GUID != "https://test.com/news/1" {
		t.Errorf("Expected guid 'https://test.com/news/1', got '%s'", entry.GUID)
	}
	if entry.Creator == nil || *entry.Creator != "테스트기자" {
		t.Errorf("Expected creator '테스트기자', got %v", entry.Creator)
	}

	expectedDate := time.Date(2023, 11, 15, 9, 0, 0, 0, time.UTC)
	if !entry.PublishedAt.Equal(expectedDate) {
		t.Errorf("Expected published %v, got %v", expectedDate, entry.PublishedAt)
	}
	if entry.PublishedAt.Location() != time.UTC {
		t.Errorf("Expected UTC timestamp, got %v", entry.PublishedAt.Location())
	}

	if entry.Media == nil {
		t.Fatal("Expected media content")
	}
	if entry.Media.URL != "https://test.com/image1.jpg" || entry.Media.Type != "image/jpeg" {
		t.Errorf("Expected media {https://test.com/image1.jpg image/jpeg}, got %+v", *entry.Media)
	}
}

func TestParseOptionalFieldsAndOrder(t *testing.T) {
	rssData := `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <item>
      <title>First</title>
      <link>https://example.com/1</link>
      <description>One</description>
      <pubDate>Mon, 03 Jul 2023 10:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Second</title>
      <link>https://example.com/2</link>
      <guid isPermaLink="false">custom-guid-2</guid>
      <description>Two</description>
      <pubDate>Mon, 03 Jul 2023 11:00:00 +0900</pubDate>
      <author>reporter@example.com (Kim Reporter)</author>
    </item>
  </channel>
</rss>`

	entries, err := NewParser().Run([]byte(rssData))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}

	if entries[0].Title != "First" || entries[1].Title != "Second" {
		t.Errorf("Expected document order, got '%s', '%s'", entries[0].Title, entries[1].Title)
	}

	if entries[0].GUID != "https://example.com/1" {
		t.Errorf("Expected guid to fall back to link, got '%s'", entries[0].GUID)
	}
	if entries[1].GUID != "custom-guid-2" {
		t.Errorf("Expected explicit guid 'custom-guid-2', got '%s'", entries[1].GUID)
	}

	if entries[0].Creator != nil {
		t.Errorf("Expected no creator, got '%s'", *entries[0].Creator)
	}
	if entries[1].Creator == nil || *entries[1].Creator != "Kim Reporter" {
		t.Errorf("Expected creator 'Kim Reporter', got %v", entries[1].Creator)
	}

	if entries[0].Media != nil {
		t.Errorf("Expected no media, got %+v", *entries[0].Media)
	}

	expectedSecond := time.Date(2023, 7, 3, 2, 0, 0, 0, time.UTC)
	if !entries[1].PublishedAt.Equal(expectedSecond) {
		t.Errorf("Expected %v, got %v", expectedSecond, entries[1].PublishedAt)
	}
}

func TestParseMediaFallbacks(t *testing.T) {
	rssData := `<?xml version="1.0"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/">
  <channel>
    <title>Test Feed</title>
    <item>
      <title>Untyped media</title>
      <link>https://example.com/1</link>
      <pubDate>Mon, 03 Jul 2023 10:00:00 GMT</pubDate>
      <media:content url="https://example.com/1.jpg"/>
    </item>
    <item>
      <title>Enclosure</title>
      <link>https://example.com/2</link>
      <pubDate>Mon, 03 Jul 2023 10:00:00 GMT</pubDate>
      <enclosure url="https://example.com/2.mp3" length="100" type="audio/mpeg"/>
      <enclosure url="https://example.com/2.png" length="200" type="image/png"/>
    </item>
    <item>
      <title>Group</title>
      <link>https://example.com/3</link>
      <pubDate>Mon, 03 Jul 2023 10:00:00 GMT</pubDate>
      <media:group>
        <media:content url="https://example.com/3.jpg" type="image/jpeg"/>
      </media:group>
    </item>
  </channel>
</rss>`

	entries, err := NewParser().Run([]byte(rssData))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}

	if entries[0].Media != nil {
		t.Errorf("Expected media without type to be ignored, got %+v", *entries[0].Media)
	}
	if entries[1].Media == nil || entries[1].Media.URL != "https://example.com/2.png" {
		t.Errorf("Expected first image enclosure, got %+v", entries[1].Media)
	}
	if entries[2].Media == nil || entries[2].Media.URL != "https://example.com/3.jpg" {
		t.Errorf("Expected media from media:group, got %+v", entries[2].Media)
	}
}

func TestParseDateFallback(t *testing.T) {
	rssData := `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <item>
      <title>Loose date</title>
      <link>https://example.com/1</link>
      <pubDate>2023-11-15 18:30:00</pubDate>
    </item>
  </channel>
</rss>`

	entries, err := NewParser().Run([]byte(rssData))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	expected := time.Date(2023, 11, 15, 18, 30, 0, 0, time.UTC)
	if !entries[0].PublishedAt.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, entries[0].PublishedAt)
	}
}

func TestParseInvalidDate(t *testing.T) {
	tests := []struct {
		name    string
		pubDate string
		value   string
	}{
		{"unparsable", "<pubDate>not a date</pubDate>", "not a date"},
		{"missing", "", ""},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			rssData := `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <item>
      <title>싱크홀</title>
      <link>https://example.com/1</link>
      ` + test.pubDate + `
    </item>
  </channel>
</rss>`

			_, err := NewParser().Run([]byte(rssData))

			var dateErr *InvalidDateError
			if !errors.As(err, &dateErr) {
				t.Fatalf("Expected InvalidDateError, got: %v", err)
			}
			if dateErr.GUID != "https://example.com/1" {
				t.Errorf("Expected guid 'https://example.com/1', got '%s'", dateErr.GUID)
			}
			if dateErr.Value != test.value {
				t.Errorf("Expected value '%s', got '%s'", test.value, dateErr.Value)
			}
		})
	}
}

func TestParseMalformedFeed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"not xml", "this is not a feed"},
		{"truncated", `<?xml version="1.0"?><rss version="2.0"><channel><title>x</title>`},
		{"mismatched tags", `<rss version="2.0"><channel></item></channel></rss>`},
		{"no channel", `<?xml version="1.0"?><rss version="2.0"><item><title>x</title></item></rss>`},
		{"atom", `<?xml version="1.0"?><feed xmlns="http://www.w3.org/2005/Atom"><title>x</title></feed>`},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			entries, err := NewParser().Run([]byte(test.data))

			var malformed *MalformedFeedError
			if !errors.As(err, &malformed) {
				t.Fatalf("Expected MalformedFeedError, got: %v", err)
			}
			if entries != nil {
				t.Errorf("Expected no entries, got %d", len(entries))
			}
		})
	}
}

func TestParseEmptyChannel(t *testing.T) {
	rssData := `<?xml version="1.0"?><rss version="2.0"><channel><title>Empty</title></channel></rss>`

	entries, err := NewParser().Run([]byte(rssData))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no entries, got %d", len(entries))
	}
}
