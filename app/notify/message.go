package notify

import (
	"strings"

	"github.com/lysyi3m/sinkhole-watch/app/database"
)

const unknownCreator = "미상"

// FormatReport renders the chat message announcing a new report.
func FormatReport(report database.Report) string {
	creator := unknownCreator
	if report.Creator != nil && *report.Creator != "" {
		creator = *report.Creator
	}

	var b strings.Builder
	b.WriteString("🚨 새로운 싱크홀 관련 뉴스!\n")
	b.WriteString("*" + report.Title + "*\n")
	b.WriteString("작성자: " + creator + "\n")
	b.WriteString(report.Summary + "\n")
	b.WriteString(report.Link)

	if report.MediaContent != nil {
		b.WriteString("\n이미지: " + report.MediaContent.URL)
	}

	return b.String()
}
