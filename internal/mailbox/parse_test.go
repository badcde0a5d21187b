package mailbox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const plainMessage = "From: Alice <alice@example.com>\r\n" +
	"To: bob@example.com\r\n" +
	"Subject: lunch\r\n" +
	"Date: Thu, 20 Aug 2026 10:00:00 +0000\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Are you free   for lunch\r\ntomorrow?\r\n"

const htmlMessage = "From: news@example.com\r\n" +
	"To: bob@example.com\r\n" +
	"Subject: digest\r\n" +
	"Date: Thu, 20 Aug 2026 10:00:00 +0000\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<html><head><style>p{color:red}</style></head>" +
	"<body><p>Top&nbsp;stories &amp; more</p><script>alert(1)</script></body></html>\r\n"

const attachmentMessage = "From: hr@example.com\r\n" +
	"To: bob@example.com\r\n" +
	"Subject: contract\r\n" +
	"Date: Thu, 20 Aug 2026 10:00:00 +0000\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=\"xyz\"\r\n" +
	"\r\n" +
	"--xyz\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Please sign the attached contract.\r\n" +
	"--xyz\r\n" +
	"Content-Type: application/pdf\r\n" +
	"Content-Disposition: attachment; filename=\"contract.pdf\"\r\n" +
	"\r\n" +
	"%PDF-1.4 fake\r\n" +
	"--xyz--\r\n"

func TestExtractSnippetPlainText(t *testing.T) {
	snippet, hasAttachments := extractSnippet([]byte(plainMessage))

	assert.Equal(t, "Are you free for lunch tomorrow?", snippet)
	assert.False(t, hasAttachments)
}

func TestExtractSnippetStripsHTML(t *testing.T) {
	snippet, _ := extractSnippet([]byte(htmlMessage))

	assert.Contains(t, snippet, "Top stories & more")
	assert.NotContains(t, snippet, "<p>")
	assert.NotContains(t, snippet, "alert")
	assert.NotContains(t, snippet, "color:red")
}

func TestExtractSnippetDetectsAttachments(t *testing.T) {
	snippet, hasAttachments := extractSnippet([]byte(attachmentMessage))

	assert.Contains(t, snippet, "Please sign the attached contract.")
	assert.True(t, hasAttachments)
}

func TestExtractSnippetTruncatesLongBodies(t *testing.T) {
	long := "From: a@example.com\r\n" +
		"Subject: long\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		strings.Repeat("word ", 400)

	snippet, _ := extractSnippet([]byte(long))

	assert.LessOrEqual(t, len([]rune(snippet)), snippetMaxChars)
	assert.True(t, strings.HasSuffix(snippet, "..."))
}

func TestTruncateIsRuneSafe(t *testing.T) {
	assert.Equal(t, "héllo", truncate("héllo", 10))
	assert.Equal(t, "héll...", truncate("héllo wörld", 7))
}

func TestCollapseWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", collapseWhitespace("a\t b\r\n  c"))
}
