package mailbox

import (
	"bytes"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/emersion/go-message/mail"
)

// snippetMaxChars bounds the body excerpt sent to the model, keeping token
// cost predictable.
const snippetMaxChars = 500

// extractSnippet parses a raw RFC 2822 body and returns a plain-text
// excerpt plus whether the message carries attachments. A plain-text part
// is preferred; HTML is tag-stripped as a fallback.
func extractSnippet(raw []byte) (snippet string, hasAttachments bool) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		// Unparseable MIME: treat the payload as plain text.
		return truncate(collapseWhitespace(string(raw)), snippetMaxChars), false
	}
	defer mr.Close()

	var textBody, htmlBody string

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := h.ContentType()
			body, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}

			switch {
			case strings.HasPrefix(contentType, "text/plain") && textBody == "":
				textBody = string(body)
			case strings.HasPrefix(contentType, "text/html") && htmlBody == "":
				htmlBody = string(body)
			}

		case *mail.AttachmentHeader:
			hasAttachments = true
		}
	}

	text := textBody
	if text == "" && htmlBody != "" {
		text = stripHTML(htmlBody)
	}

	return truncate(collapseWhitespace(text), snippetMaxChars), hasAttachments
}

var (
	htmlTagPattern    = regexp.MustCompile(`<[^>]*>`)
	styleScriptBlocks = regexp.MustCompile(`(?is)<(style|script)[^>]*>.*?</(style|script)>`)
)

// stripHTML removes tags and decodes common entities, giving a basic
// plain-text rendering good enough for classification.
func stripHTML(html string) string {
	if html == "" {
		return ""
	}

	result := styleScriptBlocks.ReplaceAllString(html, " ")
	result = htmlTagPattern.ReplaceAllString(result, " ")

	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
	)
	return replacer.Replace(result)
}

var whitespaceRuns = regexp.MustCompile(`\s+`)

// collapseWhitespace squashes runs of whitespace into single spaces.
func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRuns.ReplaceAllString(s, " "))
}

// truncate shortens s to at most max characters, appending an ellipsis when
// anything was cut. Cuts happen on rune boundaries.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}

	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max-3])) + "..."
}
