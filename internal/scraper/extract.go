package scraper

import (
	"regexp"
	"strings"
)

// ExtractBetween returns the first capture between the start and end
// boundary patterns, trimmed. The boundaries are regular expressions and
// the capture spans newlines. A missing boundary (or an invalid pattern)
// yields "" rather than an error: callers treat empty extraction as
// "field absent", never as a reason to abort the record.
func ExtractBetween(content, start, end string) string {
	re, err := regexp.Compile("(?s)" + start + "(.*?)" + end)
	if err != nil {
		return ""
	}
	match := re.FindStringSubmatch(content)
	if len(match) < 2 {
		return ""
	}
	return strings.TrimSpace(match[1])
}

// ExtractAll returns the ordered, trimmed first captures of every match of
// re in content. No match yields an empty slice.
func ExtractAll(content string, re *regexp.Regexp) []string {
	var captures []string
	for _, match := range re.FindAllStringSubmatch(content, -1) {
		if len(match) > 1 {
			captures = append(captures, strings.TrimSpace(match[1]))
		}
	}
	return captures
}
