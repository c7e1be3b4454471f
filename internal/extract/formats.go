package extract

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// maxCSVRows caps how many rows of a CSV are rendered; huge exports would
// otherwise drown the index in near-identical chunks.
const maxCSVRows = 100

// extractPlain returns content as a UTF-8 string. Files with invalid UTF-8
// are rejected so binary blobs with text extensions don't get indexed.
func extractPlain(content []byte) (string, error) {
	if !utf8.Valid(content) {
		return "", fmt.Errorf("not valid UTF-8 text")
	}
	return string(content), nil
}

// extractJSON pretty-prints JSON so keys and values land on separate lines
// for the chunker.
func extractJSON(content []byte) (string, error) {
	var value any
	if err := json.Unmarshal(content, &value); err != nil {
		return "", fmt.Errorf("parse JSON: %w", err)
	}
	pretty, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return "", fmt.Errorf("render JSON: %w", err)
	}
	return string(pretty), nil
}

// extractCSV renders rows as " | "-joined lines, capped at maxCSVRows.
func extractCSV(content []byte) (string, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1

	var b strings.Builder
	rows := 0
	for rows < maxCSVRows {
		record, err := reader.Read()
		if err != nil {
			break
		}
		b.WriteString(strings.Join(record, " | "))
		b.WriteByte('\n')
		rows++
	}
	if rows == 0 {
		return "", fmt.Errorf("no readable CSV rows")
	}
	return b.String(), nil
}

var (
	htmlScriptRe = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	htmlTagRe    = regexp.MustCompile(`(?s)<[^>]*>`)
	blankLinesRe = regexp.MustCompile(`\n{3,}`)
)

// extractHTML strips tags, leaving the text content. Script and style
// bodies are removed entirely.
func extractHTML(content []byte) (string, error) {
	text, err := extractPlain(content)
	if err != nil {
		return "", err
	}
	text = htmlScriptRe.ReplaceAllString(text, " ")
	text = htmlTagRe.ReplaceAllString(text, "\n")
	text = strings.NewReplacer(
		"&nbsp;", " ", "&amp;", "&", "&lt;", "<", "&gt;", ">",
		"&quot;", `"`, "&#39;", "'",
	).Replace(text)
	text = blankLinesRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text), nil
}
