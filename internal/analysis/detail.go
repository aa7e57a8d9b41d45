package analysis

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode"
	"unicode/utf8"
)

// previewLimit bounds raw error text copied into user-facing messages.
const previewLimit = 150

// errorDetail is the decoded `detail` field of an error body. The service
// sends either a string or a list of {msg, ...} objects, but neither shape
// is guaranteed, so anything else is kept as compact JSON text.
type errorDetail struct {
	raw      string
	text     string
	msgs     []string
	isString bool
	isList   bool
}

func (d errorDetail) present() bool {
	return d.text != ""
}

// mentionsRepository reports whether a string detail blames the repository
// rather than the endpoint.
func (d errorDetail) mentionsRepository(repositoryRef string) bool {
	if !d.isString {
		return false
	}
	lower := strings.ToLower(d.text)
	if strings.Contains(lower, "repository") {
		return true
	}
	ref := strings.ToLower(strings.TrimSpace(repositoryRef))
	if utf8.RuneCountInString(ref) < minRefMatchLen {
		return false
	}
	return containsWord(lower, ref)
}

// minRefMatchLen is the shortest reference looked up inside a detail.
const minRefMatchLen = 3

// containsWord reports whether word occurs in s with no letter or digit
// directly before or after it.
func containsWord(s, word string) bool {
	for offset := 0; offset <= len(s)-len(word); {
		i := strings.Index(s[offset:], word)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(word)
		before, _ := utf8.DecodeLastRuneInString(s[:start])
		after, _ := utf8.DecodeRuneInString(s[end:])
		if !isWordRune(before) && !isWordRune(after) {
			return true
		}
		_, size := utf8.DecodeRuneInString(s[start:])
		offset = start + size
	}
	return false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// redact replaces the credential wherever the server echoed it.
func (d errorDetail) redact(credential string) errorDetail {
	if credential == "" {
		return d
	}
	replace := func(s string) string {
		return strings.ReplaceAll(s, credential, "[redacted]")
	}
	d.raw = replace(d.raw)
	d.text = replace(d.text)
	if d.msgs != nil {
		msgs := make([]string, len(d.msgs))
		for i, m := range d.msgs {
			msgs[i] = replace(m)
		}
		d.msgs = msgs
	}
	return d
}

func parseErrorBody(body []byte) errorDetail {
	d := errorDetail{raw: string(body)}

	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return d
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return d
	}
	raw := bytes.TrimSpace(envelope.Detail)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return d
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			d.isString = true
			d.text = s
			return d
		}
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err == nil {
			d.isList = true
			for _, item := range items {
				var entry struct {
					Msg *string `json:"msg"`
				}
				if err := json.Unmarshal(item, &entry); err == nil && entry.Msg != nil {
					d.msgs = append(d.msgs, *entry.Msg)
				}
			}
		}
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err == nil {
		d.text = compact.String()
	} else {
		d.text = string(raw)
	}
	return d
}

// preview trims s and cuts it to previewLimit runes, marking the cut.
func preview(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= previewLimit {
		return s
	}
	runes := []rune(s)
	return string(runes[:previewLimit]) + "..."
}
