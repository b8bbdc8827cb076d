package core

import (
	"bufio"
	"bytes"
	"strings"

	"gopkg.in/yaml.v3"
)

const delimiter = "---"

// ParseDocument splits raw content into its header block and body.
//
// The header is YAML frontmatter between "---" lines. Documents written by
// hand are not validated: a header that is not valid YAML falls back to plain
// "key: value" line parsing, and content without a header has an empty one.
func ParseDocument(ref Ref, raw string) Document {
	doc := Document{Ref: ref, Header: Header{}, Raw: raw}

	text := strings.TrimPrefix(raw, "\ufeff")
	if !strings.HasPrefix(text, delimiter+"\n") && !strings.HasPrefix(text, delimiter+"\r\n") {
		doc.Body = text
		return doc
	}

	rest := text[strings.Index(text, "\n")+1:]
	end := closingDelimiter(rest)
	if end < 0 {
		doc.Body = text
		return doc
	}

	block := rest[:end]
	body := rest[end+len(delimiter):]
	body = strings.TrimPrefix(body, "\r")
	body = strings.TrimPrefix(body, "\n")
	doc.Body = body

	var meta map[string]any
	if err := yaml.Unmarshal([]byte(block), &meta); err == nil {
		for k, v := range meta {
			doc.Header[k] = v
		}
		return doc
	}
	doc.Header = parseLines(block)
	return doc
}

// closingDelimiter finds the offset of a line consisting only of "---".
func closingDelimiter(s string) int {
	offset := 0
	for _, line := range strings.SplitAfter(s, "\n") {
		if strings.TrimRight(line, "\r\n") == delimiter {
			return offset
		}
		offset += len(line)
	}
	return -1
}

func parseLines(block string) Header {
	h := Header{}
	sc := bufio.NewScanner(strings.NewReader(block))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.Index(line, ":")
		if idx <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		val := strings.Trim(strings.TrimSpace(line[idx+1:]), `"'`)
		h[key] = val
	}
	return h
}

// Render serializes a header and body back into document content.
func Render(h Header, body string) (string, error) {
	var buf bytes.Buffer
	if len(h) > 0 {
		buf.WriteString(delimiter + "\n")
		encoder := yaml.NewEncoder(&buf)
		encoder.SetIndent(2)
		if err := encoder.Encode(map[string]any(h)); err != nil {
			return "", err
		}
		encoder.Close()
		buf.WriteString(delimiter + "\n")
	}
	buf.WriteString(body)
	return buf.String(), nil
}

// WithHeader re-renders doc with updates merged into its header.
func WithHeader(doc Document, updates Header) (string, error) {
	h := doc.Header.Clone()
	for k, v := range updates {
		h[k] = v
	}
	return Render(h, doc.Body)
}
