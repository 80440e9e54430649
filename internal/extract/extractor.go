// Package extract turns fetched HTML into indexer documents using a
// streaming tokenizer pass rather than a materialized DOM.
package extract

import (
	"bytes"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/JakeFAU/webindexer/internal/indexer"
)

// SummaryWords caps the preview text stored with each document.
const SummaryWords = 500

var citation = regexp.MustCompile(`\[.*?\]`)

// closesParagraph lists start tags that implicitly end an open <p>.
var closesParagraph = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Div: true, atom.Dl: true, atom.Fieldset: true, atom.Figure: true,
	atom.Footer: true, atom.Form: true, atom.H1: true, atom.H2: true,
	atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Header: true, atom.Hr: true, atom.Main: true, atom.Nav: true,
	atom.Ol: true, atom.Pre: true, atom.Section: true, atom.Table: true,
	atom.Ul: true,
}

// Normalizer tokenizes body text.
type Normalizer interface {
	Normalize(text string) []string
}

// Extractor builds documents from HTML.
type Extractor struct {
	ids  indexer.IDGenerator
	norm Normalizer
}

// New constructs an Extractor.
func New(ids indexer.IDGenerator, norm Normalizer) *Extractor {
	return &Extractor{ids: ids, norm: norm}
}

// Extract parses src and returns a Document for pageURL. Output is fully
// determined by the input except for the freshly minted ID.
func (e *Extractor) Extract(src []byte, pageURL string) indexer.Document {
	f := scan(Strip(src))
	body := BodyText(f.paragraphs)
	return indexer.Document{
		ID:           e.ids.NewID(),
		URL:          pageURL,
		Title:        firstNonEmpty(f.ogTitle, f.metaTitle, f.title),
		Description:  firstNonEmpty(f.ogDescription, f.metaDescription),
		CanonicalURL: firstNonEmpty(f.ogURL, f.metaURL),
		SummaryText:  Summary(body, SummaryWords),
		FullText:     e.norm.Normalize(body),
	}
}

// BodyText joins paragraphs with single spaces and drops [bracketed] spans.
func BodyText(paragraphs []string) string {
	joined := strings.Join(paragraphs, " ")
	return strings.TrimSpace(citation.ReplaceAllString(joined, " "))
}

// Summary returns the first n whitespace-delimited words of text, or text
// unchanged when it is not longer than that.
func Summary(text string, n int) string {
	words := strings.Fields(text)
	if len(words) <= n {
		return text
	}
	return strings.Join(words[:n], " ")
}

// fields holds raw values collected during the scan. Later non-empty
// occurrences win.
type fields struct {
	title           string
	ogTitle         string
	ogDescription   string
	ogURL           string
	metaTitle       string
	metaDescription string
	metaURL         string
	paragraphs      []string
}

func (f *fields) meta(property, name, content string) {
	content = strings.TrimSpace(content)
	if content == "" {
		return
	}
	switch strings.ToLower(strings.TrimSpace(property)) {
	case "og:title":
		f.ogTitle = content
	case "og:description":
		f.ogDescription = content
	case "og:url":
		f.ogURL = content
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "title":
		f.metaTitle = content
	case "description":
		f.metaDescription = content
	case "url":
		f.metaURL = content
	}
}

func scan(src []byte) fields {
	z := html.NewTokenizer(bytes.NewReader(src))
	var (
		f       fields
		inTitle bool
		inPara  bool
		title   strings.Builder
		chunks  []string
	)
	// Text nodes of one paragraph are joined with single spaces, so inline
	// tags and <br> never glue neighbouring words together.
	flush := func() {
		if text := strings.Join(chunks, " "); text != "" {
			f.paragraphs = append(f.paragraphs, text)
		}
		chunks = chunks[:0]
		inPara = false
	}

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if inPara {
				flush()
			}
			return f
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			a := atom.Lookup(name)
			switch {
			case a == atom.Title && tt == html.StartTagToken:
				inTitle = true
				title.Reset()
			case a == atom.P:
				if inPara {
					flush()
				}
				inPara = tt == html.StartTagToken
			case a == atom.Meta && hasAttr:
				property, metaName, content := metaAttrs(z)
				f.meta(property, metaName, content)
			case closesParagraph[a] && inPara:
				flush()
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch atom.Lookup(name) {
			case atom.Title:
				if inTitle {
					inTitle = false
					if text := strings.TrimSpace(title.String()); text != "" {
						f.title = text
					}
				}
			case atom.P, atom.Body, atom.Html:
				if inPara {
					flush()
				}
			}
		case html.TextToken:
			text := z.Text()
			if inTitle {
				title.Write(text)
			}
			if inPara {
				if chunk := strings.TrimSpace(string(text)); chunk != "" {
					chunks = append(chunks, chunk)
				}
			}
		}
	}
}

func metaAttrs(z *html.Tokenizer) (property, name, content string) {
	for {
		key, val, more := z.TagAttr()
		switch string(key) {
		case "property":
			property = string(val)
		case "name":
			name = string(val)
		case "content":
			content = string(val)
		}
		if !more {
			return property, name, content
		}
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
