package extract

import (
	"bytes"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// strippedElements never contribute text and are removed with their subtree.
var strippedElements = map[atom.Atom]bool{
	atom.Script: true,
	atom.Style:  true,
	atom.Svg:    true,
}

// Strip removes <script>, <style> and <svg> elements, including everything
// nested inside them, and returns the remaining markup byte for byte.
func Strip(src []byte) []byte {
	z := html.NewTokenizer(bytes.NewReader(src))
	var out bytes.Buffer
	out.Grow(len(src))

	var open atom.Atom
	depth := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return out.Bytes()
		}
		// TagName lowercases the token in place, so keep a pristine copy.
		raw := bytes.Clone(z.Raw())

		switch tt {
		case html.StartTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if depth > 0 {
				if a == open {
					depth++
				}
				continue
			}
			if strippedElements[a] {
				open, depth = a, 1
				continue
			}
		case html.EndTagToken:
			if depth > 0 {
				name, _ := z.TagName()
				if atom.Lookup(name) == open {
					depth--
				}
				continue
			}
		case html.SelfClosingTagToken:
			if depth > 0 {
				continue
			}
			name, _ := z.TagName()
			if strippedElements[atom.Lookup(name)] {
				continue
			}
		default:
			if depth > 0 {
				continue
			}
		}
		out.Write(raw)
	}
}
