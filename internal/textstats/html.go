package textstats

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// blockElements end a line of text when they close, so paragraph counting
// still works on extracted HTML.
var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "h1": true, "h2": true,
	"h3": true, "h4": true, "h5": true, "h6": true, "tr": true, "section": true,
	"article": true, "blockquote": true, "pre": true,
}

// ExtractText returns the visible text of an HTML document. Script, style
// and template contents are skipped.
func ExtractText(r io.Reader) (string, error) {
	var b strings.Builder
	z := html.NewTokenizer(r)
	skipDepth := 0

	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return "", err
			}
			return strings.TrimSpace(b.String()), nil
		case html.StartTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style", "template", "noscript":
				skipDepth++
			case "br":
				b.WriteString("\n")
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			switch tag {
			case "script", "style", "template", "noscript":
				if skipDepth > 0 {
					skipDepth--
				}
			default:
				if blockElements[tag] {
					b.WriteString("\n\n")
				}
			}
		case html.TextToken:
			if skipDepth == 0 {
				b.Write(z.Text())
			}
		}
	}
}

// AnalyzeHTML extracts the visible text of an HTML document and analyses it.
func AnalyzeHTML(r io.Reader) (Stats, error) {
	text, err := ExtractText(r)
	if err != nil {
		return Stats{}, err
	}
	return Analyze(text), nil
}
