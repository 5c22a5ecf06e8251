package ingestion

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const docxBodyPart = "word/document.xml"

// readDOCX returns the paragraphs of the main body part, one per line
func readDOCX(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("invalid document container: %w", err)
	}
	defer func() { _ = zr.Close() }()

	var body *zip.File
	for _, f := range zr.File {
		if strings.EqualFold(f.Name, docxBodyPart) {
			body = f
			break
		}
	}
	if body == nil {
		return "", fmt.Errorf("document container has no %s part", docxBodyPart)
	}

	rc, err := body.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", docxBodyPart, err)
	}
	defer func() { _ = rc.Close() }()

	return paragraphsFromXML(rc)
}

// WordprocessingML namespaces: transitional, strict, and an undeclared "w" prefix
var wordNamespaces = map[string]bool{
	"http://schemas.openxmlformats.org/wordprocessingml/2006/main": true,
	"http://purl.oclc.org/ooxml/wordprocessingml/main":             true,
	"w": true,
}

const markupCompatibilityNS = "http://schemas.openxmlformats.org/markup-compatibility/2006"

// openParagraph is a w:p being read and the output line reserved for it
type openParagraph struct {
	line int
	text strings.Builder
}

// paragraphsFromXML walks WordprocessingML tokens and collects text runs.
// Styling, images and other markup are ignored; table cells contribute
// their paragraphs like any other. Paragraphs nested in text boxes get
// their own line after the line of the enclosing paragraph, which keeps
// its runs from both sides of the box. mc:Fallback copies of alternate
// content are skipped.
func paragraphsFromXML(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var (
		lines []string
		open  []*openParagraph
	)

	write := func(text string) {
		if len(open) > 0 {
			open[len(open)-1].text.WriteString(text)
		}
	}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("malformed %s: %w", docxBodyPart, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "Fallback" && (t.Name.Space == markupCompatibilityNS || t.Name.Space == "mc") {
				if err := dec.Skip(); err != nil {
					return "", fmt.Errorf("malformed %s: %w", docxBodyPart, err)
				}
				continue
			}
			if !wordNamespaces[t.Name.Space] {
				continue
			}
			switch t.Name.Local {
			case "p":
				open = append(open, &openParagraph{line: len(lines)})
				lines = append(lines, "")
			case "t":
				var text string
				if err := dec.DecodeElement(&text, &t); err != nil {
					return "", fmt.Errorf("malformed text run: %w", err)
				}
				write(text)
			case "tab":
				write("\t")
			case "br", "cr":
				write("\n")
			}
		case xml.EndElement:
			if t.Name.Local == "p" && wordNamespaces[t.Name.Space] && len(open) > 0 {
				para := open[len(open)-1]
				open = open[:len(open)-1]
				lines[para.line] = para.text.String()
			}
		}
	}

	return strings.Join(lines, "\n"), nil
}
