package extract

import (
	"fmt"
	"regexp"
	"strings"
)

const openDocumentContentPath = "content.xml"

// OpenDocument text elements, matched with their own closing tag.
var (
	odfTextP    = regexp.MustCompile(`<text:p[^>]*>([^<]*)</text:p>`)
	odfTextSpan = regexp.MustCompile(`<text:span[^>]*>([^<]*)</text:span>`)
	odfTextH    = regexp.MustCompile(`<text:h[^>]*>([^<]*)</text:h>`)
)

func extractOpenDocument(content []byte, patterns ...*regexp.Regexp) (string, error) {
	zr, err := openZip(content)
	if err != nil {
		return "", err
	}
	xml, err := readZipFile(zr, openDocumentContentPath)
	if err != nil {
		return "", err
	}
	if xml == nil {
		return "", fmt.Errorf("%s not found", openDocumentContentPath)
	}
	var b strings.Builder
	textNodes(&b, xml, patterns...)
	return strings.TrimSpace(b.String()), nil
}

func extractODP(content []byte) (string, error) {
	return extractOpenDocument(content, odfTextP, odfTextSpan, odfTextH)
}

func extractODS(content []byte) (string, error) {
	return extractOpenDocument(content, odfTextP, odfTextSpan)
}
