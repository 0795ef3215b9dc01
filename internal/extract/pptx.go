package extract

import (
	"regexp"
	"sort"
	"strings"
)

const pptxSlidePathPrefix = "ppt/slides/slide"

// atTag matches <a:t>text</a:t> with any attributes.
var atTag = regexp.MustCompile(`<a:t[^>]*>([^<]*)</a:t>`)

// extractPPTX joins the <a:t> text of every slide, in slide file order.
func extractPPTX(content []byte) (string, error) {
	zr, err := openZip(content)
	if err != nil {
		return "", err
	}
	var slides []string
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, pptxSlidePathPrefix) && strings.HasSuffix(f.Name, ".xml") {
			slides = append(slides, f.Name)
		}
	}
	sort.Strings(slides)

	var b strings.Builder
	for _, name := range slides {
		xml, err := readZipFile(zr, name)
		if err != nil {
			return "", err
		}
		textNodes(&b, xml, atTag)
	}
	return strings.TrimSpace(b.String()), nil
}
