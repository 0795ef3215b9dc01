package extract

import (
	"strings"

	"github.com/lu4p/cat"
)

// extractCat handles RTF and ODT, which lu4p/cat recognizes from the bytes.
func extractCat(content []byte) (string, error) {
	text, err := cat.FromBytes(content)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
