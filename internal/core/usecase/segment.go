package usecase

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kirillkom/neural-transliterator/internal/core/domain"
)

// InputPolicy is the character policy every input line must satisfy.
const InputPolicy = `^[a-z' ]*$`

var inputPolicyRe = regexp.MustCompile(InputPolicy)

// SegmentLines validates every line and flattens them into one word stream.
// The returned segmentation holds the word count of each line. A single
// invalid line fails the whole batch.
func SegmentLines(lines []string) ([]string, domain.Segmentation, error) {
	words := make([]string, 0, len(lines)*4)
	seg := make(domain.Segmentation, 0, len(lines))
	for _, line := range lines {
		if !inputPolicyRe.MatchString(line) {
			return nil, nil, domain.WrapError(
				domain.ErrInvalidInput,
				"segment lines",
				fmt.Errorf("line %q cannot be transliterated: line must satisfy %s", line, InputPolicy),
			)
		}
		lineWords := strings.Fields(line)
		words = append(words, lineWords...)
		seg = append(seg, len(lineWords))
	}
	return words, seg, nil
}
