package usecase

import "strings"

// toOracleFormat letter-spaces a word the way the model was trained: "cat" -> "c a t".
func toOracleFormat(word string) string {
	return strings.Join(strings.Split(word, ""), " ")
}

func toOracleFormatAll(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = toOracleFormat(w)
	}
	return out
}

// toHumanFormat collapses model output back into a word: "к о т" -> "кот".
func toHumanFormat(text string) string {
	return strings.Join(strings.Fields(text), "")
}
