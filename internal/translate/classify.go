package translate

import "regexp"

// astralPattern matches emoji and other supplementary-plane characters;
// whitespacePattern strips the rest of a message down to linguistic
// content for the symbol-only check.
var (
	astralPattern     = regexp.MustCompile(`[\x{10000}-\x{10FFFF}]`)
	whitespacePattern = regexp.MustCompile(`\s`)
	variantPattern    = regexp.MustCompile(`[\x{FE00}-\x{FE0F}\x{200D}\x{20E3}]`)
)

// scriptPatterns maps a language code to the script heuristic that
// recognizes text already written in it. Hangul covers full syllables
// and bare jamo so that "ㅋㅋㅋ"-style text counts as Korean.
var scriptPatterns = map[string]*regexp.Regexp{
	"ko": regexp.MustCompile(`[ㄱ-ㅎ가-힣]`),
	"ja": regexp.MustCompile(`[ぁ-んァ-ン]`),
}

// SymbolOnly reports whether text has no linguistic content once emoji
// and whitespace are stripped. Such messages bypass the pipeline.
func SymbolOnly(text string) bool {
	stripped := astralPattern.ReplaceAllString(text, "")
	stripped = variantPattern.ReplaceAllString(stripped, "")
	stripped = whitespacePattern.ReplaceAllString(stripped, "")
	return len(stripped) == 0
}

// MatchesScript reports whether text contains characters of the given
// language's script. Unknown languages never match; detection decides
// for those.
func MatchesScript(lang, text string) bool {
	pattern, ok := scriptPatterns[lang]
	if !ok {
		return false
	}
	return pattern.MatchString(text)
}
