// Package language normalises the short locale code sent by clients.
package language

import (
	"strings"
	"unicode"

	"github.com/schollz/closestmatch"
)

const Default = "en"

// regions maps a base code to the BCP-47 tag speech backends expect.
var regions = map[string]string{
	"en": "en-US",
	"hi": "hi-IN",
	"te": "te-IN",
	"ta": "ta-IN",
	"kn": "kn-IN",
	"ml": "ml-IN",
	"mr": "mr-IN",
	"bn": "bn-IN",
	"gu": "gu-IN",
	"pa": "pa-IN",
	"ur": "ur-IN",
	"es": "es-ES",
	"fr": "fr-FR",
	"de": "de-DE",
	"it": "it-IT",
	"pt": "pt-BR",
	"ja": "ja-JP",
	"ko": "ko-KR",
	"zh": "cmn-CN",
	"ar": "ar-XA",
	"ru": "ru-RU",
	"nl": "nl-NL",
}

var names = map[string]string{
	"english":    "en",
	"hindi":      "hi",
	"telugu":     "te",
	"tamil":      "ta",
	"kannada":    "kn",
	"malayalam":  "ml",
	"marathi":    "mr",
	"bengali":    "bn",
	"bangla":     "bn",
	"gujarati":   "gu",
	"punjabi":    "pa",
	"urdu":       "ur",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"japanese":   "ja",
	"korean":     "ko",
	"chinese":    "zh",
	"mandarin":   "zh",
	"arabic":     "ar",
	"russian":    "ru",
	"dutch":      "nl",
}

var matcher = func() *closestmatch.ClosestMatch {
	list := make([]string, 0, len(names))
	for n := range names {
		list = append(list, n)
	}
	return closestmatch.New(list, []int{2, 3})
}()

// Normalize returns a code for lang. Known codes and tags pass through with
// the base lowercased ("EN_us" -> "en-US"); language names, including
// near-misses like "englsh", map to their code. Blank input yields Default.
// Anything else, tags like "yue-HK" included, is returned trimmed so the
// backend can decide.
func Normalize(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return Default
	}

	tag := strings.ReplaceAll(lang, "_", "-")
	base, region, hasRegion := strings.Cut(tag, "-")
	base = strings.ToLower(base)
	if _, ok := regions[base]; ok {
		if hasRegion && region != "" {
			return base + "-" + strings.ToUpper(region)
		}
		return base
	}

	lower := strings.ToLower(lang)
	if code, ok := names[lower]; ok {
		return code
	}
	if code, ok := fuzzyName(lower); ok {
		return code
	}

	return lang
}

// fuzzyName accepts a closest match only for plain words within a small
// edit distance of a known name.
func fuzzyName(word string) (string, bool) {
	if len(word) < 4 {
		return "", false
	}
	for _, r := range word {
		if !unicode.IsLetter(r) {
			return "", false
		}
	}

	best := matcher.Closest(word)
	if best == "" {
		return "", false
	}
	limit := max(1, len([]rune(word))/4)
	if distance(word, best) > limit {
		return "", false
	}
	return names[best], true
}

func distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}

// BCP47 expands a normalised code into a full tag, e.g. "hi" -> "hi-IN".
// Tags that already carry a region are returned unchanged.
func BCP47(code string) string {
	if strings.Contains(code, "-") {
		return code
	}
	if tag, ok := regions[strings.ToLower(code)]; ok {
		return tag
	}
	return regions[Default]
}
