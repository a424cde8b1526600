// Package normalizers provides field normalization functions for match scoring
package normalizers

import (
	"regexp"
	"strings"
	"unicode"
)

// Normalizer is a function that normalizes a string value
type Normalizer func(string) string

// registry holds all registered normalizers
var registry = make(map[string]Normalizer)

func init() {
	// Register built-in normalizers
	Register("lowercase", Lowercase)
	Register("trim", Trim)
	Register("nphone", NormalizePhone)
	Register("nfacility", NormalizeFacilityName)
	Register("nname", NormalizeName)
	Register("naddress", NormalizeAddress)
	Register("nzip", NormalizeZipCode)
	Register("digits_only", DigitsOnly)
}

// Register adds a normalizer to the registry
func Register(name string, fn Normalizer) {
	registry[name] = fn
}

// Get retrieves a normalizer by name
func Get(name string) (Normalizer, bool) {
	fn, ok := registry[name]
	return fn, ok
}

// Apply applies a named normalizer to a value
func Apply(value, normalizer string) string {
	fn, ok := registry[normalizer]
	if !ok {
		return value
	}
	return fn(value)
}

// ApplyChain applies multiple normalizers in sequence
func ApplyChain(value string, normalizers ...string) string {
	result := value
	for _, name := range normalizers {
		result = Apply(result, name)
	}
	return result
}

// facilitySuffixes are clinical/corporate suffix tokens stripped from facility
// names before comparison. Multi-word phrases come first so "veterinary clinic"
// is removed as a unit rather than leaving a dangling "veterinary".
var facilitySuffixes = []string{
	"veterinary clinic", "veterinary hospital", "animal hospital",
	"animal clinic", "vet clinic", "vet hospital", "veterinary",
	"clinic", "hospital", "llc", "inc", "pc", "pllc", "dvm",
}

var facilitySuffixRes = func() []*regexp.Regexp {
	res := make([]*regexp.Regexp, 0, len(facilitySuffixes))
	for _, suffix := range facilitySuffixes {
		res = append(res, regexp.MustCompile(`\b`+suffix+`\b`))
	}
	return res
}()

var whitespaceRe = regexp.MustCompile(`\s+`)

// Built-in normalizers

// Lowercase converts string to lowercase
func Lowercase(s string) string {
	return strings.ToLower(s)
}

// Trim removes leading and trailing whitespace
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// DigitsOnly keeps only digit characters
func DigitsOnly(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// NormalizePhone canonicalizes a phone or fax number to its trailing 10
// digits. Strips all non-digit characters; an 11-digit number with a leading
// country-code 1 drops the 1, so "(614) 555-1234" and "1-614-555-1234"
// normalize equal.
func NormalizePhone(s string) string {
	digits := DigitsOnly(s)
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) > 10 {
		digits = digits[len(digits)-10:]
	}
	return digits
}

// NormalizeFacilityName canonicalizes a facility name for comparison:
// lowercase, punctuation stripped (internal hyphens kept), clinical and
// corporate suffix tokens removed, whitespace collapsed.
// "Happy Paws Veterinary Clinic, LLC" and "Happy Paws Veterinary" both
// normalize to "happy paws".
func NormalizeFacilityName(s string) string {
	s = stripPunctuation(strings.ToLower(s))
	for _, re := range facilitySuffixRes {
		s = re.ReplaceAllString(s, " ")
	}
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// NormalizeName normalizes a person's name for matching: lowercase, common
// credential/generational suffixes removed, punctuation stripped, whitespace
// collapsed.
func NormalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	suffixes := []string{" jr.", " jr", " sr.", " sr", " iii", " ii", " iv", " dvm", " vmd", " md", " phd"}
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			s = s[:len(s)-len(suffix)]
		}
	}

	s = stripPunctuation(s)
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// addressReplacements maps long-form address tokens to the canonical
// abbreviation, so "123 Main Street" and "123 Main St." compare equal.
var addressReplacements = []struct {
	re   *regexp.Regexp
	abbr string
}{
	{regexp.MustCompile(`\bstreet\b`), "st"},
	{regexp.MustCompile(`\bavenue\b`), "ave"},
	{regexp.MustCompile(`\bdrive\b`), "dr"},
	{regexp.MustCompile(`\broad\b`), "rd"},
	{regexp.MustCompile(`\bboulevard\b`), "blvd"},
	{regexp.MustCompile(`\blane\b`), "ln"},
	{regexp.MustCompile(`\bcourt\b`), "ct"},
	{regexp.MustCompile(`\bsuite\b`), "ste"},
	{regexp.MustCompile(`\bnorth\b`), "n"},
	{regexp.MustCompile(`\bsouth\b`), "s"},
	{regexp.MustCompile(`\beast\b`), "e"},
	{regexp.MustCompile(`\bwest\b`), "w"},
}

// NormalizeAddress normalizes a street address: lowercase, long-form tokens
// abbreviated, `.,#` punctuation removed, whitespace collapsed.
func NormalizeAddress(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, r := range addressReplacements {
		s = r.re.ReplaceAllString(s, r.abbr)
	}
	s = strings.NewReplacer(".", "", ",", "", "#", "").Replace(s)
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// NormalizeZipCode normalizes a US zip code to its digits; accepts 5 or
// 9 digit forms, anything else normalizes to empty.
func NormalizeZipCode(s string) string {
	digits := DigitsOnly(s)
	if len(digits) == 5 || len(digits) == 9 {
		return digits
	}
	return ""
}

// stripPunctuation removes punctuation while keeping hyphens that sit between
// alphanumeric characters ("smith-jones" survives, trailing "-" does not).
func stripPunctuation(s string) string {
	runes := []rune(s)
	var result strings.Builder
	for i, r := range runes {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r):
			result.WriteRune(r)
		case r == '-':
			if i > 0 && i < len(runes)-1 &&
				(unicode.IsLetter(runes[i-1]) || unicode.IsDigit(runes[i-1])) &&
				(unicode.IsLetter(runes[i+1]) || unicode.IsDigit(runes[i+1])) {
				result.WriteRune(r)
			} else {
				result.WriteRune(' ')
			}
		default:
			result.WriteRune(' ')
		}
	}
	return result.String()
}
