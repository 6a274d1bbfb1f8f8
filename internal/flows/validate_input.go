package flows

import (
	"strings"
	"unicode"
)

const maxEmailLength = 254

// ValidateEmail checks the syntactic shape of an address: a non-empty local
// part and domain around the last '@', no whitespace. It does not resolve or
// normalize beyond trimming.
func ValidateEmail(email string) bool {
	if email == "" || len(email) > maxEmailLength {
		return false
	}
	if strings.IndexFunc(email, unicode.IsSpace) >= 0 {
		return false
	}
	at := strings.LastIndexByte(email, '@')
	return at > 0 && at < len(email)-1
}

// ValidateCode accepts ASCII digit strings with minDigits <= len <= maxDigits.
func ValidateCode(code string, minDigits, maxDigits int) bool {
	if minDigits < 1 {
		minDigits = 1
	}
	if len(code) < minDigits || (maxDigits > 0 && len(code) > maxDigits) {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

// SanitizeCode keeps only ASCII digits and truncates to maxDigits, mirroring
// what a numeric input field lets through.
func SanitizeCode(input string, maxDigits int) string {
	var b strings.Builder
	for i := 0; i < len(input); i++ {
		if input[i] >= '0' && input[i] <= '9' {
			if maxDigits > 0 && b.Len() >= maxDigits {
				break
			}
			b.WriteByte(input[i])
		}
	}
	return b.String()
}
