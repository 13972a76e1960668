package signer

import (
	"math"
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/tyler-smith/go-bip39"

	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

// MaxTypoDistance bounds word suggestions.
const MaxTypoDistance = 2

var (
	whitespaceRegex   = regexp.MustCompile(`\s+`)
	numberedListRegex = regexp.MustCompile(`(?m)^\s*\d+[\.\)\:]\s*`)
)

// GenerateMnemonic creates a 12 or 24 word phrase.
func GenerateMnemonic(words int) (string, error) {
	var bits int
	switch words {
	case 12:
		bits = 128
	case 24:
		bits = 256
	default:
		return "", cwerr.WithDetails(cwerr.ErrInvalidInput, map[string]string{"reason": "word count must be 12 or 24"})
	}
	entropy, err := bip39.NewEntropy(bits)
	if err != nil {
		return "", err
	}
	defer ZeroBytes(entropy)
	return bip39.NewMnemonic(entropy)
}

// NormalizeMnemonic lowercases, strips list numbering and commas and
// collapses whitespace.
func NormalizeMnemonic(input string) string {
	input = strings.ToLower(input)
	input = numberedListRegex.ReplaceAllString(input, " ")
	input = strings.ReplaceAll(input, ",", " ")
	input = whitespaceRegex.ReplaceAllString(input, " ")
	return strings.TrimSpace(input)
}

// ValidateMnemonic checks word count, words and checksum. Unknown words
// get a suggestion.
func ValidateMnemonic(mnemonic string) error {
	normalized := NormalizeMnemonic(mnemonic)
	words := strings.Fields(normalized)
	if len(words) != 12 && len(words) != 24 {
		return cwerr.ErrInvalidMnemonic
	}
	for i, w := range words {
		if !isWord(w) {
			err := cwerr.WithDetails(cwerr.ErrInvalidMnemonic, map[string]string{
				"word":     w,
				"position": itoa(i + 1),
			})
			if s := SuggestWord(w); s != "" {
				err = cwerr.WithSuggestion(err, "did you mean '"+s+"'?")
			}
			return err
		}
	}
	if _, err := bip39.MnemonicToByteArray(normalized); err != nil {
		return cwerr.WithDetails(cwerr.ErrInvalidMnemonic, map[string]string{"reason": "checksum mismatch"})
	}
	return nil
}

// SuggestWord returns the closest wordlist entry within MaxTypoDistance.
func SuggestWord(input string) string {
	input = strings.ToLower(input)
	best, bestDist := "", math.MaxInt
	for _, w := range bip39.GetWordList() {
		d := levenshtein.ComputeDistance(input, w)
		if d == 0 {
			return w
		}
		if d < bestDist {
			best, bestDist = w, d
		}
	}
	if bestDist <= MaxTypoDistance {
		return best
	}
	return ""
}

// MnemonicToSeed validates the phrase and returns the 64-byte seed. The
// caller must wipe it.
func MnemonicToSeed(mnemonic, passphrase string) ([]byte, error) {
	if err := ValidateMnemonic(mnemonic); err != nil {
		return nil, err
	}
	return bip39.NewSeedWithErrorChecking(NormalizeMnemonic(mnemonic), passphrase)
}

func isWord(w string) bool {
	for _, candidate := range bip39.GetWordList() {
		if candidate == w {
			return true
		}
	}
	return false
}

func itoa(n int) string {
	if n < 10 {
		return string(rune('0' + n))
	}
	return itoa(n/10) + string(rune('0'+n%10))
}
