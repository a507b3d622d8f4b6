// Package ocrtext normalizes card transcriptions before they are stored.
//
// NER offsets are computed on normalized text, so Normalize must be applied
// exactly once at import and never again at match time. Every substitution
// maps one rune to one rune; only the stripped combining marks shift offsets.
package ocrtext

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Joker replaces glyphs the NER tokenizer has no vocabulary entry for.
const Joker = '\uFFFD'

// Options tunes normalization.
type Options struct {
	// Compose applies Unicode NFC before substitution. Only enable it when
	// the NER stage saw composed text too.
	Compose bool
}

var glyphReplacer = strings.NewReplacer(
	"—", "-", // em dash
	"“", `"`,
	"˛", ".", // ogonek
	"ϵ", string(Joker),
	"℥", string(Joker),
	"‘", string(Joker),
	"’", string(Joker),
	"`", string(Joker),
	"☞", string(Joker),
	"☜", string(Joker),
	"⁂", string(Joker),
	"ꝛ", string(Joker),
	"Ꙃ", "z",
	"Ꙁ", "z",
	"Ꙋ", string(Joker),
	"Ѡ", string(Joker),
	"Ꙗ", string(Joker),
	"Ѥ", string(Joker),
	"Ѭ", string(Joker),
	"Ѩ", string(Joker),
	"Ѯ", string(Joker),
	"Ѱ", string(Joker),
	"Ѵ", "v",
	"Ҁ", "c",
	"ꙃ", "z",
	"ꙁ", "z",
	"ꙋ", string(Joker),
	"ѡ", "w",
	"ꙗ", string(Joker),
	"ѥ", string(Joker),
	"ѭ", string(Joker),
	"ѩ", string(Joker),
	"ѯ", string(Joker),
	"ѱ", string(Joker),
	"ѵ", "v",
	"ҁ", "c",
	"Ӕ", string(Joker),
	"ӕ", string(Joker),
	"Ϲ", "c",
	"ϲ", "c",
	"ϳ", "j",
	"ϝ", "f",
	"Ⱥ", "a",
	"ⱥ", "a",
	"Ɇ", "e",
	"ɇ", "e",
	"ᵱ", "p",
	"ꝓ", "p",
	"ꝑ", "p",
	"ꝙ", "q",
	"ꝗ", "q",
	"ꝟ", "v",
	// Combining marks the tokenizer drops.
	"\u0364", "",
	"\u0304", "",
	"\u033e", "",
	"\u0303", "",
	"\u030a", "",
)

// Normalize rewrites unsupported glyphs and strips the combining marks the
// NER tokenizer discards.
func Normalize(text string, opts Options) string {
	if opts.Compose {
		text = norm.NFC.String(text)
	}
	return glyphReplacer.Replace(text)
}

// IsComposed reports whether text is already in NFC form.
func IsComposed(text string) bool {
	return norm.NFC.IsNormalString(text)
}
