// Package lang provides a fixed whitelist of reply-style tags, romanized-Hindi
// keyword scoring, and prompt-guide construction so responses match the
// farmer's language and formality.
package lang

import (
	"strings"
)

// Language identifies the dominant language of a farmer message.
type Language string

const (
	LanguageEnglish        Language = "english"
	LanguageHindiRomanized Language = "hindi_romanized"
	LanguageHinglish       Language = "hinglish"
)

// Formality captures the register the farmer used.
type Formality string

const (
	FormalityCasual Formality = "casual"
	FormalityFormal Formality = "formal"
)

// Profile is the detected reply style for one message.
type Profile struct {
	Language  Language
	Formality Formality
}

// hindiWords is the hard-coded set of romanized-Hindi tokens used for
// detection. Market vocabulary is included because it dominates real queries.
var hindiWords = map[string]bool{
	"namaste": true, "namaskar": true, "bhai": true, "bhav": true,
	"mandi": true, "kya": true, "hai": true, "mein": true, "ka": true,
	"ki": true, "ke": true, "de": true, "raha": true, "rahi": true,
	"kitna": true, "kitne": true, "aaj": true, "kal": true, "dam": true,
	"bech": true, "bechna": true, "kharid": true, "paisa": true,
	"rupaye": true, "quintal": true, "fasal": true, "kisan": true,
	"vyapari": true, "dhanyavaad": true, "shukriya": true, "acha": true,
	"accha": true, "theek": true, "nahi": true, "haan": true, "mujhe": true,
	"mera": true, "meri": true, "tamatar": true, "aalu": true, "pyaz": true,
	"gehun": true, "chawal": true, "aap": true, "tum": true, "batao": true,
	"bataiye": true, "chahiye": true, "kaunsi": true, "wala": true,
}

// formalMarkers indicate the polite "aap" register.
var formalMarkers = map[string]bool{
	"aap": true, "bataiye": true, "kijiye": true, "dhanyavaad": true,
	"sir": true, "ji": true, "please": true, "kindly": true,
}

// Detect scores a message's tokens against the romanized-Hindi vocabulary and
// returns the reply-style profile. Mixed messages with both Hindi and English
// content classify as Hinglish.
func Detect(message string) Profile {
	tokens := tokenize(message)
	if len(tokens) == 0 {
		return Profile{Language: LanguageEnglish, Formality: FormalityCasual}
	}

	hindi := 0
	formal := false
	for _, tok := range tokens {
		if hindiWords[tok] {
			hindi++
		}
		if formalMarkers[tok] {
			formal = true
		}
	}

	ratio := float64(hindi) / float64(len(tokens))
	p := Profile{Formality: FormalityCasual}
	switch {
	case ratio >= 0.6:
		p.Language = LanguageHindiRomanized
	case ratio > 0:
		p.Language = LanguageHinglish
	default:
		p.Language = LanguageEnglish
	}
	if formal {
		p.Formality = FormalityFormal
	}
	return p
}

// PromptGuide renders the profile as instructions for the communicator's task
// text.
func (p Profile) PromptGuide() string {
	var b strings.Builder
	b.WriteString("Language style detected from the farmer's message:\n")
	switch p.Language {
	case LanguageHindiRomanized:
		b.WriteString("- Respond in romanized Hindi (Hindi words written in English letters).\n")
	case LanguageHinglish:
		b.WriteString("- Respond in Hinglish, matching the farmer's mix of Hindi and English.\n")
	default:
		b.WriteString("- Respond in simple English.\n")
	}
	if p.Formality == FormalityFormal {
		b.WriteString("- Use the polite register (aap), address them respectfully.\n")
	} else {
		b.WriteString("- Keep it casual and friendly (tum/bhai is fine).\n")
	}
	return b.String()
}

// Greeting returns a canned greeting matched to the detected language, used
// when classification is unavailable.
func (p Profile) Greeting() string {
	if p.Language == LanguageEnglish {
		return "Hello! I am Mandi Saathi. Ask me about your crop's market price or for help negotiating with a trader."
	}
	return "Namaste! Mein Mandi Saathi hoon. Aapki fasal ka bhav jaanne ya mandi saudebazi mein madad ke liye poochein."
}

func tokenize(message string) []string {
	fields := strings.Fields(strings.ToLower(message))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		trimmed := strings.TrimFunc(f, func(r rune) bool {
			return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
		})
		if trimmed != "" {
			tokens = append(tokens, trimmed)
		}
	}
	return tokens
}
