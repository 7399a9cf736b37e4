package rewrite

import (
	"strings"
	"unicode"
)

// Result is the C2 output contract (§4.2): a primary rewritten query, a
// handful of identifier-style variants, the synonyms consulted along the
// way, and a confidence estimate.
type Result struct {
	Primary      string
	Variants     []string
	SynonymsUsed []string
	Confidence   float64
}

// Lexicon runs the deterministic, I/O-free lexicon pass (§4.2 first
// bullet). It is pure: the same query always produces the same Result, and
// rewriting the Result's Primary again returns a fixed point (§8's
// idempotence invariant).
func Lexicon(query string) Result {
	tokens := tokenize(query)
	if len(tokens) == 0 {
		return Result{Primary: query, Confidence: 0.5}
	}

	expandedTokens := make([]string, 0, len(tokens))
	synonymSet := make(map[string]struct{})
	var synonymsUsed []string
	addSynonym := func(s string) {
		key := strings.ToLower(s)
		if _, ok := synonymSet[key]; ok {
			return
		}
		synonymSet[key] = struct{}{}
		synonymsUsed = append(synonymsUsed, s)
	}

	for _, tok := range tokens {
		lower := strings.ToLower(tok)
		if abbr, ok := Abbreviations[lower]; ok {
			expandedTokens = append(expandedTokens, abbr.primary)
			for _, alt := range abbr.alternates {
				addSynonym(alt)
			}
			continue
		}
		expandedTokens = append(expandedTokens, tok)
	}

	for _, tok := range tokens {
		lower := strings.ToLower(tok)
		if syns, ok := DomainSynonyms[lower]; ok {
			for _, syn := range syns {
				addSynonym(syn)
			}
		}
	}

	primary := strings.Join(expandedTokens, " ")

	result := Result{
		Primary:      primary,
		SynonymsUsed: synonymsUsed,
		Variants:     buildVariants(primary, synonymsUsed, tokens),
	}
	result.Confidence = confidenceFor(tokens, expandedTokens)
	return result
}

// buildVariants emits up to three identifier-style variants (§4.2 third
// bullet): (a) primary + top-3 synonyms, (b) PascalCase concatenation, (c)
// camelCase concatenation. Variants (b)/(c) exist to match stored
// identifier tokens — code search indexes store `useAuthButton`, not
// "use auth button".
func buildVariants(primary string, synonyms []string, originalTokens []string) []string {
	variants := make([]string, 0, 3)

	top := synonyms
	if len(top) > 3 {
		top = top[:3]
	}
	withSynonyms := primary
	if len(top) > 0 {
		withSynonyms = primary + " " + strings.Join(top, " ")
	}
	variants = append(variants, withSynonyms)

	variants = append(variants, toPascalCase(originalTokens), toCamelCase(originalTokens))
	return variants
}

// confidenceFor scores the lexicon pass per §4.2's Jaccard bands. The
// original tokens are compared with the expanded query, i.e. the original
// tokens plus their expansions; an unchanged query scores 0.5.
func confidenceFor(original, expanded []string) float64 {
	combined := append(append([]string{}, original...), expanded...)
	jaccard := tokenSetJaccard(original, combined)
	switch {
	case jaccard == 1:
		return 0.5
	case jaccard >= 0.3 && jaccard <= 0.8:
		return 0.9
	case jaccard > 0.8:
		return 0.7
	default:
		return 0.5
	}
}

func tokenSetJaccard(a, b []string) float64 {
	setA := toSet(a)
	setB := toSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}
	intersection := 0
	union := make(map[string]struct{}, len(setA)+len(setB))
	for t := range setA {
		union[t] = struct{}{}
	}
	for t := range setB {
		union[t] = struct{}{}
		if _, ok := setA[t]; ok {
			intersection++
		}
	}
	if len(union) == 0 {
		return 1
	}
	return float64(intersection) / float64(len(union))
}

func toSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[strings.ToLower(t)] = struct{}{}
	}
	return set
}

// tokenize splits on whitespace/punctuation and on camelCase/snake_case
// boundaries within each token, so "authBtn" and "auth_btn" both surface
// "auth" and "btn" to the lexicon passes.
func tokenize(query string) []string {
	var raw []string
	var cur strings.Builder
	for _, r := range query {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			cur.WriteRune(r)
		} else if cur.Len() > 0 {
			raw = append(raw, cur.String())
			cur.Reset()
		}
	}
	if cur.Len() > 0 {
		raw = append(raw, cur.String())
	}

	var tokens []string
	for _, tok := range raw {
		tokens = append(tokens, splitCamelSnake(tok)...)
	}
	return tokens
}

func splitCamelSnake(token string) []string {
	if strings.Contains(token, "_") {
		var parts []string
		for _, p := range strings.Split(token, "_") {
			if p != "" {
				parts = append(parts, p)
			}
		}
		return parts
	}

	var parts []string
	var cur strings.Builder
	for i, r := range token {
		if i > 0 && unicode.IsUpper(r) && cur.Len() > 0 {
			parts = append(parts, cur.String())
			cur.Reset()
		}
		cur.WriteRune(r)
	}
	if cur.Len() > 0 {
		parts = append(parts, cur.String())
	}
	return parts
}

func toPascalCase(tokens []string) string {
	var b strings.Builder
	for _, t := range tokens {
		b.WriteString(strings.Title(strings.ToLower(t))) //nolint:staticcheck // per-token title-casing, not prose
	}
	return b.String()
}

func toCamelCase(tokens []string) string {
	pascal := toPascalCase(tokens)
	if pascal == "" {
		return pascal
	}
	r := []rune(pascal)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
