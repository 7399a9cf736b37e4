package reflexion

import (
	"strings"
	"unicode"
)

// Strategy is one row of the §4.4 strategy table: an alpha blend factor and
// a query transform, tried in a fixed order until quality is met.
type Strategy struct {
	Name      string
	Alpha     float64
	Transform func(query string) string
}

// Strategies is the ordered strategy table (§4.4). Reflexion walks it from
// index 0, stopping at min(len(Strategies), maxAttempts) or on early exit.
var Strategies = []Strategy{
	{Name: "balanced-semantic", Alpha: 0.7, Transform: identity},
	{Name: "expand", Alpha: 0.3, Transform: expand},
	{Name: "simplify", Alpha: 0.9, Transform: simplify},
	{Name: "codeStyle", Alpha: 0.5, Transform: codeStyle},
}

func identity(query string) string {
	return query
}

// expand appends curated synonyms for each recognised token (§4.4 strategy
// 2). Tokens with no curated synonym are left untouched.
func expand(query string) string {
	tokens := splitWords(query)
	var extra []string
	seen := map[string]struct{}{}
	for _, tok := range tokens {
		lower := strings.ToLower(tok)
		for _, syn := range domainSynonyms[lower] {
			if _, ok := seen[syn]; ok {
				continue
			}
			seen[syn] = struct{}{}
			extra = append(extra, syn)
		}
	}
	if len(extra) == 0 {
		return query
	}
	return query + " " + strings.Join(extra, " ")
}

// stopWords are closed-class noise words dropped by the simplify strategy.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "of": {}, "to": {}, "for": {}, "in": {},
	"on": {}, "at": {}, "by": {}, "with": {}, "is": {}, "are": {}, "was": {},
	"were": {}, "be": {}, "been": {}, "being": {}, "and": {}, "or": {},
	"that": {}, "this": {}, "it": {}, "as": {}, "from": {}, "how": {},
	"do": {}, "does": {}, "what": {}, "which": {},
}

// simplify drops closed-class noise words (§4.4 strategy 3). If every
// token is a stop word, the original query passes through unchanged so the
// strategy never degenerates into an empty query.
func simplify(query string) string {
	tokens := splitWords(query)
	kept := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, stop := stopWords[strings.ToLower(tok)]; stop {
			continue
		}
		kept = append(kept, tok)
	}
	if len(kept) == 0 {
		return query
	}
	return strings.Join(kept, " ")
}

// codeStyle appends camelCase, PascalCase, snake_case, kebab-case, and
// use.../handle... identifier variants (§4.4 strategy 4), so a query in
// prose form also matches identifier-shaped stored content.
func codeStyle(query string) string {
	tokens := splitWords(query)
	if len(tokens) == 0 {
		return query
	}

	camel := toCamelCase(tokens)
	pascal := toPascalCase(tokens)
	snake := strings.ToLower(strings.Join(tokens, "_"))
	kebab := strings.ToLower(strings.Join(tokens, "-"))

	variants := []string{camel, pascal, snake, kebab}
	if pascal != "" {
		variants = append(variants, "use"+pascal, "handle"+pascal)
	}

	return query + " " + strings.Join(variants, " ")
}

func splitWords(query string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range query {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

func toPascalCase(tokens []string) string {
	var b strings.Builder
	for _, t := range tokens {
		if t == "" {
			continue
		}
		r := []rune(strings.ToLower(t))
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
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

// domainSynonyms is a small curated table for the expand strategy. It is
// intentionally separate from internal/rewrite's lexicon: C2's synonyms
// target human query vocabulary, this one targets recall widening across
// the strategy sweep and favours short, high-precision additions.
var domainSynonyms = map[string][]string{
	"auth":     {"authentication", "authorization"},
	"login":    {"signin", "authenticate"},
	"logout":   {"signout"},
	"fetch":    {"get", "retrieve", "load"},
	"search":   {"find", "query", "lookup"},
	"config":   {"configuration", "settings"},
	"handler":  {"controller", "callback"},
	"delete":   {"remove", "destroy"},
	"update":   {"modify", "edit"},
	"create":   {"add", "new", "insert"},
	"validate": {"check", "verify"},
	"error":    {"exception", "failure"},
	"connect":  {"connection", "dial"},
	"parse":    {"decode", "unmarshal"},
	"render":   {"draw", "display"},
}
