package search

import "strings"

// Query describes one symbol search. Text is the only required field.
type Query struct {
	Text        string   `json:"text"`
	SymbolType  string   `json:"symbol_type,omitempty"`
	FilePattern string   `json:"file_pattern,omitempty"`
	Language    string   `json:"language,omitempty"`
	Limit       int      `json:"limit,omitempty"`
	BoostPaths  []string `json:"boost_paths,omitempty"`
}

// DefaultLimit applies when a query does not set one.
const DefaultLimit = 20

// matchExpression converts free text into a safe FTS5 match expression.
// Every token is double-quoted so user input can never inject FTS5
// operators; a trailing * on a token becomes the prefix operator outside
// the quotes.
func matchExpression(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}

	terms := make([]string, 0, len(fields))
	for _, field := range fields {
		prefix := strings.HasSuffix(field, "*")
		token := strings.TrimRight(field, "*")
		token = strings.ReplaceAll(token, `"`, `""`)
		if token == "" {
			continue
		}
		term := `"` + token + `"`
		if prefix {
			term += "*"
		}
		terms = append(terms, term)
	}
	return strings.Join(terms, " ")
}

// nameTerm returns the query stripped for name comparisons: a single
// token query like "parseConfig*" compares as "parseconfig".
func nameTerm(text string) string {
	term := strings.TrimSpace(text)
	term = strings.TrimRight(term, "*")
	return strings.ToLower(term)
}
