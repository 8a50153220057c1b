package search

import (
	"strconv"
	"strings"
)

const defaultLimit = 10

// Query represents the structured parameters for a message search.
// It decouples the raw user input from the index engine requirements.
type Query struct {
	RawInput string // The original input from the user
	Terms    string // The actual text to search in the index
	GroupID  string // Restrict to one group conversation
	WithUser string // Restrict to the direct conversation with this user
	Limit    int    // Number of results
}

// Parse extracts command-line style arguments from a raw search string.
// Example: /find invoice --group 12 --limit 5
func Parse(input string) *Query {
	query := &Query{
		RawInput: input,
		Limit:    defaultLimit,
	}

	parts := strings.Fields(input)
	var textTerms []string

	for i := 0; i < len(parts); i++ {
		part := parts[i]

		if strings.HasPrefix(part, "--") && i+1 < len(parts) {
			key := strings.TrimPrefix(part, "--")
			val := parts[i+1]

			switch key {
			case "group":
				query.GroupID = val
			case "with":
				query.WithUser = val
			case "limit":
				if limit, err := strconv.Atoi(val); err == nil && limit > 0 {
					query.Limit = limit
				}
			}
			i++ // Skip the value part in the next iteration
			continue
		}

		// If it's not a flag, it's a search term
		if !strings.HasPrefix(part, "/") {
			textTerms = append(textTerms, part)
		}
	}

	query.Terms = strings.Join(textTerms, " ")
	return query
}
