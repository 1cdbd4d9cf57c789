package design

import (
	"fmt"
	"strings"

	"mscourse/domain/core"
)

// DefaultDelimiter separates the tokens of a sample column name.
const DefaultDelimiter = "_"

// SampleColumn is one parsed column of the wide intensity table. Column names
// encode the experimental design as delimited tokens, with the timepoint
// always in the second-to-last position:
//
//	condition tokens ... _ timepoint _ replicate
//
// The struct is built once at ingestion so later stages never re-split the
// raw string.
type SampleColumn struct {
	Name      core.SampleName
	Tokens    []string
	Condition string // column name with the timepoint token removed
	TimeToken string // second-to-last token
	delimiter string
}

// Reassemble rebuilds the original column name from the parsed parts.
func (c SampleColumn) Reassemble() string {
	tokens := make([]string, 0, len(c.Tokens))
	tokens = append(tokens, c.Tokens...)
	return strings.Join(tokens, c.delimiter)
}

// MatchesCondition reports whether the column belongs to the requested
// condition. Matching is by prefix, not equality, so one requested condition
// name selects all replicate-suffixed columns of that condition.
func (c SampleColumn) MatchesCondition(cond core.Condition) bool {
	return strings.HasPrefix(c.Condition, string(cond))
}

// ParseColumns parses an ordered set of sample column names into SampleColumns.
// All columns of one analysis must share the same delimiter and token count;
// a disagreement is a structural error for the whole run.
func ParseColumns(names []string, delimiter string) ([]SampleColumn, error) {
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no sample columns", core.ErrInvalidDesign)
	}

	cols := make([]SampleColumn, 0, len(names))
	tokenCount := 0
	for _, name := range names {
		tokens := strings.Split(name, delimiter)
		if len(tokens) < 2 {
			return nil, fmt.Errorf("%w: %q", core.ErrNoTimepoint, name)
		}
		if tokenCount == 0 {
			tokenCount = len(tokens)
		} else if len(tokens) != tokenCount {
			return nil, fmt.Errorf("%w: %q has %d tokens, expected %d",
				core.ErrTokenMismatch, name, len(tokens), tokenCount)
		}

		timeIdx := len(tokens) - 2
		rest := make([]string, 0, len(tokens)-1)
		rest = append(rest, tokens[:timeIdx]...)
		rest = append(rest, tokens[timeIdx+1:]...)

		cols = append(cols, SampleColumn{
			Name:      core.SampleName(name),
			Tokens:    tokens,
			Condition: strings.Join(rest, delimiter),
			TimeToken: tokens[timeIdx],
			delimiter: delimiter,
		})
	}
	return cols, nil
}

// Select returns the columns whose condition label starts with one of the
// requested condition prefixes. Order follows the input column order.
func Select(cols []SampleColumn, conditions []core.Condition) []SampleColumn {
	var out []SampleColumn
	for _, c := range cols {
		for _, cond := range conditions {
			if c.MatchesCondition(cond) {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// TimeTokens returns the distinct timepoint tokens of cols, in first-seen order.
func TimeTokens(cols []SampleColumn) []string {
	seen := make(map[string]bool)
	var tokens []string
	for _, c := range cols {
		if !seen[c.TimeToken] {
			seen[c.TimeToken] = true
			tokens = append(tokens, c.TimeToken)
		}
	}
	return tokens
}
