package design

import (
	"fmt"
	"sort"
	"strconv"

	"mscourse/domain/core"
)

// UnitNotFound is reported when no numeric prefix could be found in the
// representative timepoint token; the axis then falls back to treating every
// token as a plain number.
const UnitNotFound = "not found"

// TimePoint is one entry of the canonical time axis.
type TimePoint struct {
	Value float64 // numeric magnitude, unit stripped
	Token string  // original timepoint token
}

// TimeAxis is the ordered set of distinct timepoints of one analysis.
// Exactly one unit suffix is assumed for the whole axis; the unit is inferred
// from a single representative token and uniformity across tokens is not
// validated.
type TimeAxis struct {
	Unit   string
	Points []TimePoint // sorted ascending by Value
}

// Earliest returns the first timepoint of the axis.
func (a TimeAxis) Earliest() TimePoint {
	return a.Points[0]
}

// Tokens returns the timepoint tokens in axis order.
func (a TimeAxis) Tokens() []string {
	out := make([]string, len(a.Points))
	for i, p := range a.Points {
		out[i] = p.Token
	}
	return out
}

// ValueOf returns the numeric time value for a raw token.
func (a TimeAxis) ValueOf(token string) (float64, bool) {
	for _, p := range a.Points {
		if p.Token == token {
			return p.Value, true
		}
	}
	return 0, false
}

// ExtractTimeAxis infers the time unit and canonical ordering from the raw
// timepoint tokens.
//
// The unit is found by repeatedly stripping the last character of one
// representative token until the remaining prefix parses as a number; the
// stripped characters (in original order) form the unit. If the token is
// consumed without ever parsing, the unit is reported as "not found" and all
// tokens are instead sorted as plain numbers. The representative is the
// lexicographically smallest distinct token, so the result does not depend on
// input order.
func ExtractTimeAxis(tokens []string) (TimeAxis, error) {
	distinct := distinctSorted(tokens)
	if len(distinct) == 0 {
		return TimeAxis{}, fmt.Errorf("%w: no timepoint tokens", core.ErrUnparsableAxis)
	}

	unit, found := inferUnit(distinct[0])
	if !found {
		return numericFallback(distinct)
	}

	axis := TimeAxis{Unit: unit, Points: make([]TimePoint, 0, len(distinct))}
	for _, tok := range distinct {
		prefix := tok
		if len(unit) > 0 && len(tok) >= len(unit) && tok[len(tok)-len(unit):] == unit {
			prefix = tok[:len(tok)-len(unit)]
		}
		v, err := strconv.ParseFloat(prefix, 64)
		if err != nil {
			return TimeAxis{}, fmt.Errorf("%w: token %q does not fit unit %q",
				core.ErrUnparsableAxis, tok, unit)
		}
		axis.Points = append(axis.Points, TimePoint{Value: v, Token: tok})
	}
	sortPoints(axis.Points)
	return axis, nil
}

// inferUnit strips trailing characters off one representative token until the
// remainder parses as a number. Returns the accumulated suffix and whether a
// numeric prefix was found.
func inferUnit(token string) (string, bool) {
	rest := []rune(token)
	unit := ""
	for len(rest) > 0 {
		if _, err := strconv.ParseFloat(string(rest), 64); err == nil {
			return unit, true
		}
		unit = string(rest[len(rest)-1]) + unit
		rest = rest[:len(rest)-1]
	}
	return "", false
}

// numericFallback handles the no-unit case: every token is assumed to already
// be a plain number. Tokens that still fail to parse keep the axis usable by
// taking their lexicographic rank as the value.
func numericFallback(distinct []string) (TimeAxis, error) {
	axis := TimeAxis{Unit: UnitNotFound, Points: make([]TimePoint, 0, len(distinct))}
	allNumeric := true
	for _, tok := range distinct {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			allNumeric = false
			break
		}
		axis.Points = append(axis.Points, TimePoint{Value: v, Token: tok})
	}
	if !allNumeric {
		axis.Points = axis.Points[:0]
		for i, tok := range distinct {
			axis.Points = append(axis.Points, TimePoint{Value: float64(i), Token: tok})
		}
	}
	sortPoints(axis.Points)
	return axis, nil
}

func distinctSorted(tokens []string) []string {
	seen := make(map[string]bool, len(tokens))
	var out []string
	for _, t := range tokens {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

func sortPoints(points []TimePoint) {
	sort.Slice(points, func(i, j int) bool {
		if points[i].Value != points[j].Value {
			return points[i].Value < points[j].Value
		}
		return points[i].Token < points[j].Token
	})
}
