package condition

import (
	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

// Token codes
const (
	whitespaceCode = iota
	identifierCode
	operatorCode
	numberCode
	timeRangeCode
	regionListCode
)

// Token definitions
var (
	whitespaceToken = parsly.NewToken(whitespaceCode, "Whitespace", matcher.NewWhiteSpace())
	identifierToken = parsly.NewToken(identifierCode, "Identifier", newIdentifierMatcher())
	operatorToken   = parsly.NewToken(operatorCode, "Operator", newOperatorMatcher())
	numberToken     = parsly.NewToken(numberCode, "Number", newNumberMatcher())
	timeRangeToken  = parsly.NewToken(timeRangeCode, "TimeRange", newTimeRangeMatcher())
	regionListToken = parsly.NewToken(regionListCode, "RegionList", newRegionListMatcher())
)

func newIdentifierMatcher() parsly.Matcher {
	return &identifierMatcher{}
}

func newOperatorMatcher() parsly.Matcher {
	return &operatorMatcher{}
}

func newNumberMatcher() parsly.Matcher {
	return &numberMatcher{}
}

func newTimeRangeMatcher() parsly.Matcher {
	return &timeRangeMatcher{}
}

func newRegionListMatcher() parsly.Matcher {
	return &regionListMatcher{}
}

// identifierMatcher matches lowercase words (condition kinds and levels)
type identifierMatcher struct{}

func (m *identifierMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize
	if pos >= size {
		return 0
	}
	if !isLetter(input[pos]) {
		return 0
	}
	matched := 1
	for i := pos + 1; i < size; i++ {
		if isLetter(input[i]) || isDigit(input[i]) || input[i] == '_' {
			matched++
			continue
		}
		break
	}
	return matched
}

// operatorMatcher matches comparison operators: <= >= == < >
type operatorMatcher struct{}

func (m *operatorMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize
	if pos >= size {
		return 0
	}
	switch input[pos] {
	case '<', '>':
		if pos+1 < size && input[pos+1] == '=' {
			return 2
		}
		return 1
	case '=':
		if pos+1 < size && input[pos+1] == '=' {
			return 2
		}
	}
	return 0
}

// numberMatcher matches unsigned decimal numbers with an optional fraction
type numberMatcher struct{}

func (m *numberMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize
	if pos >= size || !isDigit(input[pos]) {
		return 0
	}
	matched := 1
	seenDot := false
	for i := pos + 1; i < size; i++ {
		if isDigit(input[i]) {
			matched++
			continue
		}
		if input[i] == '.' && !seenDot && i+1 < size && isDigit(input[i+1]) {
			seenDot = true
			matched += 2
			i++
			continue
		}
		break
	}
	return matched
}

// timeRangeMatcher matches HH:MM..HH:MM
type timeRangeMatcher struct{}

func (m *timeRangeMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize
	if pos+12 > size {
		return 0
	}
	for i, expect := range []byte("NN:NN..NN:NN") {
		ch := input[pos+i]
		switch expect {
		case 'N':
			if !isDigit(ch) {
				return 0
			}
		default:
			if ch != expect {
				return 0
			}
		}
	}
	return 12
}

// regionListMatcher matches comma separated region codes, e.g. us,eu,apac
type regionListMatcher struct{}

func (m *regionListMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize
	if pos >= size || !isLetter(input[pos]) {
		return 0
	}
	matched := 1
	for i := pos + 1; i < size; i++ {
		ch := input[i]
		if isLetter(ch) || isDigit(ch) || ch == '-' {
			matched++
			continue
		}
		if ch == ',' && i+1 < size && isLetter(input[i+1]) {
			matched++
			continue
		}
		break
	}
	return matched
}

func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}
