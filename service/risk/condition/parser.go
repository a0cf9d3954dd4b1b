package condition

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/viant/parsly"
)

// Parse parses a condition expression. Supported forms:
//
//	window 09:00..17:00
//	geo us,eu,apac
//	security <= internal
//	budget <= 5000
func Parse(input []byte) (*Condition, error) {
	cursor := parsly.NewCursor("", input, 0)

	matched := cursor.MatchAfterOptional(whitespaceToken, identifierToken)
	if matched.Code != identifierToken.Code {
		return nil, cursor.NewError(identifierToken)
	}
	kind := matched.Text(cursor)
	cond := &Condition{Kind: kind}

	switch kind {
	case KindTimeWindow:
		matched = cursor.MatchAfterOptional(whitespaceToken, timeRangeToken)
		if matched.Code != timeRangeToken.Code {
			return nil, cursor.NewError(timeRangeToken)
		}
		if err := parseTimeRange(matched.Text(cursor), cond); err != nil {
			return nil, err
		}
	case KindGeo:
		matched = cursor.MatchAfterOptional(whitespaceToken, regionListToken)
		if matched.Code != regionListToken.Code {
			return nil, cursor.NewError(regionListToken)
		}
		cond.Regions = strings.Split(matched.Text(cursor), ",")
	case KindSecurityLevel:
		matched = cursor.MatchAfterOptional(whitespaceToken, operatorToken)
		if matched.Code != operatorToken.Code {
			return nil, cursor.NewError(operatorToken)
		}
		cond.Op = matched.Text(cursor)
		matched = cursor.MatchAfterOptional(whitespaceToken, identifierToken)
		if matched.Code != identifierToken.Code {
			return nil, cursor.NewError(identifierToken)
		}
		cond.Level = matched.Text(cursor)
		if _, ok := securityRank[cond.Level]; !ok {
			return nil, fmt.Errorf("unknown security level %q", cond.Level)
		}
	case KindResourceBound:
		matched = cursor.MatchAfterOptional(whitespaceToken, operatorToken)
		if matched.Code != operatorToken.Code {
			return nil, cursor.NewError(operatorToken)
		}
		cond.Op = matched.Text(cursor)
		matched = cursor.MatchAfterOptional(whitespaceToken, numberToken)
		if matched.Code != numberToken.Code {
			return nil, cursor.NewError(numberToken)
		}
		threshold, err := strconv.ParseFloat(matched.Text(cursor), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid threshold: %w", err)
		}
		cond.Threshold = threshold
	default:
		return nil, fmt.Errorf("unsupported condition kind %q", kind)
	}

	matched = cursor.MatchAfterOptional(whitespaceToken, identifierToken)
	if matched.Code == identifierToken.Code {
		return nil, fmt.Errorf("unexpected trailing input %q", matched.Text(cursor))
	}
	return cond, nil
}

func parseTimeRange(text string, cond *Condition) error {
	parts := strings.Split(text, "..")
	from, err := parseMinute(parts[0])
	if err != nil {
		return err
	}
	to, err := parseMinute(parts[1])
	if err != nil {
		return err
	}
	if to <= from {
		return fmt.Errorf("empty time window %q", text)
	}
	cond.FromMinute = from
	cond.ToMinute = to
	return nil
}

func parseMinute(hhmm string) (int, error) {
	hour, _ := strconv.Atoi(hhmm[:2])
	minute, _ := strconv.Atoi(hhmm[3:])
	if hour > 23 || minute > 59 {
		return 0, fmt.Errorf("invalid time %q", hhmm)
	}
	return hour*60 + minute, nil
}
