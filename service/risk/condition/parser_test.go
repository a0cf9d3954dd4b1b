package condition

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		description string
		input       string
		expect      *Condition
		expectError bool
	}{
		{
			description: "time window",
			input:       "window 09:00..17:30",
			expect:      &Condition{Kind: KindTimeWindow, FromMinute: 540, ToMinute: 1050},
		},
		{
			description: "geo list",
			input:       "geo us,eu,apac",
			expect:      &Condition{Kind: KindGeo, Regions: []string{"us", "eu", "apac"}},
		},
		{
			description: "security level",
			input:       "security <= internal",
			expect:      &Condition{Kind: KindSecurityLevel, Op: "<=", Level: "internal"},
		},
		{
			description: "budget bound",
			input:       "budget < 5000.50",
			expect:      &Condition{Kind: KindResourceBound, Op: "<", Threshold: 5000.50},
		},
		{
			description: "unknown kind",
			input:       "weather == sunny",
			expectError: true,
		},
		{
			description: "unknown security level",
			input:       "security <= topsecret",
			expectError: true,
		},
		{
			description: "inverted window",
			input:       "window 17:00..09:00",
			expectError: true,
		},
		{
			description: "trailing garbage",
			input:       "geo us extra",
			expectError: true,
		},
	}

	for _, testCase := range testCases {
		actual, err := Parse([]byte(testCase.input))
		if testCase.expectError {
			assert.Error(t, err, testCase.description)
			continue
		}
		if !assert.NoError(t, err, testCase.description) {
			continue
		}
		assert.EqualValues(t, testCase.expect, actual, testCase.description)
	}
}

func TestCondition_Evaluate(t *testing.T) {
	inWindow := time.Date(2026, 3, 2, 10, 15, 0, 0, time.UTC)
	afterHours := time.Date(2026, 3, 2, 22, 0, 0, 0, time.UTC)

	testCases := []struct {
		description string
		expr        string
		input       Input
		expect      bool
		expectError bool
	}{
		{
			description: "within window",
			expr:        "window 09:00..17:00",
			input:       Input{Now: inWindow},
			expect:      true,
		},
		{
			description: "outside window",
			expr:        "window 09:00..17:00",
			input:       Input{Now: afterHours},
			expect:      false,
		},
		{
			description: "occurredAt attribute overrides clock",
			expr:        "window 09:00..17:00",
			input: Input{
				Now:        afterHours,
				Attributes: map[string]interface{}{"occurredAt": "2026-03-02T10:15:00Z"},
			},
			expect: true,
		},
		{
			description: "region permitted",
			expr:        "geo us,eu",
			input:       Input{Region: "eu"},
			expect:      true,
		},
		{
			description: "region rejected",
			expr:        "geo us,eu",
			input:       Input{Region: "apac"},
			expect:      false,
		},
		{
			description: "security within bound",
			expr:        "security <= internal",
			input:       Input{SecurityLevel: "public"},
			expect:      true,
		},
		{
			description: "security above bound",
			expr:        "security <= internal",
			input:       Input{SecurityLevel: "restricted"},
			expect:      false,
		},
		{
			description: "unknown actual security level",
			expr:        "security <= internal",
			input:       Input{SecurityLevel: "classified"},
			expectError: true,
		},
		{
			description: "budget under limit",
			expr:        "budget <= 5000",
			input:       Input{Budget: 4200},
			expect:      true,
		},
		{
			description: "budget attribute coerced from string",
			expr:        "budget <= 5000",
			input: Input{
				Budget:     9000,
				Attributes: map[string]interface{}{"budget": "1250.75"},
			},
			expect: true,
		},
	}

	for _, testCase := range testCases {
		cond, err := Parse([]byte(testCase.expr))
		if !assert.NoError(t, err, testCase.description) {
			continue
		}
		actual, err := cond.Evaluate(testCase.input)
		if testCase.expectError {
			assert.Error(t, err, testCase.description)
			continue
		}
		if !assert.NoError(t, err, testCase.description) {
			continue
		}
		assert.Equal(t, testCase.expect, actual, testCase.description)
	}
}
