package testrunner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sumSource = `
//#{
//#  "cases": [
//#    {"case": "three_plus_four", "input": [3, 4], "expect": "7"},
//#    {"case": "zero_plus_zero", "input": [0, 0], "expect": "0"}
//#  ]
//#}
fn main(a: field, b: field) -> field {
	a + b
}
`

const divideByZeroSource = `
//#{
//#  "cases": [
//#    {"case": "division_by_zero", "should_panic": true, "input": ["5", "0"], "expect": null}
//#  ]
//#}
fn main(a: field, b: field) -> field {
	a / b
}
`

func TestParseTestDataExtractsEmbeddedJSON(t *testing.T) {
	data, err := ParseTestData(sumSource)
	require.NoError(t, err)
	require.Len(t, data.Cases, 2)
	assert.Equal(t, "three_plus_four", data.Cases[0].Name)
	assert.False(t, data.Cases[0].ShouldPanic)
}

func TestParseTestDataEmptyWithoutCommentBlock(t *testing.T) {
	data, err := ParseTestData(`fn main() -> field { 1 }`)
	require.NoError(t, err)
	assert.Empty(t, data.Cases)
}

func TestRunRecordsPassesForMatchingCases(t *testing.T) {
	summary := NewSummary(nil)
	err := Run(context.Background(), []File{{Name: "sum.zn", Source: sumSource}}, 2, summary)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Passed)
	assert.Equal(t, 0, summary.Failed)
}

func TestRunRecordsPassForExpectedRuntimeFailure(t *testing.T) {
	summary := NewSummary(nil)
	err := Run(context.Background(), []File{{Name: "div.zn", Source: divideByZeroSource}}, 1, summary)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Passed)
	assert.Equal(t, 0, summary.Failed)
}

func TestRunRecordsFailureForMismatchedExpectation(t *testing.T) {
	mismatched := `
//#{
//#  "cases": [
//#    {"case": "wrong", "input": [1, 1], "expect": "99"}
//#  ]
//#}
fn main(a: field, b: field) -> field {
	a + b
}
`
	summary := NewSummary(nil)
	err := Run(context.Background(), []File{{Name: "wrong.zn", Source: mismatched}}, 1, summary)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Passed)
	assert.Equal(t, 1, summary.Failed)
}

func TestRunSkipsIgnoredFileAndCase(t *testing.T) {
	ignored := `
//#{
//#  "ignore": true,
//#  "cases": [
//#    {"case": "never_runs", "input": [1, 1], "expect": "2"}
//#  ]
//#}
fn main(a: field, b: field) -> field {
	a + b
}
`
	summary := NewSummary(nil)
	err := Run(context.Background(), []File{{Name: "ignored.zn", Source: ignored}}, 1, summary)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Passed)
	assert.Equal(t, 0, summary.Failed)
}
