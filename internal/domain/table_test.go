package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tableOf(source string, n int) *Table {
	t := &Table{}
	for i := 0; i < n; i++ {
		t.Append(Record{StationID: fmt.Sprintf("%s-%d", source, i)}, source, i)
	}
	return t
}

func TestConcat_Reindexes(t *testing.T) {
	merged := Concat(tableOf("a", 2), tableOf("b", 3))
	require.Equal(t, 5, merged.Len())

	wantStations := []string{"a-0", "a-1", "b-0", "b-1", "b-2"}
	wantSourceIdx := []int{0, 1, 0, 1, 2}
	for i, row := range merged.Rows {
		assert.Equal(t, i, row.Index)
		assert.Equal(t, wantStations[i], row.StationID)
		assert.Equal(t, wantSourceIdx[i], row.SourceIndex)
	}
}

func TestConcat_Empty(t *testing.T) {
	merged := Concat()
	assert.Equal(t, 0, merged.Len())
	assert.Len(t, merged.Columns(), ColumnCount)
	assert.Empty(t, merged.Records())

	merged = Concat(nil, &Table{}, nil)
	assert.Equal(t, 0, merged.Len())
}

func TestConcat_DoesNotMutateInputs(t *testing.T) {
	b := tableOf("b", 2)
	_ = Concat(tableOf("a", 3), b)
	assert.Equal(t, 0, b.Rows[0].Index)
	assert.Equal(t, 1, b.Rows[1].Index)
}

func TestMergeError(t *testing.T) {
	err := &MergeError{Failures: []FileFailure{
		{Path: "a.txt", Err: &ParseError{Source: "a.txt", Line: 3, Err: ErrSchema}},
		{Path: "b.txt", Err: &ParseError{Source: "b.txt", Line: 1, Err: ErrTimestamp}},
	}}

	assert.ErrorIs(t, err, ErrSchema)
	assert.ErrorIs(t, err, ErrTimestamp)
	assert.NotErrorIs(t, err, ErrField)
	assert.Contains(t, err.Error(), "2 file(s)")
	assert.Contains(t, err.Error(), "a.txt:3")
	assert.Contains(t, err.Error(), "b.txt:1")

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "a.txt", perr.Source)
}

func TestPolicies(t *testing.T) {
	p, err := ParseCollisionPolicy("")
	require.NoError(t, err)
	assert.Equal(t, CollisionOverwrite, p)

	p, err = ParseCollisionPolicy("skip")
	require.NoError(t, err)
	assert.Equal(t, CollisionSkip, p)

	_, err = ParseCollisionPolicy("rename")
	assert.Error(t, err)

	e, err := ParseParseErrorPolicy("")
	require.NoError(t, err)
	assert.Equal(t, OnParseErrorFail, e)

	_, err = ParseParseErrorPolicy("ignore")
	assert.Error(t, err)
}
