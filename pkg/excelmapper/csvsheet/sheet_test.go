package csvsheet

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locvowork/excelmapper/pkg/excelmapper"
)

type contact struct {
	Name   string
	Email  string
	Joined time.Time
	Score  float64
}

func newMapper() *excelmapper.Mapper {
	return excelmapper.NewMapper(excelmapper.WithLogger(zerolog.Nop()))
}

func TestLoad(t *testing.T) {
	s, err := Load(strings.NewReader("a,b\n,\nc,\n"), ',')
	require.NoError(t, err)

	assert.Equal(t, 0, s.FirstRowIndex())
	assert.Equal(t, 2, s.LastRowIndex())
	assert.Nil(t, s.Row(1))
	assert.Equal(t, "b", s.Row(0).Cell(1).Value())
	assert.Equal(t, 1, s.Row(2).CellCount())
	assert.Nil(t, s.Row(2).Cell(1))
}

func TestLoad_Semicolon(t *testing.T) {
	s, err := Load(strings.NewReader("Name;Email\nAnn;ann@example.com\n"), ';')
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", s.Row(1).Cell(1).Value())
}

func TestLoad_Malformed(t *testing.T) {
	_, err := Load(strings.NewReader("a,\"b\n"), ',')
	assert.Error(t, err)
}

func TestWrite(t *testing.T) {
	m := newMapper()
	joined := time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)
	contacts := []*contact{
		{Name: "Ann", Email: "ann@example.com", Joined: joined, Score: 9.5},
		nil,
		{Name: "Smith, Bob", Joined: joined.Add(90 * time.Minute)},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(m, &buf, contacts, 0))
	assert.Equal(t, "Name,Email,Joined,Score\n"+
		"Ann,ann@example.com,2023-07-01,9.5\n"+
		",,,\n"+
		"\"Smith, Bob\",,2023-07-01 01:30:00,0\n", buf.String())

	got, err := Read[contact](m, &buf, 0)
	require.NoError(t, err)
	assert.Equal(t, contacts, got)
}

func TestWrite_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write[contact](newMapper(), &buf, nil, 0))
	assert.Empty(t, buf.String())
}

func TestSheet_WriteToSingleColumn(t *testing.T) {
	s := New()
	require.NoError(t, s.CreateRow(1).CreateCell(0).SetValue(true, ""))

	var buf bytes.Buffer
	n, err := s.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, ",\ntrue\n", buf.String())
	assert.EqualValues(t, buf.Len(), n)
}
