package exporter

import (
	"bytes"
	"encoding/csv"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	w := NewCSVWriter(&buf)

	err := w.WriteCSV(WriteOptions{
		Headers:   []string{"feature", "score"},
		Records:   [][]string{{"age", "0.5"}, {"income, net", "0.25"}},
		BOMPrefix: true,
	})
	require.NoError(t, err)

	out := buf.Bytes()
	require.True(t, bytes.HasPrefix(out, utf8BOM))

	records, err := csv.NewReader(bytes.NewReader(out[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"feature", "score"},
		{"age", "0.5"},
		{"income, net", "0.25"},
	}, records)
}

func TestWriteCSVBOMOnlyOnce(t *testing.T) {
	var buf bytes.Buffer
	w := NewCSVWriter(&buf)

	require.NoError(t, w.WriteCSV(WriteOptions{Headers: []string{"a"}, BOMPrefix: true}))
	require.NoError(t, w.WriteCSV(WriteOptions{Headers: []string{"b"}, BOMPrefix: true}))

	assert.Equal(t, 1, bytes.Count(buf.Bytes(), utf8BOM))
	assert.Equal(t, "\xEF\xBB\xBFa\nb\n", buf.String())
}

func TestStreamWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewCSVWriter(&buf)

	stream, err := w.CreateStreamWriter([]string{"row", "value"})
	require.NoError(t, err)
	for _, rec := range [][]string{{"0", "1.5"}, {"1", "2.5"}} {
		require.NoError(t, stream.WriteRecord(rec))
	}
	require.NoError(t, stream.Close())

	assert.Equal(t, "row,value\n0,1.5\n1,2.5\n", buf.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestWriteCSVPropagatesWriterErrors(t *testing.T) {
	w := NewCSVWriter(failingWriter{})

	err := w.WriteCSV(WriteOptions{Headers: []string{"a"}, BOMPrefix: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write BOM")

	err = NewCSVWriter(failingWriter{}).WriteSimpleCSV([]string{"a"}, [][]string{{"1"}})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "disk full"))
}
