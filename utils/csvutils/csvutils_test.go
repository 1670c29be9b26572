// Copyright 2025 The festmap Authors
// SPDX-License-Identifier: Apache-2.0

package csvutils

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReader_UTF8WithBOM(t *testing.T) {
	input := "\xEF\xBB\xBFnome,rua\nCafé Sol,Rua A\n"

	r, err := NewReader(strings.NewReader(input), "")
	require.NoError(t, err)

	rows, err := r.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"nome", "rua"}, {"Café Sol", "Rua A"}}, rows)
}

func TestNewReader_Windows1252(t *testing.T) {
	// "Café" with é encoded as 0xE9.
	input := []byte("name\nCaf\xE9\n")

	r, err := NewReader(bytes.NewReader(input), "windows-1252")
	require.NoError(t, err)

	rows, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Café", rows[1][0])
}

func TestNewReader_UnknownEncoding(t *testing.T) {
	_, err := NewReader(strings.NewReader(""), "klingon-8")
	assert.Error(t, err)
}

func TestNewReader_ShortRowsAllowed(t *testing.T) {
	r, err := NewReader(strings.NewReader("a,b,c\n1\n"), "utf-8")
	require.NoError(t, err)

	rows, err := r.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, rows[1])
}

func TestHeader(t *testing.T) {
	h := NewHeader([]string{"Nome", " RUA ", "Bairro", "nome"})

	assert.Equal(t, 0, h.Index("name", "nome"))
	assert.Equal(t, 1, h.Index("rua"))
	assert.Equal(t, 2, h.Index("neighborhood", "bairro"))
	assert.Equal(t, -1, h.Index("theme", "tema"))
}

func TestField(t *testing.T) {
	row := []string{" a ", "b"}

	assert.Equal(t, "a", Field(row, 0))
	assert.Equal(t, "b", Field(row, 1))
	assert.Equal(t, "", Field(row, 2))
	assert.Equal(t, "", Field(row, -1))
}
