package common

import (
	"bytes"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		want    bool
	}{
		{"/foo", "", true},
		{"/foo/bar", "foo", true},
		{"/baz", "foo", false},
		{"/foo/bar", "/foo/*", true},
		{"/foo/bar/baz", "/foo/*", false},
		{"/foo/bar/baz", "/foo/**", true},
		{"/a1", "/a?", true},
		{"/ユーザー/一覧", "/ユーザー/*", true},
	}
	for _, tt := range tests {
		got, err := MatchPattern(tt.name, tt.pattern)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s ~ %s", tt.name, tt.pattern)
	}

	_, err := MatchPattern("/foo", "/[a")
	assert.Error(t, err)
}

func TestPrintTableUsesDisplayWidth(t *testing.T) {
	var buf bytes.Buffer
	PrintTable(&buf, "", []TableColumn{{Header: "パス"}, {Header: "n", AlignRight: true}}, [][]string{
		{"/ユーザー", "12"},
		{"/a", "3"},
	})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	// "/ユーザー" は表示幅9
	assert.Equal(t, "パス       n", lines[0])
	assert.Equal(t, "--------- --", lines[1])
	assert.Equal(t, "/ユーザー 12", lines[2])
	assert.Equal(t, "/a         3", lines[3])
}

func TestGenerateFilteredTitle(t *testing.T) {
	assert.Equal(t, "ヒット数一覧", GenerateFilteredTitle("ヒット数"))
	assert.Equal(t, "条件Aヒット数一覧", GenerateFilteredTitle("ヒット数", "", "条件A"))
}

func TestParallelExecutor(t *testing.T) {
	executor := NewParallelExecutor(3)
	var running, peak atomic.Int32
	results := make([]ProcessResult, 20)

	for i := range results {
		executor.Execute(func() {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			var err error
			if i%5 == 0 {
				err = errors.New("failed")
			}
			results[i] = ProcessResult{Item: "x", Success: err == nil, Error: err}
			running.Add(-1)
		})
	}
	executor.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(3))
	ok, failed := CollectResults(results)
	assert.Equal(t, 16, ok)
	assert.Equal(t, 4, failed)
}
