// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package citation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRewriteHTML(t *testing.T) {
	links := map[string]string{"1": "http://a", "2": "http://b"}
	got := Rewrite("見[1]與【2】", links, HTML)

	want := `見<a href="http://a" target="_blank" class="citation-link">[1]</a>與` +
		`<a href="http://b" target="_blank" class="citation-link">[2]</a>`
	assert.Equal(t, want, got)
}

func TestRewrite(t *testing.T) {
	links := map[string]string{"1": "http://x", "3": "http://z"}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"markdown link", "ok [1]", `ok [\[1\]](http://x)`},
		{"unmapped marker unchanged", "see [2]", "see [2]"},
		{"full-width normalised even when unmapped", "see 【2】", "see [2]"},
		{"full-width square brackets", "a［3］", `a[\[3\]](http://z)`},
		{"full-width digits", "a[１]", `a[\[１\]](http://x)`},
		{"non-numeric ignored", "[a] [1a]", "[a] [1a]"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Rewrite(tt.in, links, Markdown); got != tt.want {
				t.Errorf("Rewrite(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRewriteNoLinks(t *testing.T) {
	assert.Equal(t, "x [1]", Rewrite("x 【1】", nil, HTML))
}

func TestRewriteEscapesHref(t *testing.T) {
	got := Rewrite("[1]", map[string]string{"1": `http://a?x="y"`}, HTML)
	assert.True(t, strings.Contains(got, `href="http://a?x=&#34;y&#34;"`), got)
}

func TestTerminalFormatter(t *testing.T) {
	got := Rewrite("[1]", map[string]string{"1": "http://a"}, Terminal)
	assert.Contains(t, got, "http://a")
	assert.Contains(t, got, "[1]")
}
