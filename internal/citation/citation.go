// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package citation rewrites inline [n] citation markers into links.
//
// Model output cites context documents as [1], 【2】 or ［3］. Markers are
// normalised to half-width brackets and then replaced using a
// number-to-link mapping. Unmapped markers are left as text.
package citation

import (
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/muesli/termenv"
	"golang.org/x/text/width"
)

// Formatter renders one mapped marker. num is the citation number in
// ASCII digits and marker is the normalised source text, e.g. "[2]".
type Formatter func(num, marker, link string) string

// HTML renders an anchor opening in a new tab.
func HTML(num, marker, link string) string {
	return `<a href="` + html.EscapeString(link) + `" target="_blank" class="citation-link">` + marker + `</a>`
}

// Markdown renders an inline markdown link.
func Markdown(num, marker, link string) string {
	return "[" + escapeMarkdown(marker) + "](" + link + ")"
}

// Terminal renders an OSC 8 hyperlink for terminals that support it.
func Terminal(num, marker, link string) string {
	return termenv.Hyperlink(link, marker)
}

var bracketReplacer = strings.NewReplacer("【", "[", "】", "]", "［", "[", "］", "]")

var markerPattern = regexp.MustCompile(`\[([0-9０-９]+)\]`)

// Normalize converts full-width citation brackets to half-width.
func Normalize(text string) string {
	return bracketReplacer.Replace(text)
}

// Rewrite normalises brackets in text and replaces every [n] whose n is
// present in links using f. Unmapped markers keep their normalised text.
func Rewrite(text string, links map[string]string, f Formatter) string {
	if text == "" {
		return text
	}
	text = Normalize(text)
	if len(links) == 0 {
		return text
	}
	if f == nil {
		f = Markdown
	}
	return markerPattern.ReplaceAllStringFunc(text, func(marker string) string {
		num := width.Narrow.String(marker[1 : len(marker)-1])
		link := links[num]
		if link == "" {
			if n, err := strconv.Atoi(num); err == nil {
				link = links[strconv.Itoa(n)]
			}
		}
		if link == "" {
			return marker
		}
		return f(num, marker, link)
	})
}

func escapeMarkdown(s string) string {
	return strings.NewReplacer("[", `\[`, "]", `\]`).Replace(s)
}
