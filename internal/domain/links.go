package domain

import (
	"net/url"
	"regexp"
)

// urlPattern finds http(s) URL candidates in free text. Candidates are then
// verified by actually parsing them, so a match alone is not enough.
var urlPattern = regexp.MustCompile(`https?://[^\s]+`)

// ExtractURLs returns every well-formed absolute http(s) URL embedded in
// text, in order of appearance.
func ExtractURLs(text string) []string {
	var urls []string
	for _, candidate := range urlPattern.FindAllString(text, -1) {
		u, err := url.Parse(candidate)
		if err != nil || u.Scheme == "" || u.Host == "" {
			continue
		}
		urls = append(urls, candidate)
	}
	return urls
}

// ChooseLink selects the stored link for a post: URLs extracted from the
// message come first and the explicitly supplied link is appended after
// them, so an extracted URL wins over the explicit one. The first element
// of that combined list is the result; empty string means no link.
//
// The explicit link acting as a fallback rather than an override is
// long-standing board behavior and must not be "fixed".
func ChooseLink(message, explicit string) string {
	links := ExtractURLs(message)
	if explicit != "" {
		links = append(links, explicit)
	}
	if len(links) == 0 {
		return ""
	}
	return links[0]
}
