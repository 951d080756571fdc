package handler

import (
	"net/http"
	"strings"
)

// Robots serves a crawler policy that disallows the same AI crawlers
// the block-list rejects outright.
func Robots(w http.ResponseWriter, r *http.Request) {
	var b strings.Builder
	for _, agent := range aiCrawlers {
		b.WriteString("User-agent: ")
		b.WriteString(agent)
		b.WriteString("\nDisallow: /\n\n")
	}
	b.WriteString("User-agent: *\nAllow: /\n")

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(b.String()))
}
