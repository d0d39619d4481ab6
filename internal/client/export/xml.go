package export

import (
	"strings"

	"github.com/dmitrijs2005/sitemapkeeper/internal/client/models"
)

const (
	xmlHeader = `<?xml version="1.0" encoding="UTF-8"?>` + "\n" +
		`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`
	xmlFooter = "\n</urlset>"
)

var xmlText = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// ToXML renders f as a sitemap document, one <url> block per entry in folder
// order, children always loc, priority, changefreq, lastmod.
func ToXML(f models.Folder) string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	for _, e := range f.Files {
		b.WriteString("\n  <url>")
		writeElem(&b, "loc", e.URL)
		writeElem(&b, "priority", e.Priority)
		writeElem(&b, "changefreq", e.Changefreq)
		writeElem(&b, "lastmod", e.Lastmod)
		b.WriteString("\n  </url>")
	}
	b.WriteString(xmlFooter)
	return b.String()
}

func writeElem(b *strings.Builder, name, value string) {
	b.WriteString("\n    <")
	b.WriteString(name)
	b.WriteByte('>')
	b.WriteString(xmlText.Replace(value))
	b.WriteString("</")
	b.WriteString(name)
	b.WriteByte('>')
}
