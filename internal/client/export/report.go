package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/sitemapkeeper/internal/client/models"
)

// Page geometry, in the same units a printed A4 page would use (mm).
const (
	ReportTitle     = "Sitemap Report"
	titleY          = 15
	folderY         = 25
	firstEntryY     = 35
	detailOffset    = 6
	entryAdvance    = 14
	pageContentMaxY = 270
	pageTopY        = 20
)

// Line is one positioned line of text.
type Line struct {
	Y    int
	Text string
}

// Page is a fixed-height page of lines.
type Page struct {
	Lines []Line
}

// Report is a paginated, printable listing of a folder.
type Report struct {
	Pages []Page
}

// ToReport lays out f: a title and folder line, then for each entry a
// numbered URL line and a priority/lastmod line. A new page starts whenever
// the running offset has passed the page content limit.
func ToReport(f models.Folder) Report {
	page := Page{Lines: []Line{
		{Y: titleY, Text: ReportTitle},
		{Y: folderY, Text: "Folder: " + f.Name},
	}}
	var pages []Page

	y := firstEntryY
	for i, e := range f.Files {
		if y > pageContentMaxY {
			pages = append(pages, page)
			page = Page{}
			y = pageTopY
		}
		page.Lines = append(page.Lines,
			Line{Y: y, Text: fmt.Sprintf("%d. %s", i+1, e.URL)},
			Line{Y: y + detailOffset, Text: fmt.Sprintf("Priority: %s | LastMod: %s", e.Priority, e.Lastmod)},
		)
		y += entryAdvance
	}
	pages = append(pages, page)
	return Report{Pages: pages}
}

// WriteTo renders the report as plain text with a form feed between pages.
func (r Report) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	for i, p := range r.Pages {
		if i > 0 {
			b.WriteString("\f\n")
		}
		fmt.Fprintf(&b, "--- Page %d/%d ---\n", i+1, len(r.Pages))
		for _, l := range p.Lines {
			b.WriteString(l.Text)
			b.WriteByte('\n')
		}
	}
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

// String returns the rendered report.
func (r Report) String() string {
	var b strings.Builder
	_, _ = r.WriteTo(&b)
	return b.String()
}
