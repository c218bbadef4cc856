// Package extract pulls petition fields out of upstream HTML.
//
// The petition site has shipped two markups over the years: the legacy one
// (pet_* classes) and a newer one (petition_votes_* containers). Extraction
// tries the legacy selectors first and falls back to the newer ones, then to
// plain page text for the status.
package extract

import (
	"errors"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/petwatch/petition"
)

// ErrPageGone is returned when the page renders the "no such page" notice
// instead of a petition.
var ErrPageGone = errors.New("extract: petition page gone")

// ErrNoTitle is returned when no petition title could be located; the markup
// has likely changed under us.
var ErrNoTitle = errors.New("extract: no title found")

const goneNotice = "Такої сторінки не існує"

// status markers, checked in order. Class names are the reliable signal;
// the text variants cover pages where the classes were dropped.
var statusByClass = []struct {
	class  string
	status petition.Status
}{
	{"status_active", petition.StatusCollecting},
	{"status_answered", petition.StatusAnswered},
	{"status_archive", petition.StatusArchived},
	{"status_process", petition.StatusUnderReview},
}

var statusByText = []struct {
	needle string
	status petition.Status
}{
	{"Триває збір підписів", petition.StatusCollecting},
	{"На розгляді", petition.StatusUnderReview},
	{"З відповіддю", petition.StatusAnswered},
	{"Не підтримано", petition.StatusUnsupported},
	{"Архів", petition.StatusArchived},
}

var petitionLink = regexp.MustCompile(`/petition/(\d+)`)

// Detail parses one petition page. url and id are copied into the record
// verbatim; everything else comes from the markup.
func Detail(r io.Reader, id, url string) (*petition.Record, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	h1 := find(doc, byTag("h1"))
	if h1 == nil {
		return nil, ErrNoTitle
	}
	title := strings.TrimSpace(text(h1))
	if title == "" {
		return nil, ErrNoTitle
	}
	if strings.Contains(title, goneNotice) {
		return nil, ErrPageGone
	}

	rec := &petition.Record{
		ExternalID: id,
		Title:      title,
		URL:        url,
	}

	if n := find(doc, byClass("pet_number")); n != nil {
		rec.Number = strings.TrimSpace(text(n))
	}

	// The pet_date class carries both the author line and the publication
	// date line; they are told apart by their label text.
	for _, n := range findAll(doc, byClass("pet_date")) {
		t := strings.TrimSpace(text(n))
		switch {
		case strings.Contains(t, "Автор") || strings.Contains(t, "ініціатор"):
			rec.Author = stripLabel(t, "Автор (ініціатор)")
		case strings.Contains(t, "Дата оприлюднення"):
			rec.RawDate = stripLabel(t, "Дата оприлюднення")
		}
	}

	rec.Status = extractStatus(doc)
	rec.Votes = CleanVotes(extractVotesText(doc))

	if article := find(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "article" && hasClass(n, "article")
	}); article != nil {
		rec.TextLength = len(strings.TrimSpace(text(article)))
	}

	rec.HasAnswer = rec.Status == petition.StatusAnswered
	rec.Date = NormalizeDate(rec.RawDate)
	return rec, nil
}

// ListingIDs returns all petition IDs referenced by a listing page, in
// document order. Duplicates are kept; the caller owns dedup.
func ListingIDs(body []byte) []string {
	matches := petitionLink.FindAllSubmatch(body, -1)
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, string(m[1]))
	}
	return ids
}

func extractStatus(doc *html.Node) petition.Status {
	for _, m := range statusByClass {
		if find(doc, byClass(m.class)) != nil {
			return m.status
		}
	}
	// Newer markup puts the status in its own container. Scoped text beats
	// the whole-page scan: a sidebar mentioning another status elsewhere on
	// the page must not win over the container.
	if n := find(doc, byClass("petition_votes_status")); n != nil {
		t := text(n)
		for _, m := range statusByText {
			if strings.Contains(t, m.needle) {
				return m.status
			}
		}
	}
	pageText := text(doc)
	for _, m := range statusByText {
		if strings.Contains(pageText, m.needle) {
			return m.status
		}
	}
	return petition.StatusUnknown
}

func extractVotesText(doc *html.Node) string {
	if n := find(doc, byClass("pet_votes_num")); n != nil {
		return text(n)
	}
	if n := find(doc, byClass("pet_votes")); n != nil {
		return text(n)
	}
	if n := find(doc, byClass("petition_votes_txt")); n != nil {
		if span := find(n, byTag("span")); span != nil {
			return text(span)
		}
	}
	return ""
}

// stripLabel removes a "Label: value" or "Label value" prefix.
func stripLabel(t, label string) string {
	if i := strings.Index(t, ":"); i >= 0 {
		return strings.TrimSpace(t[i+1:])
	}
	return strings.TrimSpace(strings.Replace(t, label, "", 1))
}

// --- minimal DOM helpers ---

type matcher func(*html.Node) bool

func byTag(tag string) matcher {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == tag
	}
}

func byClass(class string) matcher {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && hasClass(n, class)
	}
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

func find(n *html.Node, match matcher) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if got := find(c, match); got != nil {
			return got
		}
	}
	return nil
}

func findAll(n *html.Node, match matcher) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if match(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func text(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
