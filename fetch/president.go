package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/hazyhaar/petwatch/extract"
	"github.com/hazyhaar/petwatch/petition"
)

// President fetches from the paginated HTML petition site.
type President struct {
	client  *Client
	baseURL string
}

// NewPresident creates a President fetcher. baseURL is the site root without
// a trailing slash, e.g. "https://petition.president.gov.ua".
func NewPresident(client *Client, baseURL string) *President {
	return &President{client: client, baseURL: baseURL}
}

// Detail fetches one petition page and extracts its fields.
// A gone page (404 or the site's notice) returns ErrNotFound; unparseable
// markup returns ErrParse. An Unknown status is not an error here — the
// caller decides what an ambiguous status means for stored data.
func (p *President) Detail(ctx context.Context, id string) (*petition.Record, error) {
	url := fmt.Sprintf("%s/petition/%s", p.baseURL, id)
	body, err := p.client.get(ctx, url, "text/html")
	if err != nil {
		return nil, err
	}

	rec, err := extract.Detail(bytes.NewReader(body), id, url)
	if err != nil {
		if errors.Is(err, extract.ErrPageGone) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, url, err)
	}
	return rec, nil
}

// ListPage fetches listing page n (1-based, newest first) and returns the
// petition IDs it references, in page order.
func (p *President) ListPage(ctx context.Context, page int) ([]string, error) {
	url := fmt.Sprintf("%s/?status=active&sort=date&order=desc&page=%d", p.baseURL, page)
	body, err := p.client.get(ctx, url, "text/html")
	if err != nil {
		return nil, err
	}
	return extract.ListingIDs(body), nil
}
