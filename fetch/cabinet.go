package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/hazyhaar/petwatch/extract"
	"github.com/hazyhaar/petwatch/petition"
)

// Cabinet fetches the full current petition set from the JSON API in one call.
type Cabinet struct {
	client  *Client
	apiURL  string
	pageURL string // public page URL prefix, petition ID appended
}

// NewCabinet creates a Cabinet fetcher.
func NewCabinet(client *Client, apiURL, pageURL string) *Cabinet {
	return &Cabinet{client: client, apiURL: apiURL, pageURL: pageURL}
}

// The API envelope is {count: N, rows: [...]}.
type cabinetEnvelope struct {
	Count int           `json:"count"`
	Rows  []cabinetItem `json:"rows"`
}

type cabinetItem struct {
	ID               int64  `json:"id"`
	Code             string `json:"code"`
	Title            string `json:"title"`
	CreatedAt        string `json:"createdAt"`
	Status           string `json:"status"`
	SignaturesNumber int    `json:"signaturesNumber"`
}

// FetchAll returns every petition the API currently exposes.
func (c *Cabinet) FetchAll(ctx context.Context) ([]petition.Record, error) {
	body, err := c.client.get(ctx, c.apiURL, "application/json")
	if err != nil {
		return nil, err
	}

	var env cabinetEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, c.apiURL, err)
	}

	records := make([]petition.Record, 0, len(env.Rows))
	for _, item := range env.Rows {
		id := strconv.FormatInt(item.ID, 10)
		records = append(records, petition.Record{
			ExternalID: id,
			Title:      item.Title,
			Number:     item.Code,
			RawDate:    item.CreatedAt,
			Date:       extract.NormalizeDate(item.CreatedAt),
			Status:     mapCabinetStatus(item.Status),
			Votes:      item.SignaturesNumber,
			URL:        c.pageURL + id,
		})
	}
	return records, nil
}

// mapCabinetStatus folds the API's status strings into the closed vocabulary.
func mapCabinetStatus(s string) petition.Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "active", "collecting":
		return petition.StatusCollecting
	case "consideration", "in_consideration", "in_process", "processing":
		return petition.StatusUnderReview
	case "answered", "completed", "done":
		return petition.StatusAnswered
	case "archive", "archived":
		return petition.StatusArchived
	case "not_supported", "rejected", "declined":
		return petition.StatusUnsupported
	default:
		return petition.StatusUnknown
	}
}
