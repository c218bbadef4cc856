package fetch

import "errors"

// ErrNotFound marks a petition whose upstream page is gone (404 or the site's
// "no such page" notice). Terminal per record, never retried.
var ErrNotFound = errors.New("fetch: petition not found")

// ErrRateLimited is surfaced after the bounded in-client retries for
// 429/503 responses are exhausted.
var ErrRateLimited = errors.New("fetch: rate limited")

// ErrTransient covers network failures and unexpected upstream status codes.
var ErrTransient = errors.New("fetch: transient upstream error")

// ErrParse marks a page that was served but could not be extracted.
var ErrParse = errors.New("fetch: parse failure")
