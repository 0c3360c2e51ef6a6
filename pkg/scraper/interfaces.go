package scraper

import "xtractr/pkg/xclient"

// PageClient defines the page fetch capability the scraper drives. It
// matches the paginator's asynchronous contract: RequestPage returns
// immediately and outcomes arrive on the Results channel keyed by
// request ID.
type PageClient interface {
	RequestPage(cursor string, requestID string)
	Results() <-chan xclient.Result
}
