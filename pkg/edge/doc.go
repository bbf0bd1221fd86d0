// Package edge talks to the Experience Edge network.
//
// A Fetcher performs one JSON request and returns the decoded object. The
// Requester builds interact and collect URLs for a datastream and posts
// events with the browser-like headers the edge network expects:
//
//	fetcher := edge.NewHTTPFetcher(10*time.Second, logger)
//	requester := edge.NewRequester(edge.RequesterOptions{DatastreamID: "ds"}, fetcher, ids)
//	resp, err := requester.Interact(ctx, event)
//
// The package also reads and writes the X-ADOBE-ECID cookie that carries a
// visitor's ECID between page loads.
package edge
