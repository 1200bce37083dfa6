// Package services holds the error taxonomy and context plumbing shared by
// every component that talks to an external endpoint.
//
// The sentinel markers plus the Wrap helper classify failures once, at the
// client boundary: transient trouble is retried on the next cycle, validation
// and configuration mistakes are surfaced to the user, and a gone chat
// surface is dropped quietly. RateLimitError carries the backoff a remote
// endpoint advertised so callers can honor it instead of guessing.
//
// The context helpers stamp download GIDs, originating chats, component
// names, and correlation identifiers; the logging package extracts them, so
// any line logged under a stamped context carries the matching fields.
package services
