// Package transport sends assembled requests to a FlexiBee server.
//
// A Client addresses one company: every request path is resolved against
// <host>/c/<company>. The client speaks JSON only, authenticates with
// HTTP basic auth when a user is configured, forwards the acting user in
// X-FlexiBee-Authorization and decodes gzip-compressed responses.
//
// The client does not interpret payloads. Envelopes, status handling
// beyond 404 and result extraction belong to the engine.
package transport
