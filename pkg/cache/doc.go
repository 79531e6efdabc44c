// Package cache provides Redis-backed caching for upstream REST responses.
//
// PubChem property tables and substance records for a given request URL are
// stable on the timescale of a lookup session, so successful (200) bodies are
// cached under a key derived from the normalized request URL with a fixed TTL.
// PUG-REST emits neither ETag nor Expires headers, so there is no conditional
// request machinery; expiry is purely TTL-driven.
package cache
