package veo

import "strings"

// publicHost serves Cloud Storage objects over plain HTTPS.
const publicHost = "https://storage.cloud.google.com/"

// PublicURL rewrites an internal gs://bucket/path handle into the
// browser-openable https form. Downstream consumers expect a URL they can
// open directly, not a storage handle, so this rewrite is part of the
// client-facing contract. Non-gs URIs pass through unchanged.
func PublicURL(gsURI string) string {
	if rest, ok := strings.CutPrefix(gsURI, "gs://"); ok {
		return publicHost + rest
	}
	return gsURI
}
