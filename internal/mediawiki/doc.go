// Package mediawiki implements the OAuth 1.0a relying-party side of the
// MediaWiki Special:OAuth flow: request-token initiation, access-token
// exchange, and the JWS-based identify call.
package mediawiki
