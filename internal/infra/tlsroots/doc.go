// Package tlsroots manages TLS material for the onelogin HTTP API.
//
// The server side uses Reloader, which serves the configured key pair and
// reloads it when the files change on disk so certificates can be rotated
// without a restart. The CLI side uses Pool to trust a private CA when the
// server runs with a self-signed certificate.
package tlsroots
