// Package server exposes the analysis pipeline over HTTP.
//
// # Routes
//
//	GET  /healthz   liveness and build version
//	POST /v1/api    build one graph and render it (json, md, dot, svg)
//	POST /v1/diff   diff two graphs (json, md)
//
// Request bodies name their sources inline: a raw documentation tree plus
// optional Cargo.toml text, or a crates.io release. The server never reads
// local paths and never runs the documentation generator.
//
// Every response carries an X-Request-ID header; errors are JSON objects
// with the error code and message.
package server
