// Package mongo implements the NodeRepository on MongoDB.
//
// Each node is one document in a collection:
//
//	{_id: <id>, data: <binary>, content_encoding: <string>, expires_at: <date>}
//
// expires_at is omitted for nodes without expiry. A TTL index on it
// (expireAfterSeconds=0) lets the server remove expired documents; the
// server's TTL monitor runs about once a minute, so expired documents
// may still be read for a short while.
package mongo
