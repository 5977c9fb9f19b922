// Package redis implements the NodeRepository on Redis.
//
// A node is one string key, KeyPrefix+ID, holding a JSON envelope with the
// payload and its content encoding. Expiry uses PEXPIREAT, set in the same
// MULTI/EXEC transaction as the value, so Redis removes the key itself.
package redis
