// Package s3archive reads archived nodes from an S3-compatible bucket.
//
// An archived node is the object at prefix/id. Its body is the stored
// payload and its Content-Encoding header names the codec; headers no
// codec knows (including none) are read as identity.
package s3archive
