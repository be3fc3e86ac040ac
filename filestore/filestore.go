// Package filestore stores uploaded post images and hands back opaque
// keys the rest of the system persists on the Post.
package filestore

import "io"

type ImageStore interface {
	// Save stores the image read from r under a key derived from fileName
	// and returns that key.
	Save(fileName string, r io.Reader) (key string, err error)
	// GetUrlFromKey resolves a stored key to a servable url.
	GetUrlFromKey(key string) string
	CleanUp()
}
