// Package storage persists finished decks locally and optionally uploads them
// to Google Cloud Storage.
package storage

import "context"

const DeckExt = ".pptx"

// Uploader publishes a local deck and returns where it can be fetched.
type Uploader interface {
	Upload(ctx context.Context, localPath string) (string, error)
}
