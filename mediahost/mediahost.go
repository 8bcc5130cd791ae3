package mediahost

import (
	"context"
	"fmt"
)

const (
	ProviderCloudinary = "cloudinary"
	ProviderCloudflare = "cloudflare"
)

type Metadata map[string]interface{}

// Asset is an uploaded binary as known by a media host
type Asset struct {
	URL      string
	PublicID string
}

// Host stores image binaries on a third-party media service
type Host interface {
	// Upload sends a local file to the media host
	Upload(ctx context.Context, path string, metadata Metadata) (Asset, error)
	// Destroy removes an asset. Removing an asset that is already gone is not an error.
	Destroy(ctx context.Context, publicID string) error
}

// Error is a failure reported by a media host
type Error struct {
	Provider string
	Op       string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
