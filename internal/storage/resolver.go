package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"server/internal/domain"
)

// ReferenceResolver turns stored reference image keys into either raw bytes
// for vendors that accept inline payloads or public URLs for vendors that
// fetch references themselves.
type ReferenceResolver struct {
	store   *FileStore
	baseURL string
}

func NewReferenceResolver(store *FileStore, baseURL string) *ReferenceResolver {
	return &ReferenceResolver{store: store, baseURL: strings.TrimRight(baseURL, "/")}
}

// Inline reads each referenced image and pairs it with a MIME type inferred
// from the key's extension.
func (r *ReferenceResolver) Inline(ctx context.Context, paths []string) ([]domain.ReferenceImage, error) {
	refs := make([]domain.ReferenceImage, 0, len(paths))
	for _, key := range paths {
		data, err := r.store.Read(ctx, key)
		if err != nil {
			return nil, err
		}
		refs = append(refs, domain.ReferenceImage{
			MIME: mimeForKey(key),
			Data: data,
		})
	}
	return refs, nil
}

// PublicURLs maps each key onto the configured public base URL. Keys are
// sanitized the same way the store sanitizes writes.
func (r *ReferenceResolver) PublicURLs(ctx context.Context, paths []string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.baseURL == "" {
		return nil, fmt.Errorf("storage: no public base url configured")
	}
	urls := make([]string, 0, len(paths))
	for _, key := range paths {
		cleanKey, err := sanitizeKey(key)
		if err != nil {
			return nil, err
		}
		urls = append(urls, r.baseURL+"/"+cleanKey)
	}
	return urls, nil
}

func mimeForKey(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	default:
		return "image/png"
	}
}
