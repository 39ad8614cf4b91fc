package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	tierTemp  = "temp"
	tierSaved = "saved"
)

// MediaManager moves image objects through their lifecycle tiers: uploads go
// into temp/, a save action promotes them to saved/, and deletes reclaim
// either tier. Failures on the cleanup paths are reported as booleans rather
// than errors; callers that must not fail on a leaked object keep going.
type MediaManager struct {
	store  ObjectStore
	domain string
	logger zerolog.Logger
}

// NewMediaManager wires a media manager over the given object store. The
// public domain is normalized once: scheme ensured, trailing slash stripped.
func NewMediaManager(store ObjectStore, publicDomain string, logger zerolog.Logger) *MediaManager {
	return &MediaManager{
		store:  store,
		domain: NormalizeDomain(publicDomain),
		logger: logger,
	}
}

// NormalizeDomain guarantees an explicit scheme and no trailing slash.
func NormalizeDomain(domain string) string {
	domain = strings.TrimSpace(domain)
	domain = strings.TrimRight(domain, "/")
	if domain != "" && !strings.HasPrefix(domain, "http://") && !strings.HasPrefix(domain, "https://") {
		domain = "https://" + domain
	}
	return domain
}

// Store writes the uploaded bytes into the temp tier under a fresh opaque
// name and returns the public URL plus the storage key.
func (m *MediaManager) Store(ctx context.Context, data []byte, ext string) (string, string, error) {
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if ext == "" {
		ext = "jpg"
	}
	key := fmt.Sprintf("%s/%s.%s", tierTemp, uuid.NewString(), ext)
	if err := m.store.Put(ctx, key, data); err != nil {
		return "", "", fmt.Errorf("store upload: %w", err)
	}
	return m.PublicURL(key), key, nil
}

// PublicURL resolves a storage key to its publicly reachable URL.
func (m *MediaManager) PublicURL(key string) string {
	return m.domain + "/" + key
}

// Promote copies a temp-tier object into the saved tier and removes the temp
// copy. On copy failure nothing is deleted and the original URL is returned
// unchanged, so a concurrent promotion or an already-moved object degrades to
// a no-op. A delete failure after a successful copy leaks the temp object;
// that is logged and the new URL is still returned.
func (m *MediaManager) Promote(ctx context.Context, tempURL string) string {
	name := lastPathSegment(tempURL)
	if name == "" {
		return tempURL
	}
	tempKey := tierTemp + "/" + name
	savedKey := tierSaved + "/" + name

	if err := m.store.Copy(ctx, tempKey, savedKey); err != nil {
		m.logger.Error().Err(err).Str("key", tempKey).Msg("media: promote copy failed")
		return tempURL
	}
	if err := m.store.Delete(ctx, tempKey); err != nil {
		// Orphaned temp object; the copy succeeded so the save proceeds.
		m.logger.Error().Err(err).Str("key", tempKey).Msg("media: promote cleanup failed")
	}
	return m.PublicURL(savedKey)
}

// Delete removes the object a URL points at, deriving the tier from the URL
// path. Unrecognized URLs are a no-op. The result is reported as a boolean.
func (m *MediaManager) Delete(ctx context.Context, imageURL string) bool {
	key := keyFromURL(imageURL)
	if key == "" {
		return true
	}
	if err := m.store.Delete(ctx, key); err != nil {
		tier, _, _ := strings.Cut(key, "/")
		m.logger.Error().Err(err).Str("key", key).Str("tier", tier).Msg("media: delete failed")
		return false
	}
	return true
}

// InTempTier reports whether the URL still points at the temporary tier.
func InTempTier(imageURL string) bool {
	return strings.Contains(imageURL, "/"+tierTemp+"/")
}

func keyFromURL(imageURL string) string {
	name := lastPathSegment(imageURL)
	if name == "" {
		return ""
	}
	switch {
	case strings.Contains(imageURL, "/"+tierTemp+"/"):
		return tierTemp + "/" + name
	case strings.Contains(imageURL, "/"+tierSaved+"/"):
		return tierSaved + "/" + name
	default:
		return ""
	}
}

func lastPathSegment(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ""
	}
	parts := strings.Split(rawURL, "/")
	return parts[len(parts)-1]
}
