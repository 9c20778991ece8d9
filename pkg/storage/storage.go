// Package storage holds recording blobs. Keys are slash-separated paths relative
// to the store root (local directory or S3 prefix).
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"
)

// ErrNotExist is returned by Open and SizeOf when the blob is absent.
var ErrNotExist = fs.ErrNotExist

// DefaultContainers is the recording container allow-list used when none is configured.
const DefaultContainers = "webm,mp4,avi"

// MediaStore saves, locates and deletes recording blobs.
type MediaStore interface {
	// Save streams r into key and returns the number of bytes written.
	Save(ctx context.Context, key string, r io.Reader) (int64, error)
	// Open returns a reader for key and its size. Caller must close the reader.
	Open(ctx context.Context, key string) (io.ReadCloser, int64, error)
	Exists(ctx context.Context, key string) (bool, error)
	SizeOf(ctx context.Context, key string) (int64, error)
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

var containerContentTypes = map[string]string{
	"webm": "video/webm",
	"mp4":  "video/mp4",
	"avi":  "video/x-msvideo",
	"mov":  "video/quicktime",
	"mkv":  "video/x-matroska",
	"wmv":  "video/x-ms-wmv",
}

// Containers is the set of file extensions (without dot, lower case) accepted for recordings.
type Containers map[string]struct{}

// ParseContainers parses a comma-separated extension list such as "webm,mp4,avi".
func ParseContainers(s string) (Containers, error) {
	c := make(Containers)
	for _, v := range strings.Split(s, ",") {
		ext := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(v)), ".")
		if ext == "" {
			continue
		}
		if strings.ContainsAny(ext, "/\\.") {
			return nil, fmt.Errorf("invalid container extension %q", v)
		}
		c[ext] = struct{}{}
	}
	if len(c) == 0 {
		return nil, errors.New("no recording containers allowed")
	}
	return c, nil
}

// Match returns the lower-case extension of filename if it is allowed.
func (c Containers) Match(filename string) (string, bool) {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(filename)), ".")
	if ext == "" {
		return "", false
	}
	_, ok := c[ext]
	return ext, ok
}

// ContentTypeForExt returns the MIME type for a container extension.
func ContentTypeForExt(ext string) string {
	if ct, ok := containerContentTypes[strings.ToLower(ext)]; ok {
		return ct
	}
	return "application/octet-stream"
}

// ContentTypeForKey returns the MIME type for a stored blob key.
func ContentTypeForKey(key string) string {
	return ContentTypeForExt(strings.TrimPrefix(path.Ext(key), "."))
}

// RecordingKey returns the key pre-allocated for a live recording: {recording_id}.mp4.
func RecordingKey(recordingID string) string {
	return recordingID + ".mp4"
}

// UploadKey returns the key for an uploaded blob: {blob_id}.{ext}.
func UploadKey(blobID, ext string) string {
	return blobID + "." + ext
}

// cleanKey rejects keys that would escape the store root.
func cleanKey(key string) (string, error) {
	if key == "" {
		return "", errors.New("empty media key")
	}
	k := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))[1:]
	if k == "" || k != strings.TrimPrefix(key, "/") {
		return "", fmt.Errorf("invalid media key %q", key)
	}
	return k, nil
}
