package claims

import (
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const (
	DefaultMaxMediaBytes = 10 << 20
	mediaURLPrefix       = "/uploads/"
)

var allowedMedia = regexp.MustCompile(`jpeg|jpg|png|gif|mp4|avi|mov|webm`)

// Media is an uploaded file attached to a submission.
type Media struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

type savedMedia struct {
	Name string
	URL  string
}

// mediaStore writes uploads to a directory served under /uploads/.
type mediaStore struct {
	dir      string
	maxBytes int64
}

func newMediaStore(dir string, maxBytes int64) *mediaStore {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxMediaBytes
	}
	return &mediaStore{dir: dir, maxBytes: maxBytes}
}

// Allowed reports whether both the file extension and MIME type name an
// image or video format.
func Allowed(filename, contentType string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return allowedMedia.MatchString(ext) && allowedMedia.MatchString(strings.ToLower(contentType))
}

func (m *mediaStore) Save(media *Media) (*savedMedia, error) {
	if !Allowed(media.Filename, media.ContentType) {
		return nil, ErrUnsupportedMedia
	}
	if m.dir == "" {
		return nil, fmt.Errorf("media uploads are not configured")
	}
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(media.Filename))
	name := fmt.Sprintf("media-%d-%d%s", time.Now().UnixMilli(), rand.IntN(1_000_000_000), ext)
	dest := filepath.Join(m.dir, name)

	f, err := os.Create(dest)
	if err != nil {
		return nil, fmt.Errorf("creating media file: %w", err)
	}
	n, err := io.Copy(f, io.LimitReader(media.Body, m.maxBytes+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(dest)
		return nil, fmt.Errorf("writing media file: %w", err)
	}
	if n > m.maxBytes {
		os.Remove(dest)
		return nil, ErrMediaTooLarge
	}

	return &savedMedia{Name: name, URL: path.Join(mediaURLPrefix, name)}, nil
}

// Remove deletes a previously saved file by its public URL.
func (m *mediaStore) Remove(url string) {
	if url == "" || !strings.HasPrefix(url, mediaURLPrefix) {
		return
	}
	os.Remove(filepath.Join(m.dir, path.Base(url)))
}
