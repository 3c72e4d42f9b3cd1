package ingest

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dhowden/tag"
)

// Tags is the subset of embedded metadata the catalog stores
type Tags struct {
	Title       string
	Artist      string
	AlbumArtist string
	Album       string
	Genre       string
	Date        string
	TrackNumber int
	Picture     []byte
}

// TagReader reads embedded tags from an open audio file
type TagReader interface {
	ReadTags(r io.ReadSeeker) (*Tags, error)
}

// DhowdenReader reads ID3v1/v2, MP4, FLAC and Ogg tags with dhowden/tag
type DhowdenReader struct{}

// ReadTags implements TagReader. A file without tags yields empty Tags.
func (DhowdenReader) ReadTags(r io.ReadSeeker) (*Tags, error) {
	m, err := tag.ReadFrom(r)
	if errors.Is(err, tag.ErrNoTagsFound) {
		return &Tags{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read tags: %w", err)
	}

	t := &Tags{
		Title:       strings.TrimSpace(m.Title()),
		Artist:      strings.TrimSpace(m.Artist()),
		AlbumArtist: strings.TrimSpace(m.AlbumArtist()),
		Album:       strings.TrimSpace(m.Album()),
		Genre:       strings.TrimSpace(m.Genre()),
	}
	t.TrackNumber, _ = m.Track()
	if year := m.Year(); year > 0 {
		t.Date = strconv.Itoa(year)
	}
	if p := m.Picture(); p != nil && len(p.Data) > 0 {
		t.Picture = p.Data
	}

	return t, nil
}
