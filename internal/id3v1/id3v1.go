package id3v1

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/dhowden/tag"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Size はファイル末尾のID3v1タグのバイト数。
const Size = 128

const magic = "TAG"

type Tag struct {
	Title   string
	Artist  string
	Album   string
	Year    string
	Comment string
	// ID3v1.1のトラック番号。0なら書き込まない。
	Track int
	Genre string
}

// Read はファイル末尾のID3v1タグを読む。タグが無ければ nil を返す。
func Read(r io.ReadSeeker) (*Tag, error) {
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}
	if size < Size {
		return nil, nil
	}

	m, err := tag.ReadID3v1Tags(r)
	if errors.Is(err, tag.ErrNotID3v1) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	t := &Tag{
		Title:   m.Title(),
		Artist:  m.Artist(),
		Album:   m.Album(),
		Comment: m.Comment(),
		Genre:   m.Genre(),
	}
	// ID3v1.1ではコメントの末尾2バイトがトラック番号
	if i := strings.IndexByte(t.Comment, 0); i >= 0 {
		t.Comment = strings.TrimSpace(t.Comment[:i])
	}
	if year := m.Year(); year > 0 {
		t.Year = strconv.Itoa(year)
	}
	t.Track, _ = m.Track()

	return t, nil
}

// IsTag は末尾128バイトがID3v1タグかどうかを返す。
func IsTag(trailer []byte) bool {
	return len(trailer) >= Size && string(trailer[:3]) == magic
}

func (t *Tag) IsEmpty() bool {
	return t.Title == "" && t.Artist == "" && t.Album == "" && t.Year == "" &&
		t.Comment == "" && t.Track == 0 && t.Genre == ""
}

// Bytes はタグを128バイトの形式にする。長すぎる値は切り詰める。
func (t *Tag) Bytes() []byte {
	b := make([]byte, Size)
	copy(b, magic)

	putString(b[3:33], t.Title)
	putString(b[33:63], t.Artist)
	putString(b[63:93], t.Album)
	putString(b[93:97], t.Year)

	if t.Track > 0 && t.Track <= 255 {
		putString(b[97:125], t.Comment)
		b[125] = 0
		b[126] = byte(t.Track)
	} else {
		putString(b[97:127], t.Comment)
	}

	b[127] = NoGenre
	if index, ok := GenreIndex(t.Genre); ok {
		b[127] = byte(index)
	}

	return b
}

// ID3v1はLatin-1固定なので、表現できない文字は置き換える。
func putString(dst []byte, s string) {
	enc := encoding.ReplaceUnsupported(charmap.ISO8859_1.NewEncoder())
	encoded, err := enc.Bytes([]byte(s))
	if err != nil {
		encoded = []byte(s)
	}
	copy(dst, encoded)
}
