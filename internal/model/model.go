package model

import (
	"image"
	"time"

	"github.com/google/uuid"
)

// TagKind は1つのファイル内に共存するタグ形式を表す。
type TagKind int

const (
	TagID3v1 TagKind = iota + 1
	TagID3v2
	TagAPE
	TagGeneric
)

func (k TagKind) String() string {
	switch k {
	case TagID3v1:
		return "id3v1"
	case TagID3v2:
		return "id3v2"
	case TagAPE:
		return "ape"
	case TagGeneric:
		return "generic"
	default:
		return "unknown"
	}
}

func ParseTagKind(s string) (TagKind, bool) {
	for _, k := range []TagKind{TagID3v1, TagID3v2, TagAPE, TagGeneric} {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

type Track struct {
	// 識別情報
	ID           uuid.UUID
	FullFileName string
	FileName     string
	Readonly     bool
	TagType      string
	ID3Version   int
	// 読み込んだ時点でファイルに存在したタグ
	TagKinds []TagKind

	// 基本情報
	Artist      string
	AlbumArtist string
	Album       string
	Composer    string
	Conductor   string
	Copyright   string
	Genre       string
	Grouping    string
	Title       string
	Comment     string
	Lyrics      string
	Compilation bool

	BPM         int
	DiscNumber  int
	DiscCount   int
	TrackNumber int
	TrackCount  int
	Year        int
	Rating      int

	Pictures     []*Picture
	ID3Comments  []Comment
	LyricsFrames []Lyric
	Ratings      []PopmFrame

	// 上のフィールドに対応しないID3v2テキストフレーム
	Frames Frames

	Changed     bool
	TagsRemoved []TagKind

	Properties AudioProperties
}

type Picture struct {
	Type        byte
	MimeType    string
	Description string
	Data        image.Image
}

type Comment struct {
	Description string
	Language    string
	Text        string
}

type Lyric struct {
	Description string
	Language    string
	Text        string
}

type PopmFrame struct {
	User      string
	Rating    int
	PlayCount int
}

// 音声ストリームとファイルの情報。表示用で書き戻さない。
type AudioProperties struct {
	Duration   time.Duration
	BitRate    int
	SampleRate int
	Channels   int
	FileSize   int64
	ModTime    time.Time
}

func NewTrack() *Track {
	return &Track{
		ID:     uuid.New(),
		Frames: Frames{},
	}
}

// Clear は編集可能な全項目を NewTrack 直後の状態に戻す。
// 識別情報、Properties、Changed、TagsRemoved は変更しない。
func (t *Track) Clear() *Track {
	t.Artist = ""
	t.AlbumArtist = ""
	t.Album = ""
	t.Composer = ""
	t.Conductor = ""
	t.Copyright = ""
	t.Genre = ""
	t.Grouping = ""
	t.Title = ""
	t.Comment = ""
	t.Lyrics = ""
	t.Compilation = false

	t.BPM = 0
	t.DiscNumber = 0
	t.DiscCount = 0
	t.TrackNumber = 0
	t.TrackCount = 0
	t.Year = 0
	t.Rating = 0

	t.Pictures = nil
	t.ID3Comments = nil
	t.LyricsFrames = nil
	t.Ratings = nil
	t.Frames = Frames{}

	return t
}

func (t *Track) MarkRemoved(kind TagKind) {
	for _, k := range t.TagsRemoved {
		if k == kind {
			return
		}
	}
	t.TagsRemoved = append(t.TagsRemoved, kind)
	t.Changed = true
}

// SetRating は user のレーティング行を置き換え、無ければ追加する。
// Rating もその値にする。
func (t *Track) SetRating(user string, rating int) {
	t.Rating = rating
	t.Changed = true
	for i := range t.Ratings {
		if t.Ratings[i].User == user {
			t.Ratings[i].Rating = rating
			return
		}
	}
	t.Ratings = append(t.Ratings, PopmFrame{User: user, Rating: rating})
}
