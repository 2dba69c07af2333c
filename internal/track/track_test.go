package track

import (
	"errors"
	"image"
	"image/color"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/bogem/id3v2/v2"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solidcopy/mptag/internal/formatter"
	"github.com/solidcopy/mptag/internal/imaging"
	"github.com/solidcopy/mptag/internal/model"
	"github.com/solidcopy/mptag/internal/tagfile"
)

func mpegFrame() []byte {
	frame := make([]byte, 417)
	frame[0], frame[1], frame[2] = 0xff, 0xfb, 0x90
	return frame
}

func createMP3(t *testing.T, build func(tag *id3v2.Tag)) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.mp3")
	require.NoError(t, os.WriteFile(path, mpegFrame(), 0o600))

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	require.NoError(t, err)
	build(tag)
	require.NoError(t, tag.Save())
	require.NoError(t, tag.Close())
	return path
}

func createAPE(t *testing.T, build func(f *tagfile.File)) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.ape")
	require.NoError(t, os.WriteFile(path, append([]byte("MAC "), make([]byte, 200)...), 0o600))
	editFile(t, path, build)
	return path
}

func createFLAC(t *testing.T) string {
	t.Helper()
	data := append([]byte("fLaC"), 0x80, 0, 0, 0x22)
	data = append(data, make([]byte, 34)...)
	data = append(data, 0xff, 0xf8, 0x69, 0x08)
	data = append(data, make([]byte, 12)...)
	path := filepath.Join(t.TempDir(), "test.flac")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

// editFile はタグを直接書き換えて保存する。
func editFile(t *testing.T, path string, edit func(f *tagfile.File)) {
	t.Helper()
	f, err := tagfile.Open(path)
	require.NoError(t, err)
	edit(f)
	require.NoError(t, f.Save())
	require.NoError(t, f.Close())
}

func openID3v2(t *testing.T, path string) *id3v2.Tag {
	t.Helper()
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	require.NoError(t, err)
	t.Cleanup(func() { tag.Close() })
	return tag
}

func newReconciler(opts Options) (*Reconciler, *test.Hook) {
	logger, hook := test.NewNullLogger()
	return New(logger, opts), hook
}

func entries(hook *test.Hook, level logrus.Level) []*logrus.Entry {
	var found []*logrus.Entry
	for _, e := range hook.AllEntries() {
		if e.Level == level {
			found = append(found, e)
		}
	}
	return found
}

func solidImage(c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestCreateIdentity(t *testing.T) {
	path := createMP3(t, func(tag *id3v2.Tag) {
		tag.SetVersion(3)
		tag.AddTextFrame("TIT2", id3v2.EncodingUTF16, "Song")
	})

	r, _ := newReconciler(Options{})
	track := r.Create(path)
	require.NotNil(t, track)

	assert.Equal(t, path, track.FullFileName)
	assert.Equal(t, "test.mp3", track.FileName)
	assert.Equal(t, "mp3", track.TagType)
	assert.Equal(t, 3, track.ID3Version)
	assert.Equal(t, []model.TagKind{model.TagID3v2}, track.TagKinds)
	assert.False(t, track.Readonly)
	assert.Equal(t, "Song", track.Title)
	assert.False(t, track.Changed)
}

func TestCreateReadonly(t *testing.T) {
	path := createMP3(t, func(tag *id3v2.Tag) { tag.SetTitle("Song") })
	require.NoError(t, os.Chmod(path, 0o444))

	r, _ := newReconciler(Options{})
	track := r.Create(path)
	require.NotNil(t, track)
	assert.True(t, track.Readonly)
}

func TestCreateSkipsUnreadableFiles(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.mp3")
	require.NoError(t, os.WriteFile(garbage, []byte("this is not an mp3 file at all"), 0o600))
	unknown := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(unknown, []byte("text"), 0o600))
	// メタデータだけで音声フレームが無い
	truncated := filepath.Join(dir, "truncated.flac")
	require.NoError(t, os.WriteFile(truncated, append([]byte("fLaC\x80\x00\x00\x22"), make([]byte, 34)...), 0o600))

	tests := []struct {
		name string
		path string
	}{
		{name: "missing", path: filepath.Join(dir, "missing.mp3")},
		{name: "corrupt", path: garbage},
		{name: "unsupported", path: unknown},
		{name: "truncated flac", path: truncated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, hook := newReconciler(Options{})
			assert.NotPanics(t, func() { assert.Nil(t, r.Create(tt.path)) })
			assert.Len(t, entries(hook, logrus.WarnLevel), 1)
			assert.Empty(t, entries(hook, logrus.ErrorLevel))
		})
	}
}

func TestLogOpenError(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		level logrus.Level
	}{
		{name: "corrupt", err: &tagfile.OpenError{Path: "a.mp3", Kind: tagfile.ErrCorruptContainer}, level: logrus.WarnLevel},
		{name: "unsupported", err: &tagfile.OpenError{Path: "a.txt", Kind: tagfile.ErrUnsupportedFormat}, level: logrus.WarnLevel},
		{name: "not found", err: &tagfile.OpenError{Path: "a.mp3", Kind: tagfile.ErrFileNotFound}, level: logrus.WarnLevel},
		{name: "io", err: &tagfile.OpenError{Path: "a.mp3", Kind: tagfile.ErrIO}, level: logrus.ErrorLevel},
		{name: "other", err: errors.New("boom"), level: logrus.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, hook := newReconciler(Options{})
			r.logOpenError("a.mp3", tt.err)
			require.Len(t, hook.AllEntries(), 1)
			assert.Equal(t, tt.level, hook.LastEntry().Level)
		})
	}
}

func TestDefaultRatingUserReadsExistingRatings(t *testing.T) {
	path := createMP3(t, func(tag *id3v2.Tag) {
		tag.AddFrame("POPM", id3v2.PopularimeterFrame{Email: "MPTagThat", Rating: 128, Counter: big.NewInt(0)})
	})

	r, _ := newReconciler(Options{})
	track := r.Create(path)
	require.NotNil(t, track)
	assert.Equal(t, 128, track.Rating)
}

func TestSaveUnchangedKeepsFile(t *testing.T) {
	path := createMP3(t, func(tag *id3v2.Tag) {
		tag.SetTitle("Song")
		tag.SetArtist("Artist")
	})
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	r, _ := newReconciler(Options{})
	track := r.Create(path)
	require.NotNil(t, track)
	assert.True(t, r.SaveFile(track))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSaveFailsWhenFileIsGone(t *testing.T) {
	path := createMP3(t, func(tag *id3v2.Tag) { tag.SetTitle("Song") })

	r, hook := newReconciler(Options{})
	track := r.Create(path)
	require.NotNil(t, track)
	require.NoError(t, os.Remove(path))

	track.Title = "Other"
	track.Changed = true
	assert.False(t, r.SaveFile(track))
	assert.True(t, track.Changed)
	assert.Len(t, entries(hook, logrus.ErrorLevel), 1)
}

func TestMultiValueRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		path    func(t *testing.T) string
		version int
	}{
		{name: "id3v2.3", path: func(t *testing.T) string {
			return createMP3(t, func(tag *id3v2.Tag) { tag.SetVersion(3) })
		}, version: 3},
		{name: "id3v2.4", path: func(t *testing.T) string {
			return createMP3(t, func(tag *id3v2.Tag) { tag.SetVersion(4) })
		}, version: 4},
		{name: "ape", path: func(t *testing.T) string {
			return createAPE(t, func(*tagfile.File) {})
		}},
		{name: "flac", path: createFLAC},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.path(t)
			r, _ := newReconciler(Options{Format: formatter.Options{ID3Version: tt.version}})

			track := r.Create(path)
			require.NotNil(t, track)
			track.Artist = "One;Two|Three"
			track.Composer = "Bach|Handel"
			track.Genre = "Rock;Pop"
			track.Title = "Song"
			track.TrackNumber, track.TrackCount = 3, 12
			track.DiscNumber, track.DiscCount = 1, 2
			track.Year = 1999
			track.Changed = true
			require.True(t, r.SaveFile(track))
			assert.False(t, track.Changed)

			reread := r.Create(path)
			require.NotNil(t, reread)
			assert.Equal(t, "One;Two;Three", reread.Artist)
			assert.Equal(t, "Bach;Handel", reread.Composer)
			assert.Equal(t, "Rock;Pop", reread.Genre)
			assert.Equal(t, "Song", reread.Title)
			assert.Equal(t, 3, reread.TrackNumber)
			assert.Equal(t, 12, reread.TrackCount)
			assert.Equal(t, 1, reread.DiscNumber)
			assert.Equal(t, 2, reread.DiscCount)
			assert.Equal(t, 1999, reread.Year)
		})
	}
}

func TestSeparatorsOnDisk(t *testing.T) {
	path := createMP3(t, func(tag *id3v2.Tag) {
		tag.SetVersion(3)
		tag.AddTextFrame("TIT2", id3v2.EncodingUTF16, "Song")
	})
	r, _ := newReconciler(Options{})

	track := r.Create(path)
	require.NotNil(t, track)
	track.Artist = "One;Two"
	track.Changed = true
	require.True(t, r.SaveFile(track))

	assert.Equal(t, "One/Two", openID3v2(t, path).GetTextFrame("TPE1").Text)
}

func TestACDCSpecialCase(t *testing.T) {
	path := createMP3(t, func(tag *id3v2.Tag) {
		tag.SetVersion(3)
		tag.AddTextFrame("TIT2", id3v2.EncodingUTF16, "Song")
	})
	r, _ := newReconciler(Options{})

	track := r.Create(path)
	require.NotNil(t, track)
	track.Artist = "AC;DC"
	track.AlbumArtist = "AC;DC"
	track.Changed = true
	require.True(t, r.SaveFile(track))

	reread := r.Create(path)
	require.NotNil(t, reread)
	assert.Equal(t, "AC/DC", reread.Artist)
	assert.Equal(t, "AC/DC", reread.AlbumArtist)
}

func TestVersionUpgradeKeepsSlashInValue(t *testing.T) {
	path := createMP3(t, func(tag *id3v2.Tag) {
		tag.SetVersion(3)
		tag.AddTextFrame("TIT2", id3v2.EncodingUTF16, "Song")
	})
	r, _ := newReconciler(Options{Format: formatter.Options{ID3Version: 4}})

	track := r.Create(path)
	require.NotNil(t, track)
	track.Artist = "N/A"
	track.Genre = "Rock/Pop"
	track.Changed = true
	require.True(t, r.SaveFile(track))

	tag := openID3v2(t, path)
	assert.Equal(t, byte(4), tag.Version())
	assert.Equal(t, "N/A", tag.GetTextFrame("TPE1").Text)

	reread := r.Create(path)
	require.NotNil(t, reread)
	assert.Equal(t, 4, reread.ID3Version)
	assert.Equal(t, "N/A", reread.Artist)
	assert.Equal(t, "Rock/Pop", reread.Genre)
}

func TestRatingResolution(t *testing.T) {
	tests := []struct {
		name     string
		path     func(t *testing.T) string
		want     int
		warnings int
	}{
		{
			name: "app user popm wins",
			path: func(t *testing.T) string {
				path := createMP3(t, func(tag *id3v2.Tag) {
					tag.AddFrame("POPM", id3v2.PopularimeterFrame{Email: "other", Rating: 10, Counter: big.NewInt(0)})
					tag.AddFrame("POPM", id3v2.PopularimeterFrame{Email: DefaultRatingUser, Rating: 196, Counter: big.NewInt(0)})
				})
				editFile(t, path, func(f *tagfile.File) { f.APE(true).SetText("RATING", "80") })
				return path
			},
			want: 196,
		},
		{
			name: "ape fallback",
			path: func(t *testing.T) string {
				path := createMP3(t, func(tag *id3v2.Tag) { tag.SetTitle("Song") })
				editFile(t, path, func(f *tagfile.File) { f.APE(true).SetText("RATING", "80") })
				return path
			},
			want: 80,
		},
		{
			name: "none",
			path: func(t *testing.T) string {
				return createMP3(t, func(tag *id3v2.Tag) { tag.SetTitle("Song") })
			},
			want: 0,
		},
		{
			name: "not a number",
			path: func(t *testing.T) string {
				path := createMP3(t, func(tag *id3v2.Tag) { tag.SetTitle("Song") })
				editFile(t, path, func(f *tagfile.File) { f.APE(true).SetText("RATING", "abc") })
				return path
			},
			want:     0,
			warnings: 1,
		},
		{
			name: "monkey's audio",
			path: func(t *testing.T) string {
				return createAPE(t, func(f *tagfile.File) { f.APE(true).SetText("RATING", "60") })
			},
			want: 60,
		},
		{
			name: "generic",
			path: createFLAC,
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, hook := newReconciler(Options{})
			track := r.Create(tt.path(t))
			require.NotNil(t, track)
			assert.Equal(t, tt.want, track.Rating)
			assert.Len(t, entries(hook, logrus.WarnLevel), tt.warnings)
		})
	}
}

func TestRatingFramesRoundTrip(t *testing.T) {
	path := createMP3(t, func(tag *id3v2.Tag) {
		tag.AddFrame("POPM", id3v2.PopularimeterFrame{Email: "a@example.com", Rating: 64, Counter: big.NewInt(5)})
		tag.AddFrame("POPM", id3v2.PopularimeterFrame{Email: "b@example.com", Rating: 255, Counter: big.NewInt(0)})
	})
	r, _ := newReconciler(Options{})

	track := r.Create(path)
	require.NotNil(t, track)
	assert.ElementsMatch(t, []model.PopmFrame{
		{User: "a@example.com", Rating: 64, PlayCount: 5},
		{User: "b@example.com", Rating: 255},
	}, track.Ratings)

	track.SetRating(DefaultRatingUser, 300)
	require.True(t, r.SaveFile(track))

	reread := r.Create(path)
	require.NotNil(t, reread)
	assert.Len(t, reread.Ratings, 3)
	assert.Equal(t, 255, reread.Rating)

	reread.Ratings = nil
	reread.Changed = true
	require.True(t, r.SaveFile(reread))
	assert.Empty(t, openID3v2(t, path).GetFrames("POPM"))
}

func TestApeRatingWrite(t *testing.T) {
	path := createAPE(t, func(*tagfile.File) {})
	r, _ := newReconciler(Options{})

	track := r.Create(path)
	require.NotNil(t, track)
	track.Title = "Song"
	track.Rating = 40
	track.Changed = true
	require.True(t, r.SaveFile(track))
	assert.Equal(t, 40, r.Create(path).Rating)

	track.Rating = 0
	track.Changed = true
	require.True(t, r.SaveFile(track))

	f, err := tagfile.Open(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Nil(t, f.APE(false).Item("RATING"))
}

func TestClearTag(t *testing.T) {
	path := createMP3(t, func(tag *id3v2.Tag) {
		tag.SetTitle("Song")
		tag.SetArtist("Artist")
		tag.AddTextFrame("TKEY", id3v2.EncodingUTF8, "Am")
		tag.AddCommentFrame(id3v2.CommentFrame{Encoding: id3v2.EncodingUTF8, Language: "eng", Text: "note"})
		tag.AddFrame("POPM", id3v2.PopularimeterFrame{Email: "a", Rating: 1, Counter: big.NewInt(0)})
	})
	r, _ := newReconciler(Options{})

	track := r.Create(path)
	require.NotNil(t, track)
	id, name := track.ID, track.FullFileName

	once := *r.ClearTag(track)
	twice := *r.ClearTag(track)
	assert.Equal(t, once, twice)

	fresh := model.NewTrack()
	fresh.ID, fresh.FullFileName, fresh.FileName = id, name, track.FileName
	fresh.TagType, fresh.ID3Version = track.TagType, track.ID3Version
	assert.Equal(t, *fresh, twice)

	track.Changed = true
	require.True(t, r.SaveFile(track))
	tag := openID3v2(t, path)
	assert.Empty(t, tag.GetFrames("TIT2"))
	assert.Empty(t, tag.GetFrames("COMM"))
	assert.Empty(t, tag.GetFrames("POPM"))
}

func TestEscapeHatchRoundTrip(t *testing.T) {
	path := createMP3(t, func(tag *id3v2.Tag) {
		tag.SetTitle("Song")
		tag.AddTextFrame("TKEY", id3v2.EncodingUTF8, "Am")
		tag.AddTextFrame("TPUB", id3v2.EncodingUTF8, "Label")
		tag.AddUserDefinedTextFrame(id3v2.UserDefinedTextFrame{Encoding: id3v2.EncodingUTF8, Description: "MOOD", Value: "calm"})
	})
	r, _ := newReconciler(Options{})

	track := r.Create(path)
	require.NotNil(t, track)
	assert.Equal(t, model.Frames{"TKEY": "Am", "TPUB": "Label"}, track.Frames)
	for id := range track.Frames {
		assert.False(t, model.IsReservedFrame(id))
	}

	require.NoError(t, track.Frames.Set("TKEY", "Bm"))
	require.NoError(t, track.Frames.Set("TSSE", "encoder"))
	track.Changed = true
	require.True(t, r.SaveFile(track))

	tag := openID3v2(t, path)
	assert.Equal(t, "Bm", tag.GetTextFrame("TKEY").Text)
	assert.Equal(t, "Label", tag.GetTextFrame("TPUB").Text)
	assert.Equal(t, "encoder", tag.GetTextFrame("TSSE").Text)
	assert.Len(t, tag.GetFrames("TXXX"), 1)
}

func TestInvalidEscapeHatchFrameFailsSave(t *testing.T) {
	path := createMP3(t, func(tag *id3v2.Tag) { tag.SetTitle("Song") })
	r, hook := newReconciler(Options{})

	track := r.Create(path)
	require.NotNil(t, track)
	track.Frames["bad!"] = "x"
	track.Changed = true

	assert.False(t, r.SaveFile(track))
	assert.True(t, track.Changed)
	assert.Len(t, entries(hook, logrus.ErrorLevel), 1)
}

func TestCommentFrames(t *testing.T) {
	path := createMP3(t, func(tag *id3v2.Tag) {
		tag.AddCommentFrame(id3v2.CommentFrame{Encoding: id3v2.EncodingUTF8, Language: "eng", Text: "generic"})
		tag.AddCommentFrame(id3v2.CommentFrame{Encoding: id3v2.EncodingUTF8, Language: "deu", Description: "notiz", Text: "hallo"})
	})
	r, _ := newReconciler(Options{})

	track := r.Create(path)
	require.NotNil(t, track)
	assert.Equal(t, "generic", track.Comment)
	assert.Len(t, track.ID3Comments, 2)

	track.Comment = "changed"
	for i := range track.ID3Comments {
		if track.ID3Comments[i].Description == "notiz" {
			track.ID3Comments[i].Text = "tschüss"
		}
	}
	track.ID3Comments = append(track.ID3Comments, model.Comment{Description: "extra", Language: "xx", Text: "new"})
	track.Changed = true
	require.True(t, r.SaveFile(track))

	reread := r.Create(path)
	require.NotNil(t, reread)
	assert.Equal(t, "changed", reread.Comment)
	assert.ElementsMatch(t, []model.Comment{
		{Language: "eng", Text: "changed"},
		{Description: "notiz", Language: "deu", Text: "tschüss"},
		{Description: "extra", Language: "eng", Text: "new"},
	}, reread.ID3Comments)

	reread.Comment = ""
	reread.ID3Comments = nil
	reread.Changed = true
	require.True(t, r.SaveFile(reread))
	assert.Empty(t, openID3v2(t, path).GetFrames("COMM"))
}

func TestLyricsOnlyEnumeratedForID3v2(t *testing.T) {
	path := createAPE(t, func(f *tagfile.File) {
		f.APE(true).SetText("Lyrics", "la la la")
	})
	r, _ := newReconciler(Options{})

	track := r.Create(path)
	require.NotNil(t, track)
	assert.Equal(t, "la la la", track.Lyrics)
	assert.Empty(t, track.LyricsFrames)
	assert.Empty(t, track.ID3Comments)
	assert.Empty(t, track.Frames)
}

func TestLyricsFrames(t *testing.T) {
	path := createMP3(t, func(tag *id3v2.Tag) {
		tag.AddUnsynchronisedLyricsFrame(id3v2.UnsynchronisedLyricsFrame{Encoding: id3v2.EncodingUTF8, Language: "eng", Lyrics: "verse"})
		tag.AddUnsynchronisedLyricsFrame(id3v2.UnsynchronisedLyricsFrame{Encoding: id3v2.EncodingUTF8, Language: "jpn", ContentDescriptor: "kana", Lyrics: "うた"})
	})
	r, _ := newReconciler(Options{})

	track := r.Create(path)
	require.NotNil(t, track)
	assert.Equal(t, "verse", track.Lyrics)
	assert.Len(t, track.LyricsFrames, 2)

	track.Lyrics = ""
	track.Changed = true
	require.True(t, r.SaveFile(track))

	reread := r.Create(path)
	require.NotNil(t, reread)
	assert.Empty(t, reread.Lyrics)
	assert.Equal(t, []model.Lyric{{Description: "kana", Language: "jpn", Text: "うた"}}, reread.LyricsFrames)
}

// failingCodec は指定した画像だけエンコードに失敗する。
type failingCodec struct {
	imaging.StdCodec
	fail image.Image
}

func (c failingCodec) Encode(img image.Image, mimeType string) ([]byte, error) {
	if img == c.fail {
		return nil, errors.New("encode failed")
	}
	return c.StdCodec.Encode(img, mimeType)
}

func TestPictureEncodeFailureDropsOnlyThatPicture(t *testing.T) {
	path := createMP3(t, func(tag *id3v2.Tag) { tag.SetTitle("Song") })

	bad := solidImage(color.RGBA{G: 255, A: 255})
	r, hook := newReconciler(Options{Codec: failingCodec{fail: bad}})

	track := r.Create(path)
	require.NotNil(t, track)
	track.Pictures = []*model.Picture{
		{Type: 3, MimeType: "image/png", Data: solidImage(color.RGBA{R: 255, A: 255})},
		{Type: 4, MimeType: "image/png", Data: bad},
		{Type: 5, MimeType: "image/png", Data: solidImage(color.RGBA{B: 255, A: 255})},
	}
	track.Changed = true
	require.True(t, r.SaveFile(track))
	assert.Len(t, entries(hook, logrus.ErrorLevel), 1)

	frames := openID3v2(t, path).GetFrames("APIC")
	require.Len(t, frames, 2)
	var types []byte
	for _, f := range frames {
		types = append(types, f.(id3v2.PictureFrame).PictureType)
	}
	assert.ElementsMatch(t, []byte{3, 5}, types)

	reread := r.Create(path)
	require.NotNil(t, reread)
	require.Len(t, reread.Pictures, 2)
	assert.Equal(t, "image/png", reread.Pictures[0].MimeType)
}

func TestPictureDecodeFailureIsSkipped(t *testing.T) {
	path := createMP3(t, func(tag *id3v2.Tag) {
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding: id3v2.EncodingUTF8, MimeType: "image/png", PictureType: 3, Picture: []byte("not an image"),
		})
	})
	r, hook := newReconciler(Options{})

	track := r.Create(path)
	require.NotNil(t, track)
	assert.Empty(t, track.Pictures)
	assert.Len(t, entries(hook, logrus.WarnLevel), 1)
}

func TestPictureIsShrunk(t *testing.T) {
	path := createFLAC(t)
	r, _ := newReconciler(Options{MaxPictureSize: 8})

	track := r.Create(path)
	require.NotNil(t, track)
	track.Pictures = []*model.Picture{{
		Type:     3,
		MimeType: "image/webp",
		Data:     image.NewRGBA(image.Rect(0, 0, 64, 32)),
	}}
	track.Changed = true
	require.True(t, r.SaveFile(track))

	reread := r.Create(path)
	require.NotNil(t, reread)
	require.Len(t, reread.Pictures, 1)
	assert.Equal(t, "image/jpeg", reread.Pictures[0].MimeType)
	assert.Equal(t, 8, reread.Pictures[0].Data.Bounds().Dx())
}

func TestRemoveTags(t *testing.T) {
	path := createMP3(t, func(tag *id3v2.Tag) { tag.SetTitle("Song") })
	editFile(t, path, func(f *tagfile.File) { f.APE(true).SetText("Title", "Song") })
	r, _ := newReconciler(Options{})

	track := r.Create(path)
	require.NotNil(t, track)
	track.MarkRemoved(model.TagAPE)
	require.True(t, r.SaveFile(track))
	assert.Empty(t, track.TagsRemoved)

	f, err := tagfile.Open(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Nil(t, f.APE(false))
	assert.Equal(t, "Song", f.ID3v2(false).Title())
}

func TestCompilationAndFormatting(t *testing.T) {
	path := createMP3(t, func(tag *id3v2.Tag) {
		tag.SetVersion(4)
		tag.AddTextFrame("TSSE", id3v2.EncodingUTF8, "encoder")
	})
	on := true
	r, _ := newReconciler(Options{Format: formatter.Options{ID3Version: 3, ID3v1: &on, StripFrames: []string{"TSSE"}}})

	track := r.Create(path)
	require.NotNil(t, track)
	track.Title = "Song"
	track.Year = 2001
	track.Compilation = true
	track.Changed = true
	require.True(t, r.SaveFile(track))

	reread := r.Create(path)
	require.NotNil(t, reread)
	assert.Equal(t, 3, reread.ID3Version)
	assert.True(t, reread.Compilation)
	assert.Equal(t, 2001, reread.Year)
	assert.NotContains(t, reread.Frames, "TSSE")

	f, err := tagfile.Open(path)
	require.NoError(t, err)
	defer f.Close()
	require.NotNil(t, f.ID3v1(false))
	assert.Equal(t, "Song", f.ID3v1(false).Title)
}
