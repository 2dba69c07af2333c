package formatter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bogem/id3v2/v2"
	"golang.org/x/exp/slices"

	"github.com/solidcopy/mptag/internal/id3v1"
	"github.com/solidcopy/mptag/internal/model"
	"github.com/solidcopy/mptag/internal/tagfile"
)

// Options は保存の直前にmp3のタグを整える設定。
type Options struct {
	// 3か4に揃える。0なら変更しない
	ID3Version int
	// true ならID3v2の内容でID3v1を書き、false ならID3v1を削除する。nil なら何もしない
	ID3v1 *bool
	// APEタグを削除する
	StripAPE bool
	// 削除するフレームID
	StripFrames []string
}

var multiValueFrames = []string{"TPE1", "TPE2", "TCOM", "TCON"}

// Format はmp3のタグを設定に合わせて整える。mp3以外では何もしない。
func Format(file *tagfile.File, opts Options) error {
	if file.MimeSubtype() != "mp3" {
		return nil
	}

	switch opts.ID3Version {
	case 0, 3, 4:
	default:
		return fmt.Errorf("unsupported ID3v2 version %d", opts.ID3Version)
	}

	if tag := file.ID3v2(false); tag != nil {
		for _, id := range opts.StripFrames {
			tag.DeleteFrames(strings.ToUpper(strings.TrimSpace(id)))
		}
		if opts.ID3Version != 0 {
			convertVersion(tag, byte(opts.ID3Version))
		}
	}

	if opts.ID3v1 != nil {
		if *opts.ID3v1 {
			if tag := file.ID3v2(false); tag != nil {
				if v1 := file.ID3v1(true); v1 != nil {
					mirrorID3v1(tag, v1)
				}
			}
		} else {
			file.RemoveTags(model.TagID3v1)
		}
	}

	if opts.StripAPE {
		file.RemoveTags(model.TagAPE)
	}

	return nil
}

func encoding(version byte) id3v2.Encoding {
	if version == 3 {
		return id3v2.EncodingUTF16
	}
	return id3v2.EncodingUTF8
}

// convertVersion はバージョンを変え、全てのフレームをそのバージョンで使える文字コードで書き直す。
func convertVersion(tag *id3v2.Tag, version byte) {
	from := tag.Version()
	enc := encoding(version)

	// 年のフレームはv2.3がTYER、v2.4がTDRC
	if version == 3 {
		if year := text(tag, "TDRC"); year != "" {
			if len(year) > 4 {
				year = year[:4]
			}
			tag.DeleteFrames("TDRC")
			tag.AddTextFrame("TYER", enc, year)
		}
	} else if year := text(tag, "TYER"); year != "" {
		tag.DeleteFrames("TYER")
		tag.AddTextFrame("TDRC", enc, year)
	}

	for id, frames := range tag.AllFrames() {
		switch id {
		case "COMM":
			var comments []id3v2.CommentFrame
			for _, f := range frames {
				if c, ok := f.(id3v2.CommentFrame); ok {
					c.Encoding = enc
					comments = append(comments, c)
				}
			}
			tag.DeleteFrames(id)
			for _, c := range comments {
				tag.AddCommentFrame(c)
			}
		case "USLT":
			var lyrics []id3v2.UnsynchronisedLyricsFrame
			for _, f := range frames {
				if l, ok := f.(id3v2.UnsynchronisedLyricsFrame); ok {
					l.Encoding = enc
					lyrics = append(lyrics, l)
				}
			}
			tag.DeleteFrames(id)
			for _, l := range lyrics {
				tag.AddUnsynchronisedLyricsFrame(l)
			}
		case "APIC":
			var pictures []id3v2.PictureFrame
			for _, f := range frames {
				if p, ok := f.(id3v2.PictureFrame); ok {
					p.Encoding = enc
					pictures = append(pictures, p)
				}
			}
			tag.DeleteFrames(id)
			for _, p := range pictures {
				tag.AddAttachedPicture(p)
			}
		default:
			if len(frames) != 1 {
				continue
			}
			tf, ok := frames[0].(id3v2.TextFrame)
			if !ok {
				continue
			}
			value := strings.TrimRight(tf.Text, "\x00")
			if slices.Contains(multiValueFrames, id) && from != version {
				value = convertSeparator(value, from, version)
			}
			tag.AddTextFrame(id, enc, value)
		}
	}

	tag.SetVersion(version)
}

func convertSeparator(value string, from, to byte) string {
	if from == 3 && to == 4 {
		return strings.ReplaceAll(value, "/", "\x00")
	}
	if from == 4 && to == 3 {
		return strings.ReplaceAll(value, "\x00", "/")
	}
	return value
}

func text(tag *id3v2.Tag, id string) string {
	return strings.TrimRight(tag.GetTextFrame(id).Text, "\x00")
}

// ID3v2の内容をID3v1に写す。ID3v1に無い項目は捨てる。
func mirrorID3v1(tag *id3v2.Tag, v1 *id3v1.Tag) {
	sep := "\x00"
	if tag.Version() == 3 {
		sep = "/"
	}

	year := text(tag, "TYER")
	if year == "" {
		year = text(tag, "TDRC")
	}
	if len(year) > 4 {
		year = year[:4]
	}

	var comment string
	for _, f := range tag.GetFrames("COMM") {
		if c, ok := f.(id3v2.CommentFrame); ok && c.Description == "" {
			comment = c.Text
			break
		}
	}

	v1.Title = text(tag, "TIT2")
	v1.Artist = firstValue(text(tag, "TPE1"), sep)
	v1.Album = text(tag, "TALB")
	v1.Year = year
	v1.Comment = comment
	v1.Track, _ = model.ParseNumberPair(text(tag, "TRCK"))
	v1.Genre = genreName(firstValue(text(tag, "TCON"), sep))
}

func firstValue(s, sep string) string {
	if i := strings.Index(s, sep); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// "(17)"、"(17)Rock"、"17" をジャンル名にする。
func genreName(s string) string {
	if strings.HasPrefix(s, "(") && !strings.HasPrefix(s, "((") {
		if end := strings.Index(s, ")"); end > 0 {
			if rest := strings.TrimSpace(s[end+1:]); rest != "" {
				return rest
			}
			s = s[1:end]
		}
	}
	if index, err := strconv.Atoi(s); err == nil {
		return id3v1.GenreName(index)
	}
	return s
}
