package handler

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/bogem/id3v2/v2"
	"golang.org/x/exp/slices"

	"github.com/solidcopy/mptag/internal/id3v1"
	"github.com/solidcopy/mptag/internal/model"
	"github.com/solidcopy/mptag/internal/tagfile"
)

const defaultLanguage = "eng"

var id3v2TextFrames = map[field]string{
	fieldArtist:      "TPE1",
	fieldAlbumArtist: "TPE2",
	fieldAlbum:       "TALB",
	fieldBPM:         "TBPM",
	fieldComposer:    "TCOM",
	fieldConductor:   "TPE3",
	fieldCopyright:   "TCOP",
	fieldDisc:        "TPOS",
	fieldGenre:       "TCON",
	fieldGrouping:    "TIT1",
	fieldTitle:       "TIT2",
	fieldTrack:       "TRCK",
}

// 複数の値を持てるフレーム。v2.4はNUL区切り、v2.3は "/" 区切り。
var multiValueFrames = []string{"TPE1", "TPE2", "TCOM", "TCON"}

type id3v2Source struct {
	tag *id3v2.Tag
	// 読むときはタグのバージョン、書くときは保存するバージョン
	version byte
}

func textEncoding(version byte) id3v2.Encoding {
	if version == 3 {
		return id3v2.EncodingUTF16
	}
	return id3v2.EncodingUTF8
}

func (s id3v2Source) separator() string {
	if s.version == 3 {
		return "/"
	}
	return "\x00"
}

func (s id3v2Source) get(f field) []string {
	switch f {
	case fieldYear:
		for _, id := range []string{"TDRC", "TYER"} {
			if text := frameText(s.tag, id); text != "" {
				return []string{text}
			}
		}
		return nil
	case fieldComment:
		for _, c := range commentFrames(s.tag) {
			if c.Description == "" {
				return single(c.Text)
			}
		}
		return nil
	case fieldLyrics:
		for _, l := range lyricsFrames(s.tag) {
			if l.ContentDescriptor == "" {
				return single(l.Lyrics)
			}
		}
		return nil
	}

	id, ok := id3v2TextFrames[f]
	if !ok {
		return nil
	}
	text := frameText(s.tag, id)
	if text == "" {
		return nil
	}
	if !slices.Contains(multiValueFrames, id) {
		return []string{text}
	}

	values := splitNonEmpty(text, s.separator())
	if id == "TCON" {
		var genres []string
		for _, v := range values {
			genres = append(genres, expandGenre(v)...)
		}
		return genres
	}
	return values
}

func (s id3v2Source) set(f field, values []string) {
	enc := textEncoding(s.version)

	switch f {
	case fieldYear:
		s.tag.DeleteFrames("TYER")
		s.tag.DeleteFrames("TDRC")
		if len(values) > 0 {
			id := "TDRC"
			if s.version == 3 {
				id = "TYER"
			}
			s.tag.AddTextFrame(id, enc, values[0])
		}
		return
	case fieldComment:
		s.setGenericComment(first(values))
		return
	case fieldLyrics:
		s.setGenericLyrics(first(values))
		return
	}

	id, ok := id3v2TextFrames[f]
	if !ok {
		return
	}
	if len(values) == 0 {
		s.tag.DeleteFrames(id)
		return
	}
	text := values[0]
	if slices.Contains(multiValueFrames, id) {
		text = strings.Join(values, s.separator())
	}
	s.tag.AddTextFrame(id, enc, text)
}

// 説明が空のCOMMフレームを汎用のコメント欄として扱う。
func (s id3v2Source) setGenericComment(text string) {
	language := defaultLanguage
	var kept []id3v2.CommentFrame
	for _, c := range commentFrames(s.tag) {
		if c.Description == "" {
			language = validLanguage(c.Language)
			continue
		}
		kept = append(kept, c)
	}
	if text != "" {
		kept = append([]id3v2.CommentFrame{{
			Encoding: textEncoding(s.version),
			Language: language,
			Text:     text,
		}}, kept...)
	}
	replaceCommentFrames(s.tag, kept)
}

func (s id3v2Source) setGenericLyrics(text string) {
	language := defaultLanguage
	var kept []id3v2.UnsynchronisedLyricsFrame
	for _, l := range lyricsFrames(s.tag) {
		if l.ContentDescriptor == "" {
			language = validLanguage(l.Language)
			continue
		}
		kept = append(kept, l)
	}
	if text != "" {
		kept = append([]id3v2.UnsynchronisedLyricsFrame{{
			Encoding: textEncoding(s.version),
			Language: language,
			Lyrics:   text,
		}}, kept...)
	}
	replaceLyricsFrames(s.tag, kept)
}

func (s id3v2Source) pictures() []tagfile.Picture {
	var pictures []tagfile.Picture
	for _, frame := range s.tag.GetFrames("APIC") {
		p, ok := frame.(id3v2.PictureFrame)
		if !ok {
			continue
		}
		pictures = append(pictures, tagfile.NewPicture(p.PictureType, p.MimeType, p.Description, p.Picture))
	}
	return pictures
}

func (s id3v2Source) setPictures(pictures []tagfile.Picture) {
	s.tag.DeleteFrames("APIC")
	for _, p := range pictures {
		s.tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    textEncoding(s.version),
			MimeType:    p.MimeType,
			PictureType: p.Type,
			Description: p.Description,
			Picture:     p.Data,
		})
	}
}

func frameText(tag *id3v2.Tag, id string) string {
	return strings.TrimRight(tag.GetTextFrame(id).Text, "\x00")
}

func splitNonEmpty(s, sep string) []string {
	var values []string
	for _, v := range strings.Split(s, sep) {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}

// expandGenre は "(17)"、"(17)Rock"、"17" のような番号による指定をジャンル名にする。
func expandGenre(s string) []string {
	var genres []string
	for strings.HasPrefix(s, "(") {
		if strings.HasPrefix(s, "((") {
			// "((" で始まるのは括弧で始まるジャンル名
			s = s[1:]
			break
		}
		end := strings.Index(s, ")")
		if end < 0 {
			break
		}
		switch ref := s[1:end]; ref {
		case "RX":
			genres = append(genres, "Remix")
		case "CR":
			genres = append(genres, "Cover")
		default:
			if index, err := strconv.Atoi(ref); err == nil && id3v1.GenreName(index) != "" {
				genres = append(genres, id3v1.GenreName(index))
			}
		}
		s = s[end+1:]
	}

	if s == "" {
		return genres
	}
	if index, err := strconv.Atoi(s); err == nil && id3v1.GenreName(index) != "" {
		s = id3v1.GenreName(index)
	}
	if len(genres) > 0 && genres[len(genres)-1] == s {
		return genres
	}
	return append(genres, s)
}

// validLanguage は英字3文字でない言語コードを既定値に置き換える。
func validLanguage(language string) string {
	if len(language) != 3 {
		return defaultLanguage
	}
	for _, c := range language {
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			return defaultLanguage
		}
	}
	return language
}

func commentFrames(tag *id3v2.Tag) []id3v2.CommentFrame {
	var comments []id3v2.CommentFrame
	for _, frame := range tag.GetFrames("COMM") {
		if c, ok := frame.(id3v2.CommentFrame); ok {
			comments = append(comments, c)
		}
	}
	return comments
}

func replaceCommentFrames(tag *id3v2.Tag, comments []id3v2.CommentFrame) {
	tag.DeleteFrames("COMM")
	for _, c := range comments {
		tag.AddCommentFrame(c)
	}
}

func lyricsFrames(tag *id3v2.Tag) []id3v2.UnsynchronisedLyricsFrame {
	var lyrics []id3v2.UnsynchronisedLyricsFrame
	for _, frame := range tag.GetFrames("USLT") {
		if l, ok := frame.(id3v2.UnsynchronisedLyricsFrame); ok {
			lyrics = append(lyrics, l)
		}
	}
	return lyrics
}

func replaceLyricsFrames(tag *id3v2.Tag, lyrics []id3v2.UnsynchronisedLyricsFrame) {
	tag.DeleteFrames("USLT")
	for _, l := range lyrics {
		tag.AddUnsynchronisedLyricsFrame(l)
	}
}

func popularimeterFrames(tag *id3v2.Tag) []id3v2.PopularimeterFrame {
	var ratings []id3v2.PopularimeterFrame
	for _, frame := range tag.GetFrames("POPM") {
		if p, ok := frame.(id3v2.PopularimeterFrame); ok {
			ratings = append(ratings, p)
		}
	}
	return ratings
}

// ID3v2Track はmp3。ID3v2を主に、APEとID3v1を補助に使う。
type ID3v2Track struct {
	file *tagfile.File
	env  Env
}

func (h *ID3v2Track) targetVersion(tag *id3v2.Tag) byte {
	switch h.env.ID3Version {
	case 3, 4:
		return byte(h.env.ID3Version)
	default:
		if tag.Version() == 3 {
			return 3
		}
		return 4
	}
}

func (h *ID3v2Track) sources(write bool) combined {
	var src combined
	if tag := h.file.ID3v2(write); tag != nil {
		version := tag.Version()
		if write {
			version = h.targetVersion(tag)
		}
		src = append(src, id3v2Source{tag: tag, version: version})
	}
	if tag := h.file.APE(false); tag != nil {
		src = append(src, apeSource{tag: tag})
	}
	if tag := h.file.ID3v1(false); tag != nil {
		src = append(src, id3v1Source{tag: tag})
	}
	return src
}

func (h *ID3v2Track) ReadFields(track *model.Track) {
	readCommon(h.sources(false), track, h.env)

	tag := h.file.ID3v2(false)
	if tag == nil {
		return
	}
	track.ID3Version = int(tag.Version())

	for _, c := range commentFrames(tag) {
		track.ID3Comments = append(track.ID3Comments, model.Comment{
			Description: c.Description,
			Language:    c.Language,
			Text:        c.Text,
		})
	}

	for _, l := range lyricsFrames(tag) {
		track.LyricsFrames = append(track.LyricsFrames, model.Lyric{
			Description: l.ContentDescriptor,
			Language:    l.Language,
			Text:        l.Lyrics,
		})
	}

	for _, p := range popularimeterFrames(tag) {
		playCount := 0
		if p.Counter != nil {
			playCount = int(p.Counter.Int64())
		}
		track.Ratings = append(track.Ratings, model.PopmFrame{
			User:      p.Email,
			Rating:    int(p.Rating),
			PlayCount: playCount,
		})
	}

	track.Compilation = frameText(tag, "TCMP") == "1"

	if track.Frames == nil {
		track.Frames = model.Frames{}
	}
	all := tag.AllFrames()
	ids := make([]string, 0, len(all))
	for id := range all {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if !isPlainTextFrame(id) {
			continue
		}
		for _, frame := range all[id] {
			if tf, ok := frame.(id3v2.TextFrame); ok {
				track.Frames.Add(id, strings.TrimRight(tf.Text, "\x00"))
			}
		}
	}
}

// TXXX以外のテキストフレーム。TXXXや画像などはタグを書き換えるときにそのまま残る。
func isPlainTextFrame(id string) bool {
	if len(id) != 4 || id[0] != 'T' || id == "TXXX" {
		return false
	}
	for _, r := range id {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

func (h *ID3v2Track) ResolveRating(track *model.Track) int {
	for _, r := range track.Ratings {
		if r.User == h.env.RatingUser {
			return r.Rating
		}
	}
	if tag := h.file.APE(false); tag != nil {
		if item := tag.Item(apeRatingKey); item != nil {
			return parseRating(item.String(), track, h.env)
		}
	}
	return 0
}

func (h *ID3v2Track) WriteFields(track *model.Track) error {
	src := h.sources(true)
	writeCommon(src, track, h.env)

	tag := h.file.ID3v2(true)
	if tag == nil {
		// ID3v2を削除するよう指定されている
		return nil
	}
	// 複数値のフレームは version の区切り文字で書いたので、タグのバージョンも合わせる
	version := h.targetVersion(tag)
	tag.SetVersion(version)
	enc := textEncoding(version)

	h.writeCommentFrames(tag, track, enc)
	h.writeLyricsFrames(tag, track, enc)

	if track.Compilation {
		tag.AddTextFrame("TCMP", enc, "1")
	} else {
		tag.DeleteFrames("TCMP")
	}

	writePopularimeters(tag, track.Ratings)

	for _, id := range track.Frames.IDs() {
		if !isPlainTextFrame(id) {
			return fmt.Errorf("invalid text frame id %q", id)
		}
		if model.IsReservedFrame(id) {
			return fmt.Errorf("%s: %w", id, model.ErrReservedFrame)
		}
		tag.AddTextFrame(id, enc, track.Frames[id])
	}

	return nil
}

// 説明と言語が同じフレームを置き換え、無ければ追加する。
// 説明が空のフレームは汎用のコメント欄として書いている。
func (h *ID3v2Track) writeCommentFrames(tag *id3v2.Tag, track *model.Track, enc id3v2.Encoding) {
	if track.Comment == "" && len(track.ID3Comments) == 0 {
		tag.DeleteFrames("COMM")
		return
	}

	frames := commentFrames(tag)
	for _, c := range track.ID3Comments {
		if c.Description == "" {
			continue
		}
		language := validLanguage(c.Language)
		i := slices.IndexFunc(frames, func(f id3v2.CommentFrame) bool {
			return f.Description == c.Description && validLanguage(f.Language) == language
		})
		if i < 0 {
			frames = append(frames, id3v2.CommentFrame{Description: c.Description})
			i = len(frames) - 1
		}
		frames[i].Language = language
		frames[i].Encoding = enc
		frames[i].Text = c.Text
	}
	replaceCommentFrames(tag, frames)
}

func (h *ID3v2Track) writeLyricsFrames(tag *id3v2.Tag, track *model.Track, enc id3v2.Encoding) {
	if track.Lyrics == "" && len(track.LyricsFrames) == 0 {
		tag.DeleteFrames("USLT")
		return
	}

	frames := lyricsFrames(tag)
	for _, l := range track.LyricsFrames {
		if l.Description == "" {
			continue
		}
		language := validLanguage(l.Language)
		i := slices.IndexFunc(frames, func(f id3v2.UnsynchronisedLyricsFrame) bool {
			return f.ContentDescriptor == l.Description && validLanguage(f.Language) == language
		})
		if i < 0 {
			frames = append(frames, id3v2.UnsynchronisedLyricsFrame{ContentDescriptor: l.Description})
			i = len(frames) - 1
		}
		frames[i].Language = language
		frames[i].Encoding = enc
		frames[i].Lyrics = l.Text
	}
	replaceLyricsFrames(tag, frames)
}

// ユーザーごとにPOPMフレームを置き換え、無ければ追加する。
// モデルにレーティングが無ければPOPMフレームを全て削除する。
func writePopularimeters(tag *id3v2.Tag, ratings []model.PopmFrame) {
	if len(ratings) == 0 {
		tag.DeleteFrames("POPM")
		return
	}

	frames := popularimeterFrames(tag)
	for _, r := range ratings {
		i := slices.IndexFunc(frames, func(f id3v2.PopularimeterFrame) bool {
			return f.Email == r.User
		})
		if i < 0 {
			frames = append(frames, id3v2.PopularimeterFrame{Email: r.User})
			i = len(frames) - 1
		}
		frames[i].Rating = clampByte(r.Rating)
		frames[i].Counter = big.NewInt(int64(max(r.PlayCount, 0)))
	}

	tag.DeleteFrames("POPM")
	for _, f := range frames {
		tag.AddFrame("POPM", f)
	}
}

func clampByte(v int) uint8 {
	return uint8(min(max(v, 0), 255))
}
