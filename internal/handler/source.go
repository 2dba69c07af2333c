package handler

import (
	"strings"

	"github.com/solidcopy/mptag/internal/imaging"
	"github.com/solidcopy/mptag/internal/model"
	"github.com/solidcopy/mptag/internal/tagfile"
)

type field int

const (
	fieldArtist field = iota
	fieldAlbumArtist
	fieldAlbum
	fieldBPM
	fieldComposer
	fieldConductor
	fieldCopyright
	// 番号と総数を "N/M" の形でやり取りする
	fieldDisc
	fieldGenre
	fieldGrouping
	fieldTitle
	fieldTrack
	fieldYear
	fieldComment
	fieldLyrics
)

// source は1つのタグへのフィールド単位の読み書き。
// 扱えないフィールドは get で nil を返し、set では何もしない。
type source interface {
	get(f field) []string
	set(f field, values []string)
	pictures() []tagfile.Picture
	setPictures(pictures []tagfile.Picture)
}

// combined は複数のタグをまとめて扱う。
// 読むときは値のある最初のタグを使い、書くときは全てのタグに書く。
type combined []source

func (c combined) get(f field) []string {
	for _, s := range c {
		if values := s.get(f); len(values) > 0 {
			return values
		}
	}
	return nil
}

func (c combined) set(f field, values []string) {
	for _, s := range c {
		s.set(f, values)
	}
}

func (c combined) pictures() []tagfile.Picture {
	for _, s := range c {
		if pictures := s.pictures(); len(pictures) > 0 {
			return pictures
		}
	}
	return nil
}

func (c combined) setPictures(pictures []tagfile.Picture) {
	for _, s := range c {
		s.setPictures(pictures)
	}
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func single(value string) []string {
	if value == "" {
		return nil
	}
	return []string{value}
}

// 数値の項目は読めなければ0にする。
func intValue(values []string) int {
	v, err := model.ParseInt(first(values))
	if err != nil {
		return 0
	}
	return v
}

func readCommon(src source, track *model.Track, env Env) {
	track.Artist = model.JoinArtists(src.get(fieldArtist))
	track.AlbumArtist = model.JoinArtists(src.get(fieldAlbumArtist))
	track.Composer = model.JoinValues(src.get(fieldComposer))
	track.Genre = model.JoinValues(src.get(fieldGenre))

	track.Album = first(src.get(fieldAlbum))
	track.BPM = intValue(src.get(fieldBPM))
	track.Conductor = first(src.get(fieldConductor))
	track.Copyright = first(src.get(fieldCopyright))
	track.DiscNumber, track.DiscCount = model.ParseNumberPair(first(src.get(fieldDisc)))
	track.Grouping = first(src.get(fieldGrouping))
	track.Title = first(src.get(fieldTitle))
	track.TrackNumber, track.TrackCount = model.ParseNumberPair(first(src.get(fieldTrack)))
	if year, err := model.ParseYear(first(src.get(fieldYear))); err == nil {
		track.Year = year
	}

	track.Comment = first(src.get(fieldComment))
	track.Lyrics = first(src.get(fieldLyrics))

	track.Pictures = decodePictures(src.pictures(), track, env)
}

func writeCommon(src source, track *model.Track, env Env) {
	src.set(fieldArtist, model.SplitValues(track.Artist))
	src.set(fieldAlbumArtist, model.SplitValues(track.AlbumArtist))
	src.set(fieldGenre, model.SplitValues(track.Genre))

	src.set(fieldAlbum, single(strings.TrimSpace(track.Album)))
	src.set(fieldBPM, single(model.FormatInt(track.BPM)))
	src.set(fieldDisc, single(model.FormatNumberPair(track.DiscNumber, track.DiscCount)))
	src.set(fieldTitle, single(track.Title))
	src.set(fieldTrack, single(model.FormatNumberPair(track.TrackNumber, track.TrackCount)))
	src.set(fieldYear, single(model.FormatInt(track.Year)))

	if track.Comment != "" {
		src.set(fieldComment, single(track.Comment))
	} else {
		src.set(fieldComment, nil)
	}
	if track.Lyrics != "" {
		src.set(fieldLyrics, single(track.Lyrics))
	} else {
		src.set(fieldLyrics, nil)
	}

	src.set(fieldComposer, model.SplitValues(track.Composer))
	src.set(fieldConductor, single(track.Conductor))
	src.set(fieldCopyright, single(track.Copyright))
	src.set(fieldGrouping, single(track.Grouping))

	src.setPictures(encodePictures(track, env))
}

// 1枚の画像が読めなくても残りは読む。
func decodePictures(raw []tagfile.Picture, track *model.Track, env Env) []*model.Picture {
	var pictures []*model.Picture
	for i, p := range raw {
		img, err := env.Codec.Decode(p.Data)
		if err != nil {
			env.Log.Warnf("%s: 画像%dを読み込めません。: %v", track.FullFileName, i, err)
			continue
		}
		pictures = append(pictures, &model.Picture{
			Type:        p.Type,
			MimeType:    p.MimeType,
			Description: p.Description,
			Data:        img,
		})
	}
	return pictures
}

// 変換できない画像はログに出して除く。
func encodePictures(track *model.Track, env Env) []tagfile.Picture {
	pictures := make([]tagfile.Picture, 0, len(track.Pictures))
	for i, p := range track.Pictures {
		if p == nil {
			continue
		}
		mimeType := imaging.OutputMime(p.MimeType)
		data, err := env.Codec.Encode(imaging.Fit(p.Data, env.MaxPictureSize), mimeType)
		if err != nil {
			env.Log.Errorf("%s: 画像%dを書き込めません。: %v", track.FullFileName, i, err)
			continue
		}
		pictures = append(pictures, tagfile.Picture{
			Type:        p.Type,
			MimeType:    mimeType,
			Description: p.Description,
			Data:        data,
		})
	}
	return pictures
}

// 数値として読めないレーティングは0として扱い、ログに出す。
func parseRating(value string, track *model.Track, env Env) int {
	if strings.TrimSpace(value) == "" {
		return 0
	}
	rating, err := model.ParseInt(value)
	if err != nil {
		env.Log.Warnf("%s: レーティング %q を数値として読めません。", track.FullFileName, value)
		return 0
	}
	return rating
}
