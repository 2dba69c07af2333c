package handler

import (
	"strconv"

	"github.com/solidcopy/mptag/internal/id3v1"
	"github.com/solidcopy/mptag/internal/model"
	"github.com/solidcopy/mptag/internal/tagfile"
)

// ID3v1は項目が少ないので、無い項目は読み書きしない。
type id3v1Source struct {
	tag *id3v1.Tag
}

func (s id3v1Source) get(f field) []string {
	switch f {
	case fieldArtist:
		return single(s.tag.Artist)
	case fieldAlbum:
		return single(s.tag.Album)
	case fieldTitle:
		return single(s.tag.Title)
	case fieldYear:
		return single(s.tag.Year)
	case fieldComment:
		return single(s.tag.Comment)
	case fieldGenre:
		return single(s.tag.Genre)
	case fieldTrack:
		if s.tag.Track > 0 {
			return []string{strconv.Itoa(s.tag.Track)}
		}
	}
	return nil
}

func (s id3v1Source) set(f field, values []string) {
	value := model.JoinValues(values)
	switch f {
	case fieldArtist:
		s.tag.Artist = value
	case fieldAlbum:
		s.tag.Album = value
	case fieldTitle:
		s.tag.Title = value
	case fieldYear:
		s.tag.Year = value
	case fieldComment:
		s.tag.Comment = value
	case fieldGenre:
		// ID3v1のジャンルは番号なので、最初の値だけ書く
		s.tag.Genre = first(values)
	case fieldTrack:
		s.tag.Track, _ = model.ParseNumberPair(value)
	}
}

func (s id3v1Source) pictures() []tagfile.Picture {
	return nil
}

func (s id3v1Source) setPictures([]tagfile.Picture) {}
