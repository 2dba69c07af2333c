package handler

import (
	"github.com/solidcopy/mptag/internal/model"
	"github.com/solidcopy/mptag/internal/tagfile"
)

var propertyKeys = map[field]string{
	fieldArtist:      "ARTIST",
	fieldAlbumArtist: "ALBUMARTIST",
	fieldAlbum:       "ALBUM",
	fieldBPM:         "BPM",
	fieldComposer:    "COMPOSER",
	fieldConductor:   "CONDUCTOR",
	fieldCopyright:   "COPYRIGHT",
	fieldGenre:       "GENRE",
	fieldGrouping:    "GROUPING",
	fieldTitle:       "TITLE",
	fieldYear:        "DATE",
	fieldComment:     "COMMENT",
	fieldLyrics:      "LYRICS",
}

// 番号と総数。MP4では番号の項目に "N/M" で入っている。
var numberPairKeys = map[field][2]string{
	fieldDisc:  {"DISCNUMBER", "DISCTOTAL"},
	fieldTrack: {"TRACKNUMBER", "TRACKTOTAL"},
}

type propertySource struct {
	tag *tagfile.PropertyTag
}

func (s propertySource) get(f field) []string {
	if keys, ok := numberPairKeys[f]; ok {
		num, total := model.ParseNumberPair(first(s.tag.Get(keys[0])))
		if total == 0 {
			total = intValue(s.tag.Get(keys[1]))
		}
		return single(model.FormatNumberPair(num, total))
	}
	return s.tag.Get(propertyKeys[f])
}

func (s propertySource) set(f field, values []string) {
	if keys, ok := numberPairKeys[f]; ok {
		num, total := model.ParseNumberPair(first(values))
		s.tag.Set(keys[0], model.FormatInt(num))
		s.tag.Set(keys[1], model.FormatInt(total))
		return
	}
	s.tag.Set(propertyKeys[f], values...)
}

func (s propertySource) pictures() []tagfile.Picture {
	return s.tag.Pictures()
}

func (s propertySource) setPictures(pictures []tagfile.Picture) {
	s.tag.SetPictures(pictures)
}

// GenericTrack はmp3とape以外。形式に依存しないタグだけを使う。
type GenericTrack struct {
	file *tagfile.File
	env  Env
}

func (h *GenericTrack) sources() combined {
	if tag := h.file.Generic(); tag != nil {
		return combined{propertySource{tag: tag}}
	}
	return nil
}

func (h *GenericTrack) ReadFields(track *model.Track) {
	readCommon(h.sources(), track, h.env)
}

func (h *GenericTrack) ResolveRating(*model.Track) int {
	return 0
}

func (h *GenericTrack) WriteFields(track *model.Track) error {
	writeCommon(h.sources(), track, h.env)
	return nil
}
