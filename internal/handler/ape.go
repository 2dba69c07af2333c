package handler

import (
	"strconv"

	"github.com/solidcopy/mptag/internal/ape"
	"github.com/solidcopy/mptag/internal/model"
	"github.com/solidcopy/mptag/internal/tagfile"
)

const apeRatingKey = "RATING"

var apeKeys = map[field]string{
	fieldArtist:      "Artist",
	fieldAlbumArtist: "Album Artist",
	fieldAlbum:       "Album",
	fieldBPM:         "BPM",
	fieldComposer:    "Composer",
	fieldConductor:   "Conductor",
	fieldCopyright:   "Copyright",
	fieldDisc:        "Disc",
	fieldGenre:       "Genre",
	fieldGrouping:    "Grouping",
	fieldTitle:       "Title",
	fieldTrack:       "Track",
	fieldYear:        "Year",
	fieldComment:     "Comment",
	fieldLyrics:      "Lyrics",
}

type apeSource struct {
	tag *ape.Tag
}

func (s apeSource) get(f field) []string {
	item := s.tag.Item(apeKeys[f])
	if item == nil {
		return nil
	}
	var values []string
	for _, v := range item.Values() {
		if v != "" {
			values = append(values, v)
		}
	}
	return values
}

func (s apeSource) set(f field, values []string) {
	key, ok := apeKeys[f]
	if !ok {
		return
	}
	s.tag.SetText(key, values...)
}

func (s apeSource) pictures() []tagfile.Picture {
	var pictures []tagfile.Picture
	for _, p := range s.tag.Pictures() {
		pictures = append(pictures, tagfile.NewPicture(p.Type, "", p.Description, p.Data))
	}
	return pictures
}

func (s apeSource) setPictures(pictures []tagfile.Picture) {
	converted := make([]ape.Picture, 0, len(pictures))
	for _, p := range pictures {
		converted = append(converted, ape.Picture{Type: p.Type, Description: p.Description, Data: p.Data})
	}
	s.tag.SetPictures(converted)
}

// APETrack はMonkey's Audio。APEを主に、ID3v1を補助に使う。
type APETrack struct {
	file *tagfile.File
	env  Env
}

func (h *APETrack) sources(write bool) combined {
	var src combined
	if tag := h.file.APE(write); tag != nil {
		src = append(src, apeSource{tag: tag})
	}
	if tag := h.file.ID3v1(false); tag != nil {
		src = append(src, id3v1Source{tag: tag})
	}
	return src
}

func (h *APETrack) ReadFields(track *model.Track) {
	readCommon(h.sources(false), track, h.env)
}

func (h *APETrack) ResolveRating(track *model.Track) int {
	tag := h.file.APE(false)
	if tag == nil {
		return 0
	}
	item := tag.Item(apeRatingKey)
	if item == nil {
		return 0
	}
	return parseRating(item.String(), track, h.env)
}

func (h *APETrack) WriteFields(track *model.Track) error {
	writeCommon(h.sources(true), track, h.env)

	if tag := h.file.APE(true); tag != nil {
		if track.Rating > 0 {
			tag.SetText(apeRatingKey, strconv.Itoa(track.Rating))
		} else {
			tag.Remove(apeRatingKey)
		}
	}
	return nil
}
