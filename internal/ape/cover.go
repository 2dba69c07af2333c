package ape

import (
	"bytes"
	"strings"
)

// ID3v2のピクチャタイプ順に並べたカバーアートのキー
var coverArtKeys = []string{
	"Cover Art (Other)",
	"Cover Art (Png Icon)",
	"Cover Art (Icon)",
	"Cover Art (Front)",
	"Cover Art (Back)",
	"Cover Art (Leaflet)",
	"Cover Art (Media)",
	"Cover Art (Lead Artist)",
	"Cover Art (Artist)",
	"Cover Art (Conductor)",
	"Cover Art (Band)",
	"Cover Art (Composer)",
	"Cover Art (Lyricist)",
	"Cover Art (Recording Location)",
	"Cover Art (During Recording)",
	"Cover Art (During Performance)",
	"Cover Art (Video Capture)",
	"Cover Art (Fish)",
	"Cover Art (Illustration)",
	"Cover Art (Band Logotype)",
	"Cover Art (Publisher Logotype)",
}

type Picture struct {
	Type        byte
	Description string
	Data        []byte
}

func coverArtKey(pictureType byte) string {
	if int(pictureType) < len(coverArtKeys) {
		return coverArtKeys[pictureType]
	}
	return coverArtKeys[0]
}

func pictureType(key string) (byte, bool) {
	for i, k := range coverArtKeys {
		if strings.EqualFold(k, key) {
			return byte(i), true
		}
	}
	return 0, false
}

// Pictures はカバーアート項目を返す。値は "説明\0画像データ" の形式。
func (t *Tag) Pictures() []Picture {
	var pictures []Picture
	for _, item := range t.items {
		if item.Type != BinaryItem {
			continue
		}
		typ, ok := pictureType(item.Key)
		if !ok {
			continue
		}
		pic := Picture{Type: typ, Data: item.Value}
		if i := bytes.IndexByte(item.Value, 0); i >= 0 {
			pic.Description = string(item.Value[:i])
			pic.Data = item.Value[i+1:]
		}
		pictures = append(pictures, pic)
	}
	return pictures
}

// SetPictures は全てのカバーアート項目を置き換える。
// 1つのピクチャタイプに入る画像は1枚だけ。
func (t *Tag) SetPictures(pictures []Picture) {
	for _, key := range coverArtKeys {
		t.Remove(key)
	}
	for _, pic := range pictures {
		value := make([]byte, 0, len(pic.Description)+1+len(pic.Data))
		value = append(value, pic.Description...)
		value = append(value, 0)
		value = append(value, pic.Data...)
		t.SetBinary(coverArtKey(pic.Type), value)
	}
}
