package tagfile

import (
	"net/http"
	"strings"

	"golang.org/x/exp/slices"
)

// ID3v2/FLACのピクチャタイプ「表紙」
const FrontCover = 3

// Picture は埋め込み画像の生データ。
type Picture struct {
	Type        byte
	MimeType    string
	Description string
	Data        []byte
}

func NewPicture(pictureType byte, mimeType, description string, data []byte) Picture {
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return Picture{Type: pictureType, MimeType: mimeType, Description: description, Data: data}
}

// PropertyTag は形式に依存しない「キー → 複数の値」のタグ。
// キーは大文字で扱う(ARTIST, TRACKNUMBER など)。
type PropertyTag struct {
	fields   map[string][]string
	pictures []Picture

	picturesChanged bool
}

func newPropertyTag() *PropertyTag {
	return &PropertyTag{fields: map[string][]string{}}
}

func (t *PropertyTag) Get(key string) []string {
	return t.fields[strings.ToUpper(key)]
}

// Set は値を置き換える。空の値は捨て、値が残らなければキーを削除する。
func (t *PropertyTag) Set(key string, values ...string) {
	key = strings.ToUpper(key)
	nonEmpty := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			nonEmpty = append(nonEmpty, v)
		}
	}
	if len(nonEmpty) == 0 {
		delete(t.fields, key)
		return
	}
	t.fields[key] = nonEmpty
}

func (t *PropertyTag) add(key, value string) {
	key = strings.ToUpper(key)
	if value == "" {
		return
	}
	t.fields[key] = append(t.fields[key], value)
}

// Keys はキーを昇順で返す。
func (t *PropertyTag) Keys() []string {
	keys := make([]string, 0, len(t.fields))
	for k := range t.fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (t *PropertyTag) Pictures() []Picture {
	return t.pictures
}

func (t *PropertyTag) SetPictures(pictures []Picture) {
	t.pictures = pictures
	t.picturesChanged = true
}

// 表紙を優先して1枚選ぶ。1枚しか持てない形式で使う。
func (t *PropertyTag) coverPicture() *Picture {
	var cover *Picture
	for i := range t.pictures {
		if cover == nil || t.pictures[i].Type == FrontCover {
			cover = &t.pictures[i]
		}
		if cover.Type == FrontCover {
			break
		}
	}
	return cover
}

// backend は形式ごとのタグの読み書き。
// load は中身の確認も兼ねるので、読めないファイルはエラーにする。
type backend interface {
	load(path string) (*PropertyTag, error)
	save(path string, tag *PropertyTag) error
}
