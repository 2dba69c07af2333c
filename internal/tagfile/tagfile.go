package tagfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bogem/id3v2/v2"
	"go.senan.xyz/taglib"
	"golang.org/x/exp/slices"

	"github.com/solidcopy/mptag/internal/ape"
	"github.com/solidcopy/mptag/internal/id3v1"
	"github.com/solidcopy/mptag/internal/model"
)

const mimePrefix = "taglib/"

type container int

const (
	// ID3v2を先頭に、APEとID3v1を末尾に持つ
	containerMPEG container = iota
	// Monkey's Audio。APEとID3v1を末尾に持つ
	containerMonkey
	// タグの読み書きを backend に任せる
	containerGeneric
)

type format struct {
	container container
	backend   backend
}

var formats = map[string]format{
	"mp3":  {container: containerMPEG},
	"ape":  {container: containerMonkey},
	"flac": {container: containerGeneric, backend: flacBackend{}},
	"m4a":  {container: containerGeneric, backend: mp4Backend{}},
	"m4b":  {container: containerGeneric, backend: mp4Backend{}},
	"mp4":  {container: containerGeneric, backend: mp4Backend{}},
	"ogg":  {container: containerGeneric, backend: taglibBackend{}},
	"oga":  {container: containerGeneric, backend: taglibBackend{}},
	"opus": {container: containerGeneric, backend: taglibBackend{}},
	"spx":  {container: containerGeneric, backend: taglibBackend{}},
	"wv":   {container: containerGeneric, backend: taglibBackend{}},
	"mpc":  {container: containerGeneric, backend: taglibBackend{}},
	"wav":  {container: containerGeneric, backend: taglibBackend{}},
	"aif":  {container: containerGeneric, backend: taglibBackend{}},
	"aiff": {container: containerGeneric, backend: taglibBackend{}},
	"wma":  {container: containerGeneric, backend: taglibBackend{}},
	"dsf":  {container: containerGeneric, backend: taglibBackend{}},
}

// Extensions は扱える拡張子をドット付きで返す。
func Extensions() []string {
	exts := make([]string, 0, len(formats))
	for subtype := range formats {
		exts = append(exts, "."+subtype)
	}
	slices.Sort(exts)
	return exts
}

// File は開いたオーディオファイルと、その中のタグ。
// 1つの File を複数のゴルーチンで共有してはいけない。
type File struct {
	path    string
	subtype string
	format  format

	v2     *id3v2.Tag
	hasV2  bool
	v1     *id3v1.Tag
	apeTag *ape.Tag

	generic *PropertyTag

	removed []model.TagKind
}

// Open はファイルを開いて形式を判定し、タグを読み込む。
// 失敗は *OpenError で、errors.Is で ErrCorruptContainer などと比較できる。
func Open(path string) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, ioFailure(path, err)
	}

	info, err := os.Stat(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &OpenError{Path: path, Kind: ErrFileNotFound, Err: err}
	}
	if err != nil {
		return nil, ioFailure(path, err)
	}
	if info.IsDir() {
		return nil, unsupported(path, errors.New("is a directory"))
	}

	subtype := strings.ToLower(strings.TrimPrefix(filepath.Ext(abs), "."))
	fm, ok := formats[subtype]
	if !ok {
		return nil, unsupported(path, fmt.Errorf("unknown extension %q", filepath.Ext(abs)))
	}

	f := &File{path: abs, subtype: subtype, format: fm}

	switch fm.container {
	case containerMPEG:
		err = f.openMPEG()
	case containerMonkey:
		err = f.openMonkey()
	default:
		err = f.openGeneric()
	}
	if err != nil {
		f.Close()
		var openErr *OpenError
		if errors.As(err, &openErr) {
			return nil, err
		}
		return nil, ioFailure(path, err)
	}

	return f, nil
}

func (f *File) openGeneric() error {
	tag, err := f.format.backend.load(f.path)
	if err != nil {
		var openErr *OpenError
		if errors.As(err, &openErr) {
			return err
		}
		return corrupt(f.path, err)
	}
	f.generic = tag
	return nil
}

func (f *File) Path() string {
	return f.path
}

func (f *File) MimeType() string {
	return mimePrefix + f.subtype
}

// MimeSubtype は MIMEタイプの "/" より後ろ("mp3", "ape" など)を返す。
func (f *File) MimeSubtype() string {
	mimeType := f.MimeType()
	return mimeType[strings.Index(mimeType, "/")+1:]
}

// ID3v1 はID3v1タグを返す。無ければ create のときだけ作る。
func (f *File) ID3v1(create bool) *id3v1.Tag {
	if f.format.container == containerGeneric || f.isRemoved(model.TagID3v1) {
		return nil
	}
	if f.v1 == nil && create {
		f.v1 = &id3v1.Tag{}
	}
	return f.v1
}

// ID3v2 はID3v2タグを返す。mp3以外では常に nil。
func (f *File) ID3v2(create bool) *id3v2.Tag {
	if f.v2 == nil || f.isRemoved(model.TagID3v2) {
		return nil
	}
	if !f.hasV2 && !create {
		return nil
	}
	f.hasV2 = true
	return f.v2
}

func (f *File) APE(create bool) *ape.Tag {
	if f.format.container == containerGeneric || f.isRemoved(model.TagAPE) {
		return nil
	}
	if f.apeTag == nil && create {
		f.apeTag = ape.New()
	}
	return f.apeTag
}

// Generic は形式に依存しないタグを返す。mp3とapeでは nil。
func (f *File) Generic() *PropertyTag {
	if f.isRemoved(model.TagGeneric) {
		return nil
	}
	return f.generic
}

// TagKinds はファイルに存在するタグの種類を返す。
func (f *File) TagKinds() []model.TagKind {
	var kinds []model.TagKind
	if f.ID3v1(false) != nil {
		kinds = append(kinds, model.TagID3v1)
	}
	if f.ID3v2(false) != nil {
		kinds = append(kinds, model.TagID3v2)
	}
	if f.APE(false) != nil {
		kinds = append(kinds, model.TagAPE)
	}
	if f.Generic() != nil {
		kinds = append(kinds, model.TagGeneric)
	}
	return kinds
}

// RemoveTags は指定した種類のタグを削除する。
// 削除したタグは同じ File の中では作り直されない。
func (f *File) RemoveTags(kind model.TagKind) {
	if f.isRemoved(kind) {
		return
	}
	f.removed = append(f.removed, kind)

	switch kind {
	case model.TagID3v1:
		f.v1 = nil
	case model.TagID3v2:
		if f.v2 != nil {
			f.v2.DeleteAllFrames()
		}
	case model.TagAPE:
		f.apeTag = nil
	case model.TagGeneric:
		if f.generic != nil {
			f.generic = newPropertyTag()
			f.generic.picturesChanged = true
		}
	}
}

func (f *File) isRemoved(kind model.TagKind) bool {
	return slices.Contains(f.removed, kind)
}

// Save はタグをファイルに書き込む。
func (f *File) Save() error {
	switch f.format.container {
	case containerMPEG:
		// ID3v2の保存はファイル全体を書き直すので、末尾のタグより先に行う
		if f.v2 != nil && (f.hasV2 || f.isRemoved(model.TagID3v2)) {
			if err := f.v2.Save(); err != nil {
				return fmt.Errorf("save ID3v2 tag: %w", err)
			}
		}
		return f.writeTrailer()
	case containerMonkey:
		return f.writeTrailer()
	default:
		if f.generic == nil {
			return nil
		}
		return f.format.backend.save(f.path, f.generic)
	}
}

// Properties は音声ストリームとファイルの情報を返す。
func (f *File) Properties() (model.AudioProperties, error) {
	info, err := os.Stat(f.path)
	if err != nil {
		return model.AudioProperties{}, err
	}
	props := model.AudioProperties{
		FileSize: info.Size(),
		ModTime:  info.ModTime(),
	}

	p, err := taglib.ReadProperties(f.path)
	if err != nil {
		return props, fmt.Errorf("read audio properties: %w", err)
	}
	props.Duration = p.Length
	props.BitRate = int(p.Bitrate)
	props.SampleRate = int(p.SampleRate)
	props.Channels = int(p.Channels)

	return props, nil
}

func (f *File) Close() error {
	if f.v2 == nil {
		return nil
	}
	return f.v2.Close()
}
