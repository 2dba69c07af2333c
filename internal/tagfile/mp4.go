package tagfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/abema/go-mp4"
	"golang.org/x/exp/slices"
)

// MP4のタグ項目はTagLibで読み書きし、covrの画像はボックスを直接たどって読み書きする。
// TagLibは画像を1枚しか扱えないため。
type mp4Backend struct{}

var boxTypeCovr = mp4.StrToBoxType("covr")

var covrPath = mp4.BoxPath{mp4.BoxTypeMoov(), mp4.BoxTypeUdta(), mp4.BoxTypeMeta(), mp4.BoxTypeIlst(), boxTypeCovr}

// covrのdataボックスのデータ型
const (
	covrJPEG = 13
	covrPNG  = 14
	covrBMP  = 27
)

func (mp4Backend) load(path string) (*PropertyTag, error) {
	pictures, err := readMP4Structure(path)
	if err != nil {
		return nil, err
	}

	tag, err := readTaglibTags(path)
	if err != nil {
		return nil, err
	}
	tag.pictures = pictures

	return tag, nil
}

func (mp4Backend) save(path string, tag *PropertyTag) error {
	pictures, changed := tag.pictures, tag.picturesChanged
	if err := writeTaglibTags(path, tag); err != nil {
		return err
	}

	// TagLibが書くのは1枚だけなので、2枚以上あればcovrを書き直す
	if changed && len(pictures) > 1 {
		if err := writeCoverArt(path, pictures); err != nil {
			return fmt.Errorf("write cover art: %w", err)
		}
	}
	return nil
}

// ftypとmoovがあることを確認し、covrの画像を全て返す。
func readMP4Structure(path string) ([]Picture, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, ioFailure(path, err)
	}
	defer file.Close()

	parents := []string{"moov", "udta", "meta", "ilst", "covr"}

	var hasFtyp, hasMoov bool
	var itemName string
	var pictures []Picture

	_, err = mp4.ReadBoxStructure(file, func(h *mp4.ReadHandle) (interface{}, error) {
		switch h.BoxInfo.Type {
		case mp4.BoxTypeFtyp():
			hasFtyp = true
		case mp4.BoxTypeMoov():
			hasMoov = true
		}

		if !h.BoxInfo.IsSupportedType() {
			return nil, nil
		}

		typeName := h.BoxInfo.Type.String()

		if slices.Contains(parents, typeName) {
			itemName = typeName
			return h.Expand()
		}

		if typeName == "data" && itemName == "covr" {
			buff := new(bytes.Buffer)
			if _, err := h.ReadData(buff); err != nil {
				return nil, err
			}

			// 先頭8バイトはデータ型とロケール
			data := buff.Bytes()
			if len(data) > 8 {
				pictures = append(pictures, NewPicture(FrontCover, "", "", data[8:]))
			}
		}
		return nil, nil
	})
	if err != nil {
		return nil, fmt.Errorf("read box structure: %w", err)
	}

	if !hasFtyp || !hasMoov {
		return nil, errors.New("missing ftyp or moov box")
	}

	return pictures, nil
}

// writeCoverArt はcovrボックスを pictures で置き換える。covrが既に存在すること。
// covrより後ろにあるチャンクの位置はstco/co64で付け替える。
func writeCoverArt(path string, pictures []Picture) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	covrs, err := mp4.ExtractBox(file, nil, covrPath)
	if err != nil {
		return err
	}
	if len(covrs) == 0 {
		return errors.New("covr box not found")
	}
	oldEnd := covrs[0].Offset + covrs[0].Size
	delta := int64(covrSize(pictures)) - int64(covrs[0].Size)

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	newFilePath := path + ".mptag_temp"
	newFile, err := os.OpenFile(newFilePath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}

	err = copyWithCoverArt(file, newFile, pictures, oldEnd, delta)
	if closeErr := newFile.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(newFilePath)
		return err
	}

	file.Close()
	return os.Rename(newFilePath, path)
}

func covrSize(pictures []Picture) uint64 {
	size := uint64(mp4.SmallHeaderSize)
	for _, p := range pictures {
		// dataボックスのヘッダー、データ型とロケール、画像
		size += mp4.SmallHeaderSize + 8 + uint64(len(p.Data))
	}
	return size
}

func copyWithCoverArt(r io.ReadSeeker, out io.WriteSeeker, pictures []Picture, oldEnd uint64, delta int64) error {
	w := mp4.NewWriter(out)

	_, err := mp4.ReadBoxStructure(r, func(h *mp4.ReadHandle) (interface{}, error) {
		switch h.BoxInfo.Type {
		case mp4.BoxTypeMoov(), mp4.BoxTypeTrak(), mp4.BoxTypeMdia(), mp4.BoxTypeMinf(), mp4.BoxTypeStbl(),
			mp4.BoxTypeUdta(), mp4.BoxTypeMeta(), mp4.BoxTypeIlst():
			if _, err := w.StartBox(&h.BoxInfo); err != nil {
				return nil, err
			}
			box, _, err := h.ReadPayload()
			if err != nil {
				return nil, err
			}
			if _, err := mp4.Marshal(w, box, h.BoxInfo.Context); err != nil {
				return nil, err
			}
			if _, err := h.Expand(); err != nil {
				return nil, err
			}
			_, err = w.EndBox()
			return nil, err

		case boxTypeCovr:
			if !slices.Equal(h.Path, covrPath) {
				return nil, w.CopyBox(r, &h.BoxInfo)
			}
			return nil, writeCovr(w, pictures)

		case mp4.BoxTypeStco():
			box, _, err := h.ReadPayload()
			if err != nil {
				return nil, err
			}
			stco := box.(*mp4.Stco)
			for i, offset := range stco.ChunkOffset {
				if uint64(offset) >= oldEnd {
					stco.ChunkOffset[i] = uint32(int64(offset) + delta)
				}
			}
			return nil, rewriteBox(w, &h.BoxInfo, stco)

		case mp4.BoxTypeCo64():
			box, _, err := h.ReadPayload()
			if err != nil {
				return nil, err
			}
			co64 := box.(*mp4.Co64)
			for i, offset := range co64.ChunkOffset {
				if offset >= oldEnd {
					co64.ChunkOffset[i] = uint64(int64(offset) + delta)
				}
			}
			return nil, rewriteBox(w, &h.BoxInfo, co64)

		default:
			return nil, w.CopyBox(r, &h.BoxInfo)
		}
	})
	return err
}

func rewriteBox(w *mp4.Writer, info *mp4.BoxInfo, box mp4.IBox) error {
	ctx := info.Context
	if _, err := w.StartBox(info); err != nil {
		return err
	}
	if _, err := mp4.Marshal(w, box, ctx); err != nil {
		return err
	}
	_, err := w.EndBox()
	return err
}

func writeCovr(w *mp4.Writer, pictures []Picture) error {
	if _, err := w.StartBox(&mp4.BoxInfo{Type: boxTypeCovr}); err != nil {
		return err
	}
	for _, p := range pictures {
		if _, err := w.StartBox(&mp4.BoxInfo{Type: mp4.BoxTypeData()}); err != nil {
			return err
		}
		data := mp4.Data{DataType: covrDataType(p.MimeType), Data: p.Data}
		if _, err := mp4.Marshal(w, &data, mp4.Context{UnderIlstMeta: true}); err != nil {
			return err
		}
		if _, err := w.EndBox(); err != nil {
			return err
		}
	}
	_, err := w.EndBox()
	return err
}

func covrDataType(mimeType string) uint32 {
	switch mimeType {
	case "image/jpeg":
		return covrJPEG
	case "image/png":
		return covrPNG
	case "image/bmp":
		return covrBMP
	default:
		return mp4.DataTypeBinary
	}
}
