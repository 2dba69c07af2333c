package tagfile

import (
	"fmt"

	"go.senan.xyz/taglib"
)

type taglibBackend struct{}

func (taglibBackend) load(path string) (*PropertyTag, error) {
	tag, err := readTaglibTags(path)
	if err != nil {
		return nil, err
	}

	image, err := taglib.ReadImage(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(image) > 0 {
		tag.pictures = []Picture{NewPicture(FrontCover, "", "", image)}
	}

	return tag, nil
}

func (taglibBackend) save(path string, tag *PropertyTag) error {
	return writeTaglibTags(path, tag)
}

func readTaglibTags(path string) (*PropertyTag, error) {
	tags, err := taglib.ReadTags(path)
	if err != nil {
		return nil, fmt.Errorf("read tags: %w", err)
	}

	tag := newPropertyTag()
	for key, values := range tags {
		tag.Set(key, values...)
	}
	return tag, nil
}

// TagLibは画像を1枚しか扱えないので、表紙を優先して書く。
func writeTaglibTags(path string, tag *PropertyTag) error {
	if err := taglib.WriteTags(path, tag.fields, taglib.Clear); err != nil {
		return fmt.Errorf("write tags: %w", err)
	}

	if !tag.picturesChanged {
		return nil
	}
	var image []byte
	if cover := tag.coverPicture(); cover != nil {
		image = cover.Data
	}
	if err := taglib.WriteImage(path, image); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	tag.picturesChanged = false

	return nil
}
