package tagfile

import (
	"fmt"
	"strings"

	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	"github.com/go-flac/go-flac"

	mptag "github.com/solidcopy/mptag/internal"
)

type flacBackend struct{}

type blocks = []*flac.MetaDataBlock

func (flacBackend) load(path string) (*PropertyTag, error) {
	flacFile, err := parseFLAC(path)
	if err != nil {
		return nil, err
	}

	tag := newPropertyTag()
	for name, values := range getVorbisComments(flacFile.Meta) {
		tag.Set(name, values...)
	}
	tag.pictures = getPictures(flacFile.Meta)

	return tag, nil
}

func (flacBackend) save(path string, tag *PropertyTag) error {
	flacFile, err := parseFLAC(path)
	if err != nil {
		return err
	}

	flacFile.Meta, err = addVorbisCommentsAndPictures(removeVorbisCommentsAndPictures(flacFile.Meta), tag)
	if err != nil {
		return err
	}

	return flacFile.Save(path)
}

// parseFLAC は flac.ParseFile のpanicを壊れたファイルとして返す。
// 音声フレームが1つも無いファイルでpanicする。
func parseFLAC(path string) (flacFile *flac.File, err error) {
	defer func() {
		if r := recover(); r != nil {
			flacFile = nil
			err = corrupt(path, fmt.Errorf("parse flac: %v", r))
		}
	}()
	return flac.ParseFile(path)
}

func getVorbisComments(meta blocks) map[string][]string {
	for _, block := range meta {
		if block.Type != flac.VorbisComment {
			continue
		}

		comment, err := flacvorbis.ParseFromMetaDataBlock(*block)
		if err != nil {
			continue
		}

		vorbisComments := make(map[string][]string, len(comment.Comments))
		for _, c := range comment.Comments {
			split := strings.SplitN(c, "=", 2)
			if len(split) == 2 {
				name := strings.ToUpper(split[0])
				vorbisComments[name] = append(vorbisComments[name], split[1])
			}
		}

		return vorbisComments
	}

	return map[string][]string{}
}

func getPictures(meta blocks) []Picture {
	var pictures []Picture
	for _, block := range meta {
		if block.Type != flac.Picture {
			continue
		}
		picture, err := flacpicture.ParseFromMetaDataBlock(*block)
		if err != nil {
			continue
		}
		pictures = append(pictures, NewPicture(byte(picture.PictureType), picture.MIME, picture.Description, picture.ImageData))
	}
	return pictures
}

func removeVorbisCommentsAndPictures(meta blocks) blocks {
	newBlocks := blocks{}
	for _, block := range meta {
		if block.Type != flac.VorbisComment && block.Type != flac.Picture && block.Type != flac.Padding {
			newBlocks = append(newBlocks, block)
		}
	}
	return newBlocks
}

func addVorbisCommentsAndPictures(meta blocks, tag *PropertyTag) (blocks, error) {
	vorbisComment := flacvorbis.New()
	vorbisComment.Vendor = "mptag " + mptag.Version

	for _, name := range tag.Keys() {
		for _, value := range tag.Get(name) {
			if err := vorbisComment.Add(name, value); err != nil {
				return nil, fmt.Errorf("vorbis comment %s: %w", name, err)
			}
		}
	}

	vorbisCommentBlock := vorbisComment.Marshal()
	meta = append(meta, &vorbisCommentBlock)

	for _, p := range tag.pictures {
		picture, err := flacpicture.NewFromImageData(flacpicture.PictureType(p.Type), p.Description, p.Data, p.MimeType)
		if err != nil {
			return nil, fmt.Errorf("picture block: %w", err)
		}
		pictureBlock := picture.Marshal()
		meta = append(meta, &pictureBlock)
	}
	tag.picturesChanged = false

	padding := flac.MetaDataBlock{Type: flac.Padding, Data: make([]byte, 64)}
	meta = append(meta, &padding)

	return meta, nil
}
