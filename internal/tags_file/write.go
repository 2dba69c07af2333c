package tags_file

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/solidcopy/mptag/internal/imaging"
	"github.com/solidcopy/mptag/internal/model"
	"github.com/solidcopy/mptag/internal/tagfile"
)

func WriteTagsFile(dir string, tracks []*model.Track) error {
	if len(tracks) == 0 {
		return nil
	}
	track := tracks[0]

	tagsFile, err := os.Create(filepath.Join(dir, FileName))
	if err != nil {
		return err
	}
	defer tagsFile.Close()

	w := bufio.NewWriter(tagsFile)

	w.WriteString(track.Album)
	w.WriteString("\n")
	w.WriteString(track.AlbumArtist)
	w.WriteString("\n")
	w.WriteString(model.FormatInt(track.Year))
	w.WriteString("\n")

	w.WriteString("\n")

	checkDiscNumber := isDiscNumberConsistent(tracks)
	curDiscNumber := 1

	for _, track := range tracks {
		if checkDiscNumber && track.DiscNumber != curDiscNumber {
			w.WriteString("\n")
			curDiscNumber = track.DiscNumber
		}

		w.WriteString(track.Title)

		artists := slices.DeleteFunc(model.SplitValues(track.Artist), func(a string) bool {
			return a == "" || a == track.AlbumArtist
		})
		if len(artists) > 0 {
			w.WriteString(fieldSeparator)
			w.WriteString(strings.Join(artists, fieldSeparator))
		}

		w.WriteString("\n")
	}

	if err := w.Flush(); err != nil {
		return err
	}
	return tagsFile.Close()
}

func isDiscNumberConsistent(tracks []*model.Track) bool {
	currentDiscNumber := 1
	for _, track := range tracks {
		discNumber := track.DiscNumber
		if discNumber != currentDiscNumber && discNumber != currentDiscNumber+1 {
			return false
		}
		currentDiscNumber = discNumber
	}

	return true
}

// 表紙、無ければ最初の画像。
func folderPicture(track *model.Track) *model.Picture {
	for _, p := range track.Pictures {
		if p != nil && p.Type == tagfile.FrontCover {
			return p
		}
	}
	for _, p := range track.Pictures {
		if p != nil {
			return p
		}
	}
	return nil
}

// WriteImageFile はトラックの表紙をFolder画像として書き出す。画像が無ければ何もしない。
func WriteImageFile(dir string, track *model.Track, codec imaging.Codec) error {
	picture := folderPicture(track)
	if picture == nil {
		return nil
	}

	mimeType := imaging.OutputMime(picture.MimeType)

	var imageFileName string
	switch mimeType {
	case "image/png":
		imageFileName = "Folder.png"
	case "image/gif":
		imageFileName = "Folder.gif"
	default:
		mimeType = "image/jpeg"
		imageFileName = "Folder.jpg"
	}

	data, err := codec.Encode(picture.Data, mimeType)
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, imageFileName), data, 0o644)
}
