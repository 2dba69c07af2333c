package tags_file

import (
	"bufio"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/solidcopy/mptag/internal/imaging"
	"github.com/solidcopy/mptag/internal/model"
	"github.com/solidcopy/mptag/internal/tagfile"
)

const (
	FileName = "tags"

	// トラック行のタイトルとアーティストの区切り
	fieldSeparator = "//"
)

var ErrHeader = errors.New("tagsファイルの4行目が空白行ではありません。")

// ReadTagsFile はtagsファイルを読み込む。
// 1〜3行目がアルバム、アルバムアーティスト、年、4行目が空行で、以降が1行1トラック。
// 空行でディスクを区切る。
func ReadTagsFile(dir string) ([]*model.Track, error) {
	tagsFile, err := os.Open(filepath.Join(dir, FileName))
	if err != nil {
		return nil, errors.New("tagsファイルを読み込めませんでした。")
	}
	defer tagsFile.Close()

	scanner := bufio.NewScanner(tagsFile)
	scanner.Split(bufio.ScanLines)

	allTracks := []*model.Track{}

	var header [3]string
	for i := range header {
		if !scanner.Scan() {
			return allTracks, scanner.Err()
		}
		header[i] = scanner.Text()
	}
	album, albumArtist := header[0], header[1]
	year, _ := model.ParseYear(header[2])

	scanner.Scan()
	if scanner.Text() != "" {
		return allTracks, ErrHeader
	}

	newDisc := true
	tracksByDisc := [][]*model.Track{}

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			newDisc = true
			continue
		}

		if newDisc {
			newDisc = false
			tracksByDisc = append(tracksByDisc, []*model.Track{})
		}

		tokens := strings.Split(line, fieldSeparator)

		track := model.NewTrack()
		track.Album = album
		track.AlbumArtist = albumArtist
		track.Year = year
		track.Title = tokens[0]
		track.Artist = model.JoinValues(tokens[1:])
		if track.Artist == "" {
			track.Artist = albumArtist
		}

		index := len(tracksByDisc) - 1
		tracksByDisc[index] = append(tracksByDisc[index], track)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	discCount := len(tracksByDisc)
	for i, tracks := range tracksByDisc {
		trackCount := len(tracks)
		for j, track := range tracks {
			track.DiscNumber = i + 1
			track.DiscCount = discCount
			track.TrackNumber = j + 1
			track.TrackCount = trackCount
		}
	}

	for _, tracks := range tracksByDisc {
		allTracks = append(allTracks, tracks...)
	}

	return allTracks, nil
}

// ReadImageFile はFolder画像を読み込み、全てのトラックの表紙にする。画像が無ければ何もしない。
func ReadImageFile(dir string, tracks []*model.Track, codec imaging.Codec) error {
	for _, ext := range []string{".jpg", ".jpeg", ".png", ".gif"} {
		imageFilePath := filepath.Join(dir, "Folder"+ext)

		if stat, err := os.Stat(imageFilePath); err != nil || stat.IsDir() {
			continue
		}

		imageData, err := os.ReadFile(imageFilePath)
		if err != nil {
			return errors.New("アートワークを読み込めませんでした。")
		}

		img, err := codec.Decode(imageData)
		if err != nil {
			return errors.New("アートワークを読み込めませんでした。")
		}

		mimeType := tagfile.NewPicture(tagfile.FrontCover, "", "", imageData).MimeType
		for _, track := range tracks {
			track.Pictures = []*model.Picture{{
				Type:     tagfile.FrontCover,
				MimeType: mimeType,
				Data:     img,
			}}
		}

		break
	}

	return nil
}
