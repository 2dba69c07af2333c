package service

import (
	"context"
	"fmt"

	"github.com/solidcopy/mptag/internal/model"
	"github.com/solidcopy/mptag/internal/tags_file"
)

// Import はtagsファイルとFolder画像の内容を各ファイルに書き込む。
// tagsファイルに無い項目はファイルの値を残す。
func (s *Service) Import(ctx context.Context, dir string) error {
	s.log.Info("インポート処理を開始します。")

	filePaths, err := FindAudioFiles(dir)
	if err != nil {
		return err
	}

	templates, err := tags_file.ReadTagsFile(dir)
	if err != nil {
		return err
	}

	if len(filePaths) != len(templates) {
		return ErrTrackCount
	}

	if err := tags_file.ReadImageFile(dir, templates, s.codec); err != nil {
		return err
	}

	failed, err := s.Edit(ctx, filePaths, func(i int, t *model.Track) error {
		applyTemplate(t, templates[i])
		return nil
	})
	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d件のファイルにタグを書き込めませんでした。", failed)
	}

	s.log.Info("インポート処理を終了します。")
	return nil
}

func applyTemplate(dst, src *model.Track) {
	dst.Album = src.Album
	dst.AlbumArtist = src.AlbumArtist
	dst.Year = src.Year
	dst.Title = src.Title
	dst.Artist = src.Artist
	dst.DiscNumber = src.DiscNumber
	dst.DiscCount = src.DiscCount
	dst.TrackNumber = src.TrackNumber
	dst.TrackCount = src.TrackCount
	if len(src.Pictures) > 0 {
		dst.Pictures = src.Pictures
	}
	dst.Changed = true
}
