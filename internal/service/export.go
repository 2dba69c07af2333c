package service

import (
	"context"

	"github.com/solidcopy/mptag/internal/tags_file"
)

// Export はトラック情報をtagsファイルに、表紙をFolder画像に書き出す。
func (s *Service) Export(ctx context.Context, dir string) error {
	s.log.Info("エクスポート処理を開始します。")

	filePaths, err := FindAudioFiles(dir)
	if err != nil {
		return err
	}

	tracks, err := s.readAllTracks(ctx, filePaths)
	if err != nil {
		return err
	}

	if err := tags_file.WriteTagsFile(dir, tracks); err != nil {
		return err
	}

	if err := tags_file.WriteImageFile(dir, tracks[0], s.codec); err != nil {
		return err
	}

	s.log.Info("エクスポート処理を完了しました。")
	return nil
}
