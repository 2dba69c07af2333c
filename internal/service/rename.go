package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/solidcopy/mptag/internal/model"
)

// Rename はタグの番号とタイトルからファイル名を付け直す。
func (s *Service) Rename(ctx context.Context, dir string) error {
	s.log.Info("リネーム処理を開始します。")

	filePaths, err := FindAudioFiles(dir)
	if err != nil {
		return err
	}

	tracks, err := s.readAllTracks(ctx, filePaths)
	if err != nil {
		return err
	}

	failed := 0
	for i, track := range tracks {
		filePath := filePaths[i]

		newBaseName := determineNewBaseName(track)
		ext := filepath.Ext(filePath)
		newFilePath := filepath.Join(dir, newBaseName+ext)

		if newFilePath == filePath {
			continue
		}
		if _, err := os.Stat(newFilePath); err == nil {
			s.log.WithField("path", filePath).Errorf("%s: %s が既に存在します。", filePath, newBaseName+ext)
			failed++
			continue
		}
		if err := os.Rename(filePath, newFilePath); err != nil {
			s.log.WithField("path", filePath).Errorf("%s: ファイル名を変更できません。: %v", filePath, err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d件のファイル名を変更できませんでした。", failed)
	}

	s.log.Info("リネーム処理を終了します。")
	return nil
}

var charReplacingMap map[string]string = map[string]string{
	"*":  "-",
	"\\": "",
	"|":  "",
	":":  "",
	"\"": "",
	"<":  "(",
	">":  ")",
	"/":  "",
	"?":  "",
}

func zeroPadded(n, total int) string {
	width := len(strconv.Itoa(total))
	return fmt.Sprintf("%0*d", width, n)
}

func determineNewBaseName(track *model.Track) string {
	newBaseName := new(strings.Builder)

	if track.DiscCount > 1 {
		newBaseName.WriteString(zeroPadded(track.DiscNumber, track.DiscCount))
		newBaseName.WriteRune('.')
	}

	newBaseName.WriteString(zeroPadded(track.TrackNumber, track.TrackCount))
	newBaseName.WriteRune('.')

	title := track.Title
	for from, to := range charReplacingMap {
		title = strings.ReplaceAll(title, from, to)
	}
	newBaseName.WriteString(title)

	return newBaseName.String()
}
