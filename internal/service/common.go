package service

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"

	"github.com/solidcopy/mptag/internal/imaging"
	"github.com/solidcopy/mptag/internal/model"
	"github.com/solidcopy/mptag/internal/tagfile"
	"github.com/solidcopy/mptag/internal/track"
)

var (
	ErrNoAudioFiles    = errors.New("オーディオファイルが見つかりません。")
	ErrMixedFileTypes  = errors.New("オーディオファイルの種類が混在しています。")
	ErrTrackCount      = errors.New("オーディオファイルとtagsのトラック情報の数が一致しません。")
	ErrUnreadableTrack = errors.New("タグ情報の読み込みに失敗しました。")
)

// Service はディレクトリ単位の処理。ファイルごとの読み書きは Reconciler に任せる。
type Service struct {
	reconciler *track.Reconciler
	codec      imaging.Codec
	log        logrus.FieldLogger
	workers    int
}

func New(reconciler *track.Reconciler, log logrus.FieldLogger, workers int) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if workers <= 0 {
		workers = 1
	}
	return &Service{
		reconciler: reconciler,
		codec:      imaging.StdCodec{},
		log:        log,
		workers:    workers,
	}
}

// ディレクトリ直下の対応している拡張子のファイルを名前順で返す。
func findFiles(dir string) ([]string, error) {
	extensions := tagfile.Extensions()
	files := []string{}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() && path != dir {
			return filepath.SkipDir
		}

		if !d.IsDir() && slices.Contains(extensions, strings.ToLower(filepath.Ext(path))) {
			files = append(files, path)
		}

		return nil
	})

	return files, err
}

func FindAudioFiles(dir string) ([]string, error) {
	filePaths, err := findFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(filePaths) == 0 {
		return nil, ErrNoAudioFiles
	}

	// ファイルの種類が混在していたらエラー
	extension := strings.ToLower(filepath.Ext(filePaths[0]))
	for _, file := range filePaths[1:] {
		if strings.ToLower(filepath.Ext(file)) != extension {
			return nil, ErrMixedFileTypes
		}
	}

	return filePaths, nil
}

// ExpandPaths はディレクトリを直下のオーディオファイルに展開する。ファイルはそのまま返す。
func ExpandPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			// 存在しないファイルは読み込み時に警告する
			paths = append(paths, arg)
			continue
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		files, err := findFiles(arg)
		if err != nil {
			return nil, err
		}
		paths = append(paths, files...)
	}
	if len(paths) == 0 {
		return nil, ErrNoAudioFiles
	}
	return paths, nil
}

// ReadTracks は並行してタグを読み込む。結果はパスと同じ順で、読めなかったファイルは nil になる。
func (s *Service) ReadTracks(ctx context.Context, paths []string) ([]*model.Track, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	tracks := make([]*model.Track, len(paths))
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			tracks[i] = s.reconciler.Create(path)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tracks, nil
}

// readAllTracks は1つでも読めなければエラーにする。
func (s *Service) readAllTracks(ctx context.Context, paths []string) ([]*model.Track, error) {
	tracks, err := s.ReadTracks(ctx, paths)
	if err != nil {
		return nil, err
	}
	for _, t := range tracks {
		if t == nil {
			return nil, ErrUnreadableTrack
		}
	}
	return tracks, nil
}

// EditFunc はトラックを書き換える。i はパスの添字。
type EditFunc func(i int, t *model.Track) error

// Edit は各ファイルを読み込み、edit で書き換えて保存する。
// 読み込みか保存に失敗したファイルの数を返す。失敗しても他のファイルは処理を続ける。
func (s *Service) Edit(ctx context.Context, paths []string, edit EditFunc) (int, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	failed := make([]bool, len(paths))
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			t := s.reconciler.Create(path)
			if t == nil {
				failed[i] = true
				return nil
			}

			if err := edit(i, t); err != nil {
				s.log.WithField("path", path).Errorf("%s: %v", path, err)
				failed[i] = true
				return nil
			}

			failed[i] = !s.reconciler.SaveFile(t)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}

	count := 0
	for _, f := range failed {
		if f {
			count++
		}
	}
	return count, nil
}
