package track

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/solidcopy/mptag/internal/formatter"
	"github.com/solidcopy/mptag/internal/handler"
	"github.com/solidcopy/mptag/internal/imaging"
	"github.com/solidcopy/mptag/internal/model"
	"github.com/solidcopy/mptag/internal/tagfile"
)

// DefaultRatingUser は既存のライブラリで使われているPOPMのユーザー名。
const DefaultRatingUser = "MPTagThat"

type Options struct {
	// POPMフレームでこのアプリケーションを表すユーザー名
	RatingUser string
	// 保存の直前にmp3のタグを整える設定
	Format formatter.Options
	// 書き込む画像の長辺の上限。0なら縮小しない
	MaxPictureSize int
	// 再生時間などの音声情報も読む
	ReadProperties bool
	Codec          imaging.Codec
}

// Reconciler はファイルのタグとモデルを相互に変換する。
// 別々のファイルなら並行して呼び出してよい。同じファイルへの並行した呼び出しは呼び出し側で防ぐこと。
type Reconciler struct {
	log  logrus.FieldLogger
	opts Options
}

func New(log logrus.FieldLogger, opts Options) *Reconciler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if opts.RatingUser == "" {
		opts.RatingUser = DefaultRatingUser
	}
	if opts.Codec == nil {
		opts.Codec = imaging.StdCodec{}
	}
	return &Reconciler{log: log, opts: opts}
}

func (r *Reconciler) env(path string) handler.Env {
	return handler.Env{
		Log:            r.log.WithField("path", path),
		Codec:          r.opts.Codec,
		RatingUser:     r.opts.RatingUser,
		ID3Version:     r.opts.Format.ID3Version,
		MaxPictureSize: r.opts.MaxPictureSize,
	}
}

// Read はファイルのタグを読み込む。開けなかった場合は *tagfile.OpenError を返す。
func (r *Reconciler) Read(path string) (*model.Track, error) {
	file, err := tagfile.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	info, err := os.Stat(file.Path())
	if err != nil {
		return nil, &tagfile.OpenError{Path: path, Kind: tagfile.ErrFileNotFound, Err: err}
	}

	track := model.NewTrack()
	track.FullFileName = file.Path()
	track.FileName = filepath.Base(file.Path())
	track.Readonly = info.Mode().Perm()&0o200 == 0
	track.TagType = file.MimeSubtype()
	track.TagKinds = file.TagKinds()

	h := handler.New(file, r.env(track.FullFileName))
	h.ReadFields(track)
	track.Rating = h.ResolveRating(track)

	if r.opts.ReadProperties {
		props, err := file.Properties()
		if err != nil {
			r.log.WithField("path", track.FullFileName).Warnf("%s: 音声情報を読み込めません。: %v", path, err)
		}
		track.Properties = props
	}

	return track, nil
}

// Create はファイルのタグを読み込む。
// 開けなかったファイルはログに出して nil を返すので、呼び出し側は次のファイルに進めばよい。
func (r *Reconciler) Create(path string) *model.Track {
	track, err := r.Read(path)
	if err != nil {
		r.logOpenError(path, err)
		return nil
	}
	return track
}

func (r *Reconciler) logOpenError(path string, err error) {
	log := r.log.WithField("path", path)

	var openErr *tagfile.OpenError
	if !errors.As(err, &openErr) || !openErr.Skippable() {
		log.Errorf("%s: ファイルを読み込めません。: %v", path, err)
		return
	}

	switch {
	case errors.Is(err, tagfile.ErrCorruptContainer):
		log.Warnf("%s: ファイルが壊れています。: %v", path, err)
	case errors.Is(err, tagfile.ErrUnsupportedFormat):
		log.Warnf("%s: 対応していない形式です。: %v", path, err)
	default:
		log.Warnf("%s: ファイルが見つかりません。", path)
	}
}

// Save はモデルの内容をファイルに書き込む。変更が無ければ何もしない。
// 途中で失敗してもそれまでの変更は元に戻さず、Changed は true のまま残る。
func (r *Reconciler) Save(track *model.Track) error {
	if !track.Changed {
		return nil
	}

	file, err := tagfile.Open(track.FullFileName)
	if err != nil {
		return err
	}
	defer file.Close()

	for _, kind := range track.TagsRemoved {
		file.RemoveTags(kind)
	}

	h := handler.New(file, r.env(track.FullFileName))
	if err := h.WriteFields(track); err != nil {
		return fmt.Errorf("write tags: %w", err)
	}

	if err := formatter.Format(file, r.opts.Format); err != nil {
		return fmt.Errorf("format tags: %w", err)
	}

	if err := file.Save(); err != nil {
		return fmt.Errorf("save file: %w", err)
	}

	track.Changed = false
	track.TagsRemoved = nil
	return nil
}

// SaveFile は Save の結果をログに出し、成功したかどうかだけを返す。
func (r *Reconciler) SaveFile(track *model.Track) bool {
	if err := r.Save(track); err != nil {
		r.log.WithField("path", track.FullFileName).Errorf("%s: タグを保存できません。: %v", track.FullFileName, err)
		return false
	}
	return true
}

// ClearTag は編集可能な項目を全て空にする。ファイルには書き込まない。
func (r *Reconciler) ClearTag(track *model.Track) *model.Track {
	return track.Clear()
}
