package handler

import (
	"github.com/sirupsen/logrus"

	"github.com/solidcopy/mptag/internal/imaging"
	"github.com/solidcopy/mptag/internal/model"
	"github.com/solidcopy/mptag/internal/tagfile"
)

// Handler はファイル形式ごとのタグとモデルの変換。
// ファイルを開いたときに MIME サブタイプで1度だけ選ぶ。
type Handler interface {
	// ReadFields はタグの内容をモデルに読み込む。無いタグは読み飛ばす。
	ReadFields(track *model.Track)
	// WriteFields はモデルの内容をタグに書き込む。ファイルへの保存はしない。
	WriteFields(track *model.Track) error
	// ResolveRating は形式ごとの順序でレーティングを1つに決める。
	ResolveRating(track *model.Track) int
}

type Env struct {
	Log   logrus.FieldLogger
	Codec imaging.Codec
	// POPMフレームでこのアプリケーションを表すユーザー名
	RatingUser string
	// 3か4。0ならファイルのバージョンのまま
	ID3Version int
	// 画像の長辺の上限。0なら縮小しない
	MaxPictureSize int
}

func New(file *tagfile.File, env Env) Handler {
	if env.Log == nil {
		env.Log = logrus.StandardLogger()
	}
	if env.Codec == nil {
		env.Codec = imaging.StdCodec{}
	}

	switch file.MimeSubtype() {
	case "mp3":
		return &ID3v2Track{file: file, env: env}
	case "ape":
		return &APETrack{file: file, env: env}
	default:
		return &GenericTrack{file: file, env: env}
	}
}
