package main

import (
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	mptag "github.com/solidcopy/mptag/internal"
	"github.com/solidcopy/mptag/internal/config"
	"github.com/solidcopy/mptag/internal/logging"
	"github.com/solidcopy/mptag/internal/service"
	"github.com/solidcopy/mptag/internal/tags_file"
	"github.com/solidcopy/mptag/internal/track"
)

type app struct {
	cfg        *config.Config
	log        *logrus.Logger
	reconciler *track.Reconciler
	service    *service.Service
}

func (a *app) setup(cfgFile, logLevel string) error {
	paths := config.DefaultPaths()
	if cfgFile != "" {
		paths = append(paths, cfgFile)
	}
	cfg, err := config.Load(paths...)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	a.cfg = cfg
	a.log = logging.New(cfg.Log.Level, cfg.Log.Format)
	a.reconciler = track.New(a.log, cfg.TrackOptions())
	a.service = service.New(a.reconciler, a.log, cfg.Workers)
	return nil
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var cfgFile, logLevel string

	cmd := &cobra.Command{
		Use:   "mptag [dir]",
		Short: "オーディオファイルのタグを編集する",
		Long: `オーディオファイルのタグ(ID3v1、ID3v2、APE、FLAC、MP4 など)を読み書きする。

引数無しで実行すると、ディレクトリに tags ファイルがあればインポートとリネームを、
無ければエクスポートを行う。`,
		Version:       mptag.Version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cfgFile, logLevel)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := targetDir(args)
			if err != nil {
				return err
			}
			for _, run := range a.selectServicesByFile(dir) {
				if err := run(cmd, dir); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "設定ファイル")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "ログレベル (debug, info, warn, error)")

	cmd.AddCommand(
		newDirCmd("export", "e", "タグをtagsファイルとFolder画像に書き出す", a.export),
		newDirCmd("import", "i", "tagsファイルとFolder画像の内容をタグに書き込む", a.importTags),
		newDirCmd("rename", "r", "タグの番号とタイトルでファイル名を付け直す", a.rename),
		newShowCmd(a),
		newSetCmd(a),
		newClearCmd(a),
		newStripCmd(a),
	)

	return cmd
}

type serviceFunc func(cmd *cobra.Command, dir string) error

func (a *app) export(cmd *cobra.Command, dir string) error {
	return a.service.Export(cmd.Context(), dir)
}

func (a *app) importTags(cmd *cobra.Command, dir string) error {
	return a.service.Import(cmd.Context(), dir)
}

func (a *app) rename(cmd *cobra.Command, dir string) error {
	return a.service.Rename(cmd.Context(), dir)
}

func (a *app) selectServicesByFile(dir string) []serviceFunc {
	tagsFilePath := filepath.Join(dir, tags_file.FileName)
	if _, err := os.Stat(tagsFilePath); err == nil {
		return []serviceFunc{a.importTags, a.rename}
	}
	return []serviceFunc{a.export}
}

func newDirCmd(use, alias, short string, run serviceFunc) *cobra.Command {
	return &cobra.Command{
		Use:     use + " [dir]",
		Aliases: []string{alias},
		Short:   short,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := targetDir(args)
			if err != nil {
				return err
			}
			return run(cmd, dir)
		},
	}
}

// 引数が無ければカレントディレクトリ。
func targetDir(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	return os.Getwd()
}
