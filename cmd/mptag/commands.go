package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/solidcopy/mptag/internal/model"
	"github.com/solidcopy/mptag/internal/service"
	"github.com/solidcopy/mptag/internal/track"
)

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <file|dir>...",
		Short: "タグの内容を表示する",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := service.ExpandPaths(args)
			if err != nil {
				return err
			}

			opts := a.cfg.TrackOptions()
			opts.ReadProperties = true
			s := service.New(track.New(a.log, opts), a.log, a.cfg.Workers)

			tracks, err := s.ReadTracks(cmd.Context(), paths)
			if err != nil {
				return err
			}
			for _, t := range tracks {
				if t != nil {
					printTrack(cmd.OutOrStdout(), t)
				}
			}
			return nil
		},
	}
}

func printTrack(w io.Writer, t *model.Track) {
	fmt.Fprintln(w, t.FullFileName)

	field := func(name, value string) {
		if value != "" {
			fmt.Fprintf(w, "  %-13s %s\n", name+":", value)
		}
	}
	pair := func(num, total int) string {
		return model.FormatNumberPair(num, total)
	}

	field("Format", tagType(t))
	field("Tags", tagKinds(t.TagKinds))
	field("Title", t.Title)
	field("Artist", t.Artist)
	field("Album", t.Album)
	field("Album artist", t.AlbumArtist)
	field("Composer", t.Composer)
	field("Conductor", t.Conductor)
	field("Genre", t.Genre)
	field("Grouping", t.Grouping)
	field("Year", model.FormatInt(t.Year))
	field("Track", pair(t.TrackNumber, t.TrackCount))
	field("Disc", pair(t.DiscNumber, t.DiscCount))
	field("BPM", model.FormatInt(t.BPM))
	field("Copyright", t.Copyright)
	field("Comment", t.Comment)
	field("Rating", model.FormatInt(t.Rating))
	if t.Compilation {
		field("Compilation", "yes")
	}
	if t.Lyrics != "" {
		field("Lyrics", fmt.Sprintf("%d lines", strings.Count(t.Lyrics, "\n")+1))
	}
	for i, p := range t.Pictures {
		b := p.Data.Bounds()
		field(fmt.Sprintf("Picture %d", i+1), fmt.Sprintf("type %d, %s, %dx%d", p.Type, p.MimeType, b.Dx(), b.Dy()))
	}
	for _, r := range t.Ratings {
		field("POPM", fmt.Sprintf("%s rating %d, played %d", r.User, r.Rating, r.PlayCount))
	}
	for _, id := range t.Frames.IDs() {
		field(id, t.Frames[id])
	}

	props := t.Properties
	if props.FileSize > 0 {
		field("Length", props.Duration.Round(time.Second).String())
		field("Bitrate", fmt.Sprintf("%d kbps", props.BitRate))
		field("Sample rate", fmt.Sprintf("%d Hz", props.SampleRate))
		field("Size", humanize.IBytes(uint64(props.FileSize)))
		field("Modified", humanize.Time(props.ModTime))
	}
	if t.Readonly {
		field("Readonly", "yes")
	}
	fmt.Fprintln(w)
}

func tagType(t *model.Track) string {
	if t.ID3Version > 0 {
		return fmt.Sprintf("%s (ID3v2.%d)", t.TagType, t.ID3Version)
	}
	return t.TagType
}

func tagKinds(kinds []model.TagKind) string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return strings.Join(names, ", ")
}

// setFlags は set コマンドで指定された項目だけを書き換える。
type setFlags struct {
	title, artist, album, albumArtist string
	composer, conductor, genre        string
	grouping, copyright, comment      string
	year, bpm, rating                 int
	trackNumber, discNumber           string
	compilation                       bool
	frames                            []string
}

func newSetCmd(a *app) *cobra.Command {
	var f setFlags

	cmd := &cobra.Command{
		Use:   "set <file|dir>...",
		Short: "タグの項目を書き換える",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			edit, err := f.editFunc(cmd, a.cfg.RatingUser)
			if err != nil {
				return err
			}
			return a.edit(cmd, args, edit)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.title, "title", "", "タイトル")
	flags.StringVar(&f.artist, "artist", "", "アーティスト (; で区切って複数)")
	flags.StringVar(&f.album, "album", "", "アルバム")
	flags.StringVar(&f.albumArtist, "album-artist", "", "アルバムアーティスト")
	flags.StringVar(&f.composer, "composer", "", "作曲者")
	flags.StringVar(&f.conductor, "conductor", "", "指揮者")
	flags.StringVar(&f.genre, "genre", "", "ジャンル")
	flags.StringVar(&f.grouping, "grouping", "", "グループ")
	flags.StringVar(&f.copyright, "copyright", "", "著作権")
	flags.StringVar(&f.comment, "comment", "", "コメント")
	flags.IntVar(&f.year, "year", 0, "年")
	flags.IntVar(&f.bpm, "bpm", 0, "BPM")
	flags.IntVar(&f.rating, "rating", 0, "レーティング (0-255)")
	flags.StringVar(&f.trackNumber, "track", "", "トラック番号 (N または N/M)")
	flags.StringVar(&f.discNumber, "disc", "", "ディスク番号 (N または N/M)")
	flags.BoolVar(&f.compilation, "compilation", false, "コンピレーション")
	flags.StringArrayVar(&f.frames, "frame", nil, "ID3v2テキストフレーム (ID=TEXT)")

	return cmd
}

func (f *setFlags) editFunc(cmd *cobra.Command, ratingUser string) (service.EditFunc, error) {
	changed := cmd.Flags().Changed

	frames := map[string]string{}
	for _, kv := range f.frames {
		id, text, ok := strings.Cut(kv, "=")
		if !ok || id == "" {
			return nil, fmt.Errorf("フレームの指定が不正です。 %q", kv)
		}
		id = strings.ToUpper(id)
		if model.IsReservedFrame(id) {
			return nil, fmt.Errorf("%s: %w", id, model.ErrReservedFrame)
		}
		frames[id] = text
	}

	strs := []struct {
		name string
		dst  func(*model.Track) *string
		src  string
	}{
		{"title", func(t *model.Track) *string { return &t.Title }, f.title},
		{"artist", func(t *model.Track) *string { return &t.Artist }, f.artist},
		{"album", func(t *model.Track) *string { return &t.Album }, f.album},
		{"album-artist", func(t *model.Track) *string { return &t.AlbumArtist }, f.albumArtist},
		{"composer", func(t *model.Track) *string { return &t.Composer }, f.composer},
		{"conductor", func(t *model.Track) *string { return &t.Conductor }, f.conductor},
		{"genre", func(t *model.Track) *string { return &t.Genre }, f.genre},
		{"grouping", func(t *model.Track) *string { return &t.Grouping }, f.grouping},
		{"copyright", func(t *model.Track) *string { return &t.Copyright }, f.copyright},
		{"comment", func(t *model.Track) *string { return &t.Comment }, f.comment},
	}

	return func(_ int, t *model.Track) error {
		for _, s := range strs {
			if changed(s.name) {
				*s.dst(t) = s.src
			}
		}
		if changed("year") {
			t.Year = f.year
		}
		if changed("bpm") {
			t.BPM = f.bpm
		}
		if changed("track") {
			t.TrackNumber, t.TrackCount = model.ParseNumberPair(f.trackNumber)
		}
		if changed("disc") {
			t.DiscNumber, t.DiscCount = model.ParseNumberPair(f.discNumber)
		}
		if changed("compilation") {
			t.Compilation = f.compilation
		}
		if changed("rating") {
			t.SetRating(ratingUser, f.rating)
		}
		for id, text := range frames {
			if err := t.Frames.Set(id, text); err != nil {
				return err
			}
		}
		t.Changed = true
		return nil
	}, nil
}

func newClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <file|dir>...",
		Short: "編集可能な項目を全て消す",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.edit(cmd, args, func(_ int, t *model.Track) error {
				a.reconciler.ClearTag(t).Changed = true
				return nil
			})
		},
	}
}

func newStripCmd(a *app) *cobra.Command {
	var kinds []string

	cmd := &cobra.Command{
		Use:   "strip <file|dir>...",
		Short: "指定した形式のタグを削除する",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(kinds) == 0 {
				return errors.New("--kind を指定してください。")
			}
			var parsed []model.TagKind
			for _, k := range kinds {
				kind, ok := model.ParseTagKind(strings.ToLower(k))
				if !ok {
					return fmt.Errorf("タグの形式が不正です。 %q", k)
				}
				parsed = append(parsed, kind)
			}
			return a.edit(cmd, args, func(_ int, t *model.Track) error {
				for _, kind := range parsed {
					t.MarkRemoved(kind)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&kinds, "kind", nil, "削除する形式 (id3v1, id3v2, ape, generic)")
	return cmd
}

func (a *app) edit(cmd *cobra.Command, args []string, edit service.EditFunc) error {
	paths, err := service.ExpandPaths(args)
	if err != nil {
		return err
	}
	failed, err := a.service.Edit(cmd.Context(), paths, edit)
	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d/%d件のファイルを処理できませんでした。", failed, len(paths))
	}
	return nil
}
