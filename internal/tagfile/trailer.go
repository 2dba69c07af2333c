package tagfile

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/bogem/id3v2/v2"
	"github.com/dhowden/tag"

	"github.com/solidcopy/mptag/internal/ape"
	"github.com/solidcopy/mptag/internal/id3v1"
)

const monkeyMagic = "MAC "

func (f *File) openMPEG() error {
	r, err := os.Open(f.path)
	if err != nil {
		return ioFailure(f.path, err)
	}
	defer r.Close()

	hasV2, err := sniffMPEG(f.path, r)
	if err != nil {
		return err
	}

	if err := f.readTrailer(r); err != nil {
		return err
	}

	v2, err := id3v2.Open(f.path, id3v2.Options{Parse: true})
	if errors.Is(err, id3v2.ErrUnsupportedVersion) {
		return unsupported(f.path, err)
	}
	if err != nil {
		return corrupt(f.path, fmt.Errorf("parse ID3v2 tag: %w", err))
	}
	f.v2 = v2
	f.hasV2 = hasV2

	return nil
}

// mp3の中身を確認する。ID3v2タグがあれば true を返す。
func sniffMPEG(path string, r io.ReadSeeker) (bool, error) {
	format, fileType, err := tag.Identify(r)
	switch {
	case errors.Is(err, tag.ErrNoTagsFound):
		// タグの無いMPEGストリームはフレーム同期で確認する
		if !frameSync(r) {
			return false, corrupt(path, errors.New("no MPEG frame sync"))
		}
		return false, nil
	case err != nil:
		return false, corrupt(path, err)
	case format == tag.ID3v2_2:
		return false, unsupported(path, errors.New("ID3v2.2 tag"))
	case fileType != tag.MP3:
		return false, corrupt(path, fmt.Errorf("%s content in an mp3 file", fileType))
	}
	return format == tag.ID3v2_3 || format == tag.ID3v2_4, nil
}

func frameSync(r io.ReadSeeker) bool {
	var b [2]byte
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return false
	}
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return false
	}
	return b[0] == 0xff && b[1]&0xe0 == 0xe0
}

func (f *File) openMonkey() error {
	r, err := os.Open(f.path)
	if err != nil {
		return ioFailure(f.path, err)
	}
	defer r.Close()

	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return corrupt(f.path, err)
	}
	if string(magic[:]) != monkeyMagic {
		return corrupt(f.path, errors.New("missing Monkey's Audio header"))
	}

	return f.readTrailer(r)
}

func (f *File) readTrailer(r io.ReadSeeker) error {
	apeTag, _, err := ape.Read(r)
	if errors.Is(err, ape.ErrCorrupt) {
		return corrupt(f.path, err)
	}
	if err != nil {
		return ioFailure(f.path, err)
	}
	f.apeTag = apeTag

	f.v1, err = id3v1.Read(r)
	if err != nil {
		return ioFailure(f.path, err)
	}
	return nil
}

// 末尾のAPEとID3v1を切り落として書き直す。
func (f *File) writeTrailer() error {
	w, err := os.OpenFile(f.path, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	defer w.Close()

	start, err := trailerStart(w)
	if err != nil {
		return fmt.Errorf("find tag trailer: %w", err)
	}
	if err := w.Truncate(start); err != nil {
		return err
	}
	if _, err := w.Seek(start, io.SeekStart); err != nil {
		return err
	}

	if f.apeTag != nil && !f.apeTag.IsEmpty() {
		if _, err := w.Write(f.apeTag.Bytes()); err != nil {
			return fmt.Errorf("write APE tag: %w", err)
		}
	}
	if f.v1 != nil && !f.v1.IsEmpty() {
		if _, err := w.Write(f.v1.Bytes()); err != nil {
			return fmt.Errorf("write ID3v1 tag: %w", err)
		}
	}

	return w.Close()
}

// APEタグの先頭、無ければID3v1タグの先頭、どちらも無ければファイル末尾を返す。
func trailerStart(r io.ReadSeeker) (int64, error) {
	_, region, err := ape.Read(r)
	if err != nil {
		return 0, err
	}
	if region != nil {
		return region.Offset, nil
	}

	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if size < id3v1.Size {
		return size, nil
	}

	buf := make([]byte, id3v1.Size)
	if _, err := r.Seek(size-id3v1.Size, io.SeekStart); err != nil {
		return 0, err
	}
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	if id3v1.IsTag(buf) {
		return size - id3v1.Size, nil
	}
	return size, nil
}
