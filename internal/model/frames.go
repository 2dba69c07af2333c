package model

import (
	"errors"
	"fmt"

	"golang.org/x/exp/slices"
)

var ErrReservedFrame = errors.New("frame is represented by a named field")

// 名前付きフィールドで表現しているフレーム。
// TDRC と TCMP は年とコンピレーションのID3v2.4での表現。
var reservedFrames = []string{
	"TPE1", "TPE2", "TALB", "TBPM", "COMM", "TCOM", "TPE3", "TCOP", "TPOS",
	"TCON", "TIT1", "USLT", "APIC", "POPM", "TIT2", "TRCK", "TYER",
	"TDRC", "TCMP",
}

func IsReservedFrame(id string) bool {
	return slices.Contains(reservedFrames, id)
}

// Frames はフレームIDからテキストへの対応。予約済みのIDは入らない。
type Frames map[string]string

// Add は未登録のIDだけを追加する。追加したら true を返す。
func (f Frames) Add(id, text string) bool {
	if IsReservedFrame(id) {
		return false
	}
	if _, ok := f[id]; ok {
		return false
	}
	f[id] = text
	return true
}

// Set は既存の値を置き換える。
func (f Frames) Set(id, text string) error {
	if IsReservedFrame(id) {
		return fmt.Errorf("%s: %w", id, ErrReservedFrame)
	}
	f[id] = text
	return nil
}

// IDs はIDを昇順で返す。
func (f Frames) IDs() []string {
	ids := make([]string, 0, len(f))
	for id := range f {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
