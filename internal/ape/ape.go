package ape

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/solidcopy/mptag/internal/id3v1"
)

const (
	preamble   = "APETAGEX"
	footerSize = 32
	version2   = 2000

	flagHasHeader = 1 << 31
	flagIsHeader  = 1 << 29

	itemTypeShift = 1
	itemTypeMask  = 3 << itemTypeShift
	itemReadOnly  = 1
)

var ErrCorrupt = errors.New("corrupt APE tag")

type ItemType int

const (
	TextItem ItemType = iota
	BinaryItem
	LocatorItem
)

type Item struct {
	Key      string
	Type     ItemType
	ReadOnly bool
	Value    []byte
}

// Values はテキスト項目の値を返す。APEv2では複数の値をNULで区切る。
func (i *Item) Values() []string {
	if i.Type == BinaryItem || len(i.Value) == 0 {
		return nil
	}
	return strings.Split(string(i.Value), "\x00")
}

func (i *Item) String() string {
	values := i.Values()
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

type Tag struct {
	items []*Item
}

func New() *Tag {
	return &Tag{}
}

// Region はファイル内のAPEタグの位置。
type Region struct {
	Offset int64
	Length int64
}

// Read はファイル末尾(ID3v1があればその直前)のAPEタグを読む。
// タグが無ければ nil を返す。
func Read(r io.ReadSeeker) (*Tag, *Region, error) {
	end, err := trailerEnd(r)
	if err != nil {
		return nil, nil, err
	}
	if end < footerSize {
		return nil, nil, nil
	}

	footer := make([]byte, footerSize)
	if _, err := r.Seek(end-footerSize, io.SeekStart); err != nil {
		return nil, nil, err
	}
	if _, err := io.ReadFull(r, footer); err != nil {
		return nil, nil, err
	}
	if string(footer[:8]) != preamble {
		return nil, nil, nil
	}

	tagSize := int64(binary.LittleEndian.Uint32(footer[12:16]))
	count := int(binary.LittleEndian.Uint32(footer[16:20]))
	flags := binary.LittleEndian.Uint32(footer[20:24])

	if flags&flagIsHeader != 0 || tagSize < footerSize || tagSize > end {
		return nil, nil, fmt.Errorf("%w: invalid footer", ErrCorrupt)
	}

	itemsStart := end - tagSize
	region := &Region{Offset: itemsStart, Length: tagSize}
	if flags&flagHasHeader != 0 && itemsStart >= footerSize {
		region.Offset -= footerSize
		region.Length += footerSize
	}

	body := make([]byte, tagSize-footerSize)
	if _, err := r.Seek(itemsStart, io.SeekStart); err != nil {
		return nil, nil, err
	}
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, nil, err
	}

	tag, err := parseItems(body, count)
	if err != nil {
		return nil, nil, err
	}
	return tag, region, nil
}

// ID3v1タグがあればその先頭、無ければファイル末尾を返す。
func trailerEnd(r io.ReadSeeker) (int64, error) {
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if size < id3v1.Size {
		return size, nil
	}

	trailer := make([]byte, id3v1.Size)
	if _, err := r.Seek(size-id3v1.Size, io.SeekStart); err != nil {
		return 0, err
	}
	if _, err := io.ReadFull(r, trailer); err != nil {
		return 0, err
	}
	if id3v1.IsTag(trailer) {
		return size - id3v1.Size, nil
	}
	return size, nil
}

func parseItems(body []byte, count int) (*Tag, error) {
	tag := New()
	pos := 0
	for n := 0; n < count; n++ {
		if pos+8 > len(body) {
			return nil, fmt.Errorf("%w: item %d overflows tag", ErrCorrupt, n)
		}
		size := int(binary.LittleEndian.Uint32(body[pos : pos+4]))
		flags := binary.LittleEndian.Uint32(body[pos+4 : pos+8])
		pos += 8

		keyEnd := bytes.IndexByte(body[pos:], 0)
		if keyEnd < 0 {
			return nil, fmt.Errorf("%w: unterminated key in item %d", ErrCorrupt, n)
		}
		key := string(body[pos : pos+keyEnd])
		pos += keyEnd + 1

		if size < 0 || pos+size > len(body) {
			return nil, fmt.Errorf("%w: value of %q overflows tag", ErrCorrupt, key)
		}
		value := make([]byte, size)
		copy(value, body[pos:pos+size])
		pos += size

		tag.items = append(tag.items, &Item{
			Key:      key,
			Type:     ItemType((flags & itemTypeMask) >> itemTypeShift),
			ReadOnly: flags&itemReadOnly != 0,
			Value:    value,
		})
	}
	return tag, nil
}

// Item はキーに一致する項目を返す。キーの大文字小文字は区別しない。
func (t *Tag) Item(key string) *Item {
	for _, item := range t.items {
		if strings.EqualFold(item.Key, key) {
			return item
		}
	}
	return nil
}

func (t *Tag) Items() []*Item {
	return t.items
}

func (t *Tag) IsEmpty() bool {
	return len(t.items) == 0
}

// SetText はテキスト項目を設定する。値が全て空なら項目を削除する。
func (t *Tag) SetText(key string, values ...string) {
	nonEmpty := values[:0:0]
	for _, v := range values {
		if v != "" {
			nonEmpty = append(nonEmpty, v)
		}
	}
	if len(nonEmpty) == 0 {
		t.Remove(key)
		return
	}
	t.set(&Item{Key: key, Type: TextItem, Value: []byte(strings.Join(nonEmpty, "\x00"))})
}

func (t *Tag) SetBinary(key string, data []byte) {
	if len(data) == 0 {
		t.Remove(key)
		return
	}
	t.set(&Item{Key: key, Type: BinaryItem, Value: data})
}

func (t *Tag) set(item *Item) {
	for i, existing := range t.items {
		if strings.EqualFold(existing.Key, item.Key) {
			item.Key = existing.Key
			t.items[i] = item
			return
		}
	}
	t.items = append(t.items, item)
}

func (t *Tag) Remove(key string) {
	items := t.items[:0]
	for _, item := range t.items {
		if !strings.EqualFold(item.Key, key) {
			items = append(items, item)
		}
	}
	t.items = items
}

// Bytes はヘッダとフッタを持つAPEv2タグを返す。
func (t *Tag) Bytes() []byte {
	var body bytes.Buffer
	for _, item := range t.items {
		var head [8]byte
		flags := uint32(item.Type) << itemTypeShift
		if item.ReadOnly {
			flags |= itemReadOnly
		}
		binary.LittleEndian.PutUint32(head[0:4], uint32(len(item.Value)))
		binary.LittleEndian.PutUint32(head[4:8], flags)
		body.Write(head[:])
		body.WriteString(item.Key)
		body.WriteByte(0)
		body.Write(item.Value)
	}

	tagSize := uint32(body.Len() + footerSize)
	count := uint32(len(t.items))

	out := make([]byte, 0, footerSize*2+body.Len())
	out = append(out, frameHeader(tagSize, count, flagHasHeader|flagIsHeader)...)
	out = append(out, body.Bytes()...)
	out = append(out, frameHeader(tagSize, count, flagHasHeader)...)
	return out
}

func frameHeader(tagSize, count, flags uint32) []byte {
	b := make([]byte, footerSize)
	copy(b, preamble)
	binary.LittleEndian.PutUint32(b[8:12], version2)
	binary.LittleEndian.PutUint32(b[12:16], tagSize)
	binary.LittleEndian.PutUint32(b[16:20], count)
	binary.LittleEndian.PutUint32(b[20:24], flags)
	return b
}
