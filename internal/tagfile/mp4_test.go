package tagfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/abema/go-mp4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var stcoPath = mp4.BoxPath{mp4.BoxTypeMoov(), mp4.BoxTypeTrak(), mp4.BoxTypeMdia(), mp4.BoxTypeMinf(), mp4.BoxTypeStbl(), mp4.BoxTypeStco()}

// writeMP4 はmoovの後ろにmdatを置いたファイルを書く。stcoは chunkOffset を指す。
func writeMP4(t *testing.T, path string, chunkOffset uint32, audio []byte, covers [][]byte) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := mp4.NewWriter(f)
	box := func(boxType mp4.BoxType, payload mp4.IBox, ctx mp4.Context, children func()) {
		_, err := w.StartBox(&mp4.BoxInfo{Type: boxType})
		require.NoError(t, err)
		if payload != nil {
			_, err = mp4.Marshal(w, payload, ctx)
			require.NoError(t, err)
		}
		if children != nil {
			children()
		}
		_, err = w.EndBox()
		require.NoError(t, err)
	}

	box(mp4.BoxTypeFtyp(), &mp4.Ftyp{MajorBrand: [4]byte{'M', '4', 'A', ' '}}, mp4.Context{}, nil)
	box(mp4.BoxTypeMoov(), nil, mp4.Context{}, func() {
		box(mp4.BoxTypeTrak(), nil, mp4.Context{}, func() {
			box(mp4.BoxTypeMdia(), nil, mp4.Context{}, func() {
				box(mp4.BoxTypeMinf(), nil, mp4.Context{}, func() {
					box(mp4.BoxTypeStbl(), nil, mp4.Context{}, func() {
						box(mp4.BoxTypeStco(), &mp4.Stco{EntryCount: 1, ChunkOffset: []uint32{chunkOffset}}, mp4.Context{}, nil)
					})
				})
			})
		})
		box(mp4.BoxTypeUdta(), nil, mp4.Context{}, func() {
			box(mp4.BoxTypeMeta(), &mp4.Meta{}, mp4.Context{UnderUdta: true}, func() {
				box(mp4.BoxTypeIlst(), nil, mp4.Context{UnderUdta: true}, func() {
					box(boxTypeCovr, nil, mp4.Context{UnderIlst: true}, func() {
						for _, c := range covers {
							box(mp4.BoxTypeData(), &mp4.Data{DataType: mp4.DataTypeBinary, Data: c}, mp4.Context{UnderIlstMeta: true}, nil)
						}
					})
				})
			})
		})
	})
	box(mp4.BoxTypeMdat(), &mp4.Mdat{Data: audio}, mp4.Context{}, nil)
}

func createMP4(t *testing.T, audio []byte, covers ...[]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.m4a")

	// mdatの位置が決まってからstcoを書き直す。ボックスの大きさは変わらない
	writeMP4(t, path, 0, audio, covers)
	f, err := os.Open(path)
	require.NoError(t, err)
	mdats, err := mp4.ExtractBox(f, nil, mp4.BoxPath{mp4.BoxTypeMdat()})
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.Len(t, mdats, 1)

	writeMP4(t, path, uint32(mdats[0].Offset+mdats[0].HeaderSize), audio, covers)
	return path
}

func readChunk(t *testing.T, path string, size int) []byte {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	boxes, err := mp4.ExtractBoxWithPayload(f, nil, stcoPath)
	require.NoError(t, err)
	require.Len(t, boxes, 1)
	stco := boxes[0].Payload.(*mp4.Stco)
	require.Len(t, stco.ChunkOffset, 1)

	chunk := make([]byte, size)
	_, err = f.ReadAt(chunk, int64(stco.ChunkOffset[0]))
	require.NoError(t, err)
	return chunk
}

func TestReadMP4Pictures(t *testing.T) {
	path := createMP4(t, []byte("audio"), []byte("first cover"), []byte("second cover"))

	pictures, err := readMP4Structure(path)
	require.NoError(t, err)
	require.Len(t, pictures, 2)
	assert.Equal(t, []byte("first cover"), pictures[0].Data)
	assert.Equal(t, []byte("second cover"), pictures[1].Data)
}

func TestReadMP4StructureRejectsOtherFiles(t *testing.T) {
	_, err := readMP4Structure(writeFile(t, "fake.m4a", flacMetadata()))
	assert.Error(t, err)
}

func TestWriteCoverArtKeepsEveryPicture(t *testing.T) {
	audio := []byte("audio frames after moov")
	path := createMP4(t, audio, []byte("only one"))
	require.Equal(t, audio, readChunk(t, path, len(audio)))

	pictures := []Picture{
		NewPicture(FrontCover, "image/png", "", pngBytes(t)),
		NewPicture(4, "", "", []byte("back cover")),
		NewPicture(5, "", "", []byte("leaflet")),
	}
	require.NoError(t, writeCoverArt(path, pictures))

	got, err := readMP4Structure(path)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := range pictures {
		assert.Equal(t, pictures[i].Data, got[i].Data)
	}

	// moovが大きくなった分だけチャンクの位置がずれている
	assert.Equal(t, audio, readChunk(t, path, len(audio)))

	_, err = os.Stat(path + ".mptag_temp")
	assert.True(t, os.IsNotExist(err))
}

func TestCovrDataType(t *testing.T) {
	assert.Equal(t, uint32(covrJPEG), covrDataType("image/jpeg"))
	assert.Equal(t, uint32(covrPNG), covrDataType("image/png"))
	assert.Equal(t, uint32(mp4.DataTypeBinary), covrDataType("application/octet-stream"))
}
