package services

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tvcms/utils"
)

func newTestMediaService(t *testing.T) *MediaService {
	return newMediaServiceWith(t, nil)
}

func newMediaServiceWith(t *testing.T, tune func(*MediaConfig)) *MediaService {
	t.Helper()
	log, _ := logtest.NewNullLogger()
	cfg := MediaConfig{
		FFprobePath:     "ffprobe",
		FFmpegPath:      "ffmpeg",
		ThumbnailWidth:  320,
		ThumbnailHeight: 180,
		ThumbnailOffset: "00:00:02",
		Workers:         2,
	}
	if tune != nil {
		tune(&cfg)
	}
	return NewMediaService(cfg, log)
}

func writePNG(t *testing.T, path string, width, height int) {
	t.Helper()
	out, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(out, image.NewRGBA(image.Rect(0, 0, width, height))))
	require.NoError(t, out.Close())
}

// writeScript installs an executable shell script and returns its path
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestCoverThumbnailFillsTarget(t *testing.T) {
	tall := image.NewRGBA(image.Rect(0, 0, 100, 400))
	thumb := CoverThumbnail(tall, 320, 180)
	assert.Equal(t, 320, thumb.Bounds().Dx())
	assert.Equal(t, 180, thumb.Bounds().Dy())

	// fully transparent input flattens to white
	r, g, b, a := thumb.At(160, 90).RGBA()
	assert.Equal(t, uint32(0xffff), r)
	assert.Equal(t, uint32(0xffff), g)
	assert.Equal(t, uint32(0xffff), b)
	assert.Equal(t, uint32(0xffff), a)
}

func TestProcessImageWritesJPEGThumbnail(t *testing.T) {
	ms := newTestMediaService(t)
	dir := t.TempDir()
	source := filepath.Join(dir, "still.png")
	thumbPath := filepath.Join(dir, "thumb_still.jpg")

	img := image.NewRGBA(image.Rect(0, 0, 640, 480))
	for y := 0; y < 480; y++ {
		for x := 0; x < 640; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 20, B: 20, A: 255})
		}
	}
	out, err := os.Create(source)
	require.NoError(t, err)
	require.NoError(t, png.Encode(out, img))
	require.NoError(t, out.Close())

	info, err := ms.Process(context.Background(), utils.CategoryImage, source, thumbPath)
	require.NoError(t, err)
	require.NotNil(t, info)
	require.NotNil(t, info.Resolution)
	assert.Equal(t, "640x480", *info.Resolution)
	assert.Equal(t, "png", info.Metadata["format"])
	assert.Equal(t, thumbPath, info.ThumbnailPath)

	f, err := os.Open(thumbPath)
	require.NoError(t, err)
	defer f.Close()
	thumb, err := jpeg.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 320, thumb.Bounds().Dx())
	assert.Equal(t, 180, thumb.Bounds().Dy())
}

func TestProcessImageFailureRemovesPartialThumbnail(t *testing.T) {
	ms := newTestMediaService(t)
	dir := t.TempDir()
	source := filepath.Join(dir, "broken.png")
	thumbPath := filepath.Join(dir, "thumb_broken.jpg")
	// valid signature, corrupt chunk stream
	require.NoError(t, os.WriteFile(source, []byte("\x89PNG\r\n\x1a\ngarbage!garbage!"), 0644))
	require.NoError(t, os.WriteFile(thumbPath, []byte("partial"), 0644))

	info, err := ms.Process(context.Background(), utils.CategoryImage, source, thumbPath)
	assert.Error(t, err)
	assert.Nil(t, info)
	assert.NoFileExists(t, thumbPath)
}

func TestProcessImageSkipsUndecodableFormats(t *testing.T) {
	ms := newTestMediaService(t)
	dir := t.TempDir()

	sources := map[string][]byte{
		"logo.svg": []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="10" height="10"><rect width="10" height="10"/></svg>`),
		"icon.ico": {0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x10, 0x10, 0x00, 0x00, 0x01, 0x00, 0x20, 0x00},
	}
	for name, data := range sources {
		t.Run(name, func(t *testing.T) {
			source := filepath.Join(dir, name)
			thumbPath := filepath.Join(dir, "thumb_"+name+".jpg")
			require.NoError(t, os.WriteFile(source, data, 0644))

			info, err := ms.Process(context.Background(), utils.CategoryImage, source, thumbPath)
			require.NoError(t, err)
			assert.Nil(t, info)
			assert.NoFileExists(t, thumbPath)
		})
	}
}

func TestProcessImageOverPixelBudgetKeepsResolutionOnly(t *testing.T) {
	ms := newMediaServiceWith(t, func(cfg *MediaConfig) { cfg.MaxImagePixels = 1000 })
	dir := t.TempDir()
	source := filepath.Join(dir, "poster.png")
	thumbPath := filepath.Join(dir, "thumb_poster.jpg")
	writePNG(t, source, 100, 100)

	info, err := ms.Process(context.Background(), utils.CategoryImage, source, thumbPath)
	require.NoError(t, err)
	require.NotNil(t, info)
	require.NotNil(t, info.Resolution)
	assert.Equal(t, "100x100", *info.Resolution)
	assert.Equal(t, "png", info.Metadata["format"])
	assert.Empty(t, info.ThumbnailPath)
	assert.NoFileExists(t, thumbPath)
}

func TestProcessImageWaitsForPixelBudget(t *testing.T) {
	ms := newMediaServiceWith(t, func(cfg *MediaConfig) { cfg.MaxImagePixels = 10_000 })
	dir := t.TempDir()
	source := filepath.Join(dir, "still.png")
	writePNG(t, source, 100, 100)

	// another decode holds the whole budget
	require.NoError(t, ms.pixels.Acquire(context.Background(), 10_000))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := ms.Process(ctx, utils.CategoryImage, source, filepath.Join(dir, "thumb.jpg"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	ms.pixels.Release(10_000)
	info, err := ms.Process(context.Background(), utils.CategoryImage, source, filepath.Join(dir, "thumb.jpg"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "thumb.jpg"), info.ThumbnailPath)
}

func TestNewMediaServiceDefaultsPixelBudget(t *testing.T) {
	ms := newTestMediaService(t)
	assert.Equal(t, int64(DefaultMaxImagePixels), ms.cfg.MaxImagePixels)
}

const probeVideoJSON = `{
  "streams": [
    {"codec_type": "audio", "codec_name": "aac"},
    {"codec_type": "video", "codec_name": "h264", "width": 1920, "height": 1080}
  ],
  "format": {"format_name": "mov,mp4,m4a", "duration": "%s", "bit_rate": "4500000", "size": "7340032"}
}`

// fakeFFmpeg records its arguments and writes a frame to the output path
func fakeFFmpeg(t *testing.T, dir string) (binary, argsFile string) {
	argsFile = filepath.Join(dir, "ffmpeg.args")
	binary = writeScript(t, dir, "ffmpeg", `for last; do :; done
echo "$@" > "`+argsFile+`"
printf 'jpeg' > "$last"
`)
	return binary, argsFile
}

func fakeFFprobe(t *testing.T, dir, output string) string {
	return writeScript(t, dir, "ffprobe", "cat <<'EOF'\n"+output+"\nEOF\n")
}

func TestProcessVideoReadsProbeAndCapturesFrame(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-ins need a POSIX shell")
	}
	dir := t.TempDir()
	ffmpeg, argsFile := fakeFFmpeg(t, dir)
	ffprobe := fakeFFprobe(t, dir, fmt.Sprintf(probeVideoJSON, "12.6"))
	ms := newMediaServiceWith(t, func(cfg *MediaConfig) {
		cfg.FFprobePath = ffprobe
		cfg.FFmpegPath = ffmpeg
	})
	thumbPath := filepath.Join(dir, "thumb_clip.jpg")

	info, err := ms.Process(context.Background(), utils.CategoryVideo, filepath.Join(dir, "clip.mp4"), thumbPath)
	require.NoError(t, err)
	require.NotNil(t, info)
	require.NotNil(t, info.Duration)
	assert.Equal(t, 13, *info.Duration)
	require.NotNil(t, info.Resolution)
	assert.Equal(t, "1920x1080", *info.Resolution)
	require.NotNil(t, info.Codec)
	assert.Equal(t, "h264", *info.Codec)
	assert.Equal(t, "mov,mp4,m4a", info.Metadata["format"])
	assert.Equal(t, int64(4500000), info.Metadata["bitrate"])
	assert.Equal(t, thumbPath, info.ThumbnailPath)
	assert.FileExists(t, thumbPath)

	args, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	assert.Contains(t, string(args), "-ss 00:00:02 ")
	assert.Contains(t, string(args), "scale=320:180")
}

func TestProcessVideoShortClipUsesMiddleFrame(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-ins need a POSIX shell")
	}
	dir := t.TempDir()
	ffmpeg, argsFile := fakeFFmpeg(t, dir)
	ffprobe := fakeFFprobe(t, dir, fmt.Sprintf(probeVideoJSON, "1.5"))
	ms := newMediaServiceWith(t, func(cfg *MediaConfig) {
		cfg.FFprobePath = ffprobe
		cfg.FFmpegPath = ffmpeg
	})

	info, err := ms.Process(context.Background(), utils.CategoryVideo, filepath.Join(dir, "sting.mp4"), filepath.Join(dir, "thumb_sting.jpg"))
	require.NoError(t, err)
	require.NotNil(t, info.Duration)
	assert.Equal(t, 2, *info.Duration)

	args, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	assert.Contains(t, string(args), "-ss 0.750 ")
}

func TestProcessVideoWithoutVideoStreamFails(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-ins need a POSIX shell")
	}
	dir := t.TempDir()
	ffmpeg, argsFile := fakeFFmpeg(t, dir)
	ffprobe := fakeFFprobe(t, dir, `{"streams": [{"codec_type": "audio", "codec_name": "mp3"}], "format": {"duration": "180.0"}}`)
	ms := newMediaServiceWith(t, func(cfg *MediaConfig) {
		cfg.FFprobePath = ffprobe
		cfg.FFmpegPath = ffmpeg
	})
	thumbPath := filepath.Join(dir, "thumb_radio.jpg")
	require.NoError(t, os.WriteFile(thumbPath, []byte("partial"), 0644))

	info, err := ms.Process(context.Background(), utils.CategoryVideo, filepath.Join(dir, "radio.mp4"), thumbPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no video stream")
	assert.Nil(t, info)
	assert.NoFileExists(t, thumbPath)
	assert.NoFileExists(t, argsFile)
}

func TestProcessVideoReportsProbeFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-ins need a POSIX shell")
	}
	dir := t.TempDir()
	ffprobe := writeScript(t, dir, "ffprobe", "echo 'moov atom not found' >&2\nexit 1\n")
	ms := newMediaServiceWith(t, func(cfg *MediaConfig) { cfg.FFprobePath = ffprobe })

	_, err := ms.Process(context.Background(), utils.CategoryVideo, filepath.Join(dir, "broken.mp4"), filepath.Join(dir, "thumb.jpg"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "moov atom not found")
}

func TestProcessSkipsOtherCategories(t *testing.T) {
	ms := newTestMediaService(t)
	for _, category := range []string{utils.CategoryAudio, utils.CategoryDocument, utils.CategoryText, utils.CategoryOther} {
		info, err := ms.Process(context.Background(), category, "/does/not/exist", "/does/not/exist.jpg")
		assert.NoError(t, err, category)
		assert.Nil(t, info, category)
	}
}

func TestThumbnailOffset(t *testing.T) {
	ms := newTestMediaService(t)
	assert.Equal(t, "00:00:02", ms.thumbnailOffset(60))
	assert.Equal(t, "00:00:02", ms.thumbnailOffset(0))
	assert.Equal(t, "0.750", ms.thumbnailOffset(1.5))
	assert.Equal(t, "1.000", ms.thumbnailOffset(2))
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"00:00:02", 2, true},
		{"01:02:03.5", 3723.5, true},
		{"90", 90, true},
		{"1:2:3:4", 0, false},
		{"aa:bb", 0, false},
		{"-1", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseTimestamp(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		if tt.ok {
			assert.InDelta(t, tt.want, got, 1e-9, tt.in)
		}
	}
}
