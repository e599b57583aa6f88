package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/semaphore"

	"tvcms/metrics"
	"tvcms/models"
	"tvcms/utils"
)

// MediaProcessor extracts metadata from a staged upload and renders its
// thumbnail to thumbnailPath. Categories without enrichment return nil info.
type MediaProcessor interface {
	Process(ctx context.Context, category, sourcePath, thumbnailPath string) (*models.MediaInfo, error)
}

// MediaConfig configures the ffmpeg and image pipeline
type MediaConfig struct {
	FFprobePath     string
	FFmpegPath      string
	ThumbnailWidth  int
	ThumbnailHeight int
	ThumbnailOffset string
	Timeout         time.Duration
	Workers         int
	// MaxImagePixels bounds width x height of one decode and of all
	// concurrent decodes together
	MaxImagePixels int64
}

// DefaultMaxImagePixels is the decode budget when none is configured
const DefaultMaxImagePixels = 100_000_000

// MediaService runs enrichment off the request path with a bounded number
// of concurrent jobs and a per-job timeout
type MediaService struct {
	cfg    MediaConfig
	sem    *semaphore.Weighted
	pixels *semaphore.Weighted
	log    *logrus.Logger
}

func NewMediaService(cfg MediaConfig, log *logrus.Logger) *MediaService {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.MaxImagePixels <= 0 {
		cfg.MaxImagePixels = DefaultMaxImagePixels
	}
	return &MediaService{
		cfg:    cfg,
		sem:    semaphore.NewWeighted(int64(cfg.Workers)),
		pixels: semaphore.NewWeighted(cfg.MaxImagePixels),
		log:    log,
	}
}

// Process enriches a staged file. Any partial thumbnail is removed on failure.
func (ms *MediaService) Process(ctx context.Context, category, sourcePath, thumbnailPath string) (*models.MediaInfo, error) {
	if category != utils.CategoryVideo && category != utils.CategoryImage {
		return nil, nil
	}

	if err := ms.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("enrichment queue: %w", err)
	}
	defer ms.sem.Release(1)

	if ms.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ms.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	var (
		info *models.MediaInfo
		err  error
	)
	switch category {
	case utils.CategoryVideo:
		info, err = ms.processVideo(ctx, sourcePath, thumbnailPath)
	case utils.CategoryImage:
		info, err = ms.processImage(ctx, sourcePath, thumbnailPath)
	}
	metrics.EnrichmentDuration.WithLabelValues(category).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.EnrichmentFailures.WithLabelValues(category).Inc()
		if removeErr := os.Remove(thumbnailPath); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			ms.log.WithError(removeErr).WithField("path", thumbnailPath).Warn("Failed to remove partial thumbnail")
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s enrichment timed out after %s: %w", category, ms.cfg.Timeout, err)
		}
		return nil, err
	}
	return info, nil
}

type probeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
		BitRate    string `json:"bit_rate"`
		Size       string `json:"size"`
	} `json:"format"`
}

func (ms *MediaService) processVideo(ctx context.Context, sourcePath, thumbnailPath string) (*models.MediaInfo, error) {
	out, err := ms.run(ctx, ms.cfg.FFprobePath,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		sourcePath,
	)
	if err != nil {
		return nil, fmt.Errorf("ffprobe: %w", err)
	}

	var probe probeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return nil, fmt.Errorf("ffprobe output: %w", err)
	}

	info := &models.MediaInfo{Metadata: map[string]interface{}{}}
	seconds, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err == nil {
		duration := int(math.Round(seconds))
		info.Duration = &duration
		info.Metadata["duration"] = duration
	}
	if bitrate, err := strconv.ParseInt(probe.Format.BitRate, 10, 64); err == nil {
		info.Metadata["bitrate"] = bitrate
	}
	if size, err := strconv.ParseInt(probe.Format.Size, 10, 64); err == nil {
		info.Metadata["size"] = size
	}
	if probe.Format.FormatName != "" {
		info.Metadata["format"] = probe.Format.FormatName
	}

	hasVideo := false
	for _, stream := range probe.Streams {
		if stream.CodecType != "video" {
			continue
		}
		hasVideo = true
		resolution := fmt.Sprintf("%dx%d", stream.Width, stream.Height)
		codec := stream.CodecName
		info.Resolution = &resolution
		info.Codec = &codec
		info.Metadata["resolution"] = resolution
		info.Metadata["codec"] = codec
		break
	}
	if !hasVideo {
		return nil, errors.New("ffprobe: no video stream found")
	}

	offset := ms.thumbnailOffset(seconds)
	_, err = ms.run(ctx, ms.cfg.FFmpegPath,
		"-y",
		"-ss", offset,
		"-i", sourcePath,
		"-frames:v", "1",
		"-vf", fmt.Sprintf("scale=%d:%d", ms.cfg.ThumbnailWidth, ms.cfg.ThumbnailHeight),
		thumbnailPath,
	)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg thumbnail: %w", err)
	}
	if _, err := os.Stat(thumbnailPath); err != nil {
		return nil, fmt.Errorf("ffmpeg thumbnail not produced: %w", err)
	}

	info.ThumbnailPath = thumbnailPath
	return info, nil
}

// thumbnailOffset keeps the configured capture point unless the clip is
// shorter, in which case the middle frame is used
func (ms *MediaService) thumbnailOffset(durationSeconds float64) string {
	offset := ms.cfg.ThumbnailOffset
	if offset == "" {
		offset = "00:00:02"
	}
	if durationSeconds <= 0 {
		return offset
	}
	if parsed, ok := parseTimestamp(offset); ok && parsed < durationSeconds {
		return offset
	}
	return strconv.FormatFloat(durationSeconds/2, 'f', 3, 64)
}

// parseTimestamp reads HH:MM:SS(.fff) or plain seconds
func parseTimestamp(ts string) (float64, bool) {
	parts := strings.Split(ts, ":")
	if len(parts) > 3 {
		return 0, false
	}
	total := 0.0
	for _, part := range parts {
		value, err := strconv.ParseFloat(part, 64)
		if err != nil || value < 0 {
			return 0, false
		}
		total = total*60 + value
	}
	return total, true
}

func (ms *MediaService) run(ctx context.Context, binary string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 512 {
			msg = msg[len(msg)-512:]
		}
		if msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

// processImage reads the header first so undecodable formats skip
// enrichment and oversized images never reach a full decode
func (ms *MediaService) processImage(ctx context.Context, sourcePath, thumbnailPath string) (*models.MediaInfo, error) {
	src, err := os.Open(sourcePath)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	header, format, err := image.DecodeConfig(src)
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			// SVG, ICO, AVIF, HEIC and friends are stored without a thumbnail
			ms.log.WithField("path", sourcePath).Debug("No decoder for image format, skipping enrichment")
			return nil, nil
		}
		return nil, fmt.Errorf("decode image header: %w", err)
	}

	resolution := fmt.Sprintf("%dx%d", header.Width, header.Height)
	info := &models.MediaInfo{
		Resolution: &resolution,
		Metadata: map[string]interface{}{
			"resolution": resolution,
			"format":     format,
		},
	}
	if stat, err := src.Stat(); err == nil {
		info.Metadata["size"] = stat.Size()
	}

	pixels := int64(header.Width) * int64(header.Height)
	if pixels <= 0 || pixels > ms.cfg.MaxImagePixels {
		ms.log.WithFields(logrus.Fields{
			"resolution": resolution,
			"max_pixels": ms.cfg.MaxImagePixels,
		}).Info("Image exceeds the decode budget, skipping thumbnail")
		return info, nil
	}

	// Concurrent decodes share one pixel budget
	if err := ms.pixels.Acquire(ctx, pixels); err != nil {
		return nil, fmt.Errorf("image decode queue: %w", err)
	}
	defer ms.pixels.Release(pixels)

	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	img, _, err := image.Decode(src)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	thumb := CoverThumbnail(img, ms.cfg.ThumbnailWidth, ms.cfg.ThumbnailHeight)

	out, err := os.Create(thumbnailPath)
	if err != nil {
		return nil, err
	}
	if err := jpeg.Encode(out, thumb, &jpeg.Options{Quality: 80}); err != nil {
		out.Close()
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	if err := out.Close(); err != nil {
		return nil, err
	}

	info.ThumbnailPath = thumbnailPath
	return info, nil
}

// CoverThumbnail scales img to fill width x height and crops the overflow
// around the center. Transparent areas are flattened onto white.
func CoverThumbnail(img image.Image, width, height int) *image.RGBA {
	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()

	crop := bounds
	if srcW*height > srcH*width {
		// source is wider than the target aspect ratio
		cropW := srcH * width / height
		x0 := bounds.Min.X + (srcW-cropW)/2
		crop = image.Rect(x0, bounds.Min.Y, x0+cropW, bounds.Max.Y)
	} else if srcW*height < srcH*width {
		cropH := srcW * height / width
		y0 := bounds.Min.Y + (srcH-cropH)/2
		crop = image.Rect(bounds.Min.X, y0, bounds.Max.X, y0+cropH)
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, crop, draw.Over, nil)
	return dst
}
