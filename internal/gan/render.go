package gan

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"image"
	"image/png"
	"strconv"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/draw"

	"github.com/yourusername/latent-forge/internal/jobs"
	"github.com/yourusername/latent-forge/internal/storage"
)

// Synthesizer は jobs.Renderer の実装です。
// 画像を生成し、必要なら解像度を変換して PNG の data URI とチェックサムを作ります。
type Synthesizer struct {
	generator *Generator
	publisher storage.Publisher
}

// NewSynthesizer は Synthesizer を作成します。publisher が nil の場合は data URI をそのまま返します。
func NewSynthesizer(generator *Generator, publisher storage.Publisher) *Synthesizer {
	if generator == nil {
		generator = NewGenerator(BaseSize)
	}
	if publisher == nil {
		publisher = storage.InlinePublisher{}
	}
	return &Synthesizer{generator: generator, publisher: publisher}
}

// Render はジョブの画像を生成して公開します。
func (s *Synthesizer) Render(ctx context.Context, job *jobs.Job) (jobs.Outcome, error) {
	if job == nil {
		return jobs.Outcome{}, fmt.Errorf("job is nil")
	}
	resolution := job.Resolution
	if resolution == 0 {
		resolution = DefaultResolution
	}
	if !ValidResolution(resolution) {
		return jobs.Outcome{}, fmt.Errorf("unsupported resolution: %d", resolution)
	}

	img, err := s.generator.Generate(job.Latent, job.Style)
	if err != nil {
		return jobs.Outcome{}, fmt.Errorf("synthesis failed: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return jobs.Outcome{}, err
	}

	encoded, err := EncodePNG(Resize(img, resolution))
	if err != nil {
		return jobs.Outcome{}, err
	}
	dataURI, err := DataURI(encoded)
	if err != nil {
		return jobs.Outcome{}, err
	}

	url, err := s.publisher.Publish(ctx, storage.Object{
		Key:         job.ID + ".png",
		Data:        encoded,
		ContentType: "image/png",
		DataURI:     dataURI,
		Metadata: map[string]string{
			"seed":       strconv.FormatInt(job.Seed, 10),
			"style":      job.Style,
			"resolution": strconv.Itoa(resolution),
		},
	})
	if err != nil {
		return jobs.Outcome{}, fmt.Errorf("publish failed: %w", err)
	}

	return jobs.Outcome{
		ImageURL: url,
		Checksum: Checksum(dataURI),
	}, nil
}

// Resize は src を size×size に変換します。同じサイズの場合はそのまま返します。
func Resize(src image.Image, size int) image.Image {
	b := src.Bounds()
	if b.Dx() == size && b.Dy() == size {
		return src
	}
	dst := image.NewNRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

// EncodePNG は画像を PNG にエンコードします。
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("png encode failed: %w", err)
	}
	return buf.Bytes(), nil
}

// DataURI は画像データを data URI に変換します。MIME タイプは内容から判定します。
func DataURI(data []byte) (string, error) {
	mime := mimetype.Detect(data)
	if !mime.Is("image/png") {
		return "", fmt.Errorf("unexpected image format: %s", mime.String())
	}
	return "data:" + mime.String() + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// Checksum は data URI の SHA-256 を16進文字列で返します。
func Checksum(dataURI string) string {
	sum := sha256.Sum256([]byte(dataURI))
	return hex.EncodeToString(sum[:])
}
