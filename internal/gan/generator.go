package gan

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/yourusername/latent-forge/internal/jobs"
)

const (
	modelSeed   uint64 = 0x67616e2d617274
	modelStream uint64 = 0x6c6174656e74

	embedHidden = 64
	embedDim    = 8
	pixelHidden = 16
	coordDim    = 3
)

// activations はスタイルごとの隠れ層の活性化関数です。
var activations = map[string]func(float64) float64{
	"abstract": math.Tanh,
	"waves":    math.Sin,
	"organic": func(x float64) float64 {
		return x / (1 + math.Abs(x))
	},
}

// NormalizeStyle はスタイル名を正規化します。未知のスタイルは DefaultStyle になります。
func NormalizeStyle(style string) string {
	s := strings.ToLower(strings.TrimSpace(style))
	if _, ok := activations[s]; ok {
		return s
	}
	return DefaultStyle
}

type dense struct {
	in, out int
	w       []float64
	b       []float64
}

func newDense(rng *rand.Rand, in, out int, gain float64) dense {
	d := dense{in: in, out: out, w: make([]float64, in*out), b: make([]float64, out)}
	scale := gain / math.Sqrt(float64(in))
	for i := range d.w {
		d.w[i] = rng.NormFloat64() * scale
	}
	for i := range d.b {
		d.b[i] = rng.NormFloat64() * 0.1
	}
	return d
}

func (d dense) forward(x, dst []float64, act func(float64) float64) {
	for o := 0; o < d.out; o++ {
		sum := d.b[o]
		row := d.w[o*d.in : (o+1)*d.in]
		for i, v := range x {
			sum += row[i] * v
		}
		dst[o] = act(sum)
	}
}

// Generator は潜在ベクトルから正方形の画像を合成する固定重みのネットワークです。
// 潜在ベクトルを埋め込みに写像し、各画素の座標と埋め込みから色を求めます。
// 重みは固定シードから生成されるため、出力は (latent, style) の純関数です。
type Generator struct {
	size   int
	embed1 dense
	embed2 dense
	h1     dense
	h2     dense
	h3     dense
	out    dense
}

// NewGenerator は size×size の画像を出力する Generator を作成します。
func NewGenerator(size int) *Generator {
	if size <= 0 {
		size = BaseSize
	}
	rng := rand.New(rand.NewPCG(modelSeed, modelStream))
	return &Generator{
		size:   size,
		embed1: newDense(rng, jobs.LatentDim, embedHidden, 1.4),
		embed2: newDense(rng, embedHidden, embedDim, 1.0),
		h1:     newDense(rng, coordDim+embedDim, pixelHidden, 3.0),
		h2:     newDense(rng, pixelHidden, pixelHidden, 1.8),
		h3:     newDense(rng, pixelHidden, pixelHidden, 1.8),
		out:    newDense(rng, pixelHidden, 3, 2.0),
	}
}

// Size は出力画像の一辺の長さです。
func (g *Generator) Size() int {
	return g.size
}

// Generate は潜在ベクトルから画像を生成します。
func (g *Generator) Generate(latent []float64, style string) (*image.NRGBA, error) {
	if len(latent) != jobs.LatentDim {
		return nil, fmt.Errorf("latent vector must have %d dimensions, got %d", jobs.LatentDim, len(latent))
	}
	for i, v := range latent {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("latent[%d] is not a finite number", i)
		}
	}
	act := activations[NormalizeStyle(style)]

	hidden := make([]float64, embedHidden)
	g.embed1.forward(latent, hidden, leakyReLU)
	embedding := make([]float64, embedDim)
	g.embed2.forward(hidden, embedding, math.Tanh)

	// 埋め込み由来の項は全画素で共通なので第1層のバイアスに畳み込んでおく
	h1 := dense{in: coordDim, out: g.h1.out, w: make([]float64, coordDim*g.h1.out), b: make([]float64, g.h1.out)}
	for o := 0; o < g.h1.out; o++ {
		row := g.h1.w[o*g.h1.in : (o+1)*g.h1.in]
		copy(h1.w[o*coordDim:(o+1)*coordDim], row[:coordDim])
		bias := g.h1.b[o]
		for i, e := range embedding {
			bias += row[coordDim+i] * e
		}
		h1.b[o] = bias
	}

	img := image.NewNRGBA(image.Rect(0, 0, g.size, g.size))
	coords := make([]float64, coordDim)
	a1 := make([]float64, pixelHidden)
	a2 := make([]float64, pixelHidden)
	a3 := make([]float64, pixelHidden)
	rgb := make([]float64, 3)
	denom := float64(max(g.size-1, 1))

	for py := 0; py < g.size; py++ {
		y := float64(py)/denom*2 - 1
		for px := 0; px < g.size; px++ {
			x := float64(px)/denom*2 - 1
			coords[0], coords[1], coords[2] = x, y, math.Sqrt(x*x+y*y)

			h1.forward(coords, a1, act)
			g.h2.forward(a1, a2, act)
			g.h3.forward(a2, a3, act)
			g.out.forward(a3, rgb, sigmoid)

			img.SetNRGBA(px, py, color.NRGBA{
				R: toByte(rgb[0]),
				G: toByte(rgb[1]),
				B: toByte(rgb[2]),
				A: 0xff,
			})
		}
	}
	return img, nil
}

func leakyReLU(x float64) float64 {
	if x < 0 {
		return 0.2 * x
	}
	return x
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func toByte(v float64) uint8 {
	return uint8(math.Round(math.Min(math.Max(v, 0), 1) * 255))
}
