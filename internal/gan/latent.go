package gan

import (
	"math/rand/v2"

	"github.com/samber/lo"

	"github.com/yourusername/latent-forge/internal/jobs"
)

const (
	// maxSeed は自動生成するシードの上限（排他的）です。
	maxSeed = 1_000_000

	// latentStream は PCG の第2シードです。値を変えると既存シードの潜在ベクトルが変わります。
	latentStream uint64 = 0x9e3779b97f4a7c15

	DefaultStyle      = "abstract"
	DefaultResolution = 512
	BaseSize          = 256
)

// Resolutions は指定可能な出力解像度です。
var Resolutions = []int{256, 512, 1024}

// ValidResolution は解像度が指定可能な値かどうかを返します。
func ValidResolution(r int) bool {
	return lo.Contains(Resolutions, r)
}

// DeriveLatent はシードから決定的に潜在ベクトルを生成します。
// PCG(seed, latentStream) から標準正規分布の値を LatentDim 個取り出します。
func DeriveLatent(seed int64) []float64 {
	rng := rand.New(rand.NewPCG(uint64(seed), latentStream))
	latent := make([]float64, jobs.LatentDim)
	for i := range latent {
		latent[i] = rng.NormFloat64()
	}
	return latent
}

// RandomSeed は [0, 1000000) のシードを返します。
func RandomSeed() int64 {
	return rand.Int64N(maxSeed)
}
