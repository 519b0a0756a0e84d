package encoding

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/himanishpuri/shinglebench/pkg/models"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrNotFitted = errors.New("projection is not fitted")
	ErrFitData   = errors.New("unusable projection training data")
	ErrDimension = errors.New("vector dimension mismatch")
)

// Projector is a linear map fitted once on training vectors and then applied
// deterministically to each shingle vector.
type Projector interface {
	Fit(vectors [][]float64) error
	Transform(v []float64) ([]float64, error)
	// Dim is the output dimension, zero before Fit.
	Dim() int
	String() string
}

func trainingMatrix(vectors [][]float64) (*mat.Dense, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no training vectors: %w", ErrFitData)
	}
	d := len(vectors[0])
	if d == 0 {
		return nil, fmt.Errorf("zero-length training vector: %w", ErrFitData)
	}
	data := mat.NewDense(len(vectors), d, nil)
	for i, v := range vectors {
		if len(v) != d {
			return nil, fmt.Errorf("training vector %d has %d values, expected %d: %w", i, len(v), d, ErrDimension)
		}
		data.SetRow(i, v)
	}
	return data, nil
}

func project(basis *mat.Dense, mean, v []float64) ([]float64, error) {
	if basis == nil {
		return nil, ErrNotFitted
	}
	d, k := basis.Dims()
	if len(v) != d {
		return nil, fmt.Errorf("got %d values, expected %d: %w", len(v), d, ErrDimension)
	}

	centered := make([]float64, d)
	copy(centered, v)
	for i := range mean {
		centered[i] -= mean[i]
	}

	out := mat.NewVecDense(k, nil)
	out.MulVec(basis.T(), mat.NewVecDense(d, centered))
	return append([]float64(nil), out.RawVector().Data...), nil
}

// PCA projects onto the leading principal components of the training set.
// Components fixes the output dimension; when it is zero the smallest count
// reaching Variance of the total explained variance is used.
type PCA struct {
	Components int
	Variance   float64

	mean      []float64
	basis     *mat.Dense
	explained float64
}

func (p *PCA) Fit(vectors [][]float64) error {
	data, err := trainingMatrix(vectors)
	if err != nil {
		return err
	}
	n, d := data.Dims()
	if n < 2 {
		return fmt.Errorf("PCA needs at least 2 vectors, got %d: %w", n, ErrFitData)
	}
	if p.Components <= 0 && (p.Variance <= 0 || p.Variance > 1) {
		return fmt.Errorf("PCA needs components > 0 or variance in (0, 1]: %w", ErrFitData)
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(data, nil); !ok {
		return fmt.Errorf("principal component decomposition failed: %w", ErrFitData)
	}
	vars := pc.VarsTo(nil)
	var vecs mat.Dense
	pc.VectorsTo(&vecs)

	var total float64
	for _, v := range vars {
		total += v
	}

	k := p.Components
	if k <= 0 {
		k = len(vars)
		var cum float64
		for i, v := range vars {
			cum += v
			if total > 0 && cum/total >= p.Variance {
				k = i + 1
				break
			}
		}
	}
	if k > len(vars) {
		k = len(vars)
	}

	var kept float64
	for _, v := range vars[:k] {
		kept += v
	}

	mean := make([]float64, d)
	col := make([]float64, n)
	for j := 0; j < d; j++ {
		mat.Col(col, j, data)
		mean[j] = stat.Mean(col, nil)
	}

	p.mean = mean
	p.basis = mat.DenseCopyOf(vecs.Slice(0, d, 0, k))
	p.explained = 0
	if total > 0 {
		p.explained = kept / total
	}
	return nil
}

func (p *PCA) Transform(v []float64) ([]float64, error) {
	return project(p.basis, p.mean, v)
}

func (p *PCA) Dim() int {
	if p.basis == nil {
		return 0
	}
	_, k := p.basis.Dims()
	return k
}

// ExplainedVariance is the fraction of training variance kept by the fitted
// components.
func (p *PCA) ExplainedVariance() float64 { return p.explained }

func (p *PCA) String() string {
	if p.Components > 0 {
		return fmt.Sprintf("pca(components=%d)", p.Components)
	}
	return fmt.Sprintf("pca(variance=%g)", p.Variance)
}

// RandomProjection is a seeded Gaussian projection to Components dimensions.
// Pairwise distances are preserved approximately; Fit only learns the input
// dimension and the training mean.
type RandomProjection struct {
	Components int
	Seed       int64

	mean  []float64
	basis *mat.Dense
}

func (r *RandomProjection) Fit(vectors [][]float64) error {
	data, err := trainingMatrix(vectors)
	if err != nil {
		return err
	}
	if r.Components <= 0 {
		return fmt.Errorf("random projection needs components > 0: %w", ErrFitData)
	}
	n, d := data.Dims()

	rng := rand.New(rand.NewSource(r.Seed))
	scale := 1 / math.Sqrt(float64(r.Components))
	basis := mat.NewDense(d, r.Components, nil)
	for i := 0; i < d; i++ {
		for j := 0; j < r.Components; j++ {
			basis.Set(i, j, rng.NormFloat64()*scale)
		}
	}

	mean := make([]float64, d)
	col := make([]float64, n)
	for j := 0; j < d; j++ {
		mat.Col(col, j, data)
		mean[j] = stat.Mean(col, nil)
	}

	r.mean = mean
	r.basis = basis
	return nil
}

func (r *RandomProjection) Transform(v []float64) ([]float64, error) {
	return project(r.basis, r.mean, v)
}

func (r *RandomProjection) Dim() int {
	if r.basis == nil {
		return 0
	}
	return r.Components
}

func (r *RandomProjection) String() string {
	return fmt.Sprintf("random(components=%d seed=%d)", r.Components, r.Seed)
}

// Projected applies a fitted Projector to every vector of a base encoder.
type Projected struct {
	ID        string
	Summary   string
	Base      Encoder
	Projector Projector
}

func (p *Projected) Name() string        { return p.ID }
func (p *Projected) Description() string { return p.Summary }

func (p *Projected) Source() string {
	return p.Base.Source() + " | " + p.Projector.String()
}

func (p *Projected) Encode(rec *models.Recording) ([][]float64, error) {
	vectors, err := p.Base.Encode(rec)
	if err != nil {
		return nil, err
	}
	out := make([][]float64, len(vectors))
	for i, v := range vectors {
		pv, err := p.Projector.Transform(v)
		if err != nil {
			return nil, fmt.Errorf("%s: shingle %d: %w", rec.Name, i, err)
		}
		out[i] = pv
	}
	return out, nil
}

// Fit trains the projector on the pooled base shingles of every recording.
func (p *Projected) Fit(recordings []*models.Recording) error {
	var pool [][]float64
	for _, rec := range recordings {
		vectors, err := p.Base.Encode(rec)
		if err != nil {
			return fmt.Errorf("encoding training shingles: %w", err)
		}
		pool = append(pool, vectors...)
	}
	if err := p.Projector.Fit(pool); err != nil {
		return fmt.Errorf("fitting %s: %w", p.Projector, err)
	}
	return nil
}
