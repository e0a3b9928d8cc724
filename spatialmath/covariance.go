package spatialmath

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// SpdMatrixSqrtInverse returns M^(-1/2) for a symmetric positive
// semidefinite matrix via its eigendecomposition. Eigenvalues below
// lowerEigenvalueBound are clamped up to it first, so ill-conditioned
// covariances still produce a finite square-root information matrix.
func SpdMatrixSqrtInverse(m mat.Symmetric, lowerEigenvalueBound float64) *mat.SymDense {
	n := m.SymmetricDim()
	var eig mat.EigenSym
	if !eig.Factorize(m, true) {
		panic("spatialmath: eigendecomposition failed")
	}
	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	invSqrt := make([]float64, n)
	for i, v := range values {
		if v < lowerEigenvalueBound {
			v = lowerEigenvalueBound
		}
		invSqrt[i] = 1 / math.Sqrt(v)
	}

	var tmp, full mat.Dense
	tmp.Mul(&vectors, mat.NewDiagDense(n, invSqrt))
	full.Mul(&tmp, vectors.T())

	// Symmetrize away floating point noise from the reconstruction.
	result := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			result.SetSym(i, j, (full.At(i, j)+full.At(j, i))/2)
		}
	}
	return result
}

// NewDiagonalPoseCovariance returns a 6x6 pose covariance with the given
// variances on the translation and rotation blocks.
func NewDiagonalPoseCovariance(translationVariance, rotationVariance float64) *mat.SymDense {
	cov := mat.NewSymDense(6, nil)
	for i := 0; i < 3; i++ {
		cov.SetSym(i, i, translationVariance)
		cov.SetSym(i+3, i+3, rotationVariance)
	}
	return cov
}
