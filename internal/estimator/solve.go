package estimator

import (
	"errors"
	"fmt"
	"math"

	"dopastat/domain/core"
	"dopastat/domain/stats"

	"gonum.org/v1/gonum/mat"
)

// Solve minimizes ||X*beta - y||^2 with a thin SVD. A failed factorization,
// a rank-deficient X or a non-finite solution falls back to ridge normal
// equations, which always produce a finite vector.
func (e *Estimator) Solve(dm *stats.DesignMatrix) stats.Coefficients {
	X, y := matrices(dm)

	beta, rank, err := leastSquares(X, y)
	if err == nil {
		return stats.Coefficients{Values: beta, Solver: stats.SolverSVD, Rank: rank}
	}

	e.logger.Warn("%v; applying ridge regularization (lambda=%g)", err, e.opts.Lambda)
	return stats.Coefficients{
		Values:  Ridge(X, y, e.opts.Lambda),
		Solver:  stats.SolverRidge,
		Rank:    rank,
		Lambda:  e.opts.Lambda,
		Warning: err.Error(),
	}
}

func matrices(dm *stats.DesignMatrix) (*mat.Dense, *mat.VecDense) {
	X := mat.NewDense(dm.Rows, dm.Cols(), append([]float64(nil), dm.Data...))
	y := mat.NewVecDense(dm.Rows, append([]float64(nil), dm.Target...))
	return X, y
}

// leastSquares returns the SVD solution, or ErrSolverConvergence
func leastSquares(X *mat.Dense, y *mat.VecDense) ([]float64, int, error) {
	r, c := X.Dims()

	var svd mat.SVD
	if ok := svd.Factorize(X, mat.SVDThin); !ok {
		return nil, 0, core.NewSolverConvergenceError("SVD factorization failed")
	}

	// same cutoff numpy's lstsq uses for rcond=None
	rcond := math.Nextafter(1, 2) - 1
	rcond *= float64(max(r, c))
	rank := svd.Rank(rcond)
	if rank < c {
		return nil, rank, core.NewSolverConvergenceError(fmt.Sprintf("rank %d < %d columns", rank, c))
	}

	var beta mat.VecDense
	svd.SolveVecTo(&beta, y, rank)
	values := vecValues(&beta)
	if !allFinite(values) {
		return nil, rank, core.NewSolverConvergenceError("non-finite coefficients")
	}
	return values, rank, nil
}

// Ridge solves (X'X + lambda*I) beta = X'y. lambda must be positive; the
// system is then positive definite and Cholesky applies. LU is tried if
// Cholesky rejects the matrix numerically, and a zero vector is the last
// resort so the result is always finite and has one entry per column.
func Ridge(X mat.Matrix, y mat.Vector, lambda float64) []float64 {
	_, c := X.Dims()
	if !(lambda > 0) {
		lambda = DefaultLambda
	}

	var xtx mat.SymDense
	xtx.SymOuterK(1, X.T())
	for i := 0; i < c; i++ {
		xtx.SetSym(i, i, xtx.At(i, i)+lambda)
	}

	var xty mat.VecDense
	xty.MulVec(X.T(), y)

	var chol mat.Cholesky
	if chol.Factorize(&xtx) {
		var beta mat.VecDense
		if err := chol.SolveVecTo(&beta, &xty); tolerable(err) {
			if values := vecValues(&beta); allFinite(values) {
				return values
			}
		}
	}

	var beta mat.VecDense
	if err := beta.SolveVec(&xtx, &xty); tolerable(err) {
		if values := vecValues(&beta); allFinite(values) {
			return values
		}
	}

	return make([]float64, c)
}

// tolerable accepts a nil error or a condition-number warning
func tolerable(err error) bool {
	if err == nil {
		return true
	}
	var cond mat.Condition
	return errors.As(err, &cond)
}

func vecValues(v *mat.VecDense) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}

func allFinite(values []float64) bool {
	for _, v := range values {
		if !finite(v) {
			return false
		}
	}
	return true
}
