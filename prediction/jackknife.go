package prediction

import (
	"github.com/YuminosukeSato/grf/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// groupedJackknife runs the half-sample jackknife over trees grouped in
// blocks of ciGroupSize. psi returns the deviation vector of one tree; trees
// are visited only when every tree of their group contributed.
//
// It returns the between-group covariance, the small-group noise covariance
// and the number of complete groups.
func groupedJackknife(leafValues *PredictionValues, ciGroupSize, dim int,
	psi func(tree int) []float64) (varBetween, groupNoise *mat.SymDense, numGoodGroups int, err error) {
	if ciGroupSize < 2 {
		return nil, nil, 0, errors.NewValidationError("ci_group_size", "variance estimation needs groups of at least 2 trees", ciGroupSize)
	}

	psiSquared := mat.NewSymDense(dim, nil)
	psiGroupedSquared := mat.NewSymDense(dim, nil)
	groupPsi := mat.NewVecDense(dim, nil)

	numGroups := leafValues.NumNodes() / ciGroupSize
	for group := 0; group < numGroups; group++ {
		good := true
		for j := 0; j < ciGroupSize; j++ {
			if leafValues.Empty(group*ciGroupSize + j) {
				good = false
				break
			}
		}
		if !good {
			continue
		}
		numGoodGroups++

		groupPsi.Zero()
		for j := 0; j < ciGroupSize; j++ {
			v := mat.NewVecDense(dim, psi(group*ciGroupSize+j))
			psiSquared.SymRankOne(psiSquared, 1, v)
			groupPsi.AddVec(groupPsi, v)
		}
		groupPsi.ScaleVec(1/float64(ciGroupSize), groupPsi)
		psiGroupedSquared.SymRankOne(psiGroupedSquared, 1, groupPsi)
	}

	if numGoodGroups == 0 {
		return nil, nil, 0, errors.WithStack(errors.ErrNoGoodGroups)
	}

	varBetween = mat.NewSymDense(dim, nil)
	varBetween.ScaleSym(1/float64(numGoodGroups), psiGroupedSquared)

	varTotal := mat.NewSymDense(dim, nil)
	varTotal.ScaleSym(1/float64(numGoodGroups*ciGroupSize), psiSquared)

	// inflation of varBetween due to small groups
	groupNoise = mat.NewSymDense(dim, nil)
	for i := 0; i < dim; i++ {
		for j := i; j < dim; j++ {
			groupNoise.SetSym(i, j, (varTotal.At(i, j)-varBetween.At(i, j))/float64(ciGroupSize-1))
		}
	}

	return varBetween, groupNoise, numGoodGroups, nil
}
