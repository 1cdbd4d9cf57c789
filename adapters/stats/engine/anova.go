package engine

import (
	"math"
	"sort"

	"mscourse/domain/core"
	"mscourse/domain/table"
	internalerrors "mscourse/internal/errors"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// anovaResult holds the additive two-factor fit value ~ time + condition
// (both treated as categorical factors, no interaction term).
type anovaResult struct {
	times      []float64
	conditions []core.Condition

	// condition group summaries over all timepoints
	condMeans map[core.Condition]float64
	condSizes map[core.Condition]int

	dfResidual int
	mse        float64

	pTime      float64
	pCondition float64
}

// fitTwoWayANOVA fits the additive model by sequential least squares and
// derives Type I F statistics for the time and condition factors. Returns a
// DEGENERATE_MODEL error for designs the fit cannot support (no residual
// degrees of freedom, zero residual variance, singular system).
func fitTwoWayANOVA(records []table.LongRecord) (*anovaResult, error) {
	n := len(records)
	times := distinctTimes(records)
	conds := distinctConds(records)
	t, c := len(times), len(conds)
	if t < 2 || c < 2 {
		return nil, internalerrors.DegenerateModel("need at least two timepoints and two conditions")
	}

	dfResid := n - 1 - (t - 1) - (c - 1)
	if dfResid <= 0 {
		return nil, internalerrors.DegenerateModel("no residual degrees of freedom")
	}

	timeIdx := make(map[float64]int, t)
	for i, v := range times {
		timeIdx[v] = i
	}
	condIdx := make(map[core.Condition]int, c)
	for i, v := range conds {
		condIdx[v] = i
	}

	// Dummy-coded design matrix: intercept | time levels 2..t | condition
	// levels 2..c. Sequential (Type I) sums of squares come from nested fits.
	p := 1 + (t - 1) + (c - 1)
	x := mat.NewDense(n, p, nil)
	y := mat.NewVecDense(n, nil)
	for i, r := range records {
		x.Set(i, 0, 1)
		if ti := timeIdx[r.Time]; ti > 0 {
			x.Set(i, ti, 1)
		}
		if ci := condIdx[r.Condition]; ci > 0 {
			x.Set(i, (t-1)+ci, 1)
		}
		y.SetVec(i, r.Value)
	}

	ssIntercept, err := residualSS(x.Slice(0, n, 0, 1), y)
	if err != nil {
		return nil, err
	}
	ssTime, err := residualSS(x.Slice(0, n, 0, t), y)
	if err != nil {
		return nil, err
	}
	ssFull, err := residualSS(x, y)
	if err != nil {
		return nil, err
	}

	mse := ssFull / float64(dfResid)
	if mse <= 0 || math.IsNaN(mse) {
		return nil, internalerrors.DegenerateModel("zero residual variance")
	}

	fDist := func(d1 int) distuv.F {
		return distuv.F{D1: float64(d1), D2: float64(dfResid)}
	}
	// A factor with no effect can leave the nested fits equal up to rounding,
	// making the SS difference a tiny negative number. That is F = 0, not a
	// failed fit.
	fTime := (clampSS(ssIntercept-ssTime) / float64(t-1)) / mse
	fCond := (clampSS(ssTime-ssFull) / float64(c-1)) / mse

	res := &anovaResult{
		times:      times,
		conditions: conds,
		condMeans:  make(map[core.Condition]float64, c),
		condSizes:  make(map[core.Condition]int, c),
		dfResidual: dfResid,
		mse:        mse,
		pTime:      fSurvival(fDist(t-1), fTime),
		pCondition: fSurvival(fDist(c-1), fCond),
	}
	for _, r := range records {
		res.condMeans[r.Condition] += r.Value
		res.condSizes[r.Condition]++
	}
	for cond, sum := range res.condMeans {
		res.condMeans[cond] = sum / float64(res.condSizes[cond])
	}
	return res, nil
}

// residualSS fits y on the given design columns by QR and returns the
// residual sum of squares.
func residualSS(x mat.Matrix, y *mat.VecDense) (float64, error) {
	n, p := x.Dims()
	var qr mat.QR
	qr.Factorize(x)
	var beta mat.VecDense
	if err := qr.SolveVecTo(&beta, false, y); err != nil {
		return 0, internalerrors.DegenerateModel("singular design matrix")
	}
	ss := 0.0
	for i := 0; i < n; i++ {
		fitted := 0.0
		for j := 0; j < p; j++ {
			fitted += x.At(i, j) * beta.AtVec(j)
		}
		resid := y.AtVec(i) - fitted
		ss += resid * resid
	}
	return ss, nil
}

// clampSS floors a sequential sum-of-squares difference at zero. The nested
// fit can never truly explain less than its parent; a negative difference is
// floating-point cancellation.
func clampSS(ss float64) float64 {
	if ss < 0 {
		return 0
	}
	return ss
}

func fSurvival(d distuv.F, f float64) float64 {
	if math.IsNaN(f) {
		return math.NaN()
	}
	p := 1 - d.CDF(f)
	if p < 0 {
		p = 0
	}
	return p
}

func distinctTimes(records []table.LongRecord) []float64 {
	seen := make(map[float64]bool)
	var out []float64
	for _, r := range records {
		if !seen[r.Time] {
			seen[r.Time] = true
			out = append(out, r.Time)
		}
	}
	sort.Float64s(out)
	return out
}

func distinctConds(records []table.LongRecord) []core.Condition {
	seen := make(map[core.Condition]bool)
	var out []core.Condition
	for _, r := range records {
		if !seen[r.Condition] {
			seen[r.Condition] = true
			out = append(out, r.Condition)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
