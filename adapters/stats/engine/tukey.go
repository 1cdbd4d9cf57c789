package engine

import (
	"math"

	"mscourse/domain/core"
	"mscourse/domain/table"

	"gonum.org/v1/gonum/stat/distuv"
)

// pairComparison is one Tukey HSD comparison between two conditions.
type pairComparison struct {
	Sample1 core.Condition
	Sample2 core.Condition
	PValue  float64
}

// tukeyHSD runs the Tukey honestly-significant-difference test restricted to
// the condition factor of a fitted model. Unequal group sizes use the
// Tukey-Kramer standard error. One p-value per unordered condition pair, in
// canonical order.
func tukeyHSD(fit *anovaResult) []pairComparison {
	k := len(fit.conditions)
	var out []pairComparison
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			a, b := table.CanonicalPair(fit.conditions[i], fit.conditions[j])
			na := float64(fit.condSizes[a])
			nb := float64(fit.condSizes[b])
			se := math.Sqrt(fit.mse / 2 * (1/na + 1/nb))
			q := math.Abs(fit.condMeans[a]-fit.condMeans[b]) / se
			p := 1 - studentizedRangeCDF(q, k, fit.dfResidual)
			if p < 0 {
				p = 0
			}
			if p > 1 {
				p = 1
			}
			out = append(out, pairComparison{Sample1: a, Sample2: b, PValue: p})
		}
	}
	return out
}

// studentizedRangeCDF evaluates P(Q <= q) for the studentized range of k
// groups with df residual degrees of freedom, by direct numerical
// integration. For large df the scale integral collapses to the range
// distribution of k standard normals.
func studentizedRangeCDF(q float64, k, df int) float64 {
	if q <= 0 || k < 2 {
		return 0
	}
	if df >= 200 {
		return normalRangeCDF(q, k)
	}

	// Outer integral over the chi-square scale: s = sqrt(x/df),
	// P(q) = int_0^inf chi2pdf_df(x) * P_range(q*s; k) dx.
	nu := float64(df)
	upper := nu + 10*math.Sqrt(2*nu) + 50
	return gaussLegendre(0, upper, 48, func(x float64) float64 {
		if x <= 0 {
			return 0
		}
		return chi2PDF(x, nu) * normalRangeCDF(q*math.Sqrt(x/nu), k)
	})
}

// normalRangeCDF is P(range of k iid standard normals <= w):
// k * int phi(z) * (Phi(z) - Phi(z-w))^(k-1) dz.
func normalRangeCDF(w float64, k int) float64 {
	if w <= 0 {
		return 0
	}
	norm := distuv.UnitNormal
	v := float64(k) * gaussLegendre(-8, 8, 32, func(z float64) float64 {
		d := norm.CDF(z) - norm.CDF(z-w)
		if d <= 0 {
			return 0
		}
		return norm.Prob(z) * math.Pow(d, float64(k-1))
	})
	if v > 1 {
		v = 1
	}
	return v
}

func chi2PDF(x, nu float64) float64 {
	lg, _ := math.Lgamma(nu / 2)
	return math.Exp((nu/2-1)*math.Log(x) - x/2 - (nu/2)*math.Ln2 - lg)
}

// gaussLegendre integrates f over [a,b] with composite 8-point
// Gauss-Legendre quadrature split into panels.
func gaussLegendre(a, b float64, panels int, f func(float64) float64) float64 {
	nodes := [...]float64{
		-0.9602898564975363, -0.7966664774136267, -0.5255324099163290, -0.1834346424956498,
		0.1834346424956498, 0.5255324099163290, 0.7966664774136267, 0.9602898564975363,
	}
	weights := [...]float64{
		0.1012285362903763, 0.2223810344533745, 0.3137066458778873, 0.3626837833783620,
		0.3626837833783620, 0.3137066458778873, 0.2223810344533745, 0.1012285362903763,
	}
	h := (b - a) / float64(panels)
	total := 0.0
	for p := 0; p < panels; p++ {
		lo := a + float64(p)*h
		mid := lo + h/2
		half := h / 2
		for i := range nodes {
			total += weights[i] * f(mid+half*nodes[i])
		}
	}
	return total * h / 2
}
