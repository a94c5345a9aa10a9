package pnp

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// polynomial holds coefficients in ascending order of degree: p[i] multiplies x^i.
type polynomial []float64

func polyAdd(a, b polynomial) polynomial {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	out := make(polynomial, n)
	copy(out, a)
	for i, c := range b {
		out[i] += c
	}
	return out
}

func polyMul(a, b polynomial) polynomial {
	if len(a) == 0 || len(b) == 0 {
		return polynomial{}
	}
	out := make(polynomial, len(a)+len(b)-1)
	for i, ca := range a {
		for j, cb := range b {
			out[i+j] += ca * cb
		}
	}
	return out
}

func polyScale(a polynomial, s float64) polynomial {
	out := make(polynomial, len(a))
	for i, c := range a {
		out[i] = c * s
	}
	return out
}

// eval returns p(x) and p'(x) using Horner's scheme.
func (p polynomial) eval(x float64) (float64, float64) {
	var value, deriv float64
	for i := len(p) - 1; i >= 0; i-- {
		deriv = deriv*x + value
		value = value*x + p[i]
	}
	return value, deriv
}

// trimmed drops leading coefficients that are negligible compared to the largest one, so a
// vanishing leading term lowers the degree instead of producing a huge spurious root.
func (p polynomial) trimmed() polynomial {
	var largest float64
	for _, c := range p {
		largest = math.Max(largest, math.Abs(c))
	}
	n := len(p)
	for n > 0 && math.Abs(p[n-1]) <= 1e-12*largest {
		n--
	}
	return p[:n]
}

const (
	imagRootTolerance = 1e-5
	newtonIterations  = 8
)

// realRoots returns the distinct real roots of p in ascending order. Roots come from the
// eigenvalues of the companion matrix and are polished with Newton steps on p.
func realRoots(p polynomial) []float64 {
	p = p.trimmed()
	degree := len(p) - 1
	switch {
	case degree < 1:
		return nil
	case degree == 1:
		return []float64{-p[0] / p[1]}
	}

	lead := p[degree]
	companion := mat.NewDense(degree, degree, nil)
	for col := 0; col < degree; col++ {
		companion.Set(0, col, -p[degree-1-col]/lead)
	}
	for row := 1; row < degree; row++ {
		companion.Set(row, row-1, 1)
	}

	var eig mat.Eigen
	if ok := eig.Factorize(companion, mat.EigenNone); !ok {
		return nil
	}

	roots := make([]float64, 0, degree)
	for _, val := range eig.Values(nil) {
		re := real(val)
		if math.Abs(imag(val)) > imagRootTolerance*math.Max(1, math.Abs(re)) {
			continue
		}
		roots = append(roots, p.polish(re))
	}
	sort.Float64s(roots)

	distinct := roots[:0]
	for _, r := range roots {
		if len(distinct) > 0 && math.Abs(r-distinct[len(distinct)-1]) <= 1e-9*math.Max(1, math.Abs(r)) {
			continue
		}
		distinct = append(distinct, r)
	}
	return distinct
}

// polish refines a root estimate with Newton's method, keeping a step only when it reduces |p|.
func (p polynomial) polish(x float64) float64 {
	value, deriv := p.eval(x)
	for i := 0; i < newtonIterations && value != 0 && deriv != 0; i++ {
		next := x - value/deriv
		nextValue, nextDeriv := p.eval(next)
		if math.IsNaN(nextValue) || math.Abs(nextValue) >= math.Abs(value) {
			break
		}
		x, value, deriv = next, nextValue, nextDeriv
	}
	return x
}
