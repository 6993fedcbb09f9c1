package stats

import (
	"errors"
	"fmt"

	"github.com/KaramelBytes/geoagg-cli/internal/firms"
	"gonum.org/v1/gonum/stat"
)

// Fit is a least-squares line y = Alpha + Beta*x. It exists for drawing an
// overlay on scatter charts and carries no inferential meaning.
type Fit struct {
	X, Y  firms.Column
	Alpha float64
	Beta  float64
	R2    float64
	N     int
}

// At evaluates the fitted line.
func (f Fit) At(x float64) float64 { return f.Alpha + f.Beta*x }

var ErrDegenerateFit = errors.New("fit: need at least two records with distinct x values")

// LinearFit regresses y on x over every record of ds.
func LinearFit(ds *firms.Dataset, x, y firms.Column) (Fit, error) {
	if !firms.IsMetric(x) || !firms.IsMetric(y) {
		return Fit{}, fmt.Errorf("fit: %q and %q must be numeric fields", x, y)
	}
	f, err := FitXY(column(ds, x), column(ds, y))
	if err != nil {
		return Fit{}, err
	}
	f.X, f.Y = x, y
	return f, nil
}

// FitXY regresses ys on xs.
func FitXY(xs, ys []float64) (Fit, error) {
	if len(xs) != len(ys) {
		return Fit{}, fmt.Errorf("fit: %d x values but %d y values", len(xs), len(ys))
	}
	if len(xs) < 2 || isConstant(xs) {
		return Fit{}, ErrDegenerateFit
	}
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	return Fit{
		Alpha: alpha,
		Beta:  beta,
		R2:    stat.RSquared(xs, ys, nil, alpha, beta),
		N:     len(xs),
	}, nil
}
