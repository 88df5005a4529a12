package scoring

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	defaultInverseRegularization = 1.0
	defaultMaxIterations         = 100
	defaultTolerance             = 1e-8

	maxStepHalvings = 40
	armijoFactor    = 1e-4
)

// LogisticOptions tunes the classifier fit. Zero values select the defaults.
type LogisticOptions struct {
	// C is the inverse L2 regularization strength.
	C float64 `json:"c" yaml:"c"`
	// MaxIter bounds the number of Newton iterations.
	MaxIter int `json:"max_iter" yaml:"maxIter"`
	// Tol is the relative gradient norm at which the fit stops.
	Tol float64 `json:"tol" yaml:"tol"`
}

func (o LogisticOptions) withDefaults() LogisticOptions {
	if o.C <= 0 {
		o.C = defaultInverseRegularization
	}
	if o.MaxIter <= 0 {
		o.MaxIter = defaultMaxIterations
	}
	if o.Tol <= 0 {
		o.Tol = defaultTolerance
	}
	return o
}

// Weights are the fitted coefficients of the linear model.
type Weights struct {
	Coef      [NumFeatures]float64 `json:"coef" yaml:"coef"`
	Intercept float64              `json:"intercept" yaml:"intercept"`
}

// Decision returns the linear combination of the standardized features.
func (w *Weights) Decision(z Features) float64 {
	return floats.Dot(w.Coef[:], z[:]) + w.Intercept
}

// PredictPD returns the probability of default for standardized features.
func (w *Weights) PredictPD(z Features) float64 {
	return Sigmoid(w.Decision(z))
}

// Sigmoid is the logistic function, evaluated without overflowing exp.
func Sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

// logOnePlusExp computes log(1 + e^x) without overflow.
func logOnePlusExp(x float64) float64 {
	return math.Max(x, 0) + math.Log1p(math.Exp(-math.Abs(x)))
}

// FitLogistic fits an L2-regularized logistic regression with Newton's method.
// The intercept is an extra constant input and is penalized like the
// coefficients. The result depends only on x, y and opts.
func FitLogistic(x []Features, y []int, opts LogisticOptions) (Weights, error) {
	var w Weights
	if len(x) == 0 {
		return w, errors.New("cannot fit classifier on an empty batch")
	}
	if len(x) != len(y) {
		return w, fmt.Errorf("%w: %d feature rows but %d labels", ErrInvalidInput, len(x), len(y))
	}
	for i, v := range y {
		if v != 0 && v != 1 {
			return w, fmt.Errorf("%w: label %d at row %d is not binary", ErrInvalidInput, v, i)
		}
	}

	opts = opts.withDefaults()
	f := &logisticObjective{x: x, y: y, c: opts.C}

	const dim = NumFeatures + 1
	theta := make([]float64, dim)
	grad := make([]float64, dim)
	hess := mat.NewSymDense(dim, nil)
	next := make([]float64, dim)

	loss := f.value(theta)
	f.derivatives(theta, grad, hess)
	tol := opts.Tol * math.Max(1, floats.Norm(grad, 2))

	for iter := 0; iter < opts.MaxIter; iter++ {
		if floats.Norm(grad, 2) <= tol {
			break
		}

		var chol mat.Cholesky
		if ok := chol.Factorize(hess); !ok {
			return w, errors.New("classifier hessian is not positive definite")
		}

		neg := make([]float64, dim)
		floats.ScaleTo(neg, -1, grad)
		var step mat.VecDense
		if err := chol.SolveVecTo(&step, mat.NewVecDense(dim, neg)); err != nil {
			return w, fmt.Errorf("error solving newton step: %w", err)
		}
		dir := step.RawVector().Data
		slope := floats.Dot(grad, dir)

		t := 1.0
		improved := false
		for h := 0; h < maxStepHalvings; h++ {
			floats.AddScaledTo(next, theta, t, dir)
			nextLoss := f.value(next)
			if nextLoss <= loss+armijoFactor*t*slope {
				copy(theta, next)
				loss = nextLoss
				improved = true
				break
			}
			t /= 2
		}
		if !improved {
			break
		}

		f.derivatives(theta, grad, hess)
	}

	copy(w.Coef[:], theta[:NumFeatures])
	w.Intercept = theta[NumFeatures]
	return w, nil
}

type logisticObjective struct {
	x []Features
	y []int
	c float64
}

func (o *logisticObjective) margin(theta []float64, row Features) float64 {
	return floats.Dot(theta[:NumFeatures], row[:]) + theta[NumFeatures]
}

// value is 0.5*|theta|^2 + C * sum of the log losses.
func (o *logisticObjective) value(theta []float64) float64 {
	var sum float64
	for i, row := range o.x {
		z := o.margin(theta, row)
		sum += logOnePlusExp(z) - float64(o.y[i])*z
	}
	return 0.5*floats.Dot(theta, theta) + o.c*sum
}

func (o *logisticObjective) derivatives(theta, grad []float64, hess *mat.SymDense) {
	const dim = NumFeatures + 1
	copy(grad, theta)

	var acc [dim][dim]float64
	var in [dim]float64
	in[NumFeatures] = 1
	for i, row := range o.x {
		copy(in[:NumFeatures], row[:])
		p := Sigmoid(o.margin(theta, row))
		r := o.c * (p - float64(o.y[i]))
		d := o.c * p * (1 - p)
		for a := 0; a < dim; a++ {
			grad[a] += r * in[a]
			for b := a; b < dim; b++ {
				acc[a][b] += d * in[a] * in[b]
			}
		}
	}

	for a := 0; a < dim; a++ {
		for b := a; b < dim; b++ {
			v := acc[a][b]
			if a == b {
				v++
			}
			hess.SetSym(a, b, v)
		}
	}
}
