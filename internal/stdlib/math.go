package stdlib

import (
	"math"
	"math/rand/v2"
	"time"

	"nickandperla.net/tbasic/internal/errs"
	"nickandperla.net/tbasic/internal/eval"
	"nickandperla.net/tbasic/internal/value"
)

// rng is the generator behind RND; RANDOMIZE reseeds it.
type rng struct {
	r *rand.Rand
}

func newRNG() *rng {
	g := &rng{}
	g.seed(uint64(time.Now().UnixNano()))
	return g
}

func (g *rng) seed(s uint64) {
	g.r = rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15))
}

func mathNatives(g *rng) []*eval.Native {
	num, flt := value.Any, value.Float
	return []*eval.Native{
		fn("ABS", kinds(num), 1, func(_ *eval.Frame, a []value.Value) (value.Value, error) {
			n, err := value.ToNumber(a[0])
			if err != nil {
				return value.Value{}, err
			}
			if n.Kind() == value.Int {
				switch i := n.Int(); {
				case i == math.MinInt64:
					return value.NewFloat(-float64(i)), nil
				case i < 0:
					return value.NewInt(-i), nil
				}
				return n, nil
			}
			return value.NewFloat(math.Abs(n.Float())), nil
		}),
		fn("INT", kinds(num), 1, rounding(math.Floor)),
		fn("FIX", kinds(num), 1, rounding(math.Trunc)),
		fn("SGN", kinds(num), 1, func(_ *eval.Frame, a []value.Value) (value.Value, error) {
			f, err := value.ToFloat(a[0])
			if err != nil {
				return value.Value{}, err
			}
			switch {
			case f > 0:
				return value.NewInt(1), nil
			case f < 0:
				return value.NewInt(-1), nil
			}
			return value.NewInt(0), nil
		}),
		fn("SQR", kinds(flt), 1, func(_ *eval.Frame, a []value.Value) (value.Value, error) {
			if a[0].Float() < 0 {
				return value.Value{}, errs.Runtimef("SQR of negative number %s", a[0])
			}
			return value.NewFloat(math.Sqrt(a[0].Float())), nil
		}),
		fn("LOG", kinds(flt), 1, func(_ *eval.Frame, a []value.Value) (value.Value, error) {
			if a[0].Float() <= 0 {
				return value.Value{}, errs.Runtimef("LOG of non-positive number %s", a[0])
			}
			return value.NewFloat(math.Log(a[0].Float())), nil
		}),
		fn("EXP", kinds(flt), 1, float1(math.Exp)),
		fn("SIN", kinds(flt), 1, float1(math.Sin)),
		fn("COS", kinds(flt), 1, float1(math.Cos)),
		fn("TAN", kinds(flt), 1, float1(math.Tan)),
		fn("ATN", kinds(flt), 1, float1(math.Atan)),
		// RND([n]): n < 0 reseeds with n before drawing.
		fn("RND", kinds(value.Int), 0, func(_ *eval.Frame, a []value.Value) (value.Value, error) {
			if n := a[0].Int(); n < 0 {
				g.seed(uint64(-n))
			}
			return value.NewFloat(g.r.Float64()), nil
		}),
		{
			Name:      "RANDOMIZE",
			Params:    kinds(value.Int),
			Eager:     true,
			Statement: true,
			Fn: func(f *eval.Frame, a []value.Value) (value.Value, error) {
				if f.Len() == 0 {
					g.seed(uint64(time.Now().UnixNano()))
				} else {
					g.seed(uint64(a[0].Int()))
				}
				return value.Value{}, nil
			},
		},
		{Name: "MIN", Returns: true, Eager: true, Required: 1, Variadic: true, Fn: extreme(-1)},
		{Name: "MAX", Returns: true, Eager: true, Required: 1, Variadic: true, Fn: extreme(1)},
		// UBOUND(array[, dimension]) with 1-based dimensions.
		fn("UBOUND", kinds(value.Array, value.Int), 1, func(_ *eval.Frame, a []value.Value) (value.Value, error) {
			dim := a[1].Int()
			if dim < 1 {
				dim = 1
			}
			cur := a[0]
			for d := int64(1); d < dim; d++ {
				elems := cur.Elems()
				if len(elems) == 0 || elems[0].Kind() != value.Array {
					return value.Value{}, errs.Runtimef("UBOUND dimension %d out of range", dim)
				}
				cur = elems[0]
			}
			return value.NewInt(int64(len(cur.Elems()) - 1)), nil
		}),
		fn("LBOUND", kinds(value.Array, value.Int), 1, func(*eval.Frame, []value.Value) (value.Value, error) {
			return value.NewInt(0), nil
		}),
		fn("TYPENAME", kinds(value.Any), 1, func(_ *eval.Frame, a []value.Value) (value.Value, error) {
			return value.NewString(a[0].TypeName()), nil
		}),
	}
}

// rounding applies r to floats and returns an integer when it fits.
func rounding(r func(float64) float64) eval.NativeFunc {
	return func(_ *eval.Frame, a []value.Value) (value.Value, error) {
		n, err := value.ToNumber(a[0])
		if err != nil {
			return value.Value{}, err
		}
		if n.Kind() == value.Int {
			return n, nil
		}
		f := r(n.Float())
		if f >= math.MinInt64 && f < math.MaxInt64 {
			return value.NewInt(int64(f)), nil
		}
		return value.NewFloat(f), nil
	}
}

func float1(m func(float64) float64) eval.NativeFunc {
	return func(_ *eval.Frame, a []value.Value) (value.Value, error) {
		return value.NewFloat(m(a[0].Float())), nil
	}
}

// extreme returns the argument that compares as sign against all others.
func extreme(sign int) eval.NativeFunc {
	return func(_ *eval.Frame, a []value.Value) (value.Value, error) {
		best := a[0]
		for _, v := range a[1:] {
			c, err := value.Compare(v, best)
			if err != nil {
				return value.Value{}, err
			}
			if c*sign > 0 {
				best = v
			}
		}
		return best, nil
	}
}
