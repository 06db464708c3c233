package indicators

// Values is an indicator line aligned with its series. nil marks an absent value.
type Values []*float64

func newValues(n int) Values {
	return make(Values, n)
}

func ptr(v float64) *float64 {
	return &v
}

// At returns the value at i, or nil when i is out of range or absent
func (v Values) At(i int) *float64 {
	if i < 0 || i >= len(v) {
		return nil
	}
	return v[i]
}

// Last returns the final value, which may be absent
func (v Values) Last() *float64 {
	return v.At(len(v) - 1)
}

// Defined counts the present values
func (v Values) Defined() int {
	n := 0
	for _, x := range v {
		if x != nil {
			n++
		}
	}
	return n
}

// Scale returns a copy with every present value multiplied by factor
func (v Values) Scale(factor float64) Values {
	out := newValues(len(v))
	for i, x := range v {
		if x != nil {
			out[i] = ptr(*x * factor)
		}
	}
	return out
}

func fromFloats(xs []float64) Values {
	out := newValues(len(xs))
	for i, x := range xs {
		out[i] = ptr(x)
	}
	return out
}
