package kbench

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// OutputVerdict is the verdict for one named output of a multi-output
// implementation
type OutputVerdict struct {
	Name string
	Verdict
}

// Output is one named output of T with its own comparator
type Output[T any] struct {
	Name    string
	compare Comparator[T]
}

// Field declares an output of T read with get and compared with cmp. A nil
// cmp selects the built-in comparator for F.
func Field[T, F any](name string, get func(T) F, cmp Comparator[F]) Output[T] {
	if cmp == nil {
		auto, err := AutoComparator[F]()
		if err != nil {
			return Output[T]{Name: name, compare: func(*Config, T, T) Verdict {
				v := newVerdict(PrecExact, 0)
				v.Err = err
				return v
			}}
		}
		cmp = auto
	}
	return Output[T]{Name: name, compare: func(cfg *Config, ref, cand T) Verdict {
		return cmp(cfg, get(ref), get(cand))
	}}
}

// CompareFields returns a Comparator that validates every output
// separately. The result keeps one verdict per output in Verdict.Outputs
// and fails when any output fails.
func CompareFields[T any](outputs ...Output[T]) Comparator[T] {
	return func(cfg *Config, ref, cand T) Verdict {
		parts := make([]OutputVerdict, len(outputs))
		for i, o := range outputs {
			parts[i] = OutputVerdict{Name: o.Name, Verdict: o.compare(cfg, ref, cand)}
		}
		return combineOutputs(parts)
	}
}

// combineOutputs aggregates per-output verdicts. Counts and error totals are
// summed; the first failing output supplies the mismatch position, values,
// precision and tolerance.
func combineOutputs(parts []OutputVerdict) Verdict {
	v := newVerdict(PrecExact, 0)
	if len(parts) > 0 {
		v.Precision, v.Tolerance = parts[0].Precision, parts[0].Tolerance
	}
	failed := false
	for _, p := range parts {
		v.Compared += p.Compared
		v.Mismatches += p.Mismatches
		v.TotalAbsErr += p.TotalAbsErr
		v.MaxAbsErr = max(v.MaxAbsErr, p.MaxAbsErr)
		if v.Err == nil && p.Err != nil {
			v.Err = fmt.Errorf("output %s: %w", p.Name, p.Err)
		}
		if p.Passed() || failed {
			continue
		}
		failed = true
		v.Precision, v.Tolerance = p.Precision, p.Tolerance
		v.FirstMismatch = p.FirstMismatch
		v.Indices = p.Indices
		v.Expected, v.Actual = p.Expected, p.Actual
	}
	v.Outputs = parts
	return v
}

// FailedOutput returns the first output that did not pass
func (v Verdict) FailedOutput() (OutputVerdict, bool) {
	for _, o := range v.Outputs {
		if !o.Passed() {
			return o, true
		}
	}
	return OutputVerdict{}, false
}

func (v Verdict) outputsString() string {
	failing := 0
	for _, o := range v.Outputs {
		if !o.Passed() {
			failing++
		}
	}
	if failing == 0 {
		return fmt.Sprintf("PASS: %d outputs, %d values match", len(v.Outputs), v.Compared)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "FAIL: %d/%d outputs differ", failing, len(v.Outputs))
	for _, o := range v.Outputs {
		if o.Passed() {
			continue
		}
		detail := strings.ReplaceAll(o.Verdict.String(), "\n", "\n  ")
		fmt.Fprintf(&b, "\n  output %s: %s", o.Name, detail)
	}
	return b.String()
}

// StructComparator compares each exported field of the struct T as a
// separate output with CompareAny. The `kbench` struct tag renames an
// output. A struct without fields is an output-less, timing-only
// implementation.
func StructComparator[T any]() (Comparator[T], error) {
	t := reflect.TypeFor[T]()
	if t.Kind() != reflect.Struct {
		return nil, unsupportedOutput(t.String())
	}
	if t.NumField() == 0 {
		return CompareNone[T], nil
	}

	scratch := NewConfig()
	outputs := make([]Output[T], 0, t.NumField())
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			return nil, unsupportedOutput(fmt.Sprintf("%s.%s is unexported", t, f.Name))
		}
		zero := reflect.Zero(f.Type).Interface()
		if v := CompareAny(scratch, zero, zero); errors.Is(v.Err, errUnsupportedAny) {
			return nil, unsupportedOutput(fmt.Sprintf("%s.%s (%s)", t, f.Name, f.Type))
		}
		name := f.Name
		if tag := f.Tag.Get("kbench"); tag != "" {
			name = tag
		}
		outputs = append(outputs, Output[T]{Name: name, compare: func(cfg *Config, ref, cand T) Verdict {
			return CompareAny(cfg,
				reflect.ValueOf(ref).Field(i).Interface(),
				reflect.ValueOf(cand).Field(i).Interface())
		}})
	}
	return CompareFields(outputs...), nil
}
