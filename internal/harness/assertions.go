package harness

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/slicer/sequences/internal/engine"
	"github.com/slicer/sequences/internal/ir"
)

// floatTolerance bounds the difference between an expected and an actual
// number in content comparisons.
const floatTolerance = 1e-9

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string              // Assertion type for categorization
	Expected string              // Human-readable expected outcome
	Actual   string              // Human-readable actual outcome
	Trace    []engine.TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s selected=%d index_value=%q\n",
				ev.Seq, ev.Type, ev.Browser, ev.Selected, ev.IndexValue)
		}
	}
	return buf.String()
}

// AssertionContext provides the workspace for state assertions.
type AssertionContext struct {
	Engine *engine.Engine
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertSelected, AssertProxy, AssertItem, AssertIndexValues:
			if actx == nil || actx.Engine == nil {
				err = fmt.Errorf("assertion[%d]: %s requires an engine", i, assertion.Type)
				break
			}
			err = assertState(actx.Engine, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}
	return errors
}

// assertTraceCount checks that the trace holds exactly Count events of the
// given type, restricted to one browser when Browser is set.
func assertTraceCount(trace []engine.TraceEvent, assertion Assertion) error {
	count := 0
	for _, ev := range trace {
		if ev.Type == assertion.Event && (assertion.Browser == "" || ev.Browser == assertion.Browser) {
			count++
		}
	}
	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d %s events", assertion.Count, assertion.Event),
			Actual:   fmt.Sprintf("%d events", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertTraceOrder checks that the event types appear in order.
// Intervening events are allowed.
func assertTraceOrder(trace []engine.TraceEvent, assertion Assertion) error {
	next := 0
	for _, ev := range trace {
		if next < len(assertion.Events) && ev.Type == assertion.Events[next] {
			next++
		}
	}
	if next < len(assertion.Events) {
		return &AssertionError{
			Type:     AssertTraceOrder,
			Expected: fmt.Sprintf("events in order: %v", assertion.Events),
			Actual:   fmt.Sprintf("no %s after the first %d matched", assertion.Events[next], next),
			Trace:    trace,
		}
	}
	return nil
}

func assertState(e *engine.Engine, a Assertion) error {
	switch a.Type {
	case AssertSelected:
		b := e.Browser(a.Browser)
		if b == nil {
			return fmt.Errorf("selected: unknown browser %q", a.Browser)
		}
		if got := b.SelectedItemNumber(); got != a.Item {
			return &AssertionError{
				Type:     AssertSelected,
				Expected: fmt.Sprintf("browser %s at item %d", a.Browser, a.Item),
				Actual:   fmt.Sprintf("item %d", got),
			}
		}

	case AssertProxy:
		b := e.Browser(a.Browser)
		if b == nil {
			return fmt.Errorf("proxy: unknown browser %q", a.Browser)
		}
		seq := e.Sequence(a.Sequence)
		if seq == nil {
			return fmt.Errorf("proxy: unknown sequence %q", a.Sequence)
		}
		proxy := b.Proxy(seq)
		if proxy == nil {
			return &AssertionError{
				Type:     AssertProxy,
				Expected: fmt.Sprintf("a proxy for %s in %s", a.Sequence, a.Browser),
				Actual:   "no proxy",
			}
		}
		if a.Name != "" && proxy.Name() != a.Name {
			return &AssertionError{
				Type:     AssertProxy,
				Expected: fmt.Sprintf("proxy named %q", a.Name),
				Actual:   fmt.Sprintf("%q", proxy.Name()),
			}
		}
		if msg := matchContent(proxy.Content(), a.Expect); msg != "" {
			return &AssertionError{
				Type:     AssertProxy,
				Expected: fmt.Sprintf("proxy of %s holding %v", a.Sequence, a.Expect),
				Actual:   msg,
			}
		}

	case AssertItem:
		seq := e.Sequence(a.Sequence)
		if seq == nil {
			return fmt.Errorf("item: unknown sequence %q", a.Sequence)
		}
		n, ok := seq.DataNodeAtValue(a.At, true)
		if a.Absent {
			if ok {
				return &AssertionError{
					Type:     AssertItem,
					Expected: fmt.Sprintf("no item in %s at %s", a.Sequence, a.At),
					Actual:   fmt.Sprintf("%s item %q", n.Class(), n.Name()),
				}
			}
			return nil
		}
		if !ok {
			return &AssertionError{
				Type:     AssertItem,
				Expected: fmt.Sprintf("an item in %s at %s", a.Sequence, a.At),
				Actual:   fmt.Sprintf("index values %v", seq.IndexValues()),
			}
		}
		if msg := matchContent(n.Content(), a.Expect); msg != "" {
			return &AssertionError{
				Type:     AssertItem,
				Expected: fmt.Sprintf("item of %s at %s holding %v", a.Sequence, a.At, a.Expect),
				Actual:   msg,
			}
		}

	case AssertIndexValues:
		seq := e.Sequence(a.Sequence)
		if seq == nil {
			return fmt.Errorf("index_values: unknown sequence %q", a.Sequence)
		}
		got := seq.IndexValues()
		if !slices.Equal(got, a.Values) && (len(got) != 0 || len(a.Values) != 0) {
			return &AssertionError{
				Type:     AssertIndexValues,
				Expected: fmt.Sprintf("%v", a.Values),
				Actual:   fmt.Sprintf("%v", got),
			}
		}
	}
	return nil
}

// matchContent checks that actual holds every expected field (subset
// match). Returns a description of the first mismatch, or "".
func matchContent(actual ir.Object, expected map[string]any) string {
	for _, key := range sortedKeys(expected) {
		got, ok := actual[key]
		if !ok {
			return fmt.Sprintf("field %q missing", key)
		}
		if !valuesEqual(got, expected[key]) {
			return fmt.Sprintf("field %q = %v", key, got)
		}
	}
	return ""
}

// valuesEqual compares a content value with a YAML-parsed expectation.
// Numbers compare by value, so 2, 2.0 and "2" written by ir.Float match.
func valuesEqual(actual ir.Value, expected any) bool {
	switch exp := expected.(type) {
	case int:
		return numberEqual(actual, float64(exp))
	case int64:
		return numberEqual(actual, float64(exp))
	case float64:
		return numberEqual(actual, exp)
	case string:
		s, ok := actual.(ir.String)
		return ok && string(s) == exp
	case bool:
		b, ok := actual.(ir.Bool)
		return ok && bool(b) == exp
	case []any:
		list, ok := actual.(ir.List)
		if !ok || len(list) != len(exp) {
			return false
		}
		for i := range exp {
			if !valuesEqual(list[i], exp[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		obj, ok := actual.(ir.Object)
		return ok && matchContent(obj, exp) == ""
	default:
		return false
	}
}

func numberEqual(actual ir.Value, expected float64) bool {
	f, err := ir.AsFloat(actual)
	if err != nil {
		return false
	}
	return math.Abs(f-expected) <= floatTolerance
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
