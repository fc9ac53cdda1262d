package harness

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/slicer/sequences/internal/compiler"
	"github.com/slicer/sequences/internal/engine"
	"github.com/slicer/sequences/internal/ir"
	"github.com/slicer/sequences/internal/testutil"
)

// Harness drives one engine through a scenario's steps.
// The wall clock only moves on "advance" steps and IDs come from a fixed
// generator, so traces are identical across runs.
type Harness struct {
	engine *engine.Engine
	clock  *testutil.ManualClock
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
// 1. Compile and validate the scene description
// 2. Build it into a fresh engine with a manual clock and fixed IDs
// 3. Execute steps through Engine.Process
// 4. Evaluate assertions against the trace and the workspace
//
// Errors are returned for scenarios that cannot run at all (unreadable or
// invalid scene). Step and assertion failures are reported in the Result.
func Run(scenario *Scenario) (*Result, error) {
	desc, err := LoadScene(scenario.Scene)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	clock := testutil.NewManualClock(time.Time{})
	eng := engine.New(
		engine.WithClock(clock),
		engine.WithIDGenerator(testutil.NewFixedIDGenerator("id", scenario.IDs...)),
		engine.WithTickInterval(0),
		engine.WithTrace(result.AddTrace),
	)
	if err := eng.Build(desc); err != nil {
		return nil, fmt.Errorf("failed to build scene: %w", err)
	}

	h := &Harness{
		engine: eng,
		clock:  clock,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	h.executeSteps(scenario.Steps, result)

	for _, msg := range EvaluateAssertions(result, scenario.Assertions, &AssertionContext{Engine: eng}) {
		result.AddError(msg)
	}
	return result, nil
}

// LoadScene compiles a single CUE file into a validated scene description.
func LoadScene(path string) (ir.Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ir.Scene{}, fmt.Errorf("failed to read scene: %w", err)
	}
	v := cuecontext.New().CompileBytes(data, cue.Filename(path))
	desc, err := compiler.CompileScene(v)
	if err != nil {
		return ir.Scene{}, fmt.Errorf("failed to compile scene: %w", err)
	}
	if errs := compiler.Validate(desc); len(errs) > 0 {
		return ir.Scene{}, fmt.Errorf("invalid scene: %w", errs[0])
	}
	return desc, nil
}

// executeSteps runs every step, recording a failure for steps whose
// outcome differs from ExpectError.
func (h *Harness) executeSteps(steps []Step, result *Result) {
	for i, step := range steps {
		err := h.executeStep(step)
		switch {
		case err != nil && !step.ExpectError:
			result.AddError(fmt.Sprintf("step %d (%s): %v", i, step.Action, err))
		case err == nil && step.ExpectError:
			result.AddError(fmt.Sprintf("step %d (%s): expected an error", i, step.Action))
		}
		h.logger.Debug("step completed",
			"step", i,
			"action", step.Action,
			"browser", step.Browser,
			"error", err,
		)
	}
}

func (h *Harness) executeStep(step Step) error {
	switch step.Action {
	case StepAdvance:
		d, err := time.ParseDuration(step.Duration)
		if err != nil {
			return err
		}
		h.clock.Advance(d)
		return nil
	case StepTick:
		return h.engine.Process(engine.Command{Type: engine.CommandTick})
	case StepSelect:
		return h.engine.Process(engine.Command{Type: engine.CommandSelect, BrowserID: step.Browser, Item: step.Item})
	case StepSelectNext:
		return h.engine.Process(engine.Command{Type: engine.CommandSelectNext, BrowserID: step.Browser, Item: step.Item})
	case StepPlayback:
		return h.engine.Process(engine.Command{Type: engine.CommandSetPlayback, BrowserID: step.Browser, Enabled: step.Enabled})
	case StepRecord:
		return h.engine.Process(engine.Command{Type: engine.CommandSetRecording, BrowserID: step.Browser, Enabled: step.Enabled})
	case StepSnapshot:
		return h.engine.Process(engine.Command{Type: engine.CommandSnapshot, BrowserID: step.Browser})
	case StepModify:
		content, err := convertToObject(step.Content)
		if err != nil {
			return err
		}
		return h.engine.Process(engine.Command{
			Type:  engine.CommandApply,
			Apply: func(e *engine.Engine) error { return modifyProxy(e, step.Browser, step.Sequence, content) },
		})
	default:
		return fmt.Errorf("unknown action %q", step.Action)
	}
}

// modifyProxy replaces the content of a proxy, as an editor would.
func modifyProxy(e *engine.Engine, browserName, seqName string, content ir.Object) error {
	b := e.Browser(browserName)
	if b == nil {
		return engine.NewInvalidBrowserError(browserName)
	}
	seq := e.Sequence(seqName)
	if seq == nil {
		return engine.NewMissingReferenceError(b.ID(), seqName, "sequence "+seqName)
	}
	proxy := b.Proxy(seq)
	if proxy == nil {
		return fmt.Errorf("browser %s has no proxy for %s", browserName, seqName)
	}
	return proxy.SetContent(content)
}

// convertToObject converts YAML-parsed content to an ir.Object.
func convertToObject(content map[string]any) (ir.Object, error) {
	obj := make(ir.Object, len(content))
	for key, val := range content {
		v, err := convertToIRValue(val)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		obj[key] = v
	}
	return obj, nil
}

// convertToIRValue converts a YAML-parsed value to an ir.Value.
// Floats become decimal strings; null is rejected.
func convertToIRValue(val any) (ir.Value, error) {
	switch v := val.(type) {
	case nil:
		return nil, fmt.Errorf("null values are not allowed in content")
	case string:
		return ir.String(v), nil
	case int:
		return ir.Int(int64(v)), nil
	case int64:
		return ir.Int(v), nil
	case float64:
		return ir.Float(v), nil
	case bool:
		return ir.Bool(v), nil
	case []any:
		list := make(ir.List, len(v))
		for i, elem := range v {
			e, err := convertToIRValue(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			list[i] = e
		}
		return list, nil
	case map[string]any:
		return convertToObject(v)
	default:
		return nil, fmt.Errorf("unsupported type %T", val)
	}
}
