package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestPhaseString(t *testing.T) {
	tests := []struct {
		phase Phase
		want  string
	}{
		{PhaseSetup, "setup"},
		{PhaseRender, "render"},
		{PhaseTask, "task"},
		{PhaseEvent, "event"},
		{PhaseLoop, "loop"},
		{Phase(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.phase.String(); got != tt.want {
			t.Errorf("Phase(%d).String() = %q, want %q", tt.phase, got, tt.want)
		}
	}
}

func TestRecordError(t *testing.T) {
	rec := Record{
		Phase:     PhaseRender,
		Component: "TodoList",
		Err:       stderrors.New("boom"),
	}
	got := rec.Error()
	want := "render failure in TodoList: boom"
	if got != want {
		t.Errorf("Record.Error() = %q, want %q", got, want)
	}

	rec2 := Record{Phase: PhaseTask, Err: stderrors.New("boom")}
	if got := rec2.Error(); got != "task failure: boom" {
		t.Errorf("Record.Error() = %q, want %q", got, "task failure: boom")
	}
}

func TestRecordUnwrap(t *testing.T) {
	inner := stderrors.New("inner")
	rec := Record{Phase: PhaseTask, Err: fmt.Errorf("wrapped: %w", inner)}
	if !stderrors.Is(rec, inner) {
		t.Error("expected errors.Is to reach the inner error through Record")
	}
}

func TestPanicErrorUnwrapsErrorValues(t *testing.T) {
	inner := stderrors.New("inner")
	pe := &PanicError{Value: inner}
	if !stderrors.Is(pe, inner) {
		t.Error("expected errors.Is to reach an error panic value")
	}

	nonError := &PanicError{Value: "plain string"}
	if nonError.Unwrap() != nil {
		t.Error("expected nil Unwrap for non-error panic values")
	}
}

func TestLoopErrorMessage(t *testing.T) {
	le := &LoopError{Component: "Spinner", Cycles: 65, Limit: 64}
	got := le.Error()
	if !strings.Contains(got, "infinite loop detected") {
		t.Errorf("LoopError.Error() = %q, should mention infinite loop detected", got)
	}
	if !strings.Contains(got, "Spinner") {
		t.Errorf("LoopError.Error() = %q, should name the component", got)
	}
}

func TestLoopErrorMatchesWithAs(t *testing.T) {
	rec := Record{
		Phase: PhaseLoop,
		Err:   &LoopError{Component: "Spinner", Cycles: 65, Limit: 64},
	}
	var le *LoopError
	if !stderrors.As(rec, &le) {
		t.Fatal("expected errors.As to find LoopError inside Record")
	}
	if le.Cycles != 65 {
		t.Errorf("Cycles = %d, want 65", le.Cycles)
	}
}

func TestFromPanic(t *testing.T) {
	rec := FromPanic(PhaseEvent, "Button", "boom")
	if rec.Phase != PhaseEvent {
		t.Errorf("Phase = %v, want PhaseEvent", rec.Phase)
	}
	if rec.Component != "Button" {
		t.Errorf("Component = %q, want %q", rec.Component, "Button")
	}
	if rec.StackTrace == "" {
		t.Error("expected captured stack trace")
	}
	if rec.Timestamp.IsZero() {
		t.Error("expected Timestamp to be set")
	}
	var pe *PanicError
	if !stderrors.As(rec, &pe) {
		t.Fatal("expected PanicError wrapping")
	}
	if pe.Value != "boom" {
		t.Errorf("Value = %v, want %q", pe.Value, "boom")
	}
}

func TestReport(t *testing.T) {
	var captured []Record
	handler := &testHandler{on: func(rec Record) { captured = append(captured, rec) }}

	SetHandler(handler)
	defer SetHandler(nil)

	Report(Record{Phase: PhaseTask, Err: stderrors.New("boom")})

	if len(captured) != 1 {
		t.Fatalf("captured %d records, want 1", len(captured))
	}
	if captured[0].Timestamp.IsZero() {
		t.Error("expected Report to fill Timestamp")
	}
}

func TestRecover(t *testing.T) {
	var captured []Record
	SetHandler(&testHandler{on: func(rec Record) { captured = append(captured, rec) }})
	defer SetHandler(nil)

	func() {
		defer Recover(PhaseTask, "worker")
		panic("intentional test panic")
	}()

	if len(captured) != 1 {
		t.Fatalf("captured %d records, want 1", len(captured))
	}
	if captured[0].Phase != PhaseTask {
		t.Errorf("Phase = %v, want PhaseTask", captured[0].Phase)
	}
	if captured[0].Component != "worker" {
		t.Errorf("Component = %q, want %q", captured[0].Component, "worker")
	}
}

func TestRecoverWithCallback(t *testing.T) {
	SetHandler(&testHandler{on: func(Record) {}})
	defer SetHandler(nil)

	var fromCallback Record
	func() {
		defer RecoverWithCallback(PhaseEvent, "Button", func(rec Record) { fromCallback = rec })
		panic("boom")
	}()

	if fromCallback.Phase != PhaseEvent {
		t.Errorf("callback Phase = %v, want PhaseEvent", fromCallback.Phase)
	}
}

func TestCaptureStack(t *testing.T) {
	stack := CaptureStack()
	if stack == "" {
		t.Error("expected non-empty stack trace")
	}
	if !strings.Contains(stack, "testing") && !strings.Contains(stack, "runtime") {
		t.Errorf("stack trace should contain testing or runtime frames, got: %s", stack)
	}
}

func TestSetHandlerNil(t *testing.T) {
	SetHandler(nil)
	if DefaultHandler == nil {
		t.Error("SetHandler(nil) should set default LogHandler, not nil")
	}
	if _, ok := DefaultHandler.(*LogHandler); !ok {
		t.Errorf("SetHandler(nil) should set LogHandler, got %T", DefaultHandler)
	}
}

type testHandler struct {
	on func(Record)
}

func (h *testHandler) Handle(rec Record) {
	if h.on != nil {
		h.on(rec)
	}
}
