package registration

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// script builds steps that append their activity to a shared log, so
// tests can assert both order and direction of the unwind.
type script struct {
	calls []string
}

func (s *script) step(name string, runErr, compErr error) Step {
	return Step{
		Name: name,
		Run: func(context.Context) error {
			s.calls = append(s.calls, "run:"+name)
			return runErr
		},
		Compensate: func(context.Context) error {
			s.calls = append(s.calls, "undo:"+name)
			return compErr
		},
	}
}

func TestExecuteRunsStepsInOrder(t *testing.T) {
	sc := &script{}
	saga := New(WithLogger(discardLogger()))

	err := saga.Execute(context.Background(), []Step{
		sc.step("first", nil, nil),
		sc.step("second", nil, nil),
		sc.step("third", nil, nil),
	})
	if err != nil {
		t.Fatalf("Execute() error = %v, want nil", err)
	}

	want := []string{"run:first", "run:second", "run:third"}
	if !slices.Equal(sc.calls, want) {
		t.Fatalf("calls = %v, want %v", sc.calls, want)
	}
}

func TestExecuteCompensatesCompletedStepsInReverseOrder(t *testing.T) {
	sc := &script{}
	saga := New(WithLogger(discardLogger()))
	boom := errors.New("identity provider down")

	err := saga.Execute(context.Background(), []Step{
		sc.step("first", nil, nil),
		sc.step("second", nil, nil),
		sc.step("third", nil, nil),
		sc.step("fourth", boom, nil),
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Execute() error = %v, want %v", err, boom)
	}

	want := []string{
		"run:first", "run:second", "run:third", "run:fourth",
		"undo:third", "undo:second", "undo:first",
	}
	if !slices.Equal(sc.calls, want) {
		t.Fatalf("calls = %v, want %v", sc.calls, want)
	}
}

func TestExecuteFirstStepFailureCompensatesNothing(t *testing.T) {
	sc := &script{}
	saga := New(WithLogger(discardLogger()))
	boom := errors.New("name taken")

	err := saga.Execute(context.Background(), []Step{
		sc.step("first", boom, nil),
		sc.step("second", nil, nil),
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Execute() error = %v, want %v", err, boom)
	}

	want := []string{"run:first"}
	if !slices.Equal(sc.calls, want) {
		t.Fatalf("calls = %v, want %v", sc.calls, want)
	}
}

func TestExecuteSkipsNilCompensation(t *testing.T) {
	sc := &script{}
	saga := New(WithLogger(discardLogger()))
	boom := errors.New("store unavailable")

	checkOnly := Step{
		Name: "check",
		Run: func(context.Context) error {
			sc.calls = append(sc.calls, "run:check")
			return nil
		},
	}

	err := saga.Execute(context.Background(), []Step{
		checkOnly,
		sc.step("create", nil, nil),
		sc.step("fail", boom, nil),
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Execute() error = %v, want %v", err, boom)
	}

	want := []string{"run:check", "run:create", "run:fail", "undo:create"}
	if !slices.Equal(sc.calls, want) {
		t.Fatalf("calls = %v, want %v", sc.calls, want)
	}
}

func TestExecuteFailedCompensationDoesNotMaskStepError(t *testing.T) {
	sc := &script{}
	stepErr := errors.New("profile store rejected the row")
	undoErr := errors.New("school row is stuck")

	var hookStep string
	var hookErr error
	saga := New(
		WithLogger(discardLogger()),
		WithCompensationFailureHandler(func(_ context.Context, step string, err error) {
			hookStep = step
			hookErr = err
		}),
	)

	err := saga.Execute(context.Background(), []Step{
		sc.step("create_school", nil, undoErr),
		sc.step("create_profile", stepErr, nil),
	})
	if !errors.Is(err, stepErr) {
		t.Fatalf("Execute() error = %v, want the step error %v", err, stepErr)
	}
	if errors.Is(err, undoErr) {
		t.Fatal("Execute() surfaced the compensation error to the caller")
	}

	if hookStep != "create_school" {
		t.Errorf("failure handler step = %q, want %q", hookStep, "create_school")
	}
	if !errors.Is(hookErr, undoErr) {
		t.Errorf("failure handler error = %v, want %v", hookErr, undoErr)
	}
}

func TestExecuteFailedCompensationDoesNotStopUnwind(t *testing.T) {
	sc := &script{}
	saga := New(WithLogger(discardLogger()))

	err := saga.Execute(context.Background(), []Step{
		sc.step("first", nil, nil),
		sc.step("second", nil, errors.New("undo second failed")),
		sc.step("third", errors.New("step three failed"), nil),
	})
	if err == nil {
		t.Fatal("Execute() error = nil, want step error")
	}

	want := []string{"run:first", "run:second", "run:third", "undo:second", "undo:first"}
	if !slices.Equal(sc.calls, want) {
		t.Fatalf("calls = %v, want %v", sc.calls, want)
	}
}

func TestExecuteCompensationFailureHandlerNotCalledOnCleanUnwind(t *testing.T) {
	sc := &script{}
	called := false
	saga := New(
		WithLogger(discardLogger()),
		WithCompensationFailureHandler(func(context.Context, string, error) {
			called = true
		}),
	)

	_ = saga.Execute(context.Background(), []Step{
		sc.step("first", nil, nil),
		sc.step("second", errors.New("fail"), nil),
	})

	if called {
		t.Fatal("failure handler fired even though every compensation succeeded")
	}
}

func TestExecuteCompensationOutlivesAbandonedRequest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var undoCtxErr error
	steps := []Step{
		{
			Name: "create",
			Run:  func(context.Context) error { return nil },
			Compensate: func(ctx context.Context) error {
				undoCtxErr = ctx.Err()
				return nil
			},
		},
		{
			Name: "fail",
			Run: func(context.Context) error {
				// The caller hangs up while this step is in flight.
				cancel()
				return errors.New("downstream timeout")
			},
		},
	}

	saga := New(WithLogger(discardLogger()))
	if err := saga.Execute(ctx, steps); err == nil {
		t.Fatal("Execute() error = nil, want step error")
	}

	if undoCtxErr != nil {
		t.Fatalf("compensation context error = %v, want nil after caller cancellation", undoCtxErr)
	}
}
