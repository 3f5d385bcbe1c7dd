package errors

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseAttach,
				Kind:   KindAttachment,
				Module: "mono-2.0-bdwgc.dll",
				Thread: 4242,
				Detail: "attach rejected",
			},
			contains: []string{"[attach]", "attachment", "mono-2.0-bdwgc.dll", "4242", "attach rejected"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseDiscover,
				Kind:  KindModuleNotFound,
			},
			contains: []string{"[discover]", "module_not_found"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseInitialize,
				Kind:   KindInitialization,
				Detail: "root domain poll",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[initialize]", "initialization", "root domain poll", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseInitialize,
		Kind:  KindInitialization,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}

	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase:  PhaseDetach,
		Kind:   KindDetachment,
		Thread: 99,
	}

	// Matches on phase+kind even with different context fields.
	if !errors.Is(err, &Error{Phase: PhaseDetach, Kind: KindDetachment}) {
		t.Error("expected match on phase and kind")
	}

	if errors.Is(err, &Error{Phase: PhaseDetach, Kind: KindAttachment}) {
		t.Error("unexpected match with different kind")
	}
	if errors.Is(err, &Error{Phase: PhaseAttach, Kind: KindDetachment}) {
		t.Error("unexpected match with different phase")
	}
	if errors.Is(err, errors.New("plain")) {
		t.Error("unexpected match with plain error")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("dlsym failed")
	err := New(PhaseInitialize, KindSymbolMissing).
		Module("libmonosgen-2.0.so").
		Thread(7).
		Detail("export %q not found", "mono_thread_attach").
		Cause(cause).
		Build()

	if err.Phase != PhaseInitialize || err.Kind != KindSymbolMissing {
		t.Fatalf("unexpected phase/kind: %s/%s", err.Phase, err.Kind)
	}
	if err.Module != "libmonosgen-2.0.so" {
		t.Errorf("module = %q", err.Module)
	}
	if err.Thread != 7 {
		t.Errorf("thread = %d", err.Thread)
	}
	if !strings.Contains(err.Detail, `"mono_thread_attach"`) {
		t.Errorf("detail = %q", err.Detail)
	}
	if !errors.Is(err, cause) {
		t.Error("cause not reachable via errors.Is")
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("module not found", func(t *testing.T) {
		err := ModuleNotFound([]string{"mono.dll", "libmono.so"}, 5*time.Second)
		msg := err.Error()
		for _, want := range []string{"mono.dll", "libmono.so", "5s"} {
			if !strings.Contains(msg, want) {
				t.Errorf("message %q missing %q", msg, want)
			}
		}
	})

	t.Run("not ready names the async entry point", func(t *testing.T) {
		err := NotReady("root domain")
		if !strings.Contains(err.Error(), "Perform") {
			t.Errorf("message %q should instruct caller to use Perform", err.Error())
		}
	})

	t.Run("detach failed carries thread", func(t *testing.T) {
		cause := errors.New("native failure")
		err := DetachFailed(1234, cause)
		if err.Thread != 1234 {
			t.Errorf("thread = %d", err.Thread)
		}
		if !errors.Is(err, cause) {
			t.Error("cause not wrapped")
		}
	})

	t.Run("disposed", func(t *testing.T) {
		if !errors.Is(Disposed(), &Error{Phase: PhaseDispose, Kind: KindDisposed}) {
			t.Error("Disposed sentinel mismatch")
		}
	})
}
