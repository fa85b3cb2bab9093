package recognizer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"google.golang.org/api/googleapi"

	"github.com/wangpeng1017/demoocr/internal/config"
	"github.com/wangpeng1017/demoocr/internal/models"
)

type fakeRecognizer struct {
	key   Key
	kind  models.Kind
	calls int
	fn    func(call int) (*Result, error)
}

func (f *fakeRecognizer) Key() Key          { return f.key }
func (f *fakeRecognizer) Name() string      { return string(f.key) }
func (f *fakeRecognizer) Kind() models.Kind { return f.kind }

func (f *fakeRecognizer) Recognize(ctx context.Context, image []byte, mimeType string) (*Result, error) {
	f.calls++
	return f.fn(f.calls)
}

func TestInvokeRetry(t *testing.T) {
	tests := []struct {
		name       string
		fn         func(call int) (*Result, error)
		wantCalls  int
		wantStatus models.Status
	}{
		{
			name: "transient failure retried exactly three attempts",
			fn: func(call int) (*Result, error) {
				return nil, &StatusError{Code: 503, Body: "overloaded"}
			},
			wantCalls:  3,
			wantStatus: models.StatusFailure,
		},
		{
			name: "permanent failure not retried",
			fn: func(call int) (*Result, error) {
				return nil, fmt.Errorf("GOOGLE_API_KEY environment variable not set")
			},
			wantCalls:  1,
			wantStatus: models.StatusFailure,
		},
		{
			name: "transient failure recovered on final attempt",
			fn: func(call int) (*Result, error) {
				if call < 3 {
					return nil, &StatusError{Code: 429, Body: "rate limited"}
				}
				return &Result{RawText: "ok"}, nil
			},
			wantCalls:  3,
			wantStatus: models.StatusSuccess,
		},
		{
			name: "immediate success",
			fn: func(call int) (*Result, error) {
				return &Result{RawText: "ok"}, nil
			},
			wantCalls:  1,
			wantStatus: models.StatusSuccess,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeRecognizer{key: "fake", kind: models.KindLLM, fn: tt.fn}
			outcome := invoke(context.Background(), rec, []byte("img"), "image/jpeg", time.Millisecond)

			if rec.calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", rec.calls, tt.wantCalls)
			}
			if outcome.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", outcome.Status, tt.wantStatus)
			}
			if outcome.Key != "fake" {
				t.Errorf("key = %q, want %q", outcome.Key, "fake")
			}
			if outcome.Status == models.StatusFailure && outcome.Error == "" {
				t.Error("failure outcome has empty error message")
			}
			if outcome.Status == models.StatusSuccess && outcome.Error != "" {
				t.Errorf("success outcome carries error %q", outcome.Error)
			}
			if outcome.DurationMs < 0 {
				t.Errorf("durationMs = %d, want >= 0", outcome.DurationMs)
			}
		})
	}
}

func TestInvokeNeverPanicsOrPropagates(t *testing.T) {
	rec := &fakeRecognizer{key: "fake", kind: models.KindOCR, fn: func(call int) (*Result, error) {
		return nil, errors.New("backend exploded")
	}}

	outcome := invoke(context.Background(), rec, nil, "image/png", time.Millisecond)
	if outcome.Status != models.StatusFailure {
		t.Fatalf("status = %q, want failure", outcome.Status)
	}
	if outcome.Error != "backend exploded" {
		t.Errorf("error = %q, want backend error message", outcome.Error)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"http 429", &StatusError{Code: 429}, true},
		{"http 503", &StatusError{Code: 503}, true},
		{"http 500", &StatusError{Code: 500}, false},
		{"http 401", &StatusError{Code: 401}, false},
		{"wrapped status error", fmt.Errorf("failed: %w", &StatusError{Code: 503}), true},
		{"googleapi 429", &googleapi.Error{Code: 429}, true},
		{"googleapi 503", &googleapi.Error{Code: 503}, true},
		{"googleapi 400", &googleapi.Error{Code: 400, Message: "bad request"}, false},
		{"overloaded message", errors.New("the model is overloaded"), true},
		{"unavailable message", errors.New("Service UNAVAILABLE"), true},
		{"retry message", errors.New("please retry in a moment"), true},
		{"permanent message", errors.New("invalid api key"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isTransient(tt.err); got != tt.want {
				t.Errorf("isTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	base := config.Config{Models: map[string]string{}}

	keys := func(recs []Recognizer) []Key {
		out := make([]Key, len(recs))
		for i, r := range recs {
			out[i] = r.Key()
		}
		return out
	}

	t.Run("default set", func(t *testing.T) {
		got := keys(Registry(base))
		want := []Key{KeyGeminiPro, KeyGeminiFlash, KeyGLM4V, KeyBaiduOCR, KeyTesseract}
		if len(got) != len(want) {
			t.Fatalf("registry = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("registry[%d] = %q, want %q", i, got[i], want[i])
			}
		}
	})

	t.Run("ollama registered when endpoint configured", func(t *testing.T) {
		cfg := base
		cfg.OllamaURL = "http://localhost:11434"
		got := keys(Registry(cfg))
		found := false
		for _, k := range got {
			if k == KeyOllama {
				found = true
			}
		}
		if !found {
			t.Errorf("registry %v does not include %q", got, KeyOllama)
		}
	})
}
