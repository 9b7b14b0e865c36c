package http

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/example/lesson-scheduler/internal/application"
)

type stubAuthenticator struct {
	tokens map[string]application.Role
	err    error
}

func (s stubAuthenticator) Authenticate(ctx context.Context, token string) (application.Role, error) {
	if s.err != nil {
		return "", s.err
	}
	role, ok := s.tokens[token]
	if !ok {
		return "", application.ErrUnauthorized
	}
	return role, nil
}

func TestRequireToken(t *testing.T) {
	t.Parallel()

	auth := stubAuthenticator{tokens: map[string]application.Role{
		"secret-admin":   application.RoleAdmin,
		"secret-student": application.RoleStudent,
	}}

	var seenRole application.Role
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenRole, _ = RoleFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	handler := RequireToken(auth, nil)(next)

	t.Run("missing token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/lessons", nil)
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)
		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", recorder.Code)
		}
		if recorder.Header().Get("WWW-Authenticate") == "" {
			t.Fatalf("expected WWW-Authenticate header")
		}
	})

	t.Run("unknown token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/lessons", nil)
		req.Header.Set("Authorization", "Bearer nope")
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)
		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", recorder.Code)
		}
	})

	t.Run("valid token stores role", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/lessons", nil)
		req.Header.Set("Authorization", "bearer secret-admin")
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)
		if recorder.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", recorder.Code)
		}
		if seenRole != application.RoleAdmin {
			t.Fatalf("expected admin role in context, got %q", seenRole)
		}
	})

	t.Run("verifier failure", func(t *testing.T) {
		t.Parallel()

		broken := RequireToken(stubAuthenticator{err: errors.New("corrupt hash")}, nil)(next)
		req := httptest.NewRequest(http.MethodGet, "/lessons", nil)
		req.Header.Set("Authorization", "Bearer anything")
		recorder := httptest.NewRecorder()
		broken.ServeHTTP(recorder, req)
		if recorder.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", recorder.Code)
		}
	})
}

func TestRouter_RoleGatesWrites(t *testing.T) {
	t.Parallel()

	auth := stubAuthenticator{tokens: map[string]application.Role{
		"secret-secretary": application.RoleSecretary,
		"secret-student":   application.RoleStudent,
	}}
	lessons := &fakeLessonService{createResult: sampleLesson("lesson-1")}
	router := NewRouter(RouterConfig{
		Lessons:    NewLessonHandler(lessons, nil),
		Middleware: []func(http.Handler) http.Handler{RequireToken(auth, nil)},
	})

	body := `{"classId":"class-1","title":"Unit 1","date":"2024-03-11","startTime":"09:00","endTime":"10:00"}`
	send := func(token, method, path, body string) int {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+token)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)
		return recorder.Code
	}

	if code := send("secret-student", http.MethodPost, "/lessons", body); code != http.StatusForbidden {
		t.Fatalf("expected student write to be forbidden, got %d", code)
	}
	if code := send("secret-student", http.MethodDelete, "/lessons/lesson-1", ""); code != http.StatusForbidden {
		t.Fatalf("expected student delete to be forbidden, got %d", code)
	}
	if lessons.calls != 0 {
		t.Fatalf("expected forbidden requests not to reach the service, got %d calls", lessons.calls)
	}
	if code := send("secret-student", http.MethodGet, "/lessons", ""); code != http.StatusOK {
		t.Fatalf("expected student read to succeed, got %d", code)
	}
	if code := send("secret-secretary", http.MethodPost, "/lessons", body); code != http.StatusCreated {
		t.Fatalf("expected secretary write to succeed, got %d", code)
	}
}

func TestRequestLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var fromContext *slog.Logger
	handler := RequestLogger(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromContext = LoggerFromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/lessons", nil))

	if fromContext == nil {
		t.Fatalf("expected request logger in context")
	}
	output := buf.String()
	for _, want := range []string{"request completed", "status=418", "request_id=1", "path=/lessons"} {
		if !strings.Contains(output, want) {
			t.Fatalf("expected %q in log output:\n%s", want, output)
		}
	}
}

func TestExtractBearerToken(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"":                  "",
		"Bearer abc":        "abc",
		"bearer   abc  ":    "abc",
		"Basic dXNlcjpwYXNz": "",
		"Bearer ":           "",
	}
	for header, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		if got := extractBearerToken(req); got != want {
			t.Fatalf("header %q: expected %q, got %q", header, want, got)
		}
	}
}
