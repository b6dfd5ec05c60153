package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAdminAuth(t *testing.T) {
	tests := []struct {
		name     string
		password string
		header   string
		want     int
	}{
		{name: "valid token", password: "s3cret", header: "Bearer s3cret", want: http.StatusOK},
		{name: "wrong token", password: "s3cret", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "missing header", password: "s3cret", header: "", want: http.StatusUnauthorized},
		{name: "wrong scheme", password: "s3cret", header: "Basic s3cret", want: http.StatusUnauthorized},
		{name: "prefix only", password: "s3cret", header: "Bearer s3cre", want: http.StatusUnauthorized},
		{name: "not configured", password: "", header: "Bearer anything", want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var actor string
			handler := AdminAuth(tt.password, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				actor = ActorFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/participants", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
			if tt.want == http.StatusOK && actor != ActorAdmin {
				t.Fatalf("expected admin actor in context, got %q", actor)
			}
		})
	}
}
