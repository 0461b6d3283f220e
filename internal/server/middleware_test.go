package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}), mw("outer"), mw("inner"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestDevHeaders(t *testing.T) {
	_, ts := testServer(t, map[string]string{
		"dist/a.css":        "a{}",
		"dist/index.html":   "<html><body>Home</body></html>",
		"dist/images/a.png": "png",
	})

	for _, p := range []string{"/a.css", "/", "/index.html", "/images/", PathClient} {
		resp, _ := get(t, ts.URL+p)
		assert.Equal(t, http.StatusOK, resp.StatusCode, p)
		assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"), p)
		assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"), p)
		assert.Equal(t, "SAMEORIGIN", resp.Header.Get("X-Frame-Options"), p)
	}
}

func TestStatusRecorder(t *testing.T) {
	w := httptest.NewRecorder()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	rec.WriteHeader(http.StatusTeapot)
	assert.Equal(t, http.StatusTeapot, rec.status)
	assert.Equal(t, http.StatusTeapot, w.Code)

	_, _, err := rec.Hijack()
	assert.Error(t, err)
}
