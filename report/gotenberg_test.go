package report

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderPageSendsLayoutFields(t *testing.T) {
	var fields map[string][]string
	var html string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/forms/chromium/convert/html", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		fields = r.MultipartForm.Value
		f, _, err := r.FormFile("files")
		require.NoError(t, err)
		raw, _ := io.ReadAll(f)
		html = string(raw)
		_, _ = w.Write([]byte("%PDF-1.7"))
	}))
	defer srv.Close()

	pdf, err := NewClient(srv.URL+"/").RenderPage(context.Background(), "<p>hi</p>", ReceiptPage)
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.7", string(pdf))
	require.Equal(t, "<p>hi</p>", html)
	require.Equal(t, []string{"3.15"}, fields["paperWidth"])
	require.Equal(t, []string{"0.1"}, fields["marginLeft"])
}

func TestRenderFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).RenderHTML(context.Background(), "<p/>")
	require.Error(t, err)
}

func TestDisabledClient(t *testing.T) {
	c := NewClient("")
	require.False(t, c.Enabled())
	_, err := c.RenderHTML(context.Background(), "x")
	require.ErrorIs(t, err, ErrDisabled)

	rec := httptest.NewRecorder()
	NewHandler(c, nil).ping(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"disabled"}`, rec.Body.String())
}
