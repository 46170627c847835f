package imageedit

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestEditSendsImageAndMask(t *testing.T) {
	edited := []byte("edited-image-bytes")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/images/edits" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("authorization = %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("not a multipart form: %v", err)
		}
		if got := r.FormValue("model"); got != "gpt-image-1" {
			t.Errorf("model = %q", got)
		}
		if got := r.FormValue("prompt"); got != "replace the sky" {
			t.Errorf("prompt = %q", got)
		}
		if got := r.FormValue("size"); got != "1024x576" {
			t.Errorf("size = %q", got)
		}

		img, _, err := r.FormFile("image")
		if err != nil {
			t.Fatalf("no image in form: %v", err)
		}
		defer img.Close()
		imgBytes, _ := io.ReadAll(img)
		if string(imgBytes) != "source" {
			t.Errorf("image bytes = %q", imgBytes)
		}

		maskFile, _, err := r.FormFile("mask")
		if err != nil {
			t.Fatalf("no mask in form: %v", err)
		}
		defer maskFile.Close()
		maskBytes, _ := io.ReadAll(maskFile)
		if string(maskBytes) != "mask" {
			t.Errorf("mask bytes = %q", maskBytes)
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]string{
				{"b64_json": base64.StdEncoding.EncodeToString(edited)},
			},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, "key")
	got, err := c.Edit(t.Context(), Params{
		Prompt: "replace the sky",
		Image:  []byte("source"),
		Mask:   []byte("mask"),
		Size:   "1024x576",
	})
	if err != nil {
		t.Fatalf("Edit returned error: %v", err)
	}
	if !bytes.Equal(got, edited) {
		t.Errorf("edited bytes = %q", got)
	}
}

func TestEditOmitsMaskWhenEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("not a multipart form: %v", err)
		}
		if _, _, err := r.FormFile("mask"); err == nil {
			t.Error("mask part present for a maskless edit")
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]string{{"b64_json": base64.StdEncoding.EncodeToString([]byte("x"))}},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, "key")
	if _, err := c.Edit(t.Context(), Params{Prompt: "p", Image: []byte("i")}); err != nil {
		t.Fatalf("Edit returned error: %v", err)
	}
}

func TestEditResolvesURLResponses(t *testing.T) {
	edited := []byte("from-url")

	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/images/edits":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": []map[string]string{{"url": server.URL + "/result.png"}},
			})
		case "/result.png":
			w.Write(edited)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	c := NewClient(server.URL, "key")
	got, err := c.Edit(t.Context(), Params{Prompt: "p", Image: []byte("i")})
	if err != nil {
		t.Fatalf("Edit returned error: %v", err)
	}
	if !bytes.Equal(got, edited) {
		t.Errorf("edited bytes = %q", got)
	}
}

func TestEditErrors(t *testing.T) {
	c := NewClient("http://unused", "")
	if _, err := c.Edit(t.Context(), Params{Prompt: "p", Image: []byte("i")}); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("error = %v, want ErrMissingAPIKey", err)
	}

	c = NewClient("http://unused", "key")
	if _, err := c.Edit(t.Context(), Params{Prompt: "p"}); err == nil {
		t.Fatal("expected error for missing source image")
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"message": "mask dimensions mismatch"},
		})
	}))
	defer server.Close()

	c = NewClient(server.URL, "key")
	_, err := c.Edit(t.Context(), Params{Prompt: "p", Image: []byte("i")})
	if err == nil || !strings.Contains(err.Error(), "mask dimensions mismatch") {
		t.Fatalf("error = %v, should carry API message", err)
	}
}
