package export

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteConcatListHoldsEachFrame(t *testing.T) {
	dir := t.TempDir()
	images := [][]byte{[]byte("a"), []byte("b"), []byte("c")}

	listPath, err := writeConcatList(dir, images)
	if err != nil {
		t.Fatalf("writeConcatList returned error: %v", err)
	}

	raw, err := os.ReadFile(listPath)
	if err != nil {
		t.Fatal(err)
	}
	want := "file 'image001.png'\nduration 5\n" +
		"file 'image002.png'\nduration 5\n" +
		"file 'image003.png'\nduration 5\n" +
		"file 'image003.png'\n"
	if string(raw) != want {
		t.Errorf("concat list:\n%s\nwant:\n%s", raw, want)
	}

	for i := range images {
		frame := filepath.Join(dir, fmt.Sprintf("image%03d.png", i+1))
		data, err := os.ReadFile(frame)
		if err != nil {
			t.Fatalf("frame %d not written: %v", i+1, err)
		}
		if !bytes.Equal(data, images[i]) {
			t.Errorf("frame %d content mismatch", i+1)
		}
	}
}

func TestWriteConcatListSingleImage(t *testing.T) {
	dir := t.TempDir()
	listPath, err := writeConcatList(dir, [][]byte{[]byte("only")})
	if err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(listPath)
	if err != nil {
		t.Fatal(err)
	}
	// The single frame still gets held and then repeated.
	want := "file 'image001.png'\nduration 5\nfile 'image001.png'\n"
	if string(raw) != want {
		t.Errorf("concat list = %q, want %q", raw, want)
	}
}

func TestComposeFallbackProducesCaptionedStill(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 8, 8))
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatal(err)
	}

	e := NewEngine()
	artifact, err := e.composeFallback([][]byte{buf.Bytes()}, "1:1", 7)
	if err != nil {
		t.Fatalf("composeFallback returned error: %v", err)
	}
	if !artifact.Degraded {
		t.Error("fallback composite must be marked degraded")
	}
	if artifact.ContentType != "image/png" {
		t.Errorf("content type = %q", artifact.ContentType)
	}
	if !strings.HasSuffix(artifact.Filename, ".png") {
		t.Errorf("filename = %q", artifact.Filename)
	}

	img, err := png.Decode(bytes.NewReader(artifact.Data))
	if err != nil {
		t.Fatalf("composite is not valid PNG: %v", err)
	}
	if w, h := img.Bounds().Dx(), img.Bounds().Dy(); w != 1080 || h != 1080 {
		t.Errorf("composite dimensions = %dx%d, want 1080x1080", w, h)
	}

	// The caption is white on black, so white pixels must exist near the
	// caption baseline even though every source pixel is transparent black.
	found := false
	for y := 1080 - 70; y < 1080-30 && !found; y++ {
		for x := 0; x < 1080; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			if r>>8 == 255 && g>>8 == 255 && b>>8 == 255 {
				found = true
				break
			}
		}
	}
	if !found {
		t.Error("caption text not rendered onto the composite")
	}
}

func TestComposeFallbackSurvivesUndecodableImages(t *testing.T) {
	e := NewEngine()
	artifact, err := e.composeFallback([][]byte{[]byte("not an image")}, "16:9", 3)
	if err != nil {
		t.Fatalf("composeFallback returned error: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(artifact.Data)); err != nil {
		t.Fatalf("composite is not valid PNG: %v", err)
	}
}
