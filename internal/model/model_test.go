package model

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCategoryTable(t *testing.T) {
	names := ClassNames()
	assert.Equal(t, []string{"Kaca", "Logam", "Kertas", "Residu", "Kardus", "Plastik"}, names)

	names[0] = "mutated"
	assert.Equal(t, "Kaca", ClassNames()[0], "ClassNames must return a copy")

	for _, c := range Categories() {
		assert.NotEmpty(t, c.English)
		assert.Equal(t, c.Suggestion, SuggestionFor(c.Name))
	}
	assert.Equal(t, "Tempatkan residu di tempat sampah umum.", SuggestionFor("Residu"))
	assert.Equal(t, NoSuggestion, SuggestionFor("Kaleng"))
	assert.Equal(t, NoSuggestion, SuggestionFor(""))
}

func TestServiceInfo(t *testing.T) {
	info := ServiceInfo()
	assert.Len(t, info.OutputClasses, 6)
	assert.Equal(t, "224x224 pixels", info.InputSize)
	assert.Equal(t, DefaultMetadata().ImageSize, 128)
}

func TestMetadata_InputSize(t *testing.T) {
	assert.Equal(t, 128*128*3, DefaultMetadata().InputSize())
	assert.Equal(t, 0, Metadata{}.InputSize())
}

func TestInterpret(t *testing.T) {
	classes := ClassNames()
	tests := []struct {
		name       string
		outputs    []float32
		wantLabel  string
		wantConfid float64
	}{
		{"probabilities", []float32{0.05, 0.1, 0.7, 0.05, 0.05, 0.05}, "Kertas", 70},
		{"last class", []float32{0, 0, 0, 0, 0, 1}, "Plastik", 100},
		{"first wins ties", []float32{0.5, 0.5, 0, 0, 0, 0}, "Kaca", 50},
		{"logits", []float32{2, 0, 0, 0, 0, 0}, "Kaca", 100 * 7.38905609893065 / (7.38905609893065 + 5)},
		{"extra outputs ignored", []float32{0.1, 0.2, 0.1, 0.1, 0.4, 0.1, 0.99}, "Kardus", 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := interpret(tt.outputs, classes)
			require.NoError(t, err)
			assert.Equal(t, tt.wantLabel, got.Label)
			assert.InDelta(t, tt.wantConfid, got.Confidence, 1e-4)
			assert.Equal(t, SuggestionFor(tt.wantLabel), got.Suggestion)
			assert.GreaterOrEqual(t, got.Confidence, 0.0)
			assert.LessOrEqual(t, got.Confidence, 100.0)
			assert.Empty(t, got.ImageURL)
		})
	}
}

func TestInterpret_Errors(t *testing.T) {
	_, err := interpret(nil, ClassNames())
	assert.ErrorIs(t, err, errEmptyOutput)

	_, err = interpret([]float32{0.1, float32(math.NaN()), 0, 0, 0, 0}, ClassNames())
	assert.ErrorIs(t, err, errNaNOutput)
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func solidImage(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestDecodeImage(t *testing.T) {
	img, format, err := DecodeImage(encodePNG(t, solidImage(4, 3, color.White)))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 4, img.Bounds().Dx())

	_, _, err = DecodeImage([]byte("definitely not an image"))
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, _, err = DecodeImage(nil)
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestPreprocess_Layouts(t *testing.T) {
	src := solidImage(300, 200, color.NRGBA{R: 200, G: 100, B: 50, A: 255})

	nhwc := Preprocess(src, 128, LayoutNHWC, 1)
	require.Len(t, nhwc, 128*128*3)
	assert.InDelta(t, 200, nhwc[0], 1)
	assert.InDelta(t, 100, nhwc[1], 1)
	assert.InDelta(t, 50, nhwc[2], 1)
	last := len(nhwc) - 3
	assert.InDelta(t, 200, nhwc[last], 1)

	nchw := Preprocess(src, 128, LayoutNCHW, 1.0/255)
	require.Len(t, nchw, 128*128*3)
	plane := 128 * 128
	assert.InDelta(t, 200.0/255, nchw[0], 0.01)
	assert.InDelta(t, 100.0/255, nchw[plane], 0.01)
	assert.InDelta(t, 50.0/255, nchw[2*plane], 0.01)
}

func TestPreprocess_DropsAlphaAndGray(t *testing.T) {
	translucent := solidImage(10, 10, color.NRGBA{R: 255, G: 0, B: 0, A: 128})
	data := Preprocess(translucent, 8, LayoutNHWC, 1)
	assert.InDelta(t, 255, data[0], 1, "alpha must not darken the colour channels")

	gray := image.NewGray(image.Rect(0, 0, 10, 10))
	for i := range gray.Pix {
		gray.Pix[i] = 90
	}
	data = Preprocess(gray, 8, LayoutNHWC, 1)
	require.Len(t, data, 8*8*3)
	assert.InDelta(t, 90, data[0], 1)
	assert.InDelta(t, 90, data[1], 1)
	assert.InDelta(t, 90, data[2], 1)
}

func TestApplyDeclaredShapes(t *testing.T) {
	m := DefaultMetadata()
	applyDeclaredShapes(&m, []int64{-1, 3, 224, 224}, []int64{-1, 6})
	assert.Equal(t, LayoutNCHW, m.Layout)
	assert.Equal(t, 224, m.ImageSize)
	assert.Equal(t, []int64{1, 3, 224, 224}, m.InputShape)
	assert.Equal(t, []int64{1, 6}, m.OutputShape)

	m = DefaultMetadata()
	applyDeclaredShapes(&m, []int64{-1, 128, 128, 3}, []int64{-1, 6})
	assert.Equal(t, LayoutNHWC, m.Layout)
	assert.Equal(t, 128, m.ImageSize)
	assert.Equal(t, []int64{1, 128, 128, 3}, m.InputShape)

	m = DefaultMetadata()
	applyDeclaredShapes(&m, []int64{1, 5, 7, 9}, []int64{6})
	assert.Equal(t, DefaultMetadata(), m, "unrecognised shapes leave defaults alone")
}

func TestMergeMetadata(t *testing.T) {
	m := DefaultMetadata()
	m.InputName, m.OutputName = "input_1", "dense_1"

	mergeMetadata(&m, Metadata{ImageSize: 96, InputShape: []int64{1, 96, 96, 3}, OutputName: "softmax"})

	assert.Equal(t, 96, m.ImageSize)
	assert.Equal(t, []int64{1, 96, 96, 3}, m.InputShape)
	assert.Equal(t, "input_1", m.InputName)
	assert.Equal(t, "softmax", m.OutputName)
	assert.Equal(t, ClassNames(), m.Classes)
	assert.Equal(t, LayoutNHWC, m.Layout)
}

type mockDownloader struct {
	mock.Mock
}

func (m *mockDownloader) DownloadToFile(ctx context.Context, bucket, object, localPath string) error {
	args := m.Called(ctx, bucket, object, localPath)
	if args.Error(0) == nil {
		if err := os.WriteFile(localPath, []byte("onnx"), 0o644); err != nil {
			return err
		}
	}
	return args.Error(0)
}

func TestEnsureModel_Downloads(t *testing.T) {
	logger, _ := test.NewNullLogger()
	path := filepath.Join(t.TempDir(), "tmp", "model.onnx")

	d := &mockDownloader{}
	d.On("DownloadToFile", mock.Anything, "model-ecosnap", "model2.onnx", path).Return(nil).Once()

	require.NoError(t, EnsureModel(context.Background(), d, "model-ecosnap", "model2.onnx", path, logger))
	d.AssertExpectations(t)

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestEnsureModel_SkipsExisting(t *testing.T) {
	logger, hook := test.NewNullLogger()
	path := filepath.Join(t.TempDir(), "model.onnx")
	require.NoError(t, os.WriteFile(path, []byte("cached"), 0o644))

	d := &mockDownloader{}
	require.NoError(t, EnsureModel(context.Background(), d, "b", "o", path, logger))
	d.AssertNotCalled(t, "DownloadToFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
}

func TestEnsureModel_DownloadError(t *testing.T) {
	logger, _ := test.NewNullLogger()
	path := filepath.Join(t.TempDir(), "model.onnx")

	d := &mockDownloader{}
	d.On("DownloadToFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("storage: object doesn't exist"))

	err := EnsureModel(context.Background(), d, "model-ecosnap", "missing.onnx", path, logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gs://model-ecosnap/missing.onnx")
}

func TestEnsureModel_DirectoryPath(t *testing.T) {
	logger, _ := test.NewNullLogger()
	err := EnsureModel(context.Background(), &mockDownloader{}, "b", "o", t.TempDir(), logger)
	assert.ErrorContains(t, err, "is a directory")
}
