package model

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

type Options struct {
	MetadataPath string
	// LibraryPath points at libonnxruntime; empty uses the platform default.
	LibraryPath string
	InputScale  float32
}

// Server owns the ONNX Runtime session. The session is bound to one pair of
// preallocated tensors, so forward passes are serialised by mu.
type Server struct {
	mu           sync.Mutex
	session      *ort.AdvancedSession
	Metadata     Metadata
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	scale        float32
}

func NewServer(modelPath string, opts Options) (*Server, error) {
	if opts.LibraryPath != "" {
		ort.SetSharedLibraryPath(opts.LibraryPath)
	}
	release := func() {}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
		release = func() { _ = ort.DestroyEnvironment() }
	}

	metadata, err := resolveMetadata(modelPath, opts.MetadataPath)
	if err != nil {
		release()
		return nil, err
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(metadata.InputShape...))
	if err != nil {
		release()
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(metadata.OutputShape...))
	if err != nil {
		inputTensor.Destroy()
		release()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{metadata.InputName}, []string{metadata.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		release()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	scale := opts.InputScale
	if scale <= 0 {
		scale = 1
	}

	return &Server{
		session:      session,
		Metadata:     metadata,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
		scale:        scale,
	}, nil
}

// resolveMetadata starts from DefaultMetadata, applies what the model file
// declares about its first input and output, then applies the optional
// metadata file on top.
func resolveMetadata(modelPath, metadataPath string) (Metadata, error) {
	metadata := DefaultMetadata()

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return metadata, fmt.Errorf("failed to inspect model: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return metadata, fmt.Errorf("model %s declares no inputs or outputs", modelPath)
	}
	metadata.InputName = inputs[0].Name
	metadata.OutputName = outputs[0].Name
	applyDeclaredShapes(&metadata, inputs[0].Dimensions, outputs[0].Dimensions)

	if metadataPath == "" {
		return metadata, nil
	}

	override, err := readMetadataFile(metadataPath)
	if err != nil {
		return metadata, err
	}
	mergeMetadata(&metadata, override)
	return metadata, nil
}

func readMetadataFile(path string) (Metadata, error) {
	var override Metadata
	metaFile, err := os.ReadFile(path)
	if err != nil {
		return override, fmt.Errorf("failed to read metadata: %w", err)
	}
	if err := json.Unmarshal(metaFile, &override); err != nil {
		return override, fmt.Errorf("failed to parse metadata: %w", err)
	}
	if err := checkClasses(override.Classes); err != nil {
		return override, fmt.Errorf("metadata %s: %w", path, err)
	}
	return override, nil
}

// checkClasses accepts a class list only if every name is a known category,
// so every label the model can produce has a suggestion.
func checkClasses(classes []string) error {
	seen := make(map[string]bool, len(classes))
	for _, name := range classes {
		if SuggestionFor(name) == NoSuggestion {
			return fmt.Errorf("unknown class %q, want one of %v", name, ClassNames())
		}
		if seen[name] {
			return fmt.Errorf("duplicate class %q", name)
		}
		seen[name] = true
	}
	return nil
}

// applyDeclaredShapes copies a rank-4 image input and rank-2 score output
// from the model. Dynamic dimensions are pinned to one.
func applyDeclaredShapes(m *Metadata, in, out []int64) {
	if len(in) == 4 {
		shape := pinDynamic(in)
		switch {
		case shape[1] == 3 && shape[2] == shape[3]:
			m.Layout = LayoutNCHW
			m.ImageSize = int(shape[2])
		case shape[3] == 3 && shape[1] == shape[2]:
			m.Layout = LayoutNHWC
			m.ImageSize = int(shape[1])
		default:
			return
		}
		m.InputShape = shape
	}
	if len(out) == 2 {
		m.OutputShape = pinDynamic(out)
	}
}

func pinDynamic(dims []int64) []int64 {
	shape := make([]int64, len(dims))
	for i, d := range dims {
		if d <= 0 {
			d = 1
		}
		shape[i] = d
	}
	return shape
}

func mergeMetadata(dst *Metadata, src Metadata) {
	if len(src.InputShape) > 0 {
		dst.InputShape = src.InputShape
	}
	if len(src.OutputShape) > 0 {
		dst.OutputShape = src.OutputShape
	}
	if len(src.Classes) > 0 {
		dst.Classes = src.Classes
	}
	if src.ImageSize > 0 {
		dst.ImageSize = src.ImageSize
	}
	if src.Layout != "" {
		dst.Layout = src.Layout
	}
	if src.InputName != "" {
		dst.InputName = src.InputName
	}
	if src.OutputName != "" {
		dst.OutputName = src.OutputName
	}
}

func (s *Server) Predict(inputData []float32) (*PredictionResult, error) {
	if want := s.Metadata.InputSize(); len(inputData) != want {
		return nil, fmt.Errorf("expected %d input values, got %d", want, len(inputData))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy(s.inputTensor.GetData(), inputData)
	if err := s.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	return interpret(s.outputTensor.GetData(), s.Metadata.Classes)
}

// PredictImage decodes, preprocesses and classifies raw image bytes.
func (s *Server) PredictImage(data []byte) (*PredictionResult, error) {
	img, _, err := DecodeImage(data)
	if err != nil {
		return nil, err
	}
	return s.Predict(Preprocess(img, s.Metadata.ImageSize, s.Metadata.Layout, s.scale))
}

func (s *Server) Close() {
	if s.inputTensor != nil {
		s.inputTensor.Destroy()
	}
	if s.outputTensor != nil {
		s.outputTensor.Destroy()
	}
	if s.session != nil {
		s.session.Destroy()
	}
	ort.DestroyEnvironment()
}
