package model

const (
	LayoutNHWC = "NHWC"
	LayoutNCHW = "NCHW"
)

type Metadata struct {
	InputShape  []int64  `json:"input_shape"`
	OutputShape []int64  `json:"output_shape"`
	Classes     []string `json:"classes"`
	ImageSize   int      `json:"image_size"`
	Layout      string   `json:"layout"`
	InputName   string   `json:"input_name"`
	OutputName  string   `json:"output_name"`
}

// DefaultMetadata describes the deployed waste classifier.
func DefaultMetadata() Metadata {
	return Metadata{
		InputShape:  []int64{1, 128, 128, 3},
		OutputShape: []int64{1, int64(len(categories))},
		Classes:     ClassNames(),
		ImageSize:   128,
		Layout:      LayoutNHWC,
	}
}

// InputSize is the number of float32 values a single input tensor holds.
func (m Metadata) InputSize() int {
	if len(m.InputShape) == 0 {
		return 0
	}
	size := 1
	for _, dim := range m.InputShape {
		size *= int(dim)
	}
	return size
}

type PredictionResult struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Suggestion string  `json:"suggestion"`
	ImageURL   string  `json:"image_url,omitempty"`
}

// Info is the static payload served by /info.
type Info struct {
	Model         string   `json:"model"`
	Description   string   `json:"description"`
	InputSize     string   `json:"input_size"`
	OutputClasses []string `json:"output_classes"`
}

// ServiceInfo reports 224x224 as the input size even though preprocessing
// resizes to 128x128; existing clients read this value verbatim.
func ServiceInfo() Info {
	return Info{
		Model:         "Keras (.h5) exported to ONNX",
		Description:   "Model ini digunakan untuk mengklasifikasikan jenis sampah berdasarkan gambar.",
		InputSize:     "224x224 pixels",
		OutputClasses: ClassNames(),
	}
}
