package model

// Category is one waste class the model can predict. Name is the label
// returned to clients; English is kept for logs and docs.
type Category struct {
	Name       string
	English    string
	Suggestion string
}

// NoSuggestion is returned for labels outside the category table.
const NoSuggestion = "Tidak ada saran untuk jenis sampah ini."

// categories is ordered by model output index.
var categories = [...]Category{
	{"Kaca", "glass", "Pisahkan kaca dari sampah lainnya dan tempatkan di tempat sampah khusus kaca."},
	{"Logam", "metal", "Pisahkan logam dari sampah lainnya dan tempatkan di tempat sampah khusus logam."},
	{"Kertas", "paper", "Pisahkan kertas dari sampah lainnya dan tempatkan di tempat sampah khusus kertas."},
	{"Residu", "residual", "Tempatkan residu di tempat sampah umum."},
	{"Kardus", "cardboard", "Pisahkan kardus dari sampah lainnya dan tempatkan di tempat sampah khusus kardus."},
	{"Plastik", "plastic", "Pisahkan plastik dari sampah lainnya dan tempatkan di tempat sampah khusus plastik."},
}

// ClassNames returns the category names in model output order. The slice is
// a fresh copy.
func ClassNames() []string {
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = c.Name
	}
	return names
}

// Categories returns a copy of the category table.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories[:])
	return out
}

func SuggestionFor(label string) string {
	for _, c := range categories {
		if c.Name == label {
			return c.Suggestion
		}
	}
	return NoSuggestion
}
