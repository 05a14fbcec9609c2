package embedding

import (
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name    string
		a       []float32
		b       []float32
		want    float64
		wantErr bool
	}{
		{name: "Identical", a: []float32{1, 0, 0}, b: []float32{1, 0, 0}, want: 1},
		{name: "Orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "Opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "ZeroMagnitude", a: []float32{0, 0}, b: []float32{1, 1}, want: 0},
		{name: "DimensionMismatch", a: []float32{1}, b: []float32{1, 2}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CosineSimilarity(tt.a, tt.b)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CosineSimilarity = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewEngineUnsupportedProvider(t *testing.T) {
	_, err := NewEngine(Config{Provider: "magic"})
	if err == nil {
		t.Fatal("expected error for unsupported provider")
	}
}

func TestOllamaEngineDefaults(t *testing.T) {
	e, err := NewOllamaEngine("", "")
	if err != nil {
		t.Fatalf("NewOllamaEngine: %v", err)
	}
	if e.Name() != "ollama:embeddinggemma" {
		t.Errorf("Name = %q", e.Name())
	}
	if e.Dimensions() != 768 {
		t.Errorf("Dimensions = %d, want 768", e.Dimensions())
	}
}

func TestGenAIEngineRequiresKey(t *testing.T) {
	_, err := NewGenAIEngine("", "", "")
	if err == nil {
		t.Fatal("expected error without API key")
	}
}
