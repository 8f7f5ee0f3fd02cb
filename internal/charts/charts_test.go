package charts

import (
	"bytes"
	"testing"

	"a9admin/internal/core"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestUsagePieRendersPNG(t *testing.T) {
	points := []core.ChartPoint{
		{Name: "GPT", Value: 25.50},
		{Name: "DALL-E", Value: 8.00},
		{Name: core.TopUpBucket, Value: 10.00},
	}

	img, err := UsagePie("Token usage", points)
	if err != nil {
		t.Fatalf("render pie: %v", err)
	}
	if len(img) == 0 {
		t.Fatal("expected PNG bytes, got none")
	}
	if !bytes.HasPrefix(img, pngMagic) {
		t.Fatalf("expected PNG header, got % x", img[:4])
	}
}

func TestUsagePieNoData(t *testing.T) {
	img, err := UsagePie("Token usage", nil)
	if err != nil {
		t.Fatalf("render empty pie: %v", err)
	}
	if img != nil {
		t.Fatal("expected nil image for no data")
	}

	img, err = UsagePie("Token usage", []core.ChartPoint{{Name: "GPT", Value: 0}})
	if err != nil {
		t.Fatalf("render zero pie: %v", err)
	}
	if img != nil {
		t.Fatal("expected nil image for zero usage")
	}
}
