package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestBytesToSamples(t *testing.T) {
	samples, err := BytesToSamples([]byte{0x00, 0x00, 0xFF, 0x7F, 0x00, 0x80})
	if err != nil {
		t.Fatalf("BytesToSamples failed: %v", err)
	}

	expected := []int16{0, 32767, -32768}
	if len(samples) != len(expected) {
		t.Fatalf("Expected %d samples, got %d", len(expected), len(samples))
	}
	for i, exp := range expected {
		if samples[i] != exp {
			t.Errorf("Expected sample %d at index %d, got %d", exp, i, samples[i])
		}
	}
}

func TestBytesToSamples_OddLength(t *testing.T) {
	if _, err := BytesToSamples([]byte{1, 2, 3}); err == nil {
		t.Error("Expected error for odd-length PCM")
	}
}

func TestSamplesToBytes(t *testing.T) {
	got := SamplesToBytes([]int16{0, 32767, -32768})
	expected := []byte{0x00, 0x00, 0xFF, 0x7F, 0x00, 0x80}
	if len(got) != len(expected) {
		t.Fatalf("Expected %d bytes, got %d", len(expected), len(got))
	}
	for i, exp := range expected {
		if got[i] != exp {
			t.Errorf("Expected byte %d at index %d, got %d", exp, i, got[i])
		}
	}
}

func TestCalculateRMS_Known(t *testing.T) {
	rms := CalculateRMS([]int16{1000, -1000, 2000, -2000})
	expected := math.Sqrt((1000000 + 1000000 + 4000000 + 4000000) / 4.0)
	if math.Abs(rms-expected) > 0.1 {
		t.Errorf("Expected RMS %.2f, got %.2f", expected, rms)
	}
}

func TestCalculateRMS_Empty(t *testing.T) {
	if rms := CalculateRMS(nil); rms != 0.0 {
		t.Errorf("Expected RMS 0.0 for empty slice, got %.2f", rms)
	}
}

func TestFrameSize(t *testing.T) {
	if got := FrameSize(16000, FrameMs); got != 320 {
		t.Errorf("Expected 320 samples per 20ms frame at 16kHz, got %d", got)
	}
}

func TestEncodeWAV(t *testing.T) {
	samples := []int16{1, -1, 256}
	wav := EncodeWAV(samples, 16000)

	if len(wav) != 44+6 {
		t.Fatalf("Expected 50 bytes, got %d", len(wav))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" || string(wav[36:40]) != "data" {
		t.Error("Expected RIFF/WAVE/data markers")
	}
	if rate := binary.LittleEndian.Uint32(wav[24:28]); rate != 16000 {
		t.Errorf("Expected sample rate 16000, got %d", rate)
	}
	if size := binary.LittleEndian.Uint32(wav[40:44]); size != 6 {
		t.Errorf("Expected data size 6, got %d", size)
	}
	if got := int16(binary.LittleEndian.Uint16(wav[44+4:])); got != 256 {
		t.Errorf("Expected last sample 256, got %d", got)
	}
}
