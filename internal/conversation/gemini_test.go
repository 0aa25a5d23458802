package conversation

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
)

func TestToContents_RolesAndMerging(t *testing.T) {
	history := []Utterance{
		{Speaker: User, Text: "hello"},
		{Speaker: Assistant, Text: "Good evening, sir."},
		{Speaker: User, Text: "what time is it"},
		{Speaker: User, Text: "are you there"},
	}

	contents := toContents(history)
	if len(contents) != 3 {
		t.Fatalf("Expected 3 contents, got %d", len(contents))
	}
	wantRoles := []string{"user", "model", "user"}
	for i, c := range contents {
		if c.Role != wantRoles[i] {
			t.Errorf("Content %d: expected role %s, got %s", i, wantRoles[i], c.Role)
		}
	}
	if len(contents[2].Parts) != 2 {
		t.Errorf("Expected consecutive user turns merged, got %d parts", len(contents[2].Parts))
	}
}

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []genai.Part{genai.Text("It is "), genai.Text("currently cloudy.")}}},
			{Content: nil},
		},
	}
	if got := responseText(resp); got != "It is currently cloudy." {
		t.Errorf("Unexpected text %q", got)
	}
	if responseText(nil) != "" {
		t.Error("Expected empty text for nil response")
	}
}

func TestSpeakerString(t *testing.T) {
	if User.String() != "USER" || Assistant.String() != "ASSISTANT" {
		t.Error("Unexpected speaker labels")
	}
}
