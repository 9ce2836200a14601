package llm

import "testing"

func TestDecodeLLMJSONHandlesQuirks(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"plain", `[{"id":1},{"id":2}]`},
		{"fenced", "```json\n[{\"id\":1},{\"id\":2}]\n```"},
		{"prose around", "Here is the plan:\n[{\"id\":1},{\"id\":2}]\nHope it helps."},
		{"trailing commas", `[{"id":1,},{"id":2,},]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out []struct {
				ID int `json:"id"`
			}
			if err := DecodeLLMJSON(tt.content, &out); err != nil {
				t.Fatalf("DecodeLLMJSON: %v", err)
			}
			if len(out) != 2 || out[1].ID != 2 {
				t.Fatalf("unexpected decode result %+v", out)
			}
		})
	}
}

func TestDecodeLLMJSONPrefersEarliestContainer(t *testing.T) {
	var obj map[string]any
	if err := DecodeLLMJSON(`Result: {"scenes":[1,2]} done`, &obj); err != nil {
		t.Fatalf("DecodeLLMJSON: %v", err)
	}
	if _, ok := obj["scenes"]; !ok {
		t.Fatalf("expected object with scenes key, got %v", obj)
	}
}

func TestDecodeLLMJSONEmpty(t *testing.T) {
	var out any
	if err := DecodeLLMJSON("   ", &out); err == nil {
		t.Fatal("expected error for empty payload")
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := map[string]string{
		"```markdown\n# Title\nBody\n```": "# Title\nBody",
		"```\nplain\n```":                 "plain",
		"no fence here":                   "no fence here",
	}
	for in, want := range tests {
		if got := StripCodeFence(in); got != want {
			t.Fatalf("StripCodeFence(%q) = %q, want %q", in, got, want)
		}
	}
}
