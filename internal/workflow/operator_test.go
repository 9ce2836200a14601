package workflow

import "testing"

func TestParseCommand(t *testing.T) {
	tests := []struct {
		input   string
		want    command
		wantErr bool
	}{
		{input: "2", want: command{kind: cmdSelect, index: 1}},
		{input: " v1 ", want: command{kind: cmdView, index: 0}},
		{input: "E3", want: command{kind: cmdRevise, index: 2}},
		{input: "r", want: command{kind: cmdReroll}},
		{input: "u", want: command{kind: cmdUpload}},
		{input: "4", wantErr: true},
		{input: "v0", wantErr: true},
		{input: "", wantErr: true},
		{input: "x1", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseCommand(tt.input, 3)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("parseCommand(%q): expected error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Fatalf("parseCommand(%q): %v", tt.input, err)
		}
		if got != tt.want {
			t.Fatalf("parseCommand(%q) = %+v, want %+v", tt.input, got, tt.want)
		}
	}
}

func TestNextUploadID(t *testing.T) {
	if got := nextUploadID([]string{"v1", "v2"}); got != "upload-1" {
		t.Fatalf("got %q", got)
	}
	if got := nextUploadID([]string{"v1", "upload-1", "upload-3"}); got != "upload-4" {
		t.Fatalf("got %q", got)
	}
}
