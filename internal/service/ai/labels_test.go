package ai

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadLabels(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    map[int]string
	}{
		{"bare names", "person\nbicycle\n\ncar\n", map[int]string{0: "person", 1: "bicycle", 3: "car"}},
		{"explicit ids", "# coco\n1 person\n3 traffic light\n", map[int]string{1: "person", 3: "traffic light"}},
		{"mixed", "person\n7 train\n", map[int]string{0: "person", 7: "train"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "labels.txt")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			got, err := LoadLabels(path)
			if err != nil {
				t.Fatalf("LoadLabels: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, expected %v", got, tt.want)
			}
			for id, name := range tt.want {
				if got[id] != name {
					t.Errorf("label %d = %q, expected %q", id, got[id], name)
				}
			}
		})
	}
}

func TestLoadLabels_Errors(t *testing.T) {
	if _, err := LoadLabels(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}

	empty := filepath.Join(t.TempDir(), "empty.txt")
	os.WriteFile(empty, []byte("\n# nothing\n"), 0644)
	if _, err := LoadLabels(empty); err == nil {
		t.Error("expected error for empty file")
	}
}

func TestResolveLabels_DefaultsToCOCO(t *testing.T) {
	labels, err := ResolveLabels("")
	if err != nil {
		t.Fatal(err)
	}
	if labels[1] != "person" || labels[3] != "car" || labels[90] != "toothbrush" {
		t.Errorf("unexpected COCO labels")
	}

	labels[1] = "changed"
	if COCOLabels()[1] != "person" {
		t.Error("COCOLabels must return a copy")
	}
	if labelFor(labels, 12) != "class12" {
		t.Errorf("unknown id label = %q", labelFor(labels, 12))
	}
}
