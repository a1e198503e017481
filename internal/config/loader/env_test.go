package loader

import (
	"testing"
)

func TestEnvLoader_Load(t *testing.T) {
	t.Setenv("CAPSTYLE_THEME", "monokai")
	t.Setenv("CAPSTYLE_LOG_LEVEL", "debug")
	t.Setenv("CAPSTYLE_HIGHLIGHT_WORKERS", "1")

	loader := NewEnvLoaderWithMapping("CAPSTYLE_", map[string]string{
		"CAPSTYLE_THEME":     "theme.name",
		"CAPSTYLE_LOG_LEVEL": "logging.level",
	})
	config, err := loader.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if val, ok := getByPath(config, "theme.name"); !ok || val != "monokai" {
		t.Errorf("theme.name = %v, want monokai", val)
	}
	if val, ok := getByPath(config, "logging.level"); !ok || val != "debug" {
		t.Errorf("logging.level = %v, want debug", val)
	}
	if val, ok := getByPath(config, "highlight.workers"); !ok || val != int64(1) {
		t.Errorf("highlight.workers = %v (%T), want int64 1", val, val)
	}
	if _, ok := getByPath(config, "log.level"); ok {
		t.Error("mapped variable should not also be mapped by name")
	}
}

func TestEnvLoader_envToPath(t *testing.T) {
	loader := NewEnvLoader("CAPSTYLE_")

	tests := []struct {
		env  string
		want string
	}{
		{"CAPSTYLE_SPELL_MIN_WORD_LENGTH", "spell.min_word_length"},
		{"CAPSTYLE_HIGHLIGHT_QUEUE_SIZE", "highlight.queue_size"},
		{"CAPSTYLE_THEME_NAME", "theme.name"},
		{"CAPSTYLE_DEBUG", "debug"},
		{"CAPSTYLE_", ""},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			if got := loader.envToPath(tt.env); got != tt.want {
				t.Errorf("envToPath(%q) = %q, want %q", tt.env, got, tt.want)
			}
		})
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		input string
		want  any
	}{
		{"", ""},
		{"true", true},
		{"On", true},
		{"no", false},
		{"1", int64(1)},
		{"0", int64(0)},
		{"256", int64(256)},
		{"1.5", 1.5},
		{"monokai", "monokai"},
		{"#ff0000", "#ff0000"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseValue(tt.input); got != tt.want {
				t.Errorf("parseValue(%q) = %v (%T), want %v (%T)", tt.input, got, got, tt.want, tt.want)
			}
		})
	}

	arr, ok := parseValue(`["a","b"]`).([]any)
	if !ok || len(arr) != 2 {
		t.Errorf("parseValue(JSON array) = %v", arr)
	}
}

func TestEnvLoader_AddRemoveMapping(t *testing.T) {
	t.Setenv("CAPSTYLE_WORDS", "/usr/share/dict/words")

	loader := NewEnvLoader("CAPSTYLE_")
	loader.AddMapping("CAPSTYLE_WORDS", "spell.dictionary")

	config, _ := loader.Load()
	if val, _ := getByPath(config, "spell.dictionary"); val != "/usr/share/dict/words" {
		t.Errorf("spell.dictionary = %v", val)
	}

	loader.RemoveMapping("CAPSTYLE_WORDS")
	config, _ = loader.Load()
	if _, ok := getByPath(config, "spell.dictionary"); ok {
		t.Error("mapping should be removed")
	}
	if val, _ := getByPath(config, "words"); val != "/usr/share/dict/words" {
		t.Errorf("words = %v", val)
	}
}
