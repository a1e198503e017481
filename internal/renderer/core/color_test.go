package core

import "testing"

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    Color
		wantErr bool
	}{
		{"#FF8040", ColorFromRGB(255, 128, 64), false},
		{"#ff8040", ColorFromRGB(255, 128, 64), false},
		{"FF8040", ColorFromRGB(255, 128, 64), false},
		{"#FFF", ColorFromRGB(255, 255, 255), false},
		{"blue", ColorBlue, false},
		{"Gray", ColorGray, false},
		{"default", ColorDefault, false},
		{"invalid", Color{}, true},
		{"#GGG", Color{}, true},
	}

	for _, tt := range tests {
		c, err := ParseColor(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseColor(%q) expected error, got nil", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseColor(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if !c.Equals(tt.want) {
			t.Errorf("ParseColor(%q) = %v, want %v", tt.in, c, tt.want)
		}
	}
}

func TestColorEquals(t *testing.T) {
	c1 := ColorFromRGB(255, 128, 64)
	c2 := ColorFromRGB(255, 128, 64)
	c3 := ColorFromRGB(255, 128, 65)
	c4 := ColorFromIndex(10)

	if !c1.Equals(c2) {
		t.Error("identical RGB colors should be equal")
	}
	if c1.Equals(c3) {
		t.Error("different RGB colors should not be equal")
	}
	if c1.Equals(c4) {
		t.Error("RGB and indexed colors should not be equal")
	}
	if !ColorDefault.Equals(Color{Default: true, R: 9}) {
		t.Error("default colors should compare equal regardless of components")
	}
}

func TestColorString(t *testing.T) {
	if got := ColorFromRGB(0x12, 0xAB, 0x00).String(); got != "#12AB00" {
		t.Errorf("String() = %q, want #12AB00", got)
	}
	if got := ColorFromIndex(3).String(); got != "idx(3)" {
		t.Errorf("String() = %q, want idx(3)", got)
	}
	if got := ColorDefault.String(); got != "default" {
		t.Errorf("String() = %q, want default", got)
	}
}

func TestColorBlend(t *testing.T) {
	black := ColorBlack
	white := ColorWhite

	if got := black.Blend(white, 0); !got.Equals(black) {
		t.Errorf("Blend(0) = %v, want black", got)
	}
	if got := black.Blend(white, 1); !got.Equals(white) {
		t.Errorf("Blend(1) = %v, want white", got)
	}
	mid := black.Blend(white, 0.5)
	if mid.R == 0 || mid.R == 255 {
		t.Errorf("Blend(0.5) = %v, want an intermediate gray", mid)
	}

	idx := ColorFromIndex(4)
	if got := idx.Blend(white, 0.2); !got.Equals(idx) {
		t.Errorf("indexed Blend(0.2) = %v, want %v", got, idx)
	}
	if got := idx.Blend(white, 0.8); !got.Equals(white) {
		t.Errorf("indexed Blend(0.8) = %v, want %v", got, white)
	}
}
