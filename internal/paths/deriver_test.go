package paths

import (
	"path/filepath"
	"testing"
)

func newTestDeriver(t *testing.T, flatten bool) *Deriver {
	t.Helper()
	d, err := NewDeriver(flatten, filepath.FromSlash("/out"), "SEC522 Web Defense", 64)
	if err != nil {
		t.Fatalf("NewDeriver: %v", err)
	}
	return d
}

func TestDeriver_Nested(t *testing.T) {
	d := newTestDeriver(t, false)

	tests := []struct {
		name    string
		section Level
		module  Level
		video   Level
		want    string
	}{
		{"course", None, None, None, "/out/SEC522 Web Defense"},
		{"section", At(0, "Day 1"), None, None, "/out/SEC522 Web Defense/1. Day 1"},
		{"module", At(0, "Day 1"), At(2, "Recon"), None, "/out/SEC522 Web Defense/1. Day 1/3. Recon"},
		{"video", At(1, "Day 2"), At(0, "Intro"), At(9, "Welcome"), "/out/SEC522 Web Defense/2. Day 2/1. Intro/10. Welcome"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.Derive(tt.section, tt.module, tt.video)
			if got != filepath.FromSlash(tt.want) {
				t.Errorf("Derive() = %q, want %q", got, filepath.FromSlash(tt.want))
			}
		})
	}
}

func TestDeriver_Flatten(t *testing.T) {
	d := newTestDeriver(t, true)

	tests := []struct {
		name    string
		section Level
		module  Level
		video   Level
		want    string
	}{
		{"course", None, None, None, "/out/SEC522 Web Defense"},
		{"section", At(0, "Day 1"), None, None, "/out/SEC522 Web Defense - 1"},
		{"module", At(0, "Day 1"), At(2, "Recon"), None, "/out/SEC522 Web Defense - 1 - 3"},
		{"video", At(1, "Day 2"), At(0, "Intro"), At(9, "Welcome"), "/out/SEC522 Web Defense - 2 - 1 - 10 - Welcome"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.Derive(tt.section, tt.module, tt.video)
			if got != filepath.FromSlash(tt.want) {
				t.Errorf("Derive() = %q, want %q", got, filepath.FromSlash(tt.want))
			}
		})
	}
}

func TestDeriver_ModesDiffer(t *testing.T) {
	nested := newTestDeriver(t, false).Derive(At(0, "S"), At(0, "M"), At(0, "V"))
	flat := newTestDeriver(t, true).Derive(At(0, "S"), At(0, "M"), At(0, "V"))

	if nested == flat {
		t.Fatalf("Expected nested and flatten paths to differ, both %q", nested)
	}
	if filepath.Dir(flat) != filepath.FromSlash("/out") {
		t.Errorf("Expected flattened video to sit directly under the output root, got %q", flat)
	}
	if filepath.Dir(filepath.Dir(filepath.Dir(nested))) != filepath.FromSlash("/out/SEC522 Web Defense") {
		t.Errorf("Expected one directory per level in nested mode, got %q", nested)
	}
}

func TestDeriver_Pyramid(t *testing.T) {
	d := newTestDeriver(t, false)
	course := d.Course()
	section := d.Derive(At(0, "Day 1"), None, None)

	tests := []struct {
		name    string
		section Level
		module  Level
		video   Level
		want    string
	}{
		{"section name missing stops at course", Unnamed(0), At(1, "M"), At(1, "V"), course},
		{"section index missing stops at course", Level{Index: -1, Name: "Day 1"}, At(1, "M"), None, course},
		{"module name missing stops at section", At(0, "Day 1"), Unnamed(1), At(1, "V"), section},
		{"video index missing stops at module", At(0, "Day 1"), At(1, "M"), Level{Index: -1, Name: "V"}, d.Derive(At(0, "Day 1"), At(1, "M"), None)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.Derive(tt.section, tt.module, tt.video); got != tt.want {
				t.Errorf("Derive() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDeriver_EmptyNamesKeepTiers(t *testing.T) {
	d := newTestDeriver(t, false)

	intro := d.Derive(At(0, "Day 1"), At(0, ""), At(0, "Intro"))
	recon := d.Derive(At(0, "Day 1"), At(0, ""), At(1, "Recon"))
	section := d.Derive(At(0, "Day 1"), None, None)

	if intro == recon {
		t.Fatalf("Expected distinct videos to get distinct paths, both got %q", intro)
	}
	if intro == section || recon == section {
		t.Fatalf("Expected videos below the section directory, got %q and %q", intro, recon)
	}
	if want := filepath.Join(section, "1.", "1. Intro"); intro != want {
		t.Errorf("Expected %q, got %q", want, intro)
	}

	emptySection := d.Derive(At(1, ""), At(0, "M"), At(0, "V"))
	if want := filepath.Join(d.Course(), "2.", "1. M", "1. V"); emptySection != want {
		t.Errorf("Expected %q, got %q", want, emptySection)
	}
}

func TestDeriver_MemoizesByIdentity(t *testing.T) {
	d := newTestDeriver(t, false)

	first := d.Derive(At(0, "S"), At(1, "M"), At(2, "V"))
	computedAfterFirst := d.computed.Load()

	for i := 0; i < 5; i++ {
		if got := d.Derive(At(0, "S"), At(1, "M"), At(2, "V")); got != first {
			t.Fatalf("Expected identical path on repeat call, got %q vs %q", got, first)
		}
	}
	if d.computed.Load() != computedAfterFirst {
		t.Errorf("Expected memo hits, computation ran %d extra times", d.computed.Load()-computedAfterFirst)
	}

	other := d.Derive(At(0, "S"), At(1, "M"), At(3, "V"))
	if other == first {
		t.Error("Expected distinct identities to produce distinct paths")
	}
	if d.computed.Load() != computedAfterFirst+1 {
		t.Errorf("Expected exactly one new computation, got %d", d.computed.Load()-computedAfterFirst)
	}
}

func TestDeriver_EvictedEntriesRecomputeIdentically(t *testing.T) {
	d, err := NewDeriver(false, "/out", "C", 1)
	if err != nil {
		t.Fatalf("NewDeriver: %v", err)
	}

	a := d.Derive(At(0, "S"), At(0, "M"), At(0, "A"))
	_ = d.Derive(At(0, "S"), At(0, "M"), At(1, "B"))
	again := d.Derive(At(0, "S"), At(0, "M"), At(0, "A"))

	if a != again {
		t.Errorf("Expected recomputation to be pure, got %q then %q", a, again)
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Plain Name", "Plain Name"},
		{`a<b>c:d"e/f\g|h?i*j`, "abcdefghij"},
		{"tab\there", "tabhere"},
		{"Café", "Café"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := SanitizeName(tt.input); got != tt.want {
				t.Errorf("SanitizeName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeVideoName_ColonBecomesDash(t *testing.T) {
	got := SanitizeVideoName("Lab 1.2: XSS / CSRF?")
	want := "Lab 1.2- XSS  CSRF"
	if got != want {
		t.Errorf("SanitizeVideoName() = %q, want %q", got, want)
	}
}

func TestNewDeriver_SanitizesCourseName(t *testing.T) {
	d, err := NewDeriver(false, "/out", "SEC522: Web", 8)
	if err != nil {
		t.Fatalf("NewDeriver: %v", err)
	}
	if got := d.Course(); got != filepath.Join("/out", "SEC522 Web") {
		t.Errorf("Expected illegal characters stripped from the course directory, got %q", got)
	}
}
