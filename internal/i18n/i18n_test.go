package i18n

import "testing"

func loadBundle(t *testing.T) *Bundle {
	t.Helper()
	b, err := Load("../../locales", "en", []string{"en", "fr", "ar"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return b
}

func TestResolveHonorsQValues(t *testing.T) {
	b := loadBundle(t)
	cases := map[string]string{
		"fr;q=0.8, ar;q=0.9": "ar",
		"de-DE, fr-CA;q=0.5": "fr",
		"en-GB,en;q=0.9":     "en",
		"":                   "en",
		"de":                 "en",
		"AR-EG":              "ar",
	}
	for header, want := range cases {
		if got := b.Resolve(header); got != want {
			t.Errorf("Resolve(%q) = %q, want %q", header, got, want)
		}
	}
}

func TestTranslateFallsBack(t *testing.T) {
	b := loadBundle(t)
	if got := b.T("ar", "summary.empty"); got == "" || got == "summary.empty" {
		t.Fatalf("expected arabic translation, got %q", got)
	}
	if got, want := b.T("xx", "summary.empty"), b.T("en", "summary.empty"); got != want {
		t.Fatalf("unknown lang should use fallback: %q vs %q", got, want)
	}
	if got := b.T("en", "no.such.key"); got != "no.such.key" {
		t.Fatalf("missing key should echo, got %q", got)
	}
}

func TestLoadRequiresFallback(t *testing.T) {
	if _, err := Load(t.TempDir(), "en", []string{"en"}); err == nil {
		t.Fatal("expected error for missing fallback dictionary")
	}
}

func TestDirection(t *testing.T) {
	cases := map[string]string{
		"ar":    RTL,
		"ar-SA": RTL,
		"he":    RTL,
		"fa-IR": RTL,
		"ur":    RTL,
		"UR-pk": RTL,
		"en":    LTR,
		"en-US": LTR,
		"fr":    LTR,
		"":      LTR,
		"arx":   LTR,
	}
	for lang, want := range cases {
		if got := Direction(lang); got != want {
			t.Errorf("Direction(%q) = %q, want %q", lang, got, want)
		}
	}
}
