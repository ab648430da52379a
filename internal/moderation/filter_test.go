package moderation_test

import (
	"strings"
	"testing"

	"github.com/olegbratus/gigflow-backend/internal/moderation"
)

func TestFilter_CleanTextPassesThrough(t *testing.T) {
	in := "Добрый день! Готов обсудить детали логотипа завтра."
	out, filtered := moderation.Filter(in)
	if filtered {
		t.Errorf("clean text reported as filtered")
	}
	if out != in {
		t.Errorf("clean text changed: %q", out)
	}
}

func TestFilter_EachCategory(t *testing.T) {
	cases := []struct {
		name string
		in   string
		leak string
	}{
		{"phone", "позвоните мне: 0501234567 вечером", "0501234567"},
		{"phone international", "my number is +7 (905) 123-45-67 ok", "+7 (905) 123-45-67"},
		{"email", "пишите на ivan.petrov@example.com пожалуйста", "ivan.petrov@example.com"},
		{"handle", "find me @super_designer there", "@super_designer"},
		{"url", "портфолио тут https://dribbble.com/me", "https://dribbble.com/me"},
		{"contact phrase", "let's meet at the cafe", "meet at"},
		{"platform", "напиши мне в Telegram сегодня", "Telegram"},
		{"platform case-insensitive", "add me on WHATSAPP now", "WHATSAPP"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, filtered := moderation.Filter(tc.in)
			if !filtered {
				t.Fatalf("expected filtered=true for %q", tc.in)
			}
			if strings.Contains(out, tc.leak) {
				t.Errorf("restricted substring %q survived: %q", tc.leak, out)
			}
			if !strings.Contains(out, moderation.Marker) {
				t.Errorf("marker missing in output: %q", out)
			}
		})
	}
}

func TestFilter_AllCategoriesInOneMessage(t *testing.T) {
	in := "call 0501234567 or mail a@b.com, im @handle1, see http://x.io, meet at my place, i use whatsapp"
	out, filtered := moderation.Filter(in)
	if !filtered {
		t.Fatal("expected filtered=true")
	}
	for _, leak := range []string{"0501234567", "a@b.com", "@handle1", "http://x.io", "meet at", "whatsapp"} {
		if strings.Contains(out, leak) {
			t.Errorf("restricted substring %q survived: %q", leak, out)
		}
	}
}

func TestFilter_Idempotent(t *testing.T) {
	inputs := []string{
		"call 0501234567 or mail a@b.com, im @handle1, see http://x.io, meet at my place, i use whatsapp",
		"просто обычный текст без контактов",
		"my email is test@mail.ru and my instagram too",
		moderation.Marker,
	}

	for _, in := range inputs {
		once, _ := moderation.Filter(in)
		twice, filteredAgain := moderation.Filter(once)
		if twice != once {
			t.Errorf("not idempotent: %q -> %q -> %q", in, once, twice)
		}
		if filteredAgain {
			t.Errorf("second pass matched again for %q", in)
		}
	}
}

func TestFilter_KeepsSurroundingText(t *testing.T) {
	out, _ := moderation.Filter("Hi, interested in your logo service, here's my email a@b.com")
	want := "Hi, interested in your logo service, here's my email " + moderation.Marker
	if out != want {
		t.Errorf("unexpected output: got %q, want %q", out, want)
	}
}
