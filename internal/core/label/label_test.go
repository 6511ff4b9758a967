package label

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"ascii", "Sugar, SALT", "sugar, salt"},
		{"dotted capital i", "İÇİNDEKİLER", "icindekiler"},
		{"dotless i", "ıspanak", "ispanak"},
		{"turkish letters", "Şeker, Süt, Yağ, Çörek, Öz", "seker, sut, yag, corek, oz"},
		{"decomposed input", "su\u0308t", "sut"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"İçindekiler: Buğday Unu, SÜT TOZU",
		"ıIiİ",
		"Kabuklu Deniz Ürünleri",
		"  mixed\tWHITE space ",
		"süt tozu",
	}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"crlf", "a\r\nb\rc", "a\nb\nc"},
		{"spaces", "a  \t b", "a b"},
		{"blank runs", "a\n\n\n\n\nb", "a\n\nb"},
		{"whitespace-only lines", "a\n  \n \t\n\nb", "a\n\nb"},
		{"padding", "  a  \n  b  ", "a\nb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanText(tt.in); got != tt.want {
				t.Errorf("CleanText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExtractSection(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "turkish label",
			in:   "...İçindekiler: şeker, süt. Besin Değerleri: ...",
			want: "şeker, süt.",
		},
		{
			name: "energy ends the list",
			in:   "İçindekiler: buğday unu, süt tozu, şeker. Enerji: 200 kcal",
			want: "buğday unu, süt tozu, şeker.",
		},
		{
			name: "no start marker",
			in:   "buğday unu, su, tuz",
			want: "buğday unu, su, tuz",
		},
		{
			name: "blank",
			in:   "   ",
			want: "   ",
		},
		{
			name: "no end marker",
			in:   "Ingredients: water, salt ",
			want: "water, salt",
		},
		{
			name: "ascii spelling",
			in:   "ICINDEKILER: findik, kakao\nNet: 100 g",
			want: "findik, kakao",
		},
		{
			name: "earliest end marker wins",
			in:   "İçindekiler: un, şeker. Saklama: serin yerde. Enerji: 10",
			want: "un, şeker.",
		},
		{
			name: "earliest start marker wins",
			in:   "Bileşenler: kakao. İçindekiler: süt",
			want: "kakao. İçindekiler: süt",
		},
		{
			name: "short marker",
			in:   "İçerik: un, süt. Enerji 10",
			want: "un, süt.",
		},
		{
			name: "end word right after short marker",
			in:   "Içerik Enerji: x; Içerik: un, süt. Enerji 10",
			want: "Enerji: x; Içerik: un, süt.",
		},
		{
			name: "end marker before start is ignored",
			in:   "Enerji 100 kcal. İçindekiler: pirinç, tuz",
			want: "pirinç, tuz",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractSection(tt.in); got != tt.want {
				t.Errorf("ExtractSection(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestLocateOffsets(t *testing.T) {
	text := "Ürün: X\nİÇİNDEKİLER: süt, kakao\nÜretici: Y"
	sec := Locate(text)
	if !sec.Found {
		t.Fatal("expected a start marker")
	}
	if sec.Marker != "icindekiler:" {
		t.Errorf("marker = %q", sec.Marker)
	}
	if sec.Start < 0 || sec.End < sec.Start || sec.End > len(text) {
		t.Fatalf("bad bounds %d..%d", sec.Start, sec.End)
	}
	if sec.Text != "süt, kakao" {
		t.Errorf("text = %q", sec.Text)
	}
}
