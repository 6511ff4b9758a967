package label

import "strings"

// StartMarkers open the ingredient list, in priority order for ties.
var StartMarkers = []string{
	"içindekiler:", "içindekiler",
	"icindekiler:", "icindekiler",
	"ingredients:", "ingredients",
	"bileşenler:", "bileşenler",
	"bilesenler:", "bilesenler",
	"içerik:", "içerik",
}

// EndMarkers close the ingredient list.
var EndMarkers = []string{
	// nutrition
	"besin değerleri", "besin degerleri", "besin değeri", "beslenme bilgileri",
	"nutritional", "nutrition facts", "enerji", "kalori",
	// storage and consumption
	"saklama koşulları", "saklama", "tüketim", "tuketim", "son kullanma",
	// production
	"üretim", "uretim",
	// net weight
	"net ağırlık", "net agirlik", "net:",
	// manufacturer and distributor
	"üretici", "uretici", "dağıtıcı", "dagitici",
}

// Section is an ingredient list located inside a transcript. Start and End
// are byte offsets into the transcript; Found is false when no start marker
// was present and the section spans the whole text.
type Section struct {
	Text   string
	Start  int
	End    int
	Marker string
	Found  bool
}

// folded is text run through foldRune with a map back to the source.
// offsets[i] is the source byte offset of the rune that produced folded
// byte i; offsets[len(text)] is the source length.
type folded struct {
	text    string
	offsets []int
}

func foldWithOffsets(src string) folded {
	var b strings.Builder
	b.Grow(len(src))
	offsets := make([]int, 0, len(src)+1)
	for i, r := range src {
		f := foldRune(r)
		b.WriteString(f)
		for range len(f) {
			offsets = append(offsets, i)
		}
	}
	offsets = append(offsets, len(src))
	return folded{text: b.String(), offsets: offsets}
}

// ExtractSection returns the ingredient list inside text, trimmed. Blank
// text, or text without a start marker, is returned unchanged.
func ExtractSection(text string) string {
	return Locate(text).Text
}

// endScanOffset is how far past the start of the start marker the end
// marker search begins, so a short marker cannot be closed by an end word
// right next to it.
const endScanOffset = 10

// Locate finds the ingredient list. The earliest start marker wins, ties
// going to the marker listed first; the section runs from just after it to
// the nearest end marker found at least endScanOffset bytes past the start
// marker, or to the end of the text.
func Locate(text string) Section {
	whole := Section{Text: text, Start: 0, End: len(text)}
	if strings.TrimSpace(text) == "" {
		return whole
	}

	f := foldWithOffsets(text)

	startAt, marker := -1, ""
	for _, m := range StartMarkers {
		fm := Normalize(m)
		idx := strings.Index(f.text, fm)
		if idx < 0 {
			continue
		}
		if startAt < 0 || idx < startAt {
			startAt, marker = idx, fm
		}
	}
	if startAt < 0 {
		return whole
	}

	contentAt := startAt + len(marker)
	scanFrom := min(max(startAt+endScanOffset, contentAt), len(f.text))
	endAt := len(f.text)
	rest := f.text[scanFrom:]
	for _, m := range EndMarkers {
		if idx := strings.Index(rest, Normalize(m)); idx >= 0 && scanFrom+idx < endAt {
			endAt = scanFrom + idx
		}
	}

	start, end := f.offsets[contentAt], f.offsets[endAt]
	return Section{
		Text:   strings.TrimSpace(text[start:end]),
		Start:  start,
		End:    end,
		Marker: marker,
		Found:  true,
	}
}
