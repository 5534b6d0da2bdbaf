package normalizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "latin passthrough", input: "the  capital\n\tis Cairo", want: "the capital is Cairo"},
		{name: "hyphenated latin kept", input: "well-known", want: "well-known"},
		{name: "footer stripped", input: "نص - 12 - تابع", want: "نص تابع"},
		{name: "native footer stripped", input: "نص - ١٢ - تابع", want: "نص تابع"},
		{name: "diacritics removed", input: "مُحَمَّدٌ", want: "محمد"},
		{name: "tatwil removed", input: "كتـــاب", want: "كتاب"},
		{name: "reversed digits", input: "عام ٤٢٠٢", want: "عام 2024"},
		{name: "three digit run", input: "صفحة ٣٢١", want: "صفحه 123"},
		{name: "western digits untouched", input: "صفحة 123", want: "صفحه 123"},
		{name: "alef variants", input: "إسلام أحمد آمن", want: "اسلام احمد امن"},
		{name: "terminal letters", input: "مدرسة على", want: "مدرسه علي"},
		{name: "hamza carriers", input: "مؤمن سائل", want: "مءمن ساءل"},
		{name: "gaf", input: "گتاب", want: "كتاب"},
		{name: "standalone mark between spaces", input: "ا ّ ب", want: "ا ب"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	samples := []string{
		"العاصمة هي القاهرة - ٣ - وتقع على نهر النيل",
		"تأسست الجامعة عام ٨٠٩١ في مدينةٍ كبيرةٍ",
		"  مُسْتَشْفَى   الأطفال\n\nفي   الإسكندرية  ",
		"قرأ الطالبُ ٥١ كتاباً في الشهر",
		"plain english text - 4 - with footer",
		"نص -ـ ٣ - تابع",
		"نص -ّ ١٢ - تابع",
		"a - - 1 - 1 - b",
	}
	for _, s := range samples {
		once := Normalize(s)
		assert.Equal(t, once, Normalize(once), "input %q", s)
	}
}

func TestNormalizeFooterBehindMark(t *testing.T) {
	assert.Equal(t, "نص تابع", Normalize("نص -ـ ٣ - تابع"))
	assert.Equal(t, "نص تابع", Normalize("نص -ّ ١٢ - تابع"))
	assert.Equal(t, "a b", Normalize("a - - 1 - 1 - b"))
}

func TestNormalizeStopwordsIdempotent(t *testing.T) {
	opts := Options{RemoveStopwords: true}
	for _, s := range []string{
		"نص - في ٣ - تابع",
		"- 3 - في المدينة",
		"ذهب الولد إلى المدرسة في الصباح",
	} {
		once := NormalizeWith(s, opts)
		assert.Equal(t, once, NormalizeWith(once, opts), "input %q", s)
	}
	assert.Equal(t, "نص تابع", NormalizeWith("نص - في ٣ - تابع", opts))
}

func TestNormalizeNoDoubleSpaces(t *testing.T) {
	samples := []string{
		"a \t\n b",
		"كلمة  ـ  كلمة",
		"نص - 9 - \n\n نص",
		"x  y",
	}
	for _, s := range samples {
		assert.NotContains(t, Normalize(s), "  ", "input %q", s)
	}
}

func TestNormalizeStopwords(t *testing.T) {
	got := NormalizeWith("ذهب الولد إلى المدرسة في الصباح", Options{RemoveStopwords: true})
	assert.Equal(t, "ذهب الولد المدرسه الصباح", got)

	got = NormalizeWith("ذهب الولد إلى المدرسة", Options{})
	assert.True(t, strings.Contains(got, "الي"))
}
