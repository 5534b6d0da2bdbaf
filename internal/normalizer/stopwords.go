package normalizer

// stopwords holds common Arabic function words in their normalized form.
var stopwords = map[string]struct{}{
	"في": {}, "من": {}, "الي": {}, "علي": {}, "عن": {}, "مع": {},
	"ان": {}, "او": {}, "ثم": {}, "لا": {}, "لم": {}, "لن": {},
	"ما": {}, "هو": {}, "هي": {}, "هم": {}, "هذا": {}, "هذه": {},
	"ذلك": {}, "تلك": {}, "التي": {}, "الذي": {}, "الذين": {}, "كان": {},
	"كانت": {}, "قد": {}, "كل": {}, "بين": {}, "عند": {}, "حتي": {},
	"اذا": {}, "لكن": {}, "بعد": {}, "قبل": {}, "و": {}, "يا": {},
}
