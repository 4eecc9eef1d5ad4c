package domain

// Letter is the symbolic label of an option's position among its question's
// options ordered by id. It is derived at read time and never stored.
type Letter string

const (
	LetterA Letter = "A"
	LetterB Letter = "B"
	LetterC Letter = "C"
	LetterD Letter = "D"
)

// OptionsPerQuestion is the number of options every well-formed question has.
const OptionsPerQuestion = 4

// Letters is the ordered answer alphabet; index i labels the i-th option.
var Letters = [OptionsPerQuestion]Letter{LetterA, LetterB, LetterC, LetterD}

func PositionToLetter(i int) (Letter, bool) {
	if i < 0 || i >= len(Letters) {
		return "", false
	}
	return Letters[i], true
}

func LetterToPosition(l Letter) (int, bool) {
	for i, x := range Letters {
		if x == l {
			return i, true
		}
	}
	return -1, false
}

// ParseLetter accepts exactly one of the four upper-case letters.
func ParseLetter(s string) (Letter, bool) {
	l := Letter(s)
	if _, ok := LetterToPosition(l); !ok {
		return "", false
	}
	return l, true
}

// Set assigns text to the slot of letter l. Unknown letters are ignored.
func (o *LetterOptions) Set(l Letter, text string) {
	switch l {
	case LetterA:
		o.A = text
	case LetterB:
		o.B = text
	case LetterC:
		o.C = text
	case LetterD:
		o.D = text
	}
}
