package password

import "unicode"

// Strength reports the score a candidate password earned and which
// criteria it missed. The score awards one point for each of: length of
// at least 8 bytes, an uppercase letter, a lowercase letter, a digit, and
// a non-alphanumeric symbol.
type Strength struct {
	Score    int
	Feedback []string
}

const (
	// ScoreStrong is the minimum score considered strong.
	ScoreStrong = 4
	// ScoreMedium is the minimum score considered medium.
	ScoreMedium = 3
)

// Label returns "strong", "medium", or "weak" for the score.
func (s Strength) Label() string {
	switch {
	case s.Score >= ScoreStrong:
		return "strong"
	case s.Score >= ScoreMedium:
		return "medium"
	default:
		return "weak"
	}
}

// CheckStrength scores a candidate password from 0 to 5. Feedback lists
// every unmet criterion in a fixed order, so identical inputs always
// produce identical feedback.
func CheckStrength(password string) Strength {
	var (
		hasUpper  bool
		hasLower  bool
		hasDigit  bool
		hasSymbol bool
	)

	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSymbol = true
		}
	}

	s := Strength{}

	if len(password) >= MinPasswordBytes {
		s.Score++
	} else {
		s.Feedback = append(s.Feedback, "use at least 8 characters")
	}
	if hasUpper {
		s.Score++
	} else {
		s.Feedback = append(s.Feedback, "add an uppercase letter")
	}
	if hasLower {
		s.Score++
	} else {
		s.Feedback = append(s.Feedback, "add a lowercase letter")
	}
	if hasDigit {
		s.Score++
	} else {
		s.Feedback = append(s.Feedback, "add a digit")
	}
	if hasSymbol {
		s.Score++
	} else {
		s.Feedback = append(s.Feedback, "add a symbol")
	}

	return s
}
