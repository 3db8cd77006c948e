package dialogue

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"github.com/anatolykoptev/go_sayfluent/internal/engine"
)

// SubstitutionThreshold is the similarity above which a said word counts as
// a near miss for an expected word.
const SubstitutionThreshold = 0.6

// CorrectThreshold is the sentence similarity a graded attempt needs to pass.
const CorrectThreshold = 0.7

// WordPair is a said word matched against the expected word it approximates.
type WordPair struct {
	Said       string  `json:"said"`
	Expected   string  `json:"expected"`
	Similarity float64 `json:"similarity"`
}

// Comparison is the word-level diff of a spoken attempt.
type Comparison struct {
	MatchedWords   []string   `json:"matchedWords"`
	IncorrectWords []WordPair `json:"incorrectWords"`
	MissingWords   []string   `json:"missingWords"`
	ExtraWords     []string   `json:"extraWords"`
	Similarity     float64    `json:"similarity"`
	IsCorrect      bool       `json:"isCorrect"`
	Feedback       string     `json:"feedback,omitempty"`
	Lenient        bool       `json:"lenient,omitempty"`

	// Scores is set only by lenient grading when the LLM rated the attempt.
	Scores *engine.PronunciationScores `json:"scores,omitempty"`
}

// WordSimilarity is 1 - levenshtein/maxLen over lowercased runes.
func WordSimilarity(a, b string) float64 {
	ra := []rune(strings.ToLower(a))
	rb := []rune(strings.ToLower(b))
	longest := max(len(ra), len(rb))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(ra, rb))/float64(longest)
}

func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// CompareTexts diffs said against expected word by word. Exact matches are
// taken first; remaining said words then claim the most similar remaining
// expected word above SubstitutionThreshold.
func CompareTexts(said, expected string) Comparison {
	saidWords := strings.Fields(strings.ToLower(said))
	expWords := strings.Fields(strings.ToLower(expected))

	res := Comparison{
		MatchedWords:   []string{},
		IncorrectWords: []WordPair{},
		MissingWords:   []string{},
		ExtraWords:     []string{},
	}
	usedExp := make([]bool, len(expWords))
	usedSaid := make([]bool, len(saidWords))

	for i, w := range saidWords {
		for j, e := range expWords {
			if !usedExp[j] && w == e {
				usedExp[j], usedSaid[i] = true, true
				res.MatchedWords = append(res.MatchedWords, w)
				break
			}
		}
	}

	for i, w := range saidWords {
		if usedSaid[i] {
			continue
		}
		best, bestScore := -1, SubstitutionThreshold
		for j, e := range expWords {
			if usedExp[j] {
				continue
			}
			if s := WordSimilarity(w, e); s > bestScore {
				best, bestScore = j, s
			}
		}
		if best < 0 {
			res.ExtraWords = append(res.ExtraWords, w)
			continue
		}
		usedExp[best], usedSaid[i] = true, true
		res.IncorrectWords = append(res.IncorrectWords, WordPair{Said: w, Expected: expWords[best], Similarity: bestScore})
	}

	for j, e := range expWords {
		if !usedExp[j] {
			res.MissingWords = append(res.MissingWords, e)
		}
	}
	if len(expWords) > 0 {
		res.Similarity = float64(len(res.MatchedWords)+len(res.IncorrectWords)) / float64(len(expWords))
	}
	return res
}

var contractions = map[string]string{
	"i'm": "i am", "you're": "you are", "he's": "he is", "she's": "she is",
	"it's": "it is", "we're": "we are", "they're": "they are",
	"i've": "i have", "you've": "you have", "we've": "we have", "they've": "they have",
	"i'll": "i will", "you'll": "you will", "he'll": "he will", "she'll": "she will",
	"we'll": "we will", "they'll": "they will", "i'd": "i would", "you'd": "you would",
	"don't": "do not", "doesn't": "does not", "didn't": "did not",
	"can't": "cannot", "won't": "will not", "isn't": "is not", "aren't": "are not",
	"wasn't": "was not", "weren't": "were not", "haven't": "have not",
	"hasn't": "has not", "couldn't": "could not", "wouldn't": "would not",
	"shouldn't": "should not", "let's": "let us", "that's": "that is",
	"there's": "there is", "what's": "what is", "gonna": "going to", "wanna": "want to",
}

// ExpandContractions rewrites common English contractions in lowercased text.
func ExpandContractions(text string) string {
	words := strings.Fields(strings.ReplaceAll(text, "’", "'"))
	for i, w := range words {
		if full, ok := contractions[w]; ok {
			words[i] = full
		}
	}
	return strings.Join(words, " ")
}

var nonWordRe = regexp.MustCompile(`[^\p{L}\p{N}\s']+`)

// NormalizeText lowercases, expands contractions and strips punctuation.
func NormalizeText(text string) string {
	text = strings.ReplaceAll(strings.ToLower(text), "’", "'")
	text = ExpandContractions(nonWordRe.ReplaceAllString(text, " "))
	text = strings.Map(func(r rune) rune {
		if r == '\'' {
			return -1
		}
		if unicode.IsSpace(r) {
			return ' '
		}
		return r
	}, text)
	return strings.Join(strings.Fields(text), " ")
}

// Grade normalises both texts, compares them and attaches a verdict.
func Grade(said, expected string) Comparison {
	res := CompareTexts(NormalizeText(said), NormalizeText(expected))
	res.IsCorrect = res.Similarity >= CorrectThreshold
	switch {
	case len(res.MissingWords)+len(res.IncorrectWords)+len(res.ExtraWords) == 0 && len(res.MatchedWords) > 0:
		res.Feedback = "Perfect match!"
	case res.IsCorrect:
		res.Feedback = "Good attempt! A few words were different."
	default:
		res.Feedback = "Try again. Listen carefully and repeat the sentence."
	}
	return res
}

// GradeLenient asks the LLM for a forgiving verdict and keeps the word diff
// from Grade. Without a usable LLM reply it is exactly Grade.
func GradeLenient(ctx context.Context, said, expected string) Comparison {
	res := Grade(said, expected)
	if !engine.LLMEnabled() {
		return res
	}
	g, err := engine.LLMGradeSpeech(ctx, said, expected)
	if err != nil {
		slog.Warn("compare: lenient grading failed", slog.Any("err", err))
		return res
	}
	return applyGrade(res, g)
}

// applyGrade overrides the verdict of res with the LLM grade.
func applyGrade(res Comparison, g engine.LLMGrade) Comparison {
	res.Lenient = true
	res.Scores = g.Scores()
	res.IsCorrect = g.IsMatch
	res.Similarity = g.Accuracy
	if g.MissingWords != nil {
		res.MissingWords = g.MissingWords
	}
	if g.Feedback != "" {
		res.Feedback = g.Feedback
	}
	return res
}
