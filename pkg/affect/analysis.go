package affect

// Valence labels.
const (
	ValencePositive     = "Positive"
	ValenceNegative     = "Negative"
	ValenceNeutral      = "Neutral"
	ValenceNeutralHappy = "Neutral-Happy"
	ValenceNeutralAngry = "Neutral-Angry"
	ValenceNeutralSad   = "Neutral-Sad"
)

// secondaryEmotionLevel is how strong a non-neutral emotion must be to refine
// a neutral valence.
const secondaryEmotionLevel = 0.2

// Analysis is a coarse, single-frame summary of a reading for display.
type Analysis struct {
	Valence         string `json:"valence"`
	EngagementScore int    `json:"engagement_score"`
}

// Summarize derives valence and a 0-100 engagement score from one reading.
func Summarize(r Reading) Analysis {
	s := r.Canonical()
	return Analysis{
		Valence:         valence(s),
		EngagementScore: engagement(s),
	}
}

func valence(s Scores) string {
	pos := s.Happy
	neg := s.Angry + s.Sad + s.Disgust + s.Fear
	neu := s.Neutral + s.Surprise

	switch {
	case pos > neg && pos > neu:
		return ValencePositive
	case neg > pos:
		return ValenceNegative
	}

	strongest := max(s.Happy, s.Angry, s.Sad, s.Disgust, s.Fear, s.Surprise)
	if strongest <= secondaryEmotionLevel {
		return ValenceNeutral
	}
	switch strongest {
	case s.Happy:
		return ValenceNeutralHappy
	case s.Angry:
		return ValenceNeutralAngry
	case s.Sad:
		return ValenceNeutralSad
	default:
		return ValenceNeutral
	}
}

func engagement(s Scores) int {
	raw := s.Happy*1.0 + s.Surprise*0.9 + s.Angry*0.8 + s.Fear*0.7 + s.Neutral*0.1 + s.Sad*0.2
	score := int(raw * 100)
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	default:
		return score
	}
}
