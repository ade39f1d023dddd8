package domain

type Emotion string

const (
	EmotionHappy     Emotion = "happy"
	EmotionLove      Emotion = "love"
	EmotionFunny     Emotion = "funny"
	EmotionGrateful  Emotion = "grateful"
	EmotionInspired  Emotion = "inspired"
	EmotionPeaceful  Emotion = "peaceful"
	EmotionNostalgic Emotion = "nostalgic"
)

// DefaultEmotions is the tag set offered when none is configured.
var DefaultEmotions = []Emotion{
	EmotionHappy,
	EmotionLove,
	EmotionFunny,
	EmotionGrateful,
	EmotionInspired,
	EmotionPeaceful,
	EmotionNostalgic,
}

const defaultIcon = "💫"

var emotionIcons = map[Emotion]string{
	EmotionHappy:     "😊",
	EmotionLove:      "❤️",
	EmotionFunny:     "😂",
	EmotionGrateful:  "🙏",
	EmotionInspired:  "✨",
	EmotionPeaceful:  "😌",
	EmotionNostalgic: "🕰️",
}

// Icon returns the marker glyph, falling back to a generic one.
func (e Emotion) Icon() string {
	if icon, ok := emotionIcons[e]; ok {
		return icon
	}
	return defaultIcon
}

// Label is the marker label shown on the map.
func (e Emotion) Label() string {
	name := string(e)
	if name == "" {
		name = "story"
	}
	return e.Icon() + " " + name
}
