package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStory_UnmarshalJSON(t *testing.T) {
	t.Run("string id", func(t *testing.T) {
		var s Story
		err := json.Unmarshal([]byte(`{"id":"a1b2","lat":42.7,"lng":23.3,"text":"hello there friends","emotion":"happy","created_at":"2024-05-01T10:00:00.123456+00:00","status":"approved"}`), &s)

		require.NoError(t, err)
		assert.Equal(t, "a1b2", s.ID)
		assert.Equal(t, EmotionHappy, s.Emotion)
		assert.Equal(t, StatusApproved, s.Status)
		assert.Equal(t, 2024, s.CreatedAt.Year())
	})

	t.Run("numeric id", func(t *testing.T) {
		var s Story
		err := json.Unmarshal([]byte(`{"id":42,"lat":1,"lng":2,"text":"x","emotion":"love","status":"approved"}`), &s)

		require.NoError(t, err)
		assert.Equal(t, "42", s.ID)
		assert.Equal(t, 1.0, s.Lat)
	})

	t.Run("missing id is rejected", func(t *testing.T) {
		var s Story
		err := json.Unmarshal([]byte(`{"lat":1,"lng":2}`), &s)

		assert.Error(t, err)
	})

	t.Run("fractional id is rejected", func(t *testing.T) {
		var s Story
		err := json.Unmarshal([]byte(`{"id":1.5}`), &s)

		assert.Error(t, err)
	})
}

func TestNewLocalStory(t *testing.T) {
	now := time.UnixMilli(1714557600123)
	s := NewLocalStory(Submission{Lat: 42.7, Lng: 23.3, Text: "a kind stranger", Emotion: EmotionGrateful}, now)

	assert.Equal(t, "temp-1714557600123", s.ID)
	assert.True(t, s.IsLocal())
	assert.Equal(t, StatusApproved, s.Status)
	assert.Equal(t, now.UTC(), s.CreatedAt)
	assert.Equal(t, NewPosition(42.7, 23.3), s.Position())

	remote := &Story{ID: "17"}
	assert.False(t, remote.IsLocal())
}

func TestSubmitResponse_Accepted(t *testing.T) {
	assert.True(t, (&SubmitResponse{OK: true, StatusCode: 200}).Accepted())
	assert.False(t, (&SubmitResponse{OK: false, StatusCode: 200}).Accepted())
	assert.False(t, (&SubmitResponse{OK: true, StatusCode: 500}).Accepted())
}

func TestEmotion_Label(t *testing.T) {
	assert.Equal(t, "😊 happy", EmotionHappy.Label())
	assert.Equal(t, "💫 unknown", Emotion("unknown").Label())
	assert.Equal(t, "💫 story", Emotion("").Label())
}
