package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRoom_IsIdle(t *testing.T) {
	last := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	room := &Room{LastActivity: last}
	idle := 120 * time.Minute

	assert.False(t, room.IsIdle(last.Add(119*time.Minute), idle))
	assert.True(t, room.IsIdle(last.Add(120*time.Minute), idle), "恰好到达阈值即视为过期")
	assert.True(t, room.IsIdle(last.Add(121*time.Minute), idle))
	assert.Equal(t, last.Add(idle), room.ExpiresAt(idle))
}

func TestLanguageTag(t *testing.T) {
	tests := []struct {
		content string
		lang    string
		body    string
	}{
		{"[python]\nprint(1)", "python", "print(1)"},
		{"[c++]\nint main() {}\n", "c++", "int main() {}\n"},
		{"print(1)", "", "print(1)"},
		{"[]\nx", "", "[]\nx"},
		{"[py\nthon]\nx", "", "[py\nthon]\nx"},
		{"[a]b]\nx", "a]b", "x"},
		{"[python] print(1)", "", "[python] print(1)"},
	}
	for _, tt := range tests {
		lang, body := SplitLanguageTag(tt.content)
		assert.Equal(t, tt.lang, lang, tt.content)
		assert.Equal(t, tt.body, body, tt.content)
	}

	assert.Equal(t, "[go]\nfmt.Println()", WithLanguageTag("go", "fmt.Println()"))
	assert.Equal(t, "x := 1", WithLanguageTag("", "x := 1"))
}

func TestMessageType_Valid(t *testing.T) {
	assert.True(t, MessageText.Valid())
	assert.True(t, MessageCode.Valid())
	assert.True(t, MessageImage.Valid())
	assert.False(t, MessageType("video").Valid())
}
