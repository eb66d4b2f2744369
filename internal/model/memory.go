// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data. There is no inheritance, so
// related behaviour (validation of enum values, for example) lives in small
// methods on the types themselves.
package model

import "time"

// MemoryType describes what kind of capture a memory started from.
type MemoryType string

const (
	MemoryTypeText  MemoryType = "text"
	MemoryTypeAudio MemoryType = "audio"
	MemoryTypeMixed MemoryType = "mixed"
)

// Valid reports whether t is one of the known memory types.
func (t MemoryType) Valid() bool {
	switch t {
	case MemoryTypeText, MemoryTypeAudio, MemoryTypeMixed:
		return true
	}
	return false
}

// Emotion is the mood tag attached to a memory. The empty string means "unset".
type Emotion string

const (
	EmotionHappy     Emotion = "happy"
	EmotionSad       Emotion = "sad"
	EmotionGrateful  Emotion = "grateful"
	EmotionPeaceful  Emotion = "peaceful"
	EmotionExcited   Emotion = "excited"
	EmotionNostalgic Emotion = "nostalgic"
	EmotionAnxious   Emotion = "anxious"
	EmotionContent   Emotion = "content"
	EmotionMixed     Emotion = "mixed"
)

// Emotions lists every emotion a memory can be tagged with, in the order the
// sentiment classifier is told about them.
var Emotions = []Emotion{
	EmotionHappy, EmotionSad, EmotionGrateful, EmotionPeaceful,
	EmotionExcited, EmotionNostalgic, EmotionAnxious, EmotionContent,
	EmotionMixed,
}

// Valid reports whether e is a known emotion. The empty (unset) emotion is valid.
func (e Emotion) Valid() bool {
	if e == "" {
		return true
	}
	for _, known := range Emotions {
		if e == known {
			return true
		}
	}
	return false
}

// Visibility is the tri-state access level of a memory.
//
//	private → only the owner
//	shared  → the owner, people it was shared with, and holders of the public link
//	public  → everyone
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityShared  Visibility = "shared"
	VisibilityPublic  Visibility = "public"
)

// Valid reports whether v is one of the three visibility levels.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPrivate, VisibilityShared, VisibilityPublic:
		return true
	}
	return false
}

// Attachment is a file attached to a memory.
type Attachment struct {
	URL      string `json:"url"`
	MimeType string `json:"mimeType"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

// Memory is a single journal entry owned by exactly one user.
//
// Optional text fields use the empty string for "not set" and are omitted from
// JSON when empty. Date is when the memory happened, which is usually not when
// it was written down (CreatedAt).
type Memory struct {
	ID            string       `json:"id"`
	UserID        string       `json:"userId"`
	Type          MemoryType   `json:"type"`
	Title         string       `json:"title,omitempty"`
	Content       string       `json:"content"`
	Transcript    string       `json:"transcript,omitempty"`
	AudioURL      string       `json:"audioUrl,omitempty"`
	AudioDuration int          `json:"audioDuration,omitempty"` // seconds
	ImageURL      string       `json:"imageUrl,omitempty"`
	VideoURL      string       `json:"videoUrl,omitempty"`
	Attachments   []Attachment `json:"attachments"`
	People        []string     `json:"people"`
	Location      string       `json:"location,omitempty"`
	Emotion       Emotion      `json:"emotion,omitempty"`
	Date          time.Time    `json:"date"`
	Prompt        string       `json:"prompt,omitempty"`
	Visibility    Visibility   `json:"visibility"`
	IsPublic      bool         `json:"isPublic"`
	ShareToken    string       `json:"shareToken,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}
