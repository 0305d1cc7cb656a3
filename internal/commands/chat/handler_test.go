package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAudioFormat(t *testing.T) {
	tests := []struct {
		name     string
		mime     string
		fileName string
		want     string
	}{
		{"voice note ogg", "audio/ogg", "", "ogg"},
		{"opus codec", "audio/ogg; codecs=opus", "", "ogg"},
		{"mp3 by mime", "audio/mpeg", "", "mp3"},
		{"wav by mime", "audio/wav", "", "wav"},
		{"m4a by mime", "audio/mp4", "", "m4a"},
		{"mp3 by extension", "", "song.MP3", "mp3"},
		{"m4a by extension", "application/octet-stream", "note.m4a", "m4a"},
		{"unknown defaults to ogg", "", "mystery.bin", "ogg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, audioFormat(tt.mime, tt.fileName))
		})
	}
}

func TestIsTextDocument(t *testing.T) {
	tests := []struct {
		name     string
		mime     string
		fileName string
		want     bool
	}{
		{"text mime", "text/plain", "notes", true},
		{"json mime", "application/json", "data", true},
		{"markdown extension", "application/octet-stream", "README.md", true},
		{"go source", "", "main.go", true},
		{"pdf rejected", "application/pdf", "paper.pdf", false},
		{"binary rejected", "application/octet-stream", "tool.exe", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isTextDocument(tt.mime, tt.fileName))
		})
	}
}
