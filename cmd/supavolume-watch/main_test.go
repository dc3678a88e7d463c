package main

import (
	"bytes"
	"testing"
)

func TestPrintFrame(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "volume changed",
			in:   `{"type":"volume_changed","data":{"percent":42,"muted":false,"icon":"audio-volume-medium-symbolic","known":true}}`,
			want: "[volume_changed] 42% UNMUTED (audio-volume-medium-symbolic)\n",
		},
		{
			name: "muted init",
			in:   `{"type":"state_init","data":{"percent":10,"muted":true,"icon":"audio-volume-muted-symbolic","known":true}}`,
			want: "[state_init] 10% MUTED (audio-volume-muted-symbolic)\n",
		},
		{
			name: "nothing presented yet",
			in:   `{"type":"state_init","data":{"percent":0,"muted":false,"icon":"","known":false}}`,
			want: "[state_init] unknown\n",
		},
		{
			name: "not json",
			in:   `hello`,
			want: "[TEXT] hello\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			printFrame(&buf, []byte(tt.in))
			if got := buf.String(); got != tt.want {
				t.Fatalf("printFrame() = %q, want %q", got, tt.want)
			}
		})
	}
}
