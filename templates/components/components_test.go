package components

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestErrorState_Escapes(t *testing.T) {
	var buf bytes.Buffer
	if err := ErrorState(`<script>alert("x")</script>`).Render(context.Background(), &buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "<script>") {
		t.Errorf("message was not escaped: %s", out)
	}
	if !strings.Contains(out, "error-state") {
		t.Errorf("missing error-state class: %s", out)
	}
}

func TestBadge(t *testing.T) {
	var buf bytes.Buffer
	if err := Badge("BUY", "buy").Render(context.Background(), &buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	if got := buf.String(); got != `<span class="badge badge-buy">BUY</span>` {
		t.Errorf("got %s", got)
	}
}

func TestSignClass(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1.2, "up"},
		{-0.1, "down"},
		{0, "flat"},
	}
	for _, tt := range tests {
		if got := SignClass(tt.in); got != tt.want {
			t.Errorf("SignClass(%v) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
