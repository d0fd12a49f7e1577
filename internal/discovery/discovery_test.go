package discovery

import "testing"

func TestIsGateway(t *testing.T) {
	tests := []struct {
		instance string
		want     bool
	}{
		{"gw-b072bf123456", true},
		{"GW-B072BF123456", true},
		{"shelly1-AABBCC", false},
		{"tradfri", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.instance, func(t *testing.T) {
			if got := isGateway(tt.instance); got != tt.want {
				t.Errorf("isGateway(%q) = %v, want %v", tt.instance, got, tt.want)
			}
		})
	}
}
