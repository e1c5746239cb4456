package capability

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePortLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want PortRecord
		ok   bool
	}{
		{"TCP Default", "api.example.com:443", PortRecord{Host: "api.example.com", Port: 443, Protocol: "tcp"}, true},
		{"UDP Suffix", "api.example.com:53/udp", PortRecord{Host: "api.example.com", Port: 53, Protocol: "udp"}, true},
		{"IPv4 Host", "10.0.0.1:8080", PortRecord{Host: "10.0.0.1", Port: 8080, Protocol: "tcp"}, true},
		{"Missing Port", "api.example.com", PortRecord{}, false},
		{"Port Out Of Range", "api.example.com:70000", PortRecord{}, false},
		{"Port Zero", "api.example.com:0", PortRecord{}, false},
		{"Not A Number", "api.example.com:https", PortRecord{}, false},
		{"Empty Line", "", PortRecord{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parsePortLine(tt.line)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestIsScript(t *testing.T) {
	assert.True(t, IsScript("https://api.example.com/static/app.js"))
	assert.True(t, IsScript("https://api.example.com/APP.JS"))
	assert.True(t, IsScript("https://api.example.com/app.js?v=2"), "query string does not affect the path suffix")
	assert.False(t, IsScript("https://api.example.com/script.json"))
	assert.False(t, IsScript("https://api.example.com/index.html"))
}
