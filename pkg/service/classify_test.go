package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		port int
		want string
	}{
		{80, "HTTP"},
		{443, "HTTPS"},
		{22, "SSH"},
		{6379, "Redis"},
		{8443, "HTTPS-Alt"},
		{27017, "MongoDB"},
		{81, Unknown},
		{0, Unknown},
		{65535, Unknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.port), "port %d", tt.port)
	}
}

func TestTableSize(t *testing.T) {
	assert.Len(t, labels, 20)
	assert.Equal(t, "Elasticsearch", Classify(9200))
	assert.Equal(t, Unknown, Classify(81))
}

func TestClassifyDeterministic(t *testing.T) {
	for port := 1; port <= 65535; port += 97 {
		assert.Equal(t, Classify(port), Classify(port))
	}
}
