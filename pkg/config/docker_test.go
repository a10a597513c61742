package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveHost(t *testing.T) {
	tests := []struct {
		host     string
		inDocker bool
		expected string
	}{
		{"localhost", false, "localhost"},
		{"127.0.0.1", false, "127.0.0.1"},
		{"localhost", true, DockerHostAlias},
		{"127.0.0.1", true, DockerHostAlias},
		{"::1", true, DockerHostAlias},
		{"db.example.com", true, "db.example.com"},
		{"192.168.1.100", true, "192.168.1.100"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, resolveHost(tt.host, tt.inDocker), "host=%s docker=%v", tt.host, tt.inDocker)
	}
}

func TestResolveHostForDocker_RemoteHostsUnchanged(t *testing.T) {
	assert.Equal(t, "mydb.example.com", ResolveHostForDocker("mydb.example.com"))
}
