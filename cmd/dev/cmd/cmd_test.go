package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChangelogArgs(t *testing.T) {
	assert.Equal(t, []string{"--output", "CHANGELOG.md"}, changelogArgs("", "", ""))
	assert.Equal(t, []string{"--next-tag", "v1.1.0", "--output", "CHANGES.md", "v1.0.0"},
		changelogArgs("CHANGES.md", "v1.1.0", "v1.0.0"))
}

func TestTaskCmd(t *testing.T) {
	cmd := taskCmd("lint", "Run linting", func() error { return assert.AnError })
	cmd.SetArgs([]string{})
	err := cmd.Execute()
	assert.ErrorIs(t, err, assert.AnError)
	assert.ErrorContains(t, err, "lint failed")
}
