package cmd

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"chief/internal/cli"
)

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "validation error maps to usage",
			err:  cli.Validationf("per_page must be an integer between 1 and 100"),
			want: ExitCodeUsage,
		},
		{
			name: "wrapped validation error maps to usage",
			err:  fmt.Errorf("listing domains: %w", cli.Validationf("bad input")),
			want: ExitCodeUsage,
		},
		{
			name: "auth error maps to general failure",
			err:  &cli.AuthRequiredError{},
			want: ExitCodeError,
		},
		{
			name: "plain error maps to general failure",
			err:  errors.New("boom"),
			want: ExitCodeError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, getExitCode(tt.err))
		})
	}
}

func TestValidateDomainName(t *testing.T) {
	assert.NoError(t, validateDomainName("example.com"))
	assert.NoError(t, validateDomainName("my-site.dev"))

	assert.Error(t, validateDomainName("ab"))
	assert.Error(t, validateDomainName("no-tld"))
	assert.Error(t, validateDomainName("-leading.com"))
	assert.Error(t, validateDomainName("example.c"))
}

func TestUserAgentIncludesVersion(t *testing.T) {
	prev := rootCmd.Version
	defer func() { rootCmd.Version = prev }()

	SetVersion("1.2.3")
	assert.Equal(t, "ChiefToolsCLI/1.2.3 (+https://aka.chief.app/cli)", userAgent())

	SetVersion("")
	assert.Equal(t, "ChiefToolsCLI/dev (+https://aka.chief.app/cli)", userAgent())
}
