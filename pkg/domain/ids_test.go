package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "travelcred/pkg/domain-errors"
)

// TestParseIdentity_TrustBoundary validates the parsing invariant:
// "identities are non-empty, bounded, printable and otherwise opaque"
func TestParseIdentity_TrustBoundary(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Identity
		wantErr bool
	}{
		{"address", "0x70997970C51812dc3A010C7d01b50e0d17dc79C8", "0x70997970C51812dc3A010C7d01b50e0d17dc79C8", false},
		{"trims whitespace", "  holder-1 ", "holder-1", false},
		{"empty", "", "", true},
		{"whitespace only", "   ", "", true},
		{"embedded space", "holder 1", "", true},
		{"null byte", "holder\x00", "", true},
		{"zero-width space", "holder\u200b1", "", true},
		{"oversized", strings.Repeat("a", MaxIdentityLength+1), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIdentity(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSequentialIDs(t *testing.T) {
	t.Run("accepts decimal ids", func(t *testing.T) {
		pid, err := ParsePassportID("42")
		require.NoError(t, err)
		assert.Equal(t, PassportID(42), pid)

		vid, err := ParseVisaID(" 7 ")
		require.NoError(t, err)
		assert.Equal(t, VisaID(7), vid)
	})

	t.Run("zero parses and is reported as zero", func(t *testing.T) {
		pid, err := ParsePassportID("0")
		require.NoError(t, err)
		assert.True(t, pid.IsZero())
	})

	for _, input := range []string{"", "-1", "abc", "1.5", "99999999999999999999999"} {
		t.Run("rejects "+input, func(t *testing.T) {
			_, err := ParsePassportID(input)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
		})
	}
}

func TestParseRegistryKind(t *testing.T) {
	k, err := ParseRegistryKind("Passport")
	require.NoError(t, err)
	assert.Equal(t, RegistryPassport, k)

	k, err = ParseRegistryKind("visa")
	require.NoError(t, err)
	assert.Equal(t, RegistryVisa, k)

	_, err = ParseRegistryKind("customs")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}
