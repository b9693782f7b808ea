package container

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openciq/gsl/protocol"
)

func sample(t *testing.T, kind Kind) *Package {
	t.Helper()
	return New(kind, "Tide Watch", 0x122, []string{"006-B3258-00", "006-B3076-00"},
		bytes.Repeat([]byte{0xC7, 0x01}, 300))
}

func TestRoundTrip(t *testing.T) {
	for _, kind := range []Kind{Application, Settings, Firmware} {
		t.Run(kind.String(), func(t *testing.T) {
			orig := sample(t, kind)

			raw, err := Serialize(orig)
			require.NoError(t, err)

			parsed, err := Parse(raw)
			require.NoError(t, err)

			assert.Equal(t, orig.Kind, parsed.Kind)
			assert.Equal(t, orig.Name, parsed.Name)
			assert.Equal(t, orig.Version, parsed.Version)
			assert.Equal(t, orig.PartNumbers, parsed.PartNumbers)
			assert.Equal(t, orig.Payload(), parsed.Payload())
			assert.Equal(t, orig.Digest(), parsed.Digest())

			// Serialize must be a total inverse of Parse.
			again, err := Serialize(parsed)
			require.NoError(t, err)
			assert.Equal(t, raw, again)
		})
	}
}

func TestParseBadMagic(t *testing.T) {
	raw, err := Serialize(sample(t, Application))
	require.NoError(t, err)
	raw[0] = 'X'

	_, err = Parse(raw)
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestParseUnsupportedVersion(t *testing.T) {
	raw, err := Serialize(sample(t, Settings))
	require.NoError(t, err)

	// Bump the version byte and repair the trailer so only the version
	// check can fail.
	raw[4] = 9
	binary.LittleEndian.PutUint16(raw[len(raw)-2:], protocol.CRC16(raw[:len(raw)-2]))

	_, err = Parse(raw)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestParseChecksumMismatch(t *testing.T) {
	for _, kind := range []Kind{Application, Firmware} {
		t.Run(kind.String(), func(t *testing.T) {
			raw, err := Serialize(sample(t, kind))
			require.NoError(t, err)

			// Flip one payload bit; the trailer must catch it.
			raw[len(raw)-10] ^= 0x01

			_, err = Parse(raw)
			assert.ErrorIs(t, err, ErrChecksumMismatch)
		})
	}
}

func TestParseTruncated(t *testing.T) {
	raw, err := Serialize(sample(t, Application))
	require.NoError(t, err)

	for _, cut := range []int{0, 3, 5, len(raw) / 2, len(raw) - 1} {
		_, err := Parse(raw[:cut])
		assert.Error(t, err, "cut at %d", cut)
	}
}

func TestCompatibleWith(t *testing.T) {
	pkg := sample(t, Application)

	assert.True(t, pkg.CompatibleWith("006-B3258-00"))
	assert.False(t, pkg.CompatibleWith("006-B9999-00"))

	// Declared compatibility only: an empty list never matches.
	none := New(Application, "x", 1, nil, []byte{0x01})
	assert.False(t, none.CompatibleWith("006-B3258-00"))
}

func TestPackageImmutable(t *testing.T) {
	pkg := sample(t, Settings)

	got := pkg.Payload()
	got[0] ^= 0xFF

	assert.NotEqual(t, got[0], pkg.Payload()[0], "mutating the returned payload must not touch the package")
}

func TestSerializeUnknownKind(t *testing.T) {
	_, err := Serialize(New(Kind(0x7F), "x", 1, nil, []byte{0x01}))
	assert.Error(t, err)
}
