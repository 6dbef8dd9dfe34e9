package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/recgo/metadata"
)

func TestFingerprint(t *testing.T) {
	t.Run("FilterOrderIndependent", func(t *testing.T) {
		a := Fingerprint("query", 5, metadata.Document{"a": metadata.Int(1), "b": metadata.Int(2)})
		b := Fingerprint("query", 5, metadata.Document{"b": metadata.Int(2), "a": metadata.Int(1)})
		assert.Equal(t, a, b)
	})

	t.Run("ParameterSensitive", func(t *testing.T) {
		base := Fingerprint("query", 5, nil)
		assert.NotEqual(t, base, Fingerprint("other query", 5, nil))
		assert.NotEqual(t, base, Fingerprint("query", 6, nil))
		assert.NotEqual(t, base, Fingerprint("query", 5, metadata.Document{"a": metadata.Int(1)}))
	})

	t.Run("FilterValueSensitive", func(t *testing.T) {
		a := Fingerprint("query", 5, metadata.Document{"a": metadata.Int(1)})
		b := Fingerprint("query", 5, metadata.Document{"a": metadata.Int(2)})
		c := Fingerprint("query", 5, metadata.Document{"a": metadata.String("1")})
		assert.NotEqual(t, a, b)
		assert.NotEqual(t, a, c)
	})

	t.Run("NilAndEmptyFilterAgree", func(t *testing.T) {
		assert.Equal(t,
			Fingerprint("query", 5, nil),
			Fingerprint("query", 5, metadata.Document{}),
		)
	})
}

func TestContentKey(t *testing.T) {
	assert.Equal(t, contentKey("hello"), contentKey("hello"))
	assert.NotEqual(t, contentKey("hello"), contentKey("hello "))
	assert.Len(t, contentKey(""), 64)
}
