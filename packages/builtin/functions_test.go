package builtin

import (
	"encoding/base64"
	"regexp"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Call(t *testing.T) {
	r := NewRegistry()

	t.Run("uuid", func(t *testing.T) {
		v, ok := r.Call("uuid()")
		require.True(t, ok)
		assert.Regexp(t, regexp.MustCompile(`^[0-9a-f-]{36}$`), v)
	})

	t.Run("random within range", func(t *testing.T) {
		for i := 0; i < 20; i++ {
			v, ok := r.Call("random(5, 10)")
			require.True(t, ok)
			n := v.(int)
			assert.GreaterOrEqual(t, n, 5)
			assert.LessOrEqual(t, n, 10)
		}
	})

	t.Run("randomString length", func(t *testing.T) {
		v, ok := r.Call("randomString(8)")
		require.True(t, ok)
		assert.Len(t, v.(string), 8)
	})

	t.Run("base64 round trip", func(t *testing.T) {
		enc, ok := r.Call(`base64("hello")`)
		require.True(t, ok)
		assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("hello")), enc)

		dec, ok := r.Call(`base64Decode("` + enc.(string) + `")`)
		require.True(t, ok)
		assert.Equal(t, "hello", dec)
	})

	t.Run("sha256", func(t *testing.T) {
		v, ok := r.Call(`sha256("abc")`)
		require.True(t, ok)
		assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", v)
	})

	t.Run("urlEncode", func(t *testing.T) {
		v, ok := r.Call(`urlEncode("a b&c")`)
		require.True(t, ok)
		assert.Equal(t, "a+b%26c", v)
	})

	t.Run("timestamp is numeric", func(t *testing.T) {
		v, ok := r.Call("timestamp()")
		require.True(t, ok)
		assert.Greater(t, v.(int64), int64(0))
	})

	t.Run("unknown function", func(t *testing.T) {
		_, ok := r.Call("nope()")
		assert.False(t, ok)
	})

	t.Run("not a call expression", func(t *testing.T) {
		_, ok := r.Call("uuid")
		assert.False(t, ok)
	})
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	r.Register("double", func(args []string) any {
		n, _ := strconv.Atoi(args[0])
		return n * 2
	})

	v, ok := r.Call("double(21)")
	require.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{in: "", want: nil},
		{in: "a, b", want: []string{"a", "b"}},
		{in: `"a, b", c`, want: []string{"a, b", "c"}},
		{in: `'x'`, want: []string{"x"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, splitArgs(tt.in), "input %q", tt.in)
	}
}
