package hashlib

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashWriter(t *testing.T) {
	hs, err := NewHasher("sha3-256")
	require.Nil(t, err)

	data := []byte{1, 2, 3, 4}

	hw1 := hs.Writer()
	hw1.Write(data[0:2])
	hw1.Write(data[2:4])

	hw2 := hs.Writer()
	hw2.Write(data[0:3])
	hw2.Write(data[3:4])

	// The hashes should be the same, even though the
	// chunks we feed in differ.
	require.True(t, hw1.Finalize().Equal(hw2.Finalize()))
}

func TestKnownDigests(t *testing.T) {
	tcs := []struct {
		algo   string
		input  string
		digest string
	}{
		{"sha1", "hello", "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d"},
		{"sha1", "", "da39a3ee5e6b4b0d3255bfef95601890afd80709"},
		{"sha256", "hello", "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"},
		{"sha3-256", "", "a7ffc6f8bf1ed76651c14756a061d662f580ff4de43b49fa82d80a4b80f8434a"},
	}

	for _, tc := range tcs {
		t.Run(tc.algo+"-"+tc.input, func(t *testing.T) {
			hs, err := NewHasher(tc.algo)
			require.Nil(t, err)
			require.Equal(t, tc.digest, hs.Digest([]byte(tc.input)))
			require.Equal(t, len(tc.digest), hs.HexLength())
		})
	}
}

func TestDefaultAndUnknownAlgorithm(t *testing.T) {
	hs, err := NewHasher("")
	require.Nil(t, err)
	require.Equal(t, DefaultAlgorithm, hs.Name())

	_, err = NewHasher("md5")
	require.NotNil(t, err)
	require.False(t, IsValidAlgorithm("md5"))

	for _, name := range Algorithms() {
		require.True(t, IsValidAlgorithm(name))
		hs, err := NewHasher(name)
		require.Nil(t, err)
		require.True(t, hs.Sum([]byte("x")).Valid())
	}
}

func TestSumReaderMatchesSum(t *testing.T) {
	hs, err := NewHasher("blake2b-256")
	require.Nil(t, err)

	data := bytes.Repeat([]byte("abc"), 10000)
	fromReader, err := hs.SumReader(bytes.NewReader(data))
	require.Nil(t, err)
	require.True(t, fromReader.Equal(hs.Sum(data)))
	require.False(t, fromReader.Equal(hs.Sum(data[1:])))
}

func TestB58Roundtrip(t *testing.T) {
	for _, name := range Algorithms() {
		t.Run(name, func(t *testing.T) {
			hs, err := NewHasher(name)
			require.Nil(t, err)

			h := hs.Sum([]byte("hello"))
			back, err := FromB58String(h.B58String())
			require.Nil(t, err)
			require.True(t, h.Equal(back))
			require.Equal(t, h.Hex(), back.Hex())

			algo, err := back.Algorithm()
			require.Nil(t, err)
			require.Equal(t, name, algo)
		})
	}

	_, err := FromB58String("not-base58-0OIl")
	require.NotNil(t, err)
}

func TestNilHash(t *testing.T) {
	var empty Hash
	require.Equal(t, "", empty.Hex())
	require.Equal(t, "<empty hash>", empty.B58String())
	require.False(t, empty.Valid())
	require.True(t, empty.Equal(nil))

	_, err := empty.Algorithm()
	require.NotNil(t, err)
}
