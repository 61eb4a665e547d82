package hashlib

import (
	"bytes"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"sort"
	"strings"

	"github.com/multiformats/go-multihash"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

const (
	// DefaultAlgorithm is used when the repository config does not name one.
	DefaultAlgorithm = "sha1"
)

type algorithm struct {
	code uint64
	make func() hash.Hash
}

func newBlake2b256() hash.Hash {
	h, err := blake2b.New256(nil)
	if err != nil {
		// Only fails for oversized keys; we pass none.
		panic(fmt.Sprintf("blake2b: %v", err))
	}

	return h
}

var algorithms = map[string]algorithm{
	"sha1":        {code: multihash.SHA1, make: sha1.New},
	"sha256":      {code: multihash.SHA2_256, make: sha256.New},
	"sha3-256":    {code: multihash.SHA3_256, make: sha3.New256},
	"blake2b-256": {code: multihash.BLAKE2B_MIN + 31, make: newBlake2b256},
}

// Algorithms returns the names of all supported hash algorithms, sorted.
func Algorithms() []string {
	names := []string{}
	for name := range algorithms {
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}

// IsValidAlgorithm checks if `name` is a supported algorithm.
func IsValidAlgorithm(name string) bool {
	_, ok := algorithms[name]
	return ok
}

// Hash is a multihash: the digest is prefixed by the algorithm code
// and length, so it describes itself. It's methods are nil-value safe.
type Hash []byte

// FromB58String parses a hash formatted by B58String.
func FromB58String(s string) (Hash, error) {
	mh, err := multihash.FromB58String(s)
	if err != nil {
		return nil, err
	}

	return Hash(mh), nil
}

func (h Hash) String() string {
	return h.Hex()
}

// Hex formats the raw digest (without multihash prefix) as lowercase hex.
func (h Hash) Hex() string {
	if h == nil {
		return ""
	}

	dec, err := multihash.Decode(h)
	if err != nil {
		return ""
	}

	return hex.EncodeToString(dec.Digest)
}

// B58String formats the whole multihash as base58 string.
func (h Hash) B58String() string {
	if h == nil {
		return "<empty hash>"
	}

	return multihash.Multihash(h).B58String()
}

// Algorithm returns the name of the algorithm that produced `h`.
func (h Hash) Algorithm() (string, error) {
	dec, err := multihash.Decode(h)
	if err != nil {
		return "", err
	}

	for name, alg := range algorithms {
		if alg.code == dec.Code {
			return name, nil
		}
	}

	return "", fmt.Errorf("unsupported multihash code: %#x", dec.Code)
}

// Valid returns true if the hash is a decodable multihash.
func (h Hash) Valid() bool {
	if len(h) == 0 {
		return false
	}

	_, err := multihash.Decode(h)
	return err == nil
}

// Equal returns true if both hashes are equal.
// Nil hashes are considered equal.
func (h Hash) Equal(other Hash) bool {
	if h == nil || other == nil {
		return h == nil && other == nil
	}

	return bytes.Equal(h, other)
}

// Hasher computes content digests with one fixed algorithm.
// A Hasher has no state and is safe for concurrent use.
type Hasher struct {
	name string
	alg  algorithm
}

// NewHasher returns a hasher for the algorithm called `name`.
// An empty name selects DefaultAlgorithm.
func NewHasher(name string) (*Hasher, error) {
	if name == "" {
		name = DefaultAlgorithm
	}

	alg, ok := algorithms[name]
	if !ok {
		return nil, fmt.Errorf(
			"unknown hash algorithm `%s` (valid: %s)",
			name, strings.Join(Algorithms(), ", "),
		)
	}

	return &Hasher{name: name, alg: alg}, nil
}

// Name returns the algorithm name of this hasher.
func (hs *Hasher) Name() string {
	return hs.name
}

// Size returns the digest size in bytes.
func (hs *Hasher) Size() int {
	return hs.alg.make().Size()
}

// HexLength is the length of a digest formatted by Hash.Hex().
func (hs *Hasher) HexLength() int {
	return 2 * hs.Size()
}

// Writer returns a fresh HashWriter using this algorithm.
func (hs *Hasher) Writer() *HashWriter {
	return &HashWriter{hash: hs.alg.make(), code: hs.alg.code}
}

// Sum hashes `data`.
func (hs *Hasher) Sum(data []byte) Hash {
	hw := hs.Writer()
	hw.Write(data)
	return hw.Finalize()
}

// SumReader hashes everything that can be read from `r`.
func (hs *Hasher) SumReader(r io.Reader) (Hash, error) {
	hw := hs.Writer()
	if _, err := io.Copy(hw, r); err != nil {
		return nil, err
	}

	return hw.Finalize(), nil
}

// Digest is Sum() formatted as hex string.
func (hs *Hasher) Digest(data []byte) string {
	return hs.Sum(data).Hex()
}

// HashWriter is a io.Writer that hashes everything written to it.
type HashWriter struct {
	hash hash.Hash
	code uint64
}

// Finalize returns the final hash of the written data.
func (hw *HashWriter) Finalize() Hash {
	mh, err := multihash.Encode(hw.hash.Sum(nil), hw.code)
	if err != nil {
		// If this does not work, there's something serious wrong.
		panic(fmt.Sprintf("failed to encode final hash: %v", err))
	}

	return Hash(mh)
}

func (hw *HashWriter) Write(buf []byte) (int, error) {
	return hw.hash.Write(buf)
}
