package pathoram

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/hkdf"
)

const (
	nonceSize      = 16
	tagSize        = 16
	versionSize    = 4
	macSize        = sha256.Size // 32
	aeadKeySize    = 32          // AES-256
	hmacKeySize    = 32
	versionKeySize = 32
)

// Envelope provides authenticated encryption with per-ciphertext
// freshness over serialized Blocks. All server-visible bytes pass through
// Seal/Open. The wire layout is:
//
//	nonce(16) || aead_tag(16) || aead_ciphertext
//
// and the AEAD plaintext is:
//
//	version(4) || serialized_block || hmac_sha256(hmacKey, version||serialized_block)(32)
//
// The AEAD already authenticates its own plaintext; the inner HMAC is
// redundant against a correct AEAD implementation, but it makes the
// ciphertext-indistinguishability argument explicit per write and gives
// every deployment a documented constant-time integrity check that
// doesn't depend on which AEAD backs it.
type Envelope struct {
	aead    cipher.AEAD
	hmacKey []byte
	verKey  []byte

	blockSize int
	numBlocks int

	counter uint64 // binds successive versions to access order; single-client, no concurrent use
}

// NewEnvelope derives independent AEAD, HMAC, and version-PRF subkeys from
// the client's KeySize-byte secret via HKDF-SHA256, rather than reusing
// one key across primitives. Using a single key for both the cipher and
// the MAC invites exactly the kind of cross-primitive interaction the
// Path ORAM literature warns integrators to avoid; splitting via HKDF
// keeps the external contract at one KeySize-byte secret while giving
// each primitive its own independent key.
func NewEnvelope(key []byte, blockSize, numBlocks int) (*Envelope, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: key must be %d bytes", ErrInvalidConfig, KeySize)
	}

	kdf := hkdf.New(sha256.New, key, nil, []byte("pathoram-go envelope v1"))
	derived := make([]byte, aeadKeySize+hmacKeySize+versionKeySize)
	if _, err := io.ReadFull(kdf, derived); err != nil {
		return nil, fmt.Errorf("%w: derive subkeys: %v", ErrInternal, err)
	}

	aeadKey := derived[:aeadKeySize]
	hmacKey := derived[aeadKeySize : aeadKeySize+hmacKeySize]
	verKey := derived[aeadKeySize+hmacKeySize:]

	block, err := aes.NewCipher(aeadKey)
	if err != nil {
		return nil, fmt.Errorf("%w: create AES cipher: %v", ErrInternal, err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, fmt.Errorf("%w: create GCM: %v", ErrInternal, err)
	}

	return &Envelope{
		aead:      aead,
		hmacKey:   hmacKey,
		verKey:    verKey,
		blockSize: blockSize,
		numBlocks: numBlocks,
	}, nil
}

// nextVersion derives a fresh 4-byte version tag bound to this envelope's
// access counter and the ciphertext's own nonce, via a keyed BLAKE2b PRF.
// A plain crypto/rand draw would also give every seal a fresh version;
// binding the version to the nonce and counter additionally ties every
// version deterministically to the write that produced it, useful for
// offline auditing of a captured bucket dump.
func (e *Envelope) nextVersion(nonce []byte) ([]byte, error) {
	h, err := blake2b.New(versionSize, e.verKey)
	if err != nil {
		return nil, fmt.Errorf("%w: version PRF: %v", ErrInternal, err)
	}
	h.Write(nonce)
	var ctr [8]byte
	binary.BigEndian.PutUint64(ctr[:], e.counter)
	h.Write(ctr[:])
	e.counter++
	return h.Sum(nil), nil
}

// Seal encrypts block into the wire envelope.
func (e *Envelope) Seal(block Block) ([]byte, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("%w: nonce: %v", ErrInternal, err)
	}

	version, err := e.nextVersion(nonce)
	if err != nil {
		return nil, err
	}

	serialized, err := serializeBlock(block, e.blockSize, e.numBlocks)
	if err != nil {
		return nil, err
	}

	mac := hmac.New(sha256.New, e.hmacKey)
	mac.Write(version)
	mac.Write(serialized)
	tag := mac.Sum(nil)

	aeadPlaintext := make([]byte, 0, versionSize+len(serialized)+macSize)
	aeadPlaintext = append(aeadPlaintext, version...)
	aeadPlaintext = append(aeadPlaintext, serialized...)
	aeadPlaintext = append(aeadPlaintext, tag...)

	sealed := e.aead.Seal(nil, nonce, aeadPlaintext, nil)
	// sealed = aead_ciphertext || aead_tag (GCM convention); reorder to
	// this envelope's nonce || aead_tag || aead_ciphertext wire layout.
	ct := sealed[:len(sealed)-tagSize]
	aeadTag := sealed[len(sealed)-tagSize:]

	out := make([]byte, 0, nonceSize+tagSize+len(ct))
	out = append(out, nonce...)
	out = append(out, aeadTag...)
	out = append(out, ct...)
	return out, nil
}

// openStatus classifies the outcome of Open as an explicit tri-state
// result rather than relying on callers to pattern-match error strings:
// Ok (recovered a valid block), AuthFailed (AEAD or inner MAC rejected
// the blob — treat as a dummy or foreign ciphertext), or Malformed (the
// plaintext decrypted and authenticated but had the wrong shape — a bug,
// not a dummy).
type openStatus int

const (
	openOk openStatus = iota
	openAuthFailed
	openMalformed
)

// Open decrypts and verifies a wire envelope, reporting which of the
// three openStatus outcomes occurred.
func (e *Envelope) Open(ciphertext []byte) (Block, openStatus) {
	if len(ciphertext) < nonceSize+tagSize {
		return Block{}, openAuthFailed
	}
	nonce := ciphertext[:nonceSize]
	aeadTag := ciphertext[nonceSize : nonceSize+tagSize]
	ct := ciphertext[nonceSize+tagSize:]

	sealed := make([]byte, 0, len(ct)+tagSize)
	sealed = append(sealed, ct...)
	sealed = append(sealed, aeadTag...)

	aeadPlaintext, err := e.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return Block{}, openAuthFailed
	}

	if len(aeadPlaintext) < versionSize+macSize {
		return Block{}, openMalformed
	}
	version := aeadPlaintext[:versionSize]
	rest := aeadPlaintext[versionSize:]
	serialized := rest[:len(rest)-macSize]
	gotMAC := rest[len(rest)-macSize:]

	mac := hmac.New(sha256.New, e.hmacKey)
	mac.Write(version)
	mac.Write(serialized)
	wantMAC := mac.Sum(nil)
	if !hmac.Equal(gotMAC, wantMAC) {
		return Block{}, openAuthFailed
	}

	block, err := deserializeBlock(serialized, e.blockSize, e.numBlocks)
	if err != nil {
		return Block{}, openMalformed
	}
	return block, openOk
}

// Overhead returns the number of extra bytes the envelope adds to a
// serialized block: nonce + aead tag + version + inner MAC.
func (e *Envelope) Overhead() int {
	return nonceSize + tagSize + versionSize + macSize
}
