// Package crypto wraps the platform primitives used by the bridge
// protocol: AES-256-CBC with zero padding for session frames, RSA
// PKCS#1 v1.5 for wrapping the session secret, and the salted SHA-256
// password scheme used at login.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
)

const (
	// KeySize is the AES session key length in bytes.
	KeySize = 32

	// IVSize is the CBC initialisation vector length in bytes.
	IVSize = aes.BlockSize

	// SaltLength is the number of characters in a login salt.
	SaltLength = 12

	// FrameTerminator is appended to every encrypted frame before it
	// is sent as a WebSocket text message.
	FrameTerminator = 0x04
)

// secretSeparator joins the hex-encoded key and iv inside the
// RSA-wrapped session secret.
const secretSeparator = ":::"

// saltAlphabet is the character set login salts are drawn from.
const saltAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

var (
	// ErrInvalidKey is returned when a session key or iv has the wrong length.
	ErrInvalidKey = errors.New("crypto: invalid session key or iv")

	// ErrInvalidCiphertext is returned when a frame cannot be decoded
	// or its ciphertext is not block aligned.
	ErrInvalidCiphertext = errors.New("crypto: invalid ciphertext")

	// ErrInvalidPublicKey is returned when the bridge's PEM public key
	// cannot be parsed.
	ErrInvalidPublicKey = errors.New("crypto: invalid public key")
)

// Session holds the per-connection AES key and iv. Both are generated
// freshly for every connection and live exactly as long as it does.
type Session struct {
	Key []byte
	IV  []byte
}

// NewSession draws a fresh key and iv from the platform CSPRNG.
func NewSession() (Session, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return Session{}, fmt.Errorf("crypto: generate key: %w", err)
	}
	iv := make([]byte, IVSize)
	if _, err := rand.Read(iv); err != nil {
		return Session{}, fmt.Errorf("crypto: generate iv: %w", err)
	}
	return Session{Key: key, IV: iv}, nil
}

// EncryptFrame encrypts a plaintext frame for the wire: AES-256-CBC
// with zero padding, base64, and the trailing terminator byte.
//
// Zero padding cannot represent plaintexts ending in 0x00; the protocol
// only ever carries JSON text, which cannot end in a NUL byte.
func (s Session) EncryptFrame(plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(s.Key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	if len(s.IV) != IVSize {
		return nil, ErrInvalidKey
	}

	padded := zeroPad(plaintext)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, s.IV).CryptBlocks(ciphertext, padded)

	encoded := base64.StdEncoding.EncodeToString(ciphertext)
	frame := make([]byte, 0, len(encoded)+1)
	frame = append(frame, encoded...)
	frame = append(frame, FrameTerminator)
	return frame, nil
}

// DecryptFrame reverses EncryptFrame. A trailing terminator byte is
// accepted but not required, since fragment reassembly may already have
// stripped it.
func (s Session) DecryptFrame(frame []byte) ([]byte, error) {
	if n := len(frame); n > 0 && frame[n-1] == FrameTerminator {
		frame = frame[:n-1]
	}

	ciphertext, err := base64.StdEncoding.DecodeString(string(frame))
	if err != nil {
		return nil, fmt.Errorf("%w: base64: %w", ErrInvalidCiphertext, err)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: length %d", ErrInvalidCiphertext, len(ciphertext))
	}

	block, err := aes.NewCipher(s.Key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, s.IV).CryptBlocks(plaintext, ciphertext)

	return trimZeroPadding(plaintext), nil
}

// WrapSecret encrypts the session secret for the bridge using its
// PEM-encoded RSA public key and PKCS#1 v1.5. The secret is the ASCII
// string hex(key):::hex(iv), lowercase, no separators inside the hex.
func (s Session) WrapSecret(publicKeyPEM string) (string, error) {
	pub, err := parsePublicKey(publicKeyPEM)
	if err != nil {
		return "", err
	}

	secret := hex.EncodeToString(s.Key) + secretSeparator + hex.EncodeToString(s.IV)
	wrapped, err := rsa.EncryptPKCS1v15(rand.Reader, pub, []byte(secret))
	if err != nil {
		return "", fmt.Errorf("crypto: wrap secret: %w", err)
	}
	return base64.StdEncoding.EncodeToString(wrapped), nil
}

// parsePublicKey accepts both PKIX ("PUBLIC KEY") and PKCS#1
// ("RSA PUBLIC KEY") PEM blocks.
func parsePublicKey(publicKeyPEM string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(publicKeyPEM))
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block", ErrInvalidPublicKey)
	}

	if key, err := x509.ParsePKCS1PublicKey(block.Bytes); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPublicKey, err)
	}
	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA key", ErrInvalidPublicKey)
	}
	return pub, nil
}

// NewSalt returns a fresh 12-character login salt drawn uniformly from
// [A-Za-z0-9].
func NewSalt() (string, error) {
	salt := make([]byte, SaltLength)
	for i := range salt {
		// Rejection sampling keeps the draw uniform over the alphabet.
		for {
			var b [1]byte
			if _, err := rand.Read(b[:]); err != nil {
				return "", fmt.Errorf("crypto: generate salt: %w", err)
			}
			if int(b[0]) < 248 { // 248 = 4 * len(saltAlphabet)
				salt[i] = saltAlphabet[int(b[0])%len(saltAlphabet)]
				break
			}
		}
	}
	return string(salt), nil
}

// HashPassword derives the login password sent to the bridge:
// sha256_hex(salt || sha256_hex(deviceID || authKey)).
func HashPassword(deviceID, authKey, salt string) string {
	inner := sha256.Sum256([]byte(deviceID + authKey))
	outer := sha256.Sum256([]byte(salt + hex.EncodeToString(inner[:])))
	return hex.EncodeToString(outer[:])
}

// zeroPad right-pads the plaintext with zero bytes to the next block
// boundary. A non-empty plaintext already on a boundary is left
// unchanged; an empty plaintext becomes one block of zeros.
func zeroPad(plaintext []byte) []byte {
	rem := len(plaintext) % aes.BlockSize
	if rem == 0 && len(plaintext) > 0 {
		return plaintext
	}
	padded := make([]byte, len(plaintext)+aes.BlockSize-rem)
	copy(padded, plaintext)
	return padded
}

// trimZeroPadding strips trailing zero bytes by locating the last
// non-zero byte.
func trimZeroPadding(plaintext []byte) []byte {
	end := len(plaintext)
	for end > 0 && plaintext[end-1] == 0 {
		end--
	}
	return plaintext[:end]
}
