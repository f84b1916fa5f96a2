package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	secpecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/ripemd160"

	apperrors "nodeproof-backend/internal/common/errors"
	"nodeproof-backend/internal/features/verification/models"
)

// ChainParams pin signed-message proofs to a single network. The magic is the
// chain's signed-message prefix (without the trailing newline); the address
// version is the P2PKH version byte.
type ChainParams struct {
	MessageMagic   string
	AddressVersion byte
}

// messageSignValidator validates "address:signature" proofs by recovering the
// signing key from a compact signature over the challenge token and requiring
// the derived address to equal the claimed one. Pure CPU, no I/O.
type messageSignValidator struct {
	chain ChainParams
}

func NewMessageSignValidator(chain ChainParams) Validator {
	return &messageSignValidator{chain: chain}
}

func (v *messageSignValidator) Method() models.Method {
	return models.MethodMessageSign
}

func (v *messageSignValidator) Validate(_ context.Context, ch *models.Challenge, proof, _ string) Result {
	parts := strings.SplitN(proof, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return invalid(apperrors.ErrCodeProofFormatInvalid,
			"proof must be \"address:signature\" with the signature base64-encoded")
	}
	address, sigEncoded := parts[0], parts[1]

	version, pubKeyHash, err := decodeBase58Check(address)
	if err != nil {
		return invalid(apperrors.ErrCodeAddressFormatInvalid,
			"address is not a valid base58check string")
	}
	if version != v.chain.AddressVersion {
		// A structurally valid address from another network must not
		// verify here; that would allow cross-chain address confusion.
		return invalid(apperrors.ErrCodeAddressFormatInvalid,
			"address does not belong to the network under verification")
	}

	sig, err := base64.StdEncoding.DecodeString(sigEncoded)
	if err != nil {
		return invalid(apperrors.ErrCodeProofFormatInvalid,
			"signature is not valid base64")
	}

	// The signature is over the exact token bytes, framed the way the
	// chain's signmessage RPC frames them. No normalization.
	digest := signedMessageHash(v.chain.MessageMagic, ch.Token)
	pubKey, compressed, err := secpecdsa.RecoverCompact(sig, digest)
	if err != nil {
		return invalid(apperrors.ErrCodeSignatureInvalid,
			"signature recovery failed; sign the exact challenge token and retry")
	}

	var serialized []byte
	if compressed {
		serialized = pubKey.SerializeCompressed()
	} else {
		serialized = pubKey.SerializeUncompressed()
	}
	if !bytes.Equal(hash160(serialized), pubKeyHash) {
		return invalid(apperrors.ErrCodeSignatureInvalid,
			"signature is valid but was not produced by the claimed address")
	}

	return Result{Valid: true}
}

// signedMessageHash computes the double-SHA256 digest of the message framed
// with the chain's signed-message magic, as produced by signmessage tooling.
func signedMessageHash(magic, message string) []byte {
	var buf bytes.Buffer
	prefix := magic + "\n"
	writeCompactSize(&buf, uint64(len(prefix)))
	buf.WriteString(prefix)
	writeCompactSize(&buf, uint64(len(message)))
	buf.WriteString(message)

	first := sha256.Sum256(buf.Bytes())
	second := sha256.Sum256(first[:])
	return second[:]
}

func writeCompactSize(buf *bytes.Buffer, n uint64) {
	switch {
	case n < 0xfd:
		buf.WriteByte(byte(n))
	case n <= 0xffff:
		buf.WriteByte(0xfd)
		binary.Write(buf, binary.LittleEndian, uint16(n))
	case n <= 0xffffffff:
		buf.WriteByte(0xfe)
		binary.Write(buf, binary.LittleEndian, uint32(n))
	default:
		buf.WriteByte(0xff)
		binary.Write(buf, binary.LittleEndian, n)
	}
}

func hash160(data []byte) []byte {
	sha := sha256.Sum256(data)
	h := ripemd160.New()
	h.Write(sha[:])
	return h.Sum(nil)
}

// EncodeAddress renders a P2PKH address for the given public key under the
// chain params. Exported for test fixtures and tooling.
func EncodeAddress(chain ChainParams, pubKey *secp256k1.PublicKey, compressed bool) string {
	var serialized []byte
	if compressed {
		serialized = pubKey.SerializeCompressed()
	} else {
		serialized = pubKey.SerializeUncompressed()
	}
	payload := append([]byte{chain.AddressVersion}, hash160(serialized)...)
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	return base58.Encode(append(payload, second[:4]...))
}

func decodeBase58Check(address string) (version byte, payload []byte, err error) {
	decoded, err := base58.Decode(address)
	if err != nil {
		return 0, nil, err
	}
	if len(decoded) != 25 {
		return 0, nil, errInvalidAddressLength
	}
	body, checksum := decoded[:21], decoded[21:]
	first := sha256.Sum256(body)
	second := sha256.Sum256(first[:])
	if !bytes.Equal(second[:4], checksum) {
		return 0, nil, errInvalidAddressChecksum
	}
	return body[0], body[1:], nil
}

var (
	errInvalidAddressLength   = base58Error("invalid address length")
	errInvalidAddressChecksum = base58Error("invalid address checksum")
)

type base58Error string

func (e base58Error) Error() string { return string(e) }
