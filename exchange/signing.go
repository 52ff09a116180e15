package exchange

import (
	"crypto/ecdsa"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/samber/mo"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/perpdesk/go-perpdesk/constants"
)

// signL1Action signs an action with the agent key using EIP-712 typed data
// signing. The action itself never appears in the typed data; only its hash
// does, wrapped in a synthetic "phantom agent" message whose source byte
// distinguishes mainnet from testnet.
func signL1Action(
	a action,
	nonce uint64,
	key *ecdsa.PrivateKey,
	vaultAddress mo.Option[common.Address],
	expiresAfter mo.Option[time.Duration],
	isMainnet bool,
) (Signature, error) {
	actionHash, err := hashAction(a, vaultAddress, nonce, expiresAfter)
	if err != nil {
		return Signature{}, fmt.Errorf("failed to create action hash: %w", err)
	}

	phantomAgent := constructPhantomAgent(actionHash, isMainnet)
	typedData := l1Payload(phantomAgent)

	hash, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return Signature{}, fmt.Errorf(
			"failed generating hash for typed data: %w",
			err,
		)
	}

	return signHash(common.BytesToHash(hash), key)
}

// hashAction is the Keccak256 of msgpack(action) followed by the big-endian
// nonce, the vault marker byte and the optional expiry.
func hashAction(
	a action,
	vaultAddress mo.Option[common.Address],
	nonce uint64,
	expiresAfter mo.Option[time.Duration],
) (common.Hash, error) {
	data, err := msgpack.Marshal(a)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to marshal action: %w", err)
	}

	nonceBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(nonceBytes, nonce)
	data = append(data, nonceBytes...)

	if v, ok := vaultAddress.Get(); ok {
		data = append(data, 0x01)
		data = append(data, v.Bytes()...)
	} else {
		data = append(data, 0x00)
	}

	if e, ok := expiresAfter.Get(); ok {
		data = append(data, 0x00)
		eBytes := make([]byte, 8)
		binary.BigEndian.PutUint64(eBytes, uint64(e.Milliseconds()))
		data = append(data, eBytes...)
	}

	return crypto.Keccak256Hash(data), nil
}

// signHash signs a hash with the agent key and returns an
// Ethereum-canonical signature.
func signHash(hash common.Hash, key *ecdsa.PrivateKey) (Signature, error) {
	var out Signature

	sig, err := crypto.Sign(hash.Bytes(), key)
	if err != nil {
		return out, fmt.Errorf("failed to sign: %w", err)
	}

	if len(sig) != 65 {
		return out, fmt.Errorf("invalid signature length: %d", len(sig))
	}

	// sig = [R || S || V]
	copy(out.R[:], sig[:32])
	copy(out.S[:], sig[32:64])
	v := sig[64]

	// Ethereum canonical V = 27 or 28
	if v < 27 {
		v += 27
	}

	out.V = v

	return out, nil
}

func constructPhantomAgent(
	hash common.Hash,
	isMainnet bool,
) apitypes.TypedDataMessage {
	var source string
	if isMainnet {
		source = "a"
	} else {
		source = "b"
	}

	return apitypes.TypedDataMessage{
		"source":       source,
		"connectionId": hash,
	}
}

func l1Payload(
	phantomAgent apitypes.TypedDataMessage,
) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Agent": {
				{Name: "source", Type: "string"},
				{Name: "connectionId", Type: "bytes32"},
			},
		},
		PrimaryType: "Agent",
		Domain: apitypes.TypedDataDomain{
			Name:              "Exchange",
			Version:           "1",
			ChainId:           math.NewHexOrDecimal256(1337),
			VerifyingContract: constants.ZERO_ADDRESS.Hex(),
		},
		Message: phantomAgent,
	}
}
