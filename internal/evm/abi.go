package evm

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// Pre-computed function selectors (first 4 bytes of keccak256 of signature).
var (
	// ERC20 / ERC721
	SelectorBalanceOf           = mustDecodeHex("70a08231") // balanceOf(address)
	SelectorSymbol              = mustDecodeHex("95d89b41") // symbol()
	SelectorDecimals            = mustDecodeHex("313ce567") // decimals()
	SelectorTokenOfOwnerByIndex = mustDecodeHex("2f745c59") // tokenOfOwnerByIndex(address,uint256)

	// Uniswap V3 NonfungiblePositionManager
	SelectorPositions = mustDecodeHex("99fbab88") // positions(uint256)

	// Aave V3 Pool
	SelectorGetUserAccountData = mustDecodeHex("bf92857c") // getUserAccountData(address)
)

const wordSize = 32

func mustDecodeHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(fmt.Sprintf("invalid hex: %s", s))
	}
	return b
}

// EncodeAddress pads a 20-byte Ethereum address to a 32-byte ABI word.
func EncodeAddress(addr string) []byte {
	addr = strings.TrimPrefix(addr, "0x")
	b, _ := hex.DecodeString(addr)
	padded := make([]byte, wordSize)
	copy(padded[wordSize-len(b):], b)
	return padded
}

// EncodeUint256 encodes a big.Int as a 32-byte left-padded word.
func EncodeUint256(n *big.Int) []byte {
	padded := make([]byte, wordSize)
	b := n.Bytes()
	copy(padded[wordSize-len(b):], b)
	return padded
}

// Word returns the i-th 32-byte word of ABI-encoded data, or nil when the
// data is too short.
func Word(data []byte, i int) []byte {
	start := i * wordSize
	if start+wordSize > len(data) {
		return nil
	}
	return data[start : start+wordSize]
}

// DecodeUint256 decodes the i-th word as an unsigned big integer.
// Missing words decode to zero.
func DecodeUint256(data []byte, i int) *big.Int {
	w := Word(data, i)
	if w == nil {
		return new(big.Int)
	}
	return new(big.Int).SetBytes(w)
}

// DecodeAddress decodes the i-th word as a 0x-prefixed lowercase address.
func DecodeAddress(data []byte, i int) string {
	w := Word(data, i)
	if w == nil {
		return ""
	}
	return "0x" + hex.EncodeToString(w[12:])
}

// DecodeString decodes a dynamic ABI string return value (offset, length,
// bytes). Contracts that return bytes32 symbols are handled by trimming the
// zero padding.
func DecodeString(data []byte) string {
	if len(data) == wordSize {
		// bytes32-style symbol
		return string(trimRightZeros(data))
	}
	if len(data) < 2*wordSize {
		return ""
	}
	offset := DecodeUint256(data, 0).Int64()
	if offset < 0 || offset+wordSize > int64(len(data)) {
		return ""
	}
	length := new(big.Int).SetBytes(data[offset : offset+wordSize]).Int64()
	start := offset + wordSize
	if length < 0 || start+length > int64(len(data)) {
		return ""
	}
	return string(data[start : start+length])
}

func trimRightZeros(b []byte) []byte {
	end := len(b)
	for end > 0 && b[end-1] == 0 {
		end--
	}
	return b[:end]
}

// EncodeBalanceOf builds calldata for balanceOf(address).
func EncodeBalanceOf(account string) []byte {
	data := make([]byte, 0, 4+wordSize)
	data = append(data, SelectorBalanceOf...)
	data = append(data, EncodeAddress(account)...)
	return data
}

// EncodeTokenOfOwnerByIndex builds calldata for tokenOfOwnerByIndex(owner, index).
func EncodeTokenOfOwnerByIndex(owner string, index int64) []byte {
	data := make([]byte, 0, 4+2*wordSize)
	data = append(data, SelectorTokenOfOwnerByIndex...)
	data = append(data, EncodeAddress(owner)...)
	data = append(data, EncodeUint256(big.NewInt(index))...)
	return data
}

// EncodePositions builds calldata for NonfungiblePositionManager.positions(tokenId).
func EncodePositions(tokenID *big.Int) []byte {
	data := make([]byte, 0, 4+wordSize)
	data = append(data, SelectorPositions...)
	data = append(data, EncodeUint256(tokenID)...)
	return data
}

// EncodeGetUserAccountData builds calldata for Pool.getUserAccountData(user).
func EncodeGetUserAccountData(user string) []byte {
	data := make([]byte, 0, 4+wordSize)
	data = append(data, SelectorGetUserAccountData...)
	data = append(data, EncodeAddress(user)...)
	return data
}

// ToFloat converts a base-unit integer to a float using the given number of
// decimals. Precision loss is acceptable for USD display values.
func ToFloat(n *big.Int, decimals int) float64 {
	if n == nil {
		return 0
	}
	f := new(big.Float).SetInt(n)
	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	out, _ := new(big.Float).Quo(f, scale).Float64()
	return out
}
