package types

import (
	"math/big"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common/math"
)

// Network is a payment network identifier as it appears in payment requirements,
// either a named network ("base") or a CAIP-2 EVM identifier ("eip155:8453").
type Network string

const (
	NetworkBase            Network = "base"
	NetworkBaseSepolia     Network = "base-sepolia" // testnet
	NetworkEthereum        Network = "ethereum"
	NetworkEthereumSepolia Network = "ethereum-sepolia" // testnet
	NetworkAvalanche       Network = "avalanche"
	NetworkAvalancheFuji   Network = "avalanche-fuji" // testnet
)

const caip2EVMPrefix = "eip155:"

var caip2Reference = regexp.MustCompile(`^[0-9]+$`)

type networkInfo struct {
	chainID     int64
	displayName string
}

var namedNetworks = map[Network]networkInfo{
	NetworkBase:            {8453, "Base"},
	NetworkBaseSepolia:     {84532, "Base Sepolia"},
	NetworkEthereum:        {1, "Ethereum"},
	NetworkEthereumSepolia: {11155111, "Ethereum Sepolia"},
	NetworkAvalanche:       {43114, "Avalanche"},
	NetworkAvalancheFuji:   {43113, "Avalanche Fuji"},
}

var chainNames = func() map[int64]string {
	m := make(map[int64]string, len(namedNetworks))
	for _, info := range namedNetworks {
		m[info.chainID] = info.displayName
	}
	return m
}()

// ChainID resolves the network to its EVM chain id.
func (n Network) ChainID() (*big.Int, error) {
	if info, ok := namedNetworks[n]; ok {
		return big.NewInt(info.chainID), nil
	}

	if ref, ok := strings.CutPrefix(string(n), caip2EVMPrefix); ok && caip2Reference.MatchString(ref) {
		id, ok := new(big.Int).SetString(ref, 10)
		// the chain id is a uint256 in the EIP-712 domain
		if ok && id.Sign() > 0 && id.Cmp(math.MaxBig256) <= 0 {
			return id, nil
		}
	}

	return nil, &X402Error{
		Code:    ErrUnsupportedNetwork,
		Message: "unsupported network: " + string(n),
	}
}

// DisplayName returns a human readable network name for approval prompts.
// Unknown networks fall back to the raw chain id or the raw identifier.
func (n Network) DisplayName() string {
	if info, ok := namedNetworks[n]; ok {
		return info.displayName
	}

	if ref, ok := strings.CutPrefix(string(n), caip2EVMPrefix); ok && caip2Reference.MatchString(ref) {
		if id, ok := new(big.Int).SetString(ref, 10); ok && id.IsInt64() {
			if name, found := chainNames[id.Int64()]; found {
				return name
			}
		}
		return ref
	}

	return string(n)
}

// IsTestnet reports whether the network is one of the known test networks.
func (n Network) IsTestnet() bool {
	switch n {
	case NetworkBaseSepolia, NetworkEthereumSepolia, NetworkAvalancheFuji:
		return true
	}
	id, err := n.ChainID()
	if err != nil || !id.IsInt64() {
		return false
	}
	switch id.Int64() {
	case 84532, 11155111, 43113:
		return true
	}
	return false
}

func (n Network) String() string {
	return string(n)
}
