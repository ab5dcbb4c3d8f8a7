package chain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// DeployedAddress computes the contract-creation address for a deployer
// and deployment nonce: keccak256(rlp([deployer, nonce]))[12:]. Pure and
// deterministic, so override maps can pre-compute where contracts land
// before the node ever sees the deployment.
func DeployedAddress(deployer common.Address, nonce uint64) common.Address {
	return crypto.CreateAddress(deployer, nonce)
}

// TakerAddress is where the market-call taker contract is injected. It is
// a vanity address with no real deployment; every address below is derived
// from it, so the same override set always reproduces the same world.
var TakerAddress = common.HexToAddress("0xa59729fad14aa48ff33e1ff097737be04dddccc9")

// GasTokenAddress is the GST2 singleton, overridden with a no-op so gas
// token refunds cannot distort simulated gas numbers.
var GasTokenAddress = common.HexToAddress("0x0000000000b3F879cb30FE243b4Dfee438691c04")

// Deployment-nonce layout of the injected taker. The taker's nonce starts
// at 0 because its code is injected rather than deployed.
var (
	FullMigrationAddress        = DeployedAddress(TakerAddress, 5)
	WethTransformerAddress      = DeployedAddress(TakerAddress, 6)
	PayTakerTransformerAddress  = DeployedAddress(TakerAddress, 7)
	FillQuoteTransformerAddress = DeployedAddress(TakerAddress, 8)
	ExchangeProxyAddress        = DeployedAddress(FullMigrationAddress, 1)
)
