package chain

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func TestDeployedAddress_Deterministic(t *testing.T) {
	d := common.HexToAddress("0x00000000000000000000000000000000deadbeef")
	a1 := DeployedAddress(d, 3)
	a2 := DeployedAddress(d, 3)
	assert.Equal(t, a1, a2)
}

func TestDeployedAddress_DistinctPerNonceAndDeployer(t *testing.T) {
	d1 := common.HexToAddress("0x00000000000000000000000000000000deadbeef")
	d2 := common.HexToAddress("0x00000000000000000000000000000000deadbee0")
	seen := map[common.Address]bool{}
	for n := uint64(0); n < 16; n++ {
		for _, d := range []common.Address{d1, d2} {
			a := DeployedAddress(d, n)
			assert.False(t, seen[a], "collision at nonce %d", n)
			seen[a] = true
		}
	}
}

// The mainnet genesis deployer vector: the first contract created by an
// account always lands at the keccak of (deployer, 0).
func TestDeployedAddress_KnownVector(t *testing.T) {
	deployer := common.HexToAddress("0x6ac7ea33f8831ea9dcc53393aaa88b25a785dbf0")
	assert.Equal(t,
		common.HexToAddress("0xcd234a471b72ba2f1ccf0a70fcaba648a5eecd8d"),
		DeployedAddress(deployer, 0))
}

func TestDerivedAddresses_RootedAtTaker(t *testing.T) {
	assert.Equal(t, DeployedAddress(TakerAddress, 5), FullMigrationAddress)
	assert.Equal(t, DeployedAddress(TakerAddress, 6), WethTransformerAddress)
	assert.Equal(t, DeployedAddress(TakerAddress, 7), PayTakerTransformerAddress)
	assert.Equal(t, DeployedAddress(TakerAddress, 8), FillQuoteTransformerAddress)
	assert.Equal(t, DeployedAddress(FullMigrationAddress, 1), ExchangeProxyAddress)

	all := []common.Address{
		FullMigrationAddress, WethTransformerAddress,
		PayTakerTransformerAddress, FillQuoteTransformerAddress,
		ExchangeProxyAddress,
	}
	for i := range all {
		for j := i + 1; j < len(all); j++ {
			assert.NotEqual(t, all[i], all[j])
		}
	}
}
