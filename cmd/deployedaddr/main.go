package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dexlab/quotefill/internal/chain"
)

// Prints the address a contract deploys to for a given deployer and nonce.
func main() {
	var (
		deployer = flag.String("deployer", "", "deployer address (0x...)")
		nonce    = flag.Uint64("nonce", 0, "deployer account nonce")
	)
	flag.Parse()

	if !common.IsHexAddress(*deployer) {
		fmt.Fprintln(os.Stderr, "a valid --deployer address is required")
		os.Exit(1)
	}
	fmt.Println(chain.DeployedAddress(common.HexToAddress(*deployer), *nonce).Hex())
}
