package artifacts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Artifact is a compiled contract in the shape the simulator needs:
// creation bytecode for deploy-data overrides and runtime bytecode for
// code injection.
type Artifact struct {
	ABI              json.RawMessage
	Bytecode         hexutil.Bytes
	DeployedBytecode hexutil.Bytes
}

// Two on-disk formats are standardized: the 0x artifact layout with a
// compilerOutput wrapper, and the flat {abi, bytecode, deployedBytecode}
// layout.
type rawArtifact struct {
	ABI              json.RawMessage `json:"abi"`
	Bytecode         string          `json:"bytecode"`
	DeployedBytecode string          `json:"deployedBytecode"`
	CompilerOutput   *struct {
		ABI json.RawMessage `json:"abi"`
		EVM struct {
			Bytecode struct {
				Object string `json:"object"`
			} `json:"bytecode"`
			DeployedBytecode struct {
				Object string `json:"object"`
			} `json:"deployedBytecode"`
		} `json:"evm"`
	} `json:"compilerOutput"`
}

var (
	cacheMu sync.Mutex
	cache   = map[string]*Artifact{}
)

// Load reads and standardizes a contract artifact, caching by absolute path.
func Load(path string) (*Artifact, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve artifact path: %w", err)
	}
	cacheMu.Lock()
	defer cacheMu.Unlock()
	if a, ok := cache[abs]; ok {
		return a, nil
	}
	raw, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", path, err)
	}
	var ra rawArtifact
	if err := json.Unmarshal(raw, &ra); err != nil {
		return nil, fmt.Errorf("parse artifact %s: %w", path, err)
	}
	a, err := standardize(ra)
	if err != nil {
		return nil, fmt.Errorf("artifact %s: %w", path, err)
	}
	cache[abs] = a
	return a, nil
}

func standardize(ra rawArtifact) (*Artifact, error) {
	if ra.CompilerOutput != nil {
		code, err := decodeHex(ra.CompilerOutput.EVM.Bytecode.Object)
		if err != nil {
			return nil, fmt.Errorf("bytecode: %w", err)
		}
		deployed, err := decodeHex(ra.CompilerOutput.EVM.DeployedBytecode.Object)
		if err != nil {
			return nil, fmt.Errorf("deployedBytecode: %w", err)
		}
		return &Artifact{ABI: ra.CompilerOutput.ABI, Bytecode: code, DeployedBytecode: deployed}, nil
	}
	code, err := decodeHex(ra.Bytecode)
	if err != nil {
		return nil, fmt.Errorf("bytecode: %w", err)
	}
	deployed, err := decodeHex(ra.DeployedBytecode)
	if err != nil {
		return nil, fmt.Errorf("deployedBytecode: %w", err)
	}
	return &Artifact{ABI: ra.ABI, Bytecode: code, DeployedBytecode: deployed}, nil
}

func decodeHex(s string) (hexutil.Bytes, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if !strings.HasPrefix(s, "0x") {
		s = "0x" + s
	}
	return hexutil.Decode(s)
}
