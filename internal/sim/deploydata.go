package sim

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/dexlab/quotefill/internal/artifacts"
	"github.com/dexlab/quotefill/internal/config"
)

// packDeployData builds the creation payload for one transformer: the
// artifact bytecode with any constructor arguments ABI-encoded per the
// artifact ABI and appended.
func packDeployData(art *artifacts.Artifact, args []json.RawMessage) ([]byte, error) {
	if len(args) == 0 {
		return art.Bytecode, nil
	}
	parsed, err := abi.JSON(bytes.NewReader(art.ABI))
	if err != nil {
		return nil, fmt.Errorf("parse artifact abi: %w", err)
	}
	if got, want := len(args), len(parsed.Constructor.Inputs); got != want {
		return nil, fmt.Errorf("constructor takes %d args, got %d", want, got)
	}
	vals := make([]any, len(args))
	for i, in := range parsed.Constructor.Inputs {
		v, err := coerceArg(in.Type, args[i])
		if err != nil {
			return nil, fmt.Errorf("constructor arg %d (%s): %w", i, in.Type, err)
		}
		vals[i] = v
	}
	packed, err := parsed.Pack("", vals...)
	if err != nil {
		return nil, fmt.Errorf("pack constructor args: %w", err)
	}
	return append(append([]byte{}, art.Bytecode...), packed...), nil
}

// coerceArg turns one JSON config value into the Go value the ABI packer
// expects for the declared type.
func coerceArg(t abi.Type, raw json.RawMessage) (any, error) {
	switch t.T {
	case abi.AddressTy:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		if !common.IsHexAddress(s) {
			return nil, fmt.Errorf("bad address %q", s)
		}
		return common.HexToAddress(s), nil
	case abi.UintTy, abi.IntTy:
		v, err := coerceBig(raw)
		if err != nil {
			return nil, err
		}
		return sizedInt(t, v)
	case abi.BoolTy:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, err
		}
		return b, nil
	case abi.StringTy:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return s, nil
	case abi.BytesTy:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		b, err := hexutil.Decode(s)
		if err != nil {
			return nil, err
		}
		return []byte(b), nil
	default:
		return nil, fmt.Errorf("unsupported type")
	}
}

// coerceBig accepts either a JSON string (decimal or 0x-hex) or a bare
// JSON number.
func coerceBig(raw json.RawMessage) (*big.Int, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return config.ParseBig(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("bad integer %s", raw)
	}
	return config.ParseBig(n.String())
}

func sizedInt(t abi.Type, v *big.Int) (any, error) {
	if v.Sign() < 0 && t.T == abi.UintTy {
		return nil, fmt.Errorf("negative value %s for %s", v, t)
	}
	if v.BitLen() > t.Size {
		return nil, fmt.Errorf("value %s overflows %s", v, t)
	}
	if t.T == abi.UintTy {
		switch t.Size {
		case 8:
			return uint8(v.Uint64()), nil
		case 16:
			return uint16(v.Uint64()), nil
		case 32:
			return uint32(v.Uint64()), nil
		case 64:
			return v.Uint64(), nil
		default:
			return v, nil
		}
	}
	switch t.Size {
	case 8:
		return int8(v.Int64()), nil
	case 16:
		return int16(v.Int64()), nil
	case 32:
		return int32(v.Int64()), nil
	case 64:
		return v.Int64(), nil
	default:
		return v, nil
	}
}
