package chain

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

//go:embed GameOfLife.abi.json
var defaultABI string

// LoadABI parses the contract ABI. An empty path selects the embedded ABI;
// otherwise path may be a bare ABI array or a compiled artifact with an "abi" key.
func LoadABI(path string) (abi.ABI, error) {
	if strings.TrimSpace(path) == "" {
		return abi.JSON(strings.NewReader(defaultABI))
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return abi.ABI{}, err
	}
	raw := b
	var artifact struct {
		ABI json.RawMessage `json:"abi"`
	}
	if err := json.Unmarshal(b, &artifact); err == nil && len(artifact.ABI) > 0 {
		raw = artifact.ABI
	}
	parsed, err := abi.JSON(strings.NewReader(string(raw)))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("%s: %w", path, err)
	}
	for _, m := range []string{MethodGetCells, MethodGetMyBlock, MethodSetCells, MethodStep} {
		if _, ok := parsed.Methods[m]; !ok {
			return abi.ABI{}, fmt.Errorf("%s: missing method %s", path, m)
		}
	}
	return parsed, nil
}
