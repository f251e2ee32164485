package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"lifechain.ai/internal/grid"
)

type Options struct {
	RPCURL   string
	ABIPath  string
	Contract common.Address
	Key      *ecdsa.PrivateKey
	ChainID  *big.Int
	GasPrice *big.Int
	// GasLimit of 0 means estimate per transaction.
	GasLimit uint64
}

// EthClient talks JSON-RPC to an EVM node and signs legacy EIP-155 transactions.
type EthClient struct {
	rpc      *ethclient.Client
	abi      abi.ABI
	contract common.Address
	key      *ecdsa.PrivateKey
	from     common.Address
	chainID  *big.Int
	gasPrice *big.Int
	gasLimit uint64
}

func Dial(ctx context.Context, opts Options) (*EthClient, error) {
	if opts.Key == nil {
		return nil, fmt.Errorf("chain: signing key is required")
	}
	if opts.ChainID == nil || opts.ChainID.Sign() <= 0 {
		return nil, fmt.Errorf("chain: chain id must be positive")
	}
	parsed, err := LoadABI(opts.ABIPath)
	if err != nil {
		return nil, fmt.Errorf("chain: abi: %w", err)
	}
	rpc, err := ethclient.DialContext(ctx, opts.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial: %w", err)
	}
	remoteID, err := rpc.ChainID(ctx)
	if err != nil {
		rpc.Close()
		return nil, fmt.Errorf("chain: chain id: %w", err)
	}
	if remoteID.Cmp(opts.ChainID) != 0 {
		rpc.Close()
		return nil, fmt.Errorf("chain: endpoint chain id %s does not match configured %s", remoteID, opts.ChainID)
	}
	gasPrice := opts.GasPrice
	if gasPrice == nil {
		gasPrice = GweiToWei(1)
	}
	return &EthClient{
		rpc:      rpc,
		abi:      parsed,
		contract: opts.Contract,
		key:      opts.Key,
		from:     crypto.PubkeyToAddress(opts.Key.PublicKey),
		chainID:  new(big.Int).Set(opts.ChainID),
		gasPrice: new(big.Int).Set(gasPrice),
		gasLimit: opts.GasLimit,
	}, nil
}

func (c *EthClient) Close() { c.rpc.Close() }

func (c *EthClient) Caller() common.Address   { return c.from }
func (c *EthClient) Contract() common.Address { return c.contract }

func (c *EthClient) BlockNumber(ctx context.Context) (uint64, error) {
	return c.rpc.BlockNumber(ctx)
}

func (c *EthClient) BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error) {
	return c.rpc.BalanceAt(ctx, addr, nil)
}

func (c *EthClient) Cells(ctx context.Context) (grid.Packed, error) {
	var p grid.Packed
	out, err := c.call(ctx, MethodGetCells)
	if err != nil {
		return p, err
	}
	words, ok := abi.ConvertType(out[0], new([grid.Words]*big.Int)).(*[grid.Words]*big.Int)
	if !ok {
		return p, fmt.Errorf("chain: %s: unexpected result type %T", MethodGetCells, out[0])
	}
	copy(p[:], words[:])
	return p, nil
}

func (c *EthClient) LastStepHeight(ctx context.Context) (uint64, error) {
	out, err := c.call(ctx, MethodGetMyBlock)
	if err != nil {
		return 0, err
	}
	v, ok := out[0].(*big.Int)
	if !ok || !v.IsUint64() {
		return 0, fmt.Errorf("chain: %s: unexpected result %v", MethodGetMyBlock, out[0])
	}
	return v.Uint64(), nil
}

func (c *EthClient) call(ctx context.Context, method string, args ...any) ([]any, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("chain: pack %s: %w", method, err)
	}
	raw, err := c.rpc.CallContract(ctx, ethereum.CallMsg{From: c.from, To: &c.contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("chain: call %s: %w", method, err)
	}
	out, err := c.abi.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("chain: unpack %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("chain: %s returned no values", method)
	}
	return out, nil
}

func (c *EthClient) Submit(ctx context.Context, call Call) (Tx, error) {
	var out Tx
	data, err := c.abi.Pack(call.Method, call.Args...)
	if err != nil {
		return out, fmt.Errorf("chain: pack %s: %w", call.Method, err)
	}
	nonce, err := c.rpc.PendingNonceAt(ctx, c.from)
	if err != nil {
		return out, fmt.Errorf("chain: nonce: %w", err)
	}
	gas := c.gasLimit
	if gas == 0 {
		gas, err = c.rpc.EstimateGas(ctx, ethereum.CallMsg{
			From:     c.from,
			To:       &c.contract,
			GasPrice: c.gasPrice,
			Data:     data,
		})
		if err != nil {
			return out, fmt.Errorf("chain: estimate gas for %s: %w", call.Method, err)
		}
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: c.gasPrice,
		Gas:      gas,
		To:       &c.contract,
		Value:    new(big.Int),
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.NewEIP155Signer(c.chainID), c.key)
	if err != nil {
		return out, fmt.Errorf("chain: sign: %w", err)
	}
	out = Tx{
		ChainID:  new(big.Int).Set(c.chainID),
		Nonce:    nonce,
		GasPrice: new(big.Int).Set(c.gasPrice),
		Gas:      gas,
		To:       c.contract.Hex(),
		Value:    new(big.Int),
		Data:     hexutil.Encode(data),
		Hash:     signed.Hash().Hex(),
	}
	if err := c.rpc.SendTransaction(ctx, signed); err != nil {
		return out, fmt.Errorf("chain: send %s: %w", call.Method, err)
	}
	return out, nil
}
