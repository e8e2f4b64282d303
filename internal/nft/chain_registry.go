package nft

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ipxlabs/rts/internal/config"
	"github.com/ipxlabs/rts/internal/logger"
)

// 份额凭证登记合约ABI（简化版）
const registryABI = `[
	{
		"inputs": [
			{"name": "campaignId", "type": "uint256"},
			{"name": "owner", "type": "address"},
			{"name": "amount", "type": "uint256"},
			{"name": "shareBps", "type": "uint256"},
			{"name": "requestId", "type": "string"}
		],
		"name": "mint",
		"outputs": [{"name": "tokenId", "type": "uint256"}],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [{"name": "tokenId", "type": "uint256"}],
		"name": "ownerOf",
		"outputs": [{"name": "", "type": "address"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"name": "owner", "type": "address"}],
		"name": "tokensOf",
		"outputs": [{"name": "", "type": "uint256[]"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"name": "tokenId", "type": "uint256"}],
		"name": "shareOf",
		"outputs": [
			{"name": "campaignId", "type": "uint256"},
			{"name": "amount", "type": "uint256"},
			{"name": "shareBps", "type": "uint256"},
			{"name": "mintedAt", "type": "uint256"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "tokenId", "type": "uint256"},
			{"indexed": true, "name": "campaignId", "type": "uint256"},
			{"indexed": true, "name": "owner", "type": "address"},
			{"indexed": false, "name": "shareBps", "type": "uint256"}
		],
		"name": "Minted",
		"type": "event"
	}
]`

// ChainRegistry 链上凭证登记，通过登记合约提交铸造交易
type ChainRegistry struct {
	client      *ethclient.Client
	contract    *bind.BoundContract
	registryABI abi.ABI
	privateKey  *ecdsa.PrivateKey
	chainId     *big.Int
	addr        common.Address
}

func NewChainRegistry(cfg config.ChainConfig) (*ChainRegistry, error) {
	// 连接以太坊客户端
	client, err := ethclient.Dial(cfg.RpcUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ethereum client: %w", err)
	}

	// 解析私钥
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	// 解析ABI
	parsedABI, err := abi.JSON(strings.NewReader(registryABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse registry ABI: %w", err)
	}

	addr := common.HexToAddress(cfg.RegistryAddr)
	contract := bind.NewBoundContract(addr, parsedABI, client, client, client)

	return &ChainRegistry{
		client:      client,
		contract:    contract,
		registryABI: parsedABI,
		privateKey:  privateKey,
		chainId:     big.NewInt(cfg.ChainId),
		addr:        addr,
	}, nil
}

// Mint 提交铸造交易并等待上链，从Minted事件中取tokenId
func (r *ChainRegistry) Mint(ctx context.Context, req MintRequest) (int64, error) {
	auth, err := bind.NewKeyedTransactorWithChainID(r.privateKey, r.chainId)
	if err != nil {
		return 0, fmt.Errorf("failed to create transactor: %w", err)
	}
	auth.Context = ctx

	tx, err := r.contract.Transact(auth, "mint",
		big.NewInt(req.CampaignId),
		common.HexToAddress(req.Owner),
		big.NewInt(req.Amount),
		big.NewInt(req.ShareBps),
		req.RequestId,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to submit mint tx: %w", err)
	}

	logger.Info("Mint tx submitted: campaign=%d owner=%s tx=%s", req.CampaignId, req.Owner, tx.Hash().Hex())

	receipt, err := bind.WaitMined(ctx, r.client, tx)
	if err != nil {
		return 0, fmt.Errorf("failed to wait for mint tx: %w", err)
	}
	if receipt.Status == 0 {
		return 0, fmt.Errorf("mint tx reverted: %s", tx.Hash().Hex())
	}

	// 从回执日志里解析Minted事件
	mintedId := r.registryABI.Events["Minted"].ID
	for _, log := range receipt.Logs {
		if log.Address != r.addr || len(log.Topics) < 2 || log.Topics[0] != mintedId {
			continue
		}
		tokenId := new(big.Int).SetBytes(log.Topics[1].Bytes())
		return tokenId.Int64(), nil
	}

	return 0, fmt.Errorf("mint tx mined but Minted event not found: %s", tx.Hash().Hex())
}

// OwnerOf 查询凭证持有人
func (r *ChainRegistry) OwnerOf(ctx context.Context, tokenId int64) (string, error) {
	var out []interface{}
	err := r.contract.Call(&bind.CallOpts{Context: ctx}, &out, "ownerOf", big.NewInt(tokenId))
	if err != nil {
		return "", fmt.Errorf("failed to query owner of token %d: %w", tokenId, err)
	}
	owner := *abi.ConvertType(out[0], new(common.Address)).(*common.Address)
	return owner.Hex(), nil
}

// TokensOf 查询某地址持有的全部凭证
func (r *ChainRegistry) TokensOf(ctx context.Context, owner string) ([]int64, error) {
	var out []interface{}
	err := r.contract.Call(&bind.CallOpts{Context: ctx}, &out, "tokensOf", common.HexToAddress(owner))
	if err != nil {
		return nil, fmt.Errorf("failed to query tokens of %s: %w", owner, err)
	}
	raw := *abi.ConvertType(out[0], new([]*big.Int)).(*[]*big.Int)
	tokens := make([]int64, 0, len(raw))
	for _, id := range raw {
		tokens = append(tokens, id.Int64())
	}
	return tokens, nil
}

// GetMetadata 查询凭证元数据
func (r *ChainRegistry) GetMetadata(ctx context.Context, tokenId int64) (*Metadata, error) {
	owner, err := r.OwnerOf(ctx, tokenId)
	if err != nil {
		return nil, err
	}

	var out []interface{}
	err = r.contract.Call(&bind.CallOpts{Context: ctx}, &out, "shareOf", big.NewInt(tokenId))
	if err != nil {
		return nil, fmt.Errorf("failed to query share of token %d: %w", tokenId, err)
	}

	campaignId := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
	amount := *abi.ConvertType(out[1], new(*big.Int)).(**big.Int)
	shareBps := *abi.ConvertType(out[2], new(*big.Int)).(**big.Int)
	mintedAt := *abi.ConvertType(out[3], new(*big.Int)).(**big.Int)

	return &Metadata{
		TokenId:    tokenId,
		CampaignId: campaignId.Int64(),
		Owner:      owner,
		Amount:     amount.Int64(),
		ShareBps:   shareBps.Int64(),
		MintedAt:   time.Unix(mintedAt.Int64(), 0),
	}, nil
}
