package contract

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/omni/festival-greetings/contract/abi"
	"github.com/omni/festival-greetings/entity"
	"github.com/omni/festival-greetings/ethclient"
)

type Contract struct {
	Address common.Address
	client  ethclient.Client
	abi     abi.ABI
}

func NewContract(client ethclient.Client, addr common.Address, contractABI abi.ABI) *Contract {
	return &Contract{addr, client, contractABI}
}

func (c *Contract) AllEvents() map[string]bool {
	return c.abi.AllEvents()
}

// Call executes a read-only method and returns its unpacked outputs.
func (c *Contract) Call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("cannot encode abi calldata: %w", err)
	}
	res, err := c.client.CallContract(ctx, ethereum.CallMsg{
		To:   &c.Address,
		Data: data,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot call %s(...): %w", method, err)
	}
	values, err := c.abi.Unpack(method, res)
	if err != nil {
		return nil, fmt.Errorf("cannot decode %s(...) result: %w", method, err)
	}
	return values, nil
}

func (c *Contract) ParseLog(log *entity.Log) (string, map[string]interface{}, error) {
	return c.abi.ParseLog(log)
}
