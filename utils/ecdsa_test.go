package utils_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/omni/festival-greetings/utils"
)

// well-known development key of the first hardhat account
const testKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func TestParsePrivateKey(t *testing.T) {
	t.Parallel()

	expected := common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	for _, raw := range []string{testKey, "0x" + testKey, " " + testKey + "\n"} {
		key, addr, err := utils.ParsePrivateKey(raw)
		require.NoError(t, err)
		require.NotNil(t, key)
		require.Equal(t, expected, addr)
	}

	_, _, err := utils.ParsePrivateKey("")
	require.ErrorIs(t, err, utils.ErrEmptyPrivateKey)

	_, _, err = utils.ParsePrivateKey("zz")
	require.Error(t, err)
}
