package telegram

import (
	"testing"

	"github.com/DRSN-tech/cryptoshop-bot/internal/domain"
	"github.com/DRSN-tech/cryptoshop-bot/internal/usecase"
	"github.com/DRSN-tech/cryptoshop-bot/pkg/e"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommand_Encode(t *testing.T) {
	tests := []struct {
		cmd  Command
		want string
	}{
		{BuyCommand(12), "buy:12"},
		{ChainCommand(domain.BSC), "chain:bsc"},
		{TokenCommand(domain.USDC), "token:USDC"},
		{DecisionCommand(CmdDecide, usecase.DecisionConfirm, 7), "decide:confirm:7"},
		{DecisionCommand(CmdYes, usecase.DecisionReject, 7), "yes:reject:7"},
		{DecisionCommand(CmdNo, usecase.DecisionConfirm, 9), "no:confirm:9"},
		{RedeliverCommand(3), "redeliver:3"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cmd.Encode())
			assert.LessOrEqual(t, len(tt.cmd.Encode()), 64)

			parsed, err := ParseCommand(tt.want)
			require.NoError(t, err)
			assert.Equal(t, tt.cmd, parsed)
		})
	}
}

func TestParseCommand_Invalid(t *testing.T) {
	for _, data := range []string{
		"",
		"buy",
		"buy:abc",
		"buy:-1",
		"buy:1:2",
		"chain:ethereum",
		"token:DAI",
		"decide:delete:1",
		"yes:confirm",
		"confirm_yes_1",
		"redeliver:x",
	} {
		t.Run(data, func(t *testing.T) {
			_, err := ParseCommand(data)
			assert.ErrorIs(t, err, e.ErrUnknownCommand)
		})
	}
}

func TestCommand_IsAdmin(t *testing.T) {
	assert.False(t, BuyCommand(1).IsAdmin())
	assert.False(t, ChainCommand(domain.Polygon).IsAdmin())
	assert.True(t, DecisionCommand(CmdYes, usecase.DecisionConfirm, 1).IsAdmin())
	assert.True(t, RedeliverCommand(1).IsAdmin())
}
