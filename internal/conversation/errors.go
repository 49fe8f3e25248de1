package conversation

import (
	"fmt"

	"github.com/DRSN-tech/cryptoshop-bot/pkg/e"
)

var (
	errUnknownFlow = e.Wrap("conversation", e.ErrSessionCorrupt)
	errFinished    = fmt.Errorf("conversation: %w: flow already finished", e.ErrNoActiveFlow)
)
